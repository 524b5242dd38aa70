package main

import (
	"fmt"
	"os"
	"path"
	"runtime"
	"runtime/pprof"
	"sort"

	"github.com/goccy/go-graphviz"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/tarstars/gradient_tree_boosting/golang/tree_boost/gtb"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
)

func readDataset(featuresFile, labelsFile, sparseFile string) (gtb.Dataset, error) {
	if sparseFile != "" {
		return gtb.ReadSparseFile(sparseFile)
	}
	return gtb.ReadDataset(featuresFile, labelsFile)
}

func train(srcConfig string) error {
	var trainConfig TrainConfig
	if err := decodeConfig(srcConfig, trainDefaults(), &trainConfig); err != nil {
		return err
	}
	logger, err := newLogger(trainConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	params, err := trainConfig.HyperParams()
	if err != nil {
		return err
	}

	logger.Info("load train")
	datasetTrain, err := readDataset(trainConfig.FileNameTrainFeatures, trainConfig.FileNameTrainLabels, trainConfig.FileNameTrainSparse)
	if err != nil {
		return err
	}

	var datasetTests []gtb.Dataset
	for _, testConfig := range trainConfig.Tests {
		logger.Info("load test", zap.String("description", testConfig.Description))
		dataset, err := readDataset(testConfig.FileNameTestFeatures, testConfig.FileNameTestLabels, testConfig.FileNameTestSparse)
		if err != nil {
			return err
		}
		dataset.SetDescription(testConfig.Description)
		datasetTests = append(datasetTests, dataset)
	}

	collector := &gtb.RecordCollector{}
	emitter := gtb.NewEvaluationEmitter(collector, logger, datasetTests...)
	err = gtb.TrainBooster(gtb.BoosterParams{
		Matrix:  datasetTrain.Matrix,
		Labels:  datasetTrain.Labels,
		Hyper:   params,
		Emitter: emitter,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	if err := gtb.SaveRecords(trainConfig.FileNameModel, collector.Records); err != nil {
		return err
	}
	if trainConfig.FileNameLearningCurve != "" {
		if err := gtb.DumpLearningCurve(trainConfig.FileNameLearningCurve, collector.Records); err != nil {
			return err
		}
	}
	if trainConfig.FileNameImportance != "" {
		if err := gtb.DumpImportance(trainConfig.FileNameImportance, collector.Records); err != nil {
			return err
		}
	}
	printSummary(collector.Records)
	return nil
}

//printSummary renders the OOB error of every tenth iteration and of the last one.
func printSummary(records []gtb.IterationRecord) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("BOOSTING SUMMARY")
	t.AppendHeader(table.Row{"Iteration", "Trees", "Intercept", "Shrinkage", "OOB error"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Iteration", Align: text.AlignRight},
		{Name: "OOB error", Align: text.AlignRight},
	})
	for ind, record := range records {
		if record.Iteration%10 != 0 && ind != len(records)-1 {
			continue
		}
		t.AppendRow(table.Row{record.Iteration, len(record.Models), fmt.Sprintf("%.5f", record.Intercept),
			record.Shrinkage, fmt.Sprintf("%.4f", record.OOBErrorRate)})
	}
	t.Render()
}

func graph(srcConfig string) error {
	var graphConfig GraphConfig
	if err := decodeConfig(srcConfig, graphDefaults(), &graphConfig); err != nil {
		return err
	}
	logger, err := newLogger(graphConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	graphvizType, ok := map[string]graphviz.Format{
		"png": graphviz.PNG,
		"svg": graphviz.SVG,
		"jpg": graphviz.JPG,
	}[graphConfig.FigureType]
	if !ok {
		return errors.Errorf("unknown figure type %q", graphConfig.FigureType)
	}

	records, err := gtb.LoadRecords(graphConfig.ModelFileName)
	if err != nil {
		return err
	}
	for _, record := range records {
		if graphConfig.Iteration != 0 && record.Iteration != graphConfig.Iteration {
			continue
		}
		trees, err := record.Trees()
		if err != nil {
			return err
		}
		for class, tree := range trees {
			filename := fmt.Sprintf("%s_%05d_%02d.%s", graphConfig.DumpPrefix, record.Iteration, class, graphConfig.FigureType)
			if err := renderTree(tree, graphvizType, path.Join(graphConfig.PicturesDirectory, filename)); err != nil {
				return err
			}
			logger.Debug("rendered", zap.String("file", filename))
		}
	}
	return nil
}

func renderTree(tree *gtb.RegressionTree, format graphviz.Format, fileName string) error {
	graphViz, graph, err := tree.DrawGraph()
	if err != nil {
		return err
	}
	defer graphViz.Close()
	defer graph.Close()
	return errors.Wrapf(graphViz.RenderFilename(graph, format, fileName), "render %s", fileName)
}

func importance(srcConfig string) error {
	var importanceConfig ImportanceConfig
	if err := decodeConfig(srcConfig, importanceDefaults(), &importanceConfig); err != nil {
		return err
	}
	records, err := gtb.LoadRecords(importanceConfig.ModelFileName)
	if err != nil {
		return err
	}
	if importanceConfig.FileNameImportance != "" {
		if err := gtb.DumpImportance(importanceConfig.FileNameImportance, records); err != nil {
			return err
		}
	}
	if len(records) == 0 {
		return errors.New("model has no iterations")
	}

	total := make([]float64, records[0].NumFeatures())
	for _, record := range records {
		if record.NumFeatures() != len(total) {
			return errors.Errorf("iteration %d has %d importances, expected %d", record.Iteration, record.NumFeatures(), len(total))
		}
		floats.Add(total, record.Importance)
	}
	features := make([]int, len(total))
	for ind := range features {
		features[ind] = ind
	}
	sort.SliceStable(features, func(i, j int) bool { return total[features[i]] > total[features[j]] })

	sum := floats.Sum(total)
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("VARIABLE IMPORTANCE")
	t.AppendHeader(table.Row{"Rank", "Feature", "Importance", "Share"})
	for rank, feature := range features {
		if rank == importanceConfig.Top {
			break
		}
		share := 0.0
		if sum > 0 {
			share = total[feature] / sum
		}
		t.AppendRow(table.Row{rank + 1, feature, fmt.Sprintf("%.6g", total[feature]), fmt.Sprintf("%.2f%%", 100*share)})
	}
	t.Render()
	return nil
}

func lcurve(srcConfig string) error {
	var lcurveConfig LcurveConfig
	if err := decodeConfig(srcConfig, lcurveDefaults(), &lcurveConfig); err != nil {
		return err
	}
	logger, err := newLogger(lcurveConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	records, err := gtb.LoadRecords(lcurveConfig.ModelFileName)
	if err != nil {
		return err
	}
	test := lcurveConfig.Test
	dataset, err := readDataset(test.FileNameTestFeatures, test.FileNameTestLabels, test.FileNameTestSparse)
	if err != nil {
		return err
	}
	dataset.SetDescription(test.Description)

	emitter := gtb.NewEvaluationEmitter(nil, logger, dataset)
	for _, record := range records {
		if err := emitter.Emit(record); err != nil {
			return err
		}
	}
	if lcurveConfig.LearningCurveFileName == "" {
		return nil
	}
	curve := make([]gtb.IterationRecord, len(records))
	for ind, record := range records {
		// the error rate of the test set takes the place of the OOB error
		curve[ind] = gtb.IterationRecord{Iteration: record.Iteration, OOBErrorRate: float32(emitter.Curve[ind][0])}
	}
	return gtb.DumpLearningCurve(lcurveConfig.LearningCurveFileName, curve)
}

func main() {
	runMode := pflag.String("mode", "train", "you can select either 'train', 'graph', 'importance' or 'lcurve' modes")
	config := pflag.String("config", "gtb_config.json", "a config file for the run of the program")
	memprofile := pflag.String("memprofile", "", "write memory profile to `file`")

	pflag.Parse()

	mode, ok := map[string]func(string) error{
		"train":      train,
		"graph":      graph,
		"importance": importance,
		"lcurve":     lcurve,
	}[*runMode]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", *runMode)
		pflag.Usage()
		os.Exit(2)
	}

	if err := mode(*config); err != nil {
		logger, _ := zap.NewProduction()
		logger.Fatal("run failed", zap.String("mode", *runMode), zap.Error(err))
	}

	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "could not create memory profile: ", err)
			os.Exit(1)
		}
		defer f.Close()
		runtime.GC()
		if err := pprof.WriteHeapProfile(f); err != nil {
			fmt.Fprintln(os.Stderr, "could not write memory profile: ", err)
		}
	}
}
