package gtb

import (
	"math"

	mapset "github.com/deckarep/golang-set"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

//BoosterParams collect arguments required to train a booster.
type BoosterParams struct {
	Matrix   FeatureMatrix
	Labels   []int
	Hyper    HyperParams
	Emitter  Emitter
	Reporter Reporter    // NopReporter when nil
	Learner  TreeLearner // RegressionTreeLearner when nil
	Logger   *zap.Logger // no logging when nil
}

//boostingRun is the state shared by the two-class and the K-class trainers.
type boostingRun struct {
	x          FeatureMatrix
	labels     []int
	k          int
	hyper      HyperParams
	attributes []Attribute
	numVars    int
	order      *OrderIndex
	sampler    *BagSampler
	streams    randomStreams
	emitter    Emitter
	reporter   Reporter
	learner    TreeLearner
	logger     *zap.Logger
	row        *RowVector
}

//TrainBooster runs Logit boosting over the labelled rows and emits one record per iteration.
//Two distinct labels train a two-class model, more train a K-class model with k = max(label)+1.
func TrainBooster(params BoosterParams) error {
	if err := params.Hyper.Validate(); err != nil {
		return err
	}
	if params.Emitter == nil {
		return configErrorf("no emitter for iteration records")
	}
	k, err := checkData(params.Matrix, params.Labels)
	if err != nil {
		return err
	}
	attributes, err := ResolveAttributes(params.Hyper.Attributes, params.Matrix)
	if err != nil {
		return err
	}

	run := &boostingRun{
		k:          k,
		hyper:      params.Hyper,
		attributes: attributes,
		numVars:    ResolveNumVars(params.Hyper.NumVars, params.Matrix.Cols()),
		emitter:    params.Emitter,
		reporter:   params.Reporter,
		learner:    params.Learner,
		logger:     params.Logger,
	}
	if run.reporter == nil {
		run.reporter = NopReporter{}
	}
	if run.learner == nil {
		run.learner = RegressionTreeLearner{}
	}
	if run.logger == nil {
		run.logger = zap.NewNop()
	}

	seed := params.Hyper.resolveSeed()
	streams := newRandomStreams(seed)
	run.streams = streams

	n := params.Matrix.Rows()
	perm := shufflePermutation(streams.shuffle, n)
	run.x = params.Matrix.Permuted(perm)
	run.labels = make([]int, n)
	for ind, source := range perm {
		run.labels[ind] = params.Labels[source]
	}
	run.order = NewOrderIndex(run.x)
	run.sampler = NewBagSampler(streams.bagging, n, numSamplesFor(n, params.Hyper.Subsample))
	run.row = run.x.RowVector()

	run.logger.Info("start boosting", params.Hyper.logFields(k, run.numVars, seed)...)
	if k == 2 {
		return run.trainTwoClass()
	}
	return run.trainKClass()
}

//checkData validates the labels and returns the number of classes.
func checkData(x FeatureMatrix, labels []int) (int, error) {
	if x == nil {
		return 0, dataErrorf("no feature matrix")
	}
	if len(labels) != x.Rows() {
		return 0, dataErrorf("%d labels for %d rows", len(labels), x.Rows())
	}
	if x.Cols() == 0 {
		return 0, dataErrorf("feature matrix has no columns")
	}
	distinct := mapset.NewSet()
	maxLabel := 0
	for ind, label := range labels {
		if label < 0 {
			return 0, dataErrorf("negative label %d at row %d", label, ind)
		}
		distinct.Add(label)
		if label > maxLabel {
			maxLabel = label
		}
	}
	if distinct.Cardinality() < 2 {
		return 0, dataErrorf("%d distinct labels, at least 2 are required", distinct.Cardinality())
	}
	return maxLabel + 1, nil
}

//twoClassResponse is the negative gradient of the two-class logistic loss for y in {-1, +1}.
//An underflowed response keeps its sign as the smallest non-zero value.
func twoClassResponse(y, h float64) float64 {
	response := 2 * y / (1 + math.Exp(2*y*h))
	if response == 0 {
		return math.Copysign(math.SmallestNonzeroFloat64, y)
	}
	return response
}

//softmax writes the class probabilities of scores into probabilities. Underflowed probabilities
//are raised to the smallest non-zero value so every probability stays in (0, 1].
func softmax(scores, probabilities []float64) {
	maxScore := floats.Max(scores)
	sum := 0.0
	for ind, score := range scores {
		probabilities[ind] = math.Exp(score - maxScore)
		sum += probabilities[ind]
	}
	floats.Scale(1/sum, probabilities)
	for ind, p := range probabilities {
		if p == 0 {
			probabilities[ind] = math.SmallestNonzeroFloat64
		}
	}
}

//fitTree reports progress and fits one tree, wrapping failures into a LearnerError.
func (run *boostingRun) fitTree(iteration, class int, response []float64, bag []int, output NodeOutput) (Tree, error) {
	run.reporter.ReportProgress()
	tree, err := run.learner.Fit(FitTask{
		Attributes:      run.attributes,
		X:               run.x,
		Response:        response,
		NumVars:         run.numVars,
		MaxDepth:        run.hyper.MaxDepth,
		MaxLeafNodes:    run.hyper.MaxLeafNodes,
		MinSamplesSplit: run.hyper.MinSamplesSplit,
		MinSamplesLeaf:  run.hyper.MinSamplesLeaf,
		Order:           run.order,
		Bag:             bag,
		Output:          output,
		Rng:             run.streams.tree,
	})
	if err == nil && tree == nil {
		err = errors.New("learner returned no tree")
	}
	if err != nil {
		return nil, errors.WithStack(&LearnerError{Iteration: iteration, Class: class, Err: err})
	}
	return tree, nil
}

//emit packages the trees of one iteration and forwards the record.
func (run *boostingRun) emit(iteration int, trees []Tree, intercept float64, oobTests, oobErrors int) error {
	importance, err := aggregateImportance(trees, run.x.Cols())
	if err != nil {
		return errors.WithStack(&LearnerError{Iteration: iteration, Err: err})
	}
	models, err := encodeModels(trees)
	if err != nil {
		return errors.Wrapf(err, "iteration %d", iteration)
	}
	var oobErrorRate float32
	if oobTests > 0 {
		oobErrorRate = float32(oobErrors) / float32(oobTests)
	}

	record := IterationRecord{
		Iteration:    iteration,
		Models:       models,
		Intercept:    intercept,
		Shrinkage:    run.hyper.LearningRate,
		Importance:   importance,
		OOBErrorRate: oobErrorRate,
	}
	if err := run.emitter.Emit(record); err != nil {
		return errors.Wrapf(err, "emit iteration %d", iteration)
	}
	run.reporter.IncrCounter(1)
	run.logger.Debug("iteration",
		zap.Int("iteration", iteration),
		zap.Int("oobTests", oobTests),
		zap.Float32("oobErrorRate", oobErrorRate))
	return nil
}

func (run *boostingRun) trainTwoClass() error {
	n := run.x.Rows()
	eta := run.hyper.LearningRate
	y := make([]float64, n)
	for ind, label := range run.labels {
		y[ind] = 1
		if label == 0 {
			y[ind] = -1
		}
	}

	mean := stat.Mean(y, nil)
	intercept := 0.5 * math.Log((1+mean)/(1-mean))
	h := make([]float64, n)
	for ind := range h {
		h[ind] = intercept
	}
	response := make([]float64, n)
	trees := make([]Tree, 1)

	for iteration := 1; iteration <= run.hyper.NumTrees; iteration++ {
		bag := run.sampler.Draw()
		for ind := range response {
			response[ind] = twoClassResponse(y[ind], h[ind])
		}

		tree, err := run.fitTree(iteration, 0, response, bag, TwoClassOutput())
		if err != nil {
			return err
		}

		oobTests, oobErrors := 0, 0
		for ind := 0; ind < n; ind++ {
			run.x.GetRow(ind, run.row)
			h[ind] += eta * tree.Predict(run.row)
			if run.sampler.InBag(ind) {
				continue
			}
			oobTests++
			predicted := 0
			if h[ind] > 0 {
				predicted = 1
			}
			if predicted != run.labels[ind] {
				oobErrors++
			}
		}

		trees[0] = tree
		if err := run.emit(iteration, trees, intercept, oobTests, oobErrors); err != nil {
			return err
		}
		run.sampler.Clear()
	}
	return nil
}

func (run *boostingRun) trainKClass() error {
	n, k := run.x.Rows(), run.k
	eta := run.hyper.LearningRate
	output := KClassOutput(k)

	h := mat.NewDense(k, n, nil)
	response := mat.NewDense(k, n, nil)
	delta := mat.NewDense(k, n, nil)
	scores := make([]float64, k)
	probabilities := make([]float64, k)
	prediction := make([]int, n)
	trees := make([]Tree, k)

	for iteration := 1; iteration <= run.hyper.NumTrees; iteration++ {
		for ind := 0; ind < n; ind++ {
			mat.Col(scores, ind, h)
			softmax(scores, probabilities)
			for class := 0; class < k; class++ {
				indicator := 0.0
				if run.labels[ind] == class {
					indicator = 1
				}
				response.Set(class, ind, indicator-probabilities[class])
			}
		}

		for class := 0; class < k; class++ {
			bag := run.sampler.Draw()
			tree, err := run.fitTree(iteration, class, response.RawRowView(class), bag, output)
			if err != nil {
				return err
			}
			trees[class] = tree
		}

		for ind := 0; ind < n; ind++ {
			run.x.GetRow(ind, run.row)
			for class := 0; class < k; class++ {
				delta.Set(class, ind, eta*trees[class].Predict(run.row))
			}
		}
		if run.hyper.LegacyMultiClassUpdate {
			legacyMultiClassUpdate(h, delta, prediction)
		} else {
			h.Add(h, delta)
			for ind := 0; ind < n; ind++ {
				mat.Col(scores, ind, h)
				prediction[ind] = floats.MaxIdx(scores)
			}
		}

		oobTests, oobErrors := 0, 0
		for ind := 0; ind < n; ind++ {
			if run.sampler.InBag(ind) {
				continue
			}
			oobTests++
			if prediction[ind] != run.labels[ind] {
				oobErrors++
			}
		}

		if err := run.emit(iteration, trees, 0, oobTests, oobErrors); err != nil {
			return err
		}
		run.sampler.Clear()
	}
	return nil
}

//legacyMultiClassUpdate applies h += h + delta class by class and assigns a row to a class whenever
//its step h + delta beats the running maximum over every class and row visited so far.
func legacyMultiClassUpdate(h, delta *mat.Dense, prediction []int) {
	k, n := h.Dims()
	maxH := math.Inf(-1)
	for class := 0; class < k; class++ {
		for ind := 0; ind < n; ind++ {
			step := h.At(class, ind) + delta.At(class, ind)
			h.Set(class, ind, h.At(class, ind)+step)
			if step > maxH {
				maxH = step
				prediction[ind] = class
			}
		}
	}
}
