package gtb

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/sbinet/npyio"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

//Dataset contains a feature matrix with the class labels of its rows.
type Dataset struct {
	Matrix      FeatureMatrix
	Labels      []int
	Description *string
}

//SetDescription sets a description for a Dataset object
func (dataset *Dataset) SetDescription(description string) {
	dataset.Description = &description
}

func (dataset Dataset) description() string {
	if dataset.Description == nil {
		return ""
	}
	return *dataset.Description
}

//ReadNpy reads the content of npy file
func ReadNpy(fileName string) (*mat.Dense, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "read npy")
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read npy %s", fileName)
	}

	denseMat := &mat.Dense{}
	if err := r.Read(denseMat); err != nil {
		return nil, errors.Wrapf(err, "read npy %s", fileName)
	}
	return denseMat, nil
}

//ReadLabels reads a one dimensional npy array of class labels. Integer and float arrays are accepted.
func ReadLabels(fileName string) ([]int, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return nil, errors.Wrap(err, "read labels")
	}
	defer f.Close()

	r, err := npyio.NewReader(f)
	if err != nil {
		return nil, errors.Wrapf(err, "read labels %s", fileName)
	}

	var labels []int
	switch r.Header.Descr.Type {
	case "<i8", "|i8":
		var raw []int64
		if err := r.Read(&raw); err != nil {
			return nil, errors.Wrapf(err, "read labels %s", fileName)
		}
		labels = make([]int, len(raw))
		for ind, value := range raw {
			labels[ind] = int(value)
		}
	case "<i4", "|i4":
		var raw []int32
		if err := r.Read(&raw); err != nil {
			return nil, errors.Wrapf(err, "read labels %s", fileName)
		}
		labels = make([]int, len(raw))
		for ind, value := range raw {
			labels[ind] = int(value)
		}
	default:
		var raw []float64
		if err := r.Read(&raw); err != nil {
			return nil, errors.Wrapf(err, "read labels %s", fileName)
		}
		labels = make([]int, len(raw))
		for ind, value := range raw {
			if value != math.Trunc(value) {
				return nil, dataErrorf("label %v at row %d is not an integer", value, ind)
			}
			labels[ind] = int(value)
		}
	}
	return labels, nil
}

//ReadDataset reads a dense npy feature matrix and its npy labels.
func ReadDataset(fileNameFeatures, fileNameLabels string) (Dataset, error) {
	features, err := ReadNpy(fileNameFeatures)
	if err != nil {
		return Dataset{}, err
	}
	labels, err := ReadLabels(fileNameLabels)
	if err != nil {
		return Dataset{}, err
	}
	return Dataset{Matrix: NewDenseMatrix(features), Labels: labels}, nil
}

//ReadSparse reads lines of the form "label index:value index ..." into a CSR matrix.
//Blank lines and lines starting with '#' are skipped.
func ReadSparse(r io.Reader) (Dataset, error) {
	builder := NewCSRMatrixBuilder(1024)
	var labels []int
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		tokens := strings.Fields(line)
		label, err := strconv.Atoi(tokens[0])
		if err != nil {
			return Dataset{}, dataErrorf("line %d: label %q is not an integer", lineNumber, tokens[0])
		}
		for _, token := range tokens[1:] {
			if err := builder.NextFeature(token); err != nil {
				return Dataset{}, errors.Wrapf(err, "line %d", lineNumber)
			}
		}
		builder.NextRow()
		labels = append(labels, label)
	}
	if err := scanner.Err(); err != nil {
		return Dataset{}, errors.Wrap(err, "read sparse dataset")
	}
	return Dataset{Matrix: builder.Build(), Labels: labels}, nil
}

//ReadSparseFile opens fileName and reads it with ReadSparse.
func ReadSparseFile(fileName string) (Dataset, error) {
	f, err := os.Open(fileName)
	if err != nil {
		return Dataset{}, errors.Wrap(err, "read sparse dataset")
	}
	defer f.Close()
	return ReadSparse(f)
}

//ScoreTracker accumulates the ensemble scores of a dataset record by record.
type ScoreTracker struct {
	dataset Dataset
	scores  *mat.Dense // classes x rows, a single row in the two-class case
	row     *RowVector
}

//NewScoreTracker creates a tracker for the dataset.
func NewScoreTracker(dataset Dataset) *ScoreTracker {
	return &ScoreTracker{dataset: dataset, row: dataset.Matrix.RowVector()}
}

//Update adds the trees of the record to the scores and returns the error rate and the logloss.
func (tracker *ScoreTracker) Update(record IterationRecord) (errorRate, logloss float64, err error) {
	trees, err := record.Trees()
	if err != nil {
		return 0, 0, err
	}
	n := tracker.dataset.Matrix.Rows()
	if n == 0 {
		return 0, 0, nil
	}
	if tracker.scores == nil {
		tracker.scores = mat.NewDense(len(trees), n, nil)
		if len(trees) == 1 {
			for ind := 0; ind < n; ind++ {
				tracker.scores.Set(0, ind, record.Intercept)
			}
		}
	} else if classes, _ := tracker.scores.Dims(); classes != len(trees) {
		return 0, 0, errors.Errorf("iteration %d has %d models, expected %d", record.Iteration, len(trees), classes)
	}

	for ind := 0; ind < n; ind++ {
		tracker.dataset.Matrix.GetRow(ind, tracker.row)
		for class, tree := range trees {
			tracker.scores.Set(class, ind, tracker.scores.At(class, ind)+record.Shrinkage*tree.Predict(tracker.row))
		}
	}
	errorRate, logloss = tracker.metrics()
	return errorRate, logloss, nil
}

//Predict returns the class with the highest score for every row.
func (tracker *ScoreTracker) Predict() []int {
	if tracker.scores == nil {
		return nil
	}
	classes, n := tracker.scores.Dims()
	prediction := make([]int, n)
	column := make([]float64, classes)
	for ind := 0; ind < n; ind++ {
		if classes == 1 {
			if tracker.scores.At(0, ind) > 0 {
				prediction[ind] = 1
			}
			continue
		}
		mat.Col(column, ind, tracker.scores)
		prediction[ind] = floats.MaxIdx(column)
	}
	return prediction
}

//Probabilities returns the class posteriors of every row, one row of the result per class.
func (tracker *ScoreTracker) Probabilities() *mat.Dense {
	if tracker.scores == nil {
		return nil
	}
	classes, n := tracker.scores.Dims()
	if classes == 1 {
		probabilities := mat.NewDense(2, n, nil)
		for ind := 0; ind < n; ind++ {
			positive := 1 / (1 + math.Exp(-2*tracker.scores.At(0, ind)))
			probabilities.Set(0, ind, 1-positive)
			probabilities.Set(1, ind, positive)
		}
		return probabilities
	}
	probabilities := mat.NewDense(classes, n, nil)
	column := make([]float64, classes)
	out := make([]float64, classes)
	for ind := 0; ind < n; ind++ {
		mat.Col(column, ind, tracker.scores)
		softmax(column, out)
		probabilities.SetCol(ind, out)
	}
	return probabilities
}

func (tracker *ScoreTracker) metrics() (errorRate, logloss float64) {
	prediction := tracker.Predict()
	probabilities := tracker.Probabilities()
	classes, _ := probabilities.Dims()
	errorsCount := 0
	for ind, label := range tracker.dataset.Labels {
		if prediction[ind] != label {
			errorsCount++
		}
		p := 0.0
		if label < classes {
			p = probabilities.At(label, ind)
		}
		logloss -= math.Log(math.Max(p, 1e-15))
	}
	n := float64(len(tracker.dataset.Labels))
	return float64(errorsCount) / n, logloss / n
}

//EvaluationEmitter reports the learning curve of every tracked dataset and forwards records to Next.
type EvaluationEmitter struct {
	Next     Emitter
	Datasets []Dataset
	Logger   *zap.Logger

	trackers []*ScoreTracker
	Curve    [][]float64 // per iteration: error rate and logloss of every dataset
}

//NewEvaluationEmitter creates an emitter that evaluates the datasets after every iteration.
func NewEvaluationEmitter(next Emitter, logger *zap.Logger, datasets ...Dataset) *EvaluationEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	emitter := &EvaluationEmitter{Next: next, Datasets: datasets, Logger: logger}
	for _, dataset := range datasets {
		emitter.trackers = append(emitter.trackers, NewScoreTracker(dataset))
	}
	return emitter
}

func (e *EvaluationEmitter) Emit(record IterationRecord) error {
	row := make([]float64, 0, 2*len(e.trackers))
	for ind, tracker := range e.trackers {
		errorRate, logloss, err := tracker.Update(record)
		if err != nil {
			return errors.Wrapf(err, "evaluate %q", e.Datasets[ind].description())
		}
		e.Logger.Info("learning curve",
			zap.String("dataset", e.Datasets[ind].description()),
			zap.Int("iteration", record.Iteration),
			zap.Float64("errorRate", errorRate),
			zap.Float64("logloss", logloss))
		row = append(row, errorRate, logloss)
	}
	e.Curve = append(e.Curve, row)
	if e.Next == nil {
		return nil
	}
	return e.Next.Emit(record)
}

//Tracker returns the score tracker of the ind-th dataset.
func (e *EvaluationEmitter) Tracker(ind int) *ScoreTracker {
	return e.trackers[ind]
}
