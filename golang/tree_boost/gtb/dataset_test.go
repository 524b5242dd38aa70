package gtb

import (
	"os"
	"path"
	"reflect"
	"strings"
	"testing"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/mat"
)

func TestReadSparse(t *testing.T) {
	input := "1 0:1.5 2:3\n0 1\n# comment\n\n2 2:-1\n"
	dataset, err := ReadSparse(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(dataset.Labels, []int{1, 0, 2}) {
		t.Fatalf("unexpected labels %v", dataset.Labels)
	}
	x := dataset.Matrix
	if x.Rows() != 3 || x.Cols() != 3 {
		t.Fatalf("unexpected shape %dx%d", x.Rows(), x.Cols())
	}
	if x.At(0, 0) != 1.5 || x.At(0, 2) != 3 || x.At(1, 1) != 1 || x.At(2, 2) != -1 || x.At(2, 0) != 0 {
		t.Fatalf("unexpected values")
	}

	if _, err := ReadSparse(strings.NewReader("x 0:1\n")); !IsDataError(err) {
		t.Fatalf("expected a data error for a bad label, got %v", err)
	}
	if _, err := ReadSparse(strings.NewReader("1 0:y\n")); !IsDataError(err) {
		t.Fatalf("expected a data error for a bad value, got %v", err)
	}
}

func writeTestNpy(t *testing.T, fileName string, value interface{}) {
	f, err := os.Create(fileName)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := npyio.Write(f, value); err != nil {
		t.Fatal(err)
	}
}

func TestReadDataset(t *testing.T) {
	dir := t.TempDir()
	features := mat.NewDense(3, 2, []float64{1, 2, 3, 4, 5, 6})
	writeTestNpy(t, path.Join(dir, "x.npy"), features)
	writeTestNpy(t, path.Join(dir, "y.npy"), []int64{0, 1, 2})
	writeTestNpy(t, path.Join(dir, "yf.npy"), []float64{1, 0, 1})
	writeTestNpy(t, path.Join(dir, "bad.npy"), []float64{1, 0.5})

	dataset, err := ReadDataset(path.Join(dir, "x.npy"), path.Join(dir, "y.npy"))
	if err != nil {
		t.Fatal(err)
	}
	if !mat.Equal(dataset.Matrix.(*DenseMatrix).Features, features) {
		t.Fatalf("unexpected features")
	}
	if !reflect.DeepEqual(dataset.Labels, []int{0, 1, 2}) {
		t.Fatalf("unexpected labels %v", dataset.Labels)
	}

	labels, err := ReadLabels(path.Join(dir, "yf.npy"))
	if err != nil || !reflect.DeepEqual(labels, []int{1, 0, 1}) {
		t.Fatalf("unexpected float labels %v, %v", labels, err)
	}
	if _, err := ReadLabels(path.Join(dir, "bad.npy")); !IsDataError(err) {
		t.Fatalf("expected a data error, got %v", err)
	}
	if _, err := ReadNpy(path.Join(dir, "missing.npy")); err == nil {
		t.Fatalf("expected an error for a missing file")
	}
}

func TestScoreTrackerTwoClass(t *testing.T) {
	task := stepTask()
	task.MaxDepth = 2
	tree, err := NewRegressionTree(task)
	if err != nil {
		t.Fatal(err)
	}
	model, err := EncodeModel(tree)
	if err != nil {
		t.Fatal(err)
	}
	x := task.X
	labels := []int{0, 0, 0, 0, 1, 1, 1, 1}
	tracker := NewScoreTracker(Dataset{Matrix: x, Labels: labels})
	errorRate, logloss, err := tracker.Update(IterationRecord{Iteration: 1, Models: [][]byte{model}, Intercept: 0, Shrinkage: 1})
	if err != nil {
		t.Fatal(err)
	}
	if errorRate != 0 || logloss <= 0 {
		t.Fatalf("unexpected metrics %v, %v", errorRate, logloss)
	}
	if !reflect.DeepEqual(tracker.Predict(), labels) {
		t.Fatalf("unexpected prediction %v", tracker.Predict())
	}

	_, _, err = tracker.Update(IterationRecord{Iteration: 2, Models: [][]byte{model, model}, Shrinkage: 1})
	if err == nil {
		t.Fatalf("expected an error for a changed number of models")
	}
}

func TestEvaluationEmitterForwardsRecords(t *testing.T) {
	x, labels := separableData(40, 2, 21)
	collector := &RecordCollector{}
	evaluation := NewEvaluationEmitter(collector, nil, Dataset{Matrix: x, Labels: labels})
	if err := TrainBooster(BoosterParams{Matrix: x, Labels: labels, Hyper: testHyperParams(3), Emitter: evaluation}); err != nil {
		t.Fatal(err)
	}
	if len(collector.Records) != 3 || len(evaluation.Curve) != 3 || len(evaluation.Curve[0]) != 2 {
		t.Fatalf("unexpected %d records and curve %v", len(collector.Records), evaluation.Curve)
	}
	if evaluation.Tracker(0).Predict() == nil {
		t.Fatalf("tracker has no scores")
	}
}
