package gtb

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

//IterationRecord is the output row of one boosting iteration.
type IterationRecord struct {
	Iteration    int
	Models       [][]byte // one encoded tree per class, a single one in the two-class case
	Intercept    float64
	Shrinkage    float64
	Importance   []float64
	OOBErrorRate float32
}

//NumFeatures returns the length of the importance vector.
func (record IterationRecord) NumFeatures() int {
	return len(record.Importance)
}

//Trees decodes every model of the record.
func (record IterationRecord) Trees() ([]*RegressionTree, error) {
	trees := make([]*RegressionTree, len(record.Models))
	for ind, model := range record.Models {
		tree, err := DecodeModel(model)
		if err != nil {
			return nil, errors.Wrapf(err, "iteration %d model %d", record.Iteration, ind)
		}
		trees[ind] = tree
	}
	return trees, nil
}

//Emitter receives every iteration record. An error aborts the training run.
type Emitter interface {
	Emit(record IterationRecord) error
}

//EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(record IterationRecord) error

func (f EmitterFunc) Emit(record IterationRecord) error {
	return f(record)
}

//RecordCollector keeps every emitted record in memory.
type RecordCollector struct {
	Records []IterationRecord
}

func (c *RecordCollector) Emit(record IterationRecord) error {
	c.Records = append(c.Records, record)
	return nil
}

//Reporter receives progress notifications of the host runtime.
type Reporter interface {
	ReportProgress()
	IncrCounter(delta int64)
}

//NopReporter ignores every notification.
type NopReporter struct{}

func (NopReporter) ReportProgress()   {}
func (NopReporter) IncrCounter(int64) {}

//aggregateImportance sums the importances reported by the trees of one iteration.
func aggregateImportance(trees []Tree, cols int) ([]float64, error) {
	importance := make([]float64, cols)
	for ind, tree := range trees {
		current := tree.Importance()
		if len(current) != cols {
			return nil, errors.Errorf("tree %d reports %d importances for %d features", ind, len(current), cols)
		}
		floats.Add(importance, current)
	}
	return importance, nil
}

//encodeModels serializes and compacts every tree of one iteration.
func encodeModels(trees []Tree) ([][]byte, error) {
	models := make([][]byte, len(trees))
	for ind, tree := range trees {
		model, err := EncodeModel(tree)
		if err != nil {
			return nil, err
		}
		models[ind] = model
	}
	return models, nil
}
