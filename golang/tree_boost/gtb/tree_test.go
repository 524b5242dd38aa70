package gtb

import (
	"math"
	"math/rand"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func allRows(n int) []int {
	rows := make([]int, n)
	for ind := range rows {
		rows[ind] = ind
	}
	return rows
}

func newFitTask(features *mat.Dense, response []float64, attributes []Attribute) FitTask {
	x := NewDenseMatrix(features)
	if attributes == nil {
		attributes, _ = ResolveAttributes(nil, x)
	}
	return FitTask{
		Attributes:      attributes,
		X:               x,
		Response:        response,
		NumVars:         x.Cols(),
		MaxDepth:        8,
		MaxLeafNodes:    math.MaxInt32,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Order:           NewOrderIndex(x),
		Bag:             allRows(x.Rows()),
		Output:          TwoClassOutput(),
		Rng:             rand.New(rand.NewSource(1)),
	}
}

func stepTask() FitTask {
	features := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	response := []float64{-1, -1, -1, -1, 1, 1, 1, 1}
	return newFitTask(features, response, nil)
}

func TestTreeSplitsAStep(t *testing.T) {
	task := stepTask()
	task.MaxDepth = 2
	tree, err := NewRegressionTree(task)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.TreeNodes) != 3 {
		t.Fatalf("expected 3 nodes, got %d", len(tree.TreeNodes))
	}
	root := tree.TreeNodes[0]
	if root.FeatureNumber != 0 || root.Threshold != 4.5 || root.Categorical {
		t.Fatalf("unexpected root split %+v", root)
	}
	if math.Abs(root.SplitGain-8) > 1e-12 {
		t.Fatalf("expected gain 8, got %v", root.SplitGain)
	}
	for _, c := range []struct{ value, expected float64 }{{2, -1}, {4.4, -1}, {4.5, 1}, {8, 1}} {
		if got := tree.Predict(NewRowVector([]float64{c.value})); got != c.expected {
			t.Fatalf("Predict(%v) = %v, expected %v", c.value, got, c.expected)
		}
	}
	if importance := tree.Importance(); len(importance) != 1 || math.Abs(importance[0]-8) > 1e-12 {
		t.Fatalf("unexpected importance %v", importance)
	}
	if tree.Depth() != 2 || tree.NumLeaves() != 2 {
		t.Fatalf("unexpected depth %d and leaves %d", tree.Depth(), tree.NumLeaves())
	}
}

func TestTreeSplitsAdjacentFloats(t *testing.T) {
	low := 1.0
	high := math.Nextafter(low, 2)
	features := mat.NewDense(4, 1, []float64{low, low, high, high})
	task := newFitTask(features, []float64{-1, -1, 1, 1}, nil)
	tree, err := NewRegressionTree(task)
	if err != nil {
		t.Fatal(err)
	}
	if tree.NumLeaves() != 2 {
		t.Fatalf("expected 2 leaves, got %d", tree.NumLeaves())
	}
	if got := tree.Predict(NewRowVector([]float64{low})); got != -1 {
		t.Fatalf("Predict(low) = %v", got)
	}
	if got := tree.Predict(NewRowVector([]float64{high})); got != 1 {
		t.Fatalf("Predict(high) = %v", got)
	}
}

func TestMidpoint(t *testing.T) {
	if got := midpoint(4, 5); got != 4.5 {
		t.Fatalf("midpoint(4, 5) = %v", got)
	}
	high := math.Nextafter(1, 2)
	if got := midpoint(1, high); !(got > 1 && got <= high) {
		t.Fatalf("midpoint(1, %v) = %v", high, got)
	}
}

func TestTreeRespectsMaxDepth(t *testing.T) {
	task := stepTask()
	task.MaxDepth = 1
	tree, err := NewRegressionTree(task)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.TreeNodes) != 1 || !tree.TreeNodes[0].IsLeaf() {
		t.Fatalf("expected a single leaf, got %d nodes", len(tree.TreeNodes))
	}
	if tree.TreeNodes[0].Output != 0 {
		t.Fatalf("expected a zero output, got %v", tree.TreeNodes[0].Output)
	}
}

func TestTreeRespectsMaxLeafNodes(t *testing.T) {
	features := mat.NewDense(16, 1, nil)
	response := make([]float64, 16)
	for ind := range response {
		features.Set(ind, 0, float64(ind))
		response[ind] = math.Sin(float64(ind))
	}
	task := newFitTask(features, response, nil)
	task.MaxLeafNodes = 3
	tree, err := NewRegressionTree(task)
	if err != nil {
		t.Fatal(err)
	}
	if tree.NumLeaves() != 3 {
		t.Fatalf("expected 3 leaves, got %d", tree.NumLeaves())
	}
}

func TestTreeRespectsMinSamplesLeaf(t *testing.T) {
	features := mat.NewDense(8, 1, []float64{1, 2, 3, 4, 5, 6, 7, 8})
	response := []float64{1, -1, -1, -1, -1, -1, -1, -1}
	task := newFitTask(features, response, nil)
	task.MinSamplesLeaf = 3
	tree, err := NewRegressionTree(task)
	if err != nil {
		t.Fatal(err)
	}
	for _, node := range tree.TreeNodes {
		if node.NumberOfObjects < 3 {
			t.Fatalf("node %d holds %d objects", node.TreeNodeId, node.NumberOfObjects)
		}
	}
}

func TestTreeHandlesConstantFeatures(t *testing.T) {
	features := mat.NewDense(32, 3, nil)
	response := make([]float64, 32)
	for ind := range response {
		response[ind] = float64(ind%2)*2 - 1
	}
	tree, err := NewRegressionTree(newFitTask(features, response, nil))
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.TreeNodes) != 1 {
		t.Fatalf("expected single node tree, got %d nodes", len(tree.TreeNodes))
	}
	if tree.TreeNodes[0].FeatureNumber != -1 {
		t.Fatalf("expected FeatureNumber -1, got %d", tree.TreeNodes[0].FeatureNumber)
	}
}

func TestTreeCategoricalSplit(t *testing.T) {
	features := mat.NewDense(6, 1, []float64{0, 1, 2, 0, 1, 2})
	response := []float64{-1, 1, -1, -1, 1, -1}
	task := newFitTask(features, response, []Attribute{Categorical})
	task.MaxDepth = 2
	tree, err := NewRegressionTree(task)
	if err != nil {
		t.Fatal(err)
	}
	root := tree.TreeNodes[0]
	if !root.Categorical || root.Threshold != 1 {
		t.Fatalf("unexpected root split %+v", root)
	}
	if got := tree.Predict(NewRowVector([]float64{1})); got != 1 {
		t.Fatalf("expected 1 for the split category, got %v", got)
	}
	for _, value := range []float64{0, 2, 5} {
		if got := tree.Predict(NewRowVector([]float64{value})); got != -1 {
			t.Fatalf("expected -1 for category %v, got %v", value, got)
		}
	}
}

func TestTreeUsesBagOnly(t *testing.T) {
	task := stepTask()
	task.Bag = []int{0, 1, 2, 3, 3}
	tree, err := NewRegressionTree(task)
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.TreeNodes) != 1 || tree.TreeNodes[0].NumberOfObjects != 4 {
		t.Fatalf("expected a leaf of the 4 bagged rows, got %+v", tree.TreeNodes)
	}
	if tree.TreeNodes[0].Output != -1 {
		t.Fatalf("expected output -1, got %v", tree.TreeNodes[0].Output)
	}
}

func TestTreeRejectsBadTasks(t *testing.T) {
	task := stepTask()
	task.Bag = nil
	if _, err := (RegressionTreeLearner{}).Fit(task); err == nil {
		t.Fatalf("expected an error for an empty bag")
	}

	task = stepTask()
	task.Response[3] = math.NaN()
	if _, err := (RegressionTreeLearner{}).Fit(task); err == nil {
		t.Fatalf("expected an error for a NaN response")
	}

	task = stepTask()
	task.Response = task.Response[:4]
	if _, err := (RegressionTreeLearner{}).Fit(task); err == nil {
		t.Fatalf("expected an error for a short response")
	}
}

func TestTreeIsDeterministic(t *testing.T) {
	generator := rand.New(rand.NewSource(7))
	features := mat.NewDense(64, 5, nil)
	response := make([]float64, 64)
	for p := 0; p < 64; p++ {
		for q := 0; q < 5; q++ {
			features.Set(p, q, generator.Float64())
		}
		response[p] = features.At(p, 1) - features.At(p, 3)
	}
	encode := func() string {
		task := newFitTask(features, response, nil)
		task.NumVars = 2
		task.Rng = rand.New(rand.NewSource(11))
		tree, err := NewRegressionTree(task)
		if err != nil {
			t.Fatal(err)
		}
		data, err := tree.MarshalBinary()
		if err != nil {
			t.Fatal(err)
		}
		return string(data)
	}
	if encode() != encode() {
		t.Fatalf("trees fitted with the same seed differ")
	}
}

func TestGraphDescription(t *testing.T) {
	task := stepTask()
	task.MaxDepth = 2
	tree, err := NewRegressionTree(task)
	if err != nil {
		t.Fatal(err)
	}
	if description := tree.TreeNodes[0].GraphDescription(); description == "" {
		t.Fatalf("empty description")
	}
	graphViz, graph, err := tree.DrawGraph()
	if err != nil {
		t.Fatal(err)
	}
	defer graphViz.Close()
	defer graph.Close()
	if graph.NumberNodes() != 3 {
		t.Fatalf("expected 3 graph nodes, got %d", graph.NumberNodes())
	}
}
