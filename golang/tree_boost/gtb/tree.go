package gtb

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/pkg/errors"
)

//Tree is a fitted weak learner as seen by the boosting orchestrator.
type Tree interface {
	Predict(row *RowVector) float64
	Importance() []float64
	MarshalBinary() ([]byte, error)
}

//FitTask collects everything a tree learner needs to fit one regression tree.
type FitTask struct {
	Attributes      []Attribute
	X               FeatureMatrix
	Response        []float64
	NumVars         int
	MaxDepth        int
	MaxLeafNodes    int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Order           *OrderIndex
	Bag             []int
	Output          NodeOutput
	Rng             *rand.Rand
}

//TreeLearner fits one regression tree to a response vector restricted to a bag of rows.
type TreeLearner interface {
	Fit(task FitTask) (Tree, error)
}

//RegressionTreeLearner is the default TreeLearner. It grows RegressionTree values.
type RegressionTreeLearner struct{}

func (RegressionTreeLearner) Fit(task FitTask) (Tree, error) {
	return NewRegressionTree(task)
}

//TreeNode is a node of a tree. Tree is stored in an array. LeftIndex and RightIndex are equal to -1
//when the current node is a leaf otherwise they contain array indices of children.
type TreeNode struct {
	TreeNodeId            int
	FeatureNumber         int // -1 for a leaf
	Categorical           bool
	Threshold             float64
	LeftIndex, RightIndex int // -1, -1 if it is a leaf
	Output                float64
	NumberOfObjects       int
	SplitGain             float64
}

//NewTreeNode creates a leaf node with the given id.
func NewTreeNode(treeNodeId int) TreeNode {
	return TreeNode{TreeNodeId: treeNodeId, FeatureNumber: -1, LeftIndex: -1, RightIndex: -1}
}

//IsLeaf returns whether this node is a leaf.
func (node TreeNode) IsLeaf() bool {
	return node.FeatureNumber == -1
}

//goesLeft checks whether a feature value is routed to the left child.
func (node TreeNode) goesLeft(value float64) bool {
	if node.Categorical {
		return value == node.Threshold
	}
	return value < node.Threshold
}

//GraphDescription returns the description of a tree node for tree rendering as a graph
func (node TreeNode) GraphDescription() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintln("#", node.NumberOfObjects))
	sb.WriteString(fmt.Sprintln("id: ", node.TreeNodeId))
	if node.IsLeaf() {
		sb.WriteString(fmt.Sprintf("out: %6.5f", node.Output))
		return sb.String()
	}
	sb.WriteString(fmt.Sprintln("gain: ", node.SplitGain))
	if node.Categorical {
		sb.WriteString(fmt.Sprintf("f_%d == %6.5f", node.FeatureNumber, node.Threshold))
	} else {
		sb.WriteString(fmt.Sprintf("f_%d < %6.5f", node.FeatureNumber, node.Threshold))
	}
	return sb.String()
}

//RegressionTree is a binary regression tree with node-output leaves.
type RegressionTree struct {
	NumFeatures int
	TreeNodes   []TreeNode
}

//Predict routes the row to a leaf and returns the leaf output.
func (tree *RegressionTree) Predict(row *RowVector) float64 {
	ind := 0
	for !tree.TreeNodes[ind].IsLeaf() {
		node := tree.TreeNodes[ind]
		if node.goesLeft(row.Get(node.FeatureNumber)) {
			ind = node.LeftIndex
		} else {
			ind = node.RightIndex
		}
	}
	return tree.TreeNodes[ind].Output
}

//Importance returns the split gain accumulated per feature.
func (tree *RegressionTree) Importance() []float64 {
	importance := make([]float64, tree.NumFeatures)
	for _, node := range tree.TreeNodes {
		if !node.IsLeaf() {
			importance[node.FeatureNumber] += node.SplitGain
		}
	}
	return importance
}

//NumLeaves returns the number of leaves in the tree.
func (tree *RegressionTree) NumLeaves() int {
	count := 0
	for _, node := range tree.TreeNodes {
		if node.IsLeaf() {
			count++
		}
	}
	return count
}

//Depth returns the depth of the tree, a single leaf has depth 1.
func (tree *RegressionTree) Depth() int {
	return tree.depthFrom(0)
}

func (tree *RegressionTree) depthFrom(ind int) int {
	node := tree.TreeNodes[ind]
	if node.IsLeaf() {
		return 1
	}
	left, right := tree.depthFrom(node.LeftIndex), tree.depthFrom(node.RightIndex)
	if left > right {
		return left + 1
	}
	return right + 1
}

//pendingLeaf is a leaf that may still be split.
type pendingLeaf struct {
	nodeId int
	rows   []int
	depth  int
	split  *BestSplit
}

//treeGrower keeps the state of one tree fit.
type treeGrower struct {
	task     FitTask
	tree     *RegressionTree
	nodeOf   []int // node id of every in-bag row, -1 for rows outside the bag
	features []int // candidate feature permutation, partially reshuffled at every node
}

//NewRegressionTree grows a tree best-first until no leaf can be split or MaxLeafNodes is reached.
func NewRegressionTree(task FitTask) (*RegressionTree, error) {
	if err := validateFitTask(task); err != nil {
		return nil, err
	}

	rows, cols := task.X.Rows(), task.X.Cols()
	grower := &treeGrower{
		task:     task,
		tree:     &RegressionTree{NumFeatures: cols},
		nodeOf:   make([]int, rows),
		features: make([]int, cols),
	}
	for p := range grower.nodeOf {
		grower.nodeOf[p] = -1
	}
	for q := range grower.features {
		grower.features[q] = q
	}

	rootRows := make([]int, 0, len(task.Bag))
	for _, row := range task.Bag {
		if grower.nodeOf[row] == -1 {
			rootRows = append(rootRows, row)
		}
		grower.nodeOf[row] = 0
	}

	leaves := []*pendingLeaf{grower.newLeaf(rootRows, 1)}
	for len(leaves) < task.MaxLeafNodes {
		bestInd := -1
		for ind, leaf := range leaves {
			if leaf.split != nil && (bestInd == -1 || leaf.split.gain > leaves[bestInd].split.gain) {
				bestInd = ind
			}
		}
		if bestInd == -1 {
			break
		}
		left, right := grower.applySplit(leaves[bestInd])
		if left == nil {
			leaves[bestInd].split = nil
			continue
		}
		leaves = append(leaves[:bestInd], leaves[bestInd+1:]...)
		leaves = append(leaves, left, right)
	}

	for _, leaf := range leaves {
		grower.tree.TreeNodes[leaf.nodeId].Output = task.Output.LeafValue(task.Response, leaf.rows)
	}
	return grower.tree, nil
}

func validateFitTask(task FitTask) error {
	if task.X == nil || task.Order == nil || task.Rng == nil {
		return errors.New("fit task misses the matrix, the order index or the random generator")
	}
	rows, cols := task.X.Rows(), task.X.Cols()
	if len(task.Response) != rows {
		return errors.Errorf("response length %d differs from %d rows", len(task.Response), rows)
	}
	if task.Order.Rows() != rows || task.Order.Cols() != cols {
		return errors.Errorf("order index is %dx%d, the matrix is %dx%d", task.Order.Rows(), task.Order.Cols(), rows, cols)
	}
	if len(task.Attributes) != cols {
		return errors.Errorf("%d attributes for %d columns", len(task.Attributes), cols)
	}
	if len(task.Bag) == 0 {
		return errors.New("empty bag")
	}
	if task.NumVars < 1 || task.NumVars > cols {
		return errors.Errorf("number of variables %d out of range [1, %d]", task.NumVars, cols)
	}
	for _, row := range task.Bag {
		if row < 0 || row >= rows {
			return errors.Errorf("bag row %d out of range", row)
		}
		if value := task.Response[row]; math.IsNaN(value) || math.IsInf(value, 0) {
			return errors.Errorf("non-finite response %v at row %d", value, row)
		}
	}
	return nil
}

//newLeaf appends a leaf node holding rows and searches its best split.
func (grower *treeGrower) newLeaf(rows []int, depth int) *pendingLeaf {
	nodeId := len(grower.tree.TreeNodes)
	node := NewTreeNode(nodeId)
	node.NumberOfObjects = len(rows)
	sum := 0.0
	for _, row := range rows {
		sum += grower.task.Response[row]
	}
	if len(rows) > 0 {
		node.Output = sum / float64(len(rows))
	}
	grower.tree.TreeNodes = append(grower.tree.TreeNodes, node)

	leaf := &pendingLeaf{nodeId: nodeId, rows: rows, depth: depth}
	leaf.split = grower.theBestSplit(leaf, sum)
	return leaf
}

//applySplit turns a pending leaf into an internal node with two new leaves.
//It returns nil children when the split does not separate the rows.
func (grower *treeGrower) applySplit(leaf *pendingLeaf) (left, right *pendingLeaf) {
	split := leaf.split
	probe := TreeNode{FeatureNumber: split.featureIndex, Categorical: split.categorical, Threshold: split.threshold}

	leftRows := make([]int, 0, split.leftCount)
	rightRows := make([]int, 0, len(leaf.rows)-split.leftCount)
	for _, row := range leaf.rows {
		if probe.goesLeft(grower.task.X.At(row, split.featureIndex)) {
			leftRows = append(leftRows, row)
		} else {
			rightRows = append(rightRows, row)
		}
	}
	if len(leftRows) == 0 || len(rightRows) == 0 {
		return nil, nil
	}

	node := &grower.tree.TreeNodes[leaf.nodeId]
	node.FeatureNumber = split.featureIndex
	node.Categorical = split.categorical
	node.Threshold = split.threshold
	node.SplitGain = split.gain

	leftId := len(grower.tree.TreeNodes)
	for _, row := range leftRows {
		grower.nodeOf[row] = leftId
	}
	for _, row := range rightRows {
		grower.nodeOf[row] = leftId + 1
	}
	grower.tree.TreeNodes[leaf.nodeId].LeftIndex = leftId
	grower.tree.TreeNodes[leaf.nodeId].RightIndex = leftId + 1

	left = grower.newLeaf(leftRows, leaf.depth+1)
	right = grower.newLeaf(rightRows, leaf.depth+1)
	return left, right
}

func recurrentDraw(g *cgraph.Graph, tree *RegressionTree, nodeNumber int, parentNode *cgraph.Node) error {
	currentNode, err := g.CreateNode(fmt.Sprint(tree.TreeNodes[nodeNumber].TreeNodeId))
	if err != nil {
		return errors.Wrap(err, "create graph node")
	}

	if parentNode != nil {
		if _, err := g.CreateEdge("", parentNode, currentNode); err != nil {
			return errors.Wrap(err, "create graph edge")
		}
	}

	currentNode.Set("label", tree.TreeNodes[nodeNumber].GraphDescription())
	if tree.TreeNodes[nodeNumber].IsLeaf() {
		currentNode.Set("shape", "box")
		return nil
	}
	if err := recurrentDraw(g, tree, tree.TreeNodes[nodeNumber].LeftIndex, currentNode); err != nil {
		return err
	}
	return recurrentDraw(g, tree, tree.TreeNodes[nodeNumber].RightIndex, currentNode)
}

//DrawGraph converts the tree into a graphviz graph. The caller closes both returned values.
func (tree *RegressionTree) DrawGraph() (*graphviz.Graphviz, *cgraph.Graph, error) {
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	if err != nil {
		return nil, nil, errors.Wrap(err, "create graph")
	}

	if err := recurrentDraw(graph, tree, 0, nil); err != nil {
		return nil, nil, err
	}

	return graphViz, graph, nil
}
