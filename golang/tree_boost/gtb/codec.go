package gtb

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

const treeMagic uint32 = 0x47544231 // "GTB1"

type treeHeader struct {
	Magic       uint32
	NumFeatures int32
	NumNodes    int32
}

type binaryNode struct {
	FeatureNumber   int32
	Categorical     uint8
	Threshold       float64
	LeftIndex       int32
	RightIndex      int32
	Output          float64
	NumberOfObjects int32
	SplitGain       float64
}

//MarshalBinary serializes the tree in a little endian binary format.
func (tree *RegressionTree) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteRegressionTree(&buf, tree); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

//UnmarshalBinary reads the output of MarshalBinary.
func (tree *RegressionTree) UnmarshalBinary(data []byte) error {
	res, err := UnmarshalTree(data)
	if err != nil {
		return err
	}
	*tree = *res
	return nil
}

//UnmarshalTree restores a tree from the output of MarshalBinary.
func UnmarshalTree(data []byte) (*RegressionTree, error) {
	return ReadRegressionTree(bytes.NewReader(data))
}

//WriteRegressionTree serializes t into w.
func WriteRegressionTree(w io.Writer, t *RegressionTree) error {
	header := treeHeader{Magic: treeMagic, NumFeatures: int32(t.NumFeatures), NumNodes: int32(len(t.TreeNodes))}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return errors.Wrap(err, "write regression tree")
	}
	nodes := make([]binaryNode, len(t.TreeNodes))
	for ind, node := range t.TreeNodes {
		nodes[ind] = binaryNode{
			FeatureNumber:   int32(node.FeatureNumber),
			Threshold:       node.Threshold,
			LeftIndex:       int32(node.LeftIndex),
			RightIndex:      int32(node.RightIndex),
			Output:          node.Output,
			NumberOfObjects: int32(node.NumberOfObjects),
			SplitGain:       node.SplitGain,
		}
		if node.Categorical {
			nodes[ind].Categorical = 1
		}
	}
	if err := binary.Write(w, binary.LittleEndian, nodes); err != nil {
		return errors.Wrap(err, "write regression tree")
	}
	return nil
}

//ReadRegressionTree reads the output written by WriteRegressionTree.
func ReadRegressionTree(r io.Reader) (*RegressionTree, error) {
	var header treeHeader
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, errors.Wrap(err, "read regression tree")
	}
	if header.Magic != treeMagic {
		return nil, errors.Errorf("read regression tree: bad magic %#x", header.Magic)
	}
	if header.NumNodes < 1 || header.NumFeatures < 0 {
		return nil, errors.Errorf("read regression tree: %d nodes, %d features", header.NumNodes, header.NumFeatures)
	}
	nodes := make([]binaryNode, header.NumNodes)
	if err := binary.Read(r, binary.LittleEndian, nodes); err != nil {
		return nil, errors.Wrap(err, "read regression tree")
	}

	tree := &RegressionTree{NumFeatures: int(header.NumFeatures), TreeNodes: make([]TreeNode, len(nodes))}
	for ind, node := range nodes {
		tree.TreeNodes[ind] = TreeNode{
			TreeNodeId:      ind,
			FeatureNumber:   int(node.FeatureNumber),
			Categorical:     node.Categorical != 0,
			Threshold:       node.Threshold,
			LeftIndex:       int(node.LeftIndex),
			RightIndex:      int(node.RightIndex),
			Output:          node.Output,
			NumberOfObjects: int(node.NumberOfObjects),
			SplitGain:       node.SplitGain,
		}
		if err := checkNode(tree.TreeNodes[ind], len(nodes), tree.NumFeatures); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func checkNode(node TreeNode, numNodes, numFeatures int) error {
	if node.IsLeaf() {
		return nil
	}
	if node.FeatureNumber < 0 || node.FeatureNumber >= numFeatures {
		return errors.Errorf("read regression tree: node %d splits on feature %d", node.TreeNodeId, node.FeatureNumber)
	}
	// children always follow their parent
	if node.LeftIndex <= node.TreeNodeId || node.LeftIndex >= numNodes ||
		node.RightIndex <= node.TreeNodeId || node.RightIndex >= numNodes {
		return errors.Errorf("read regression tree: node %d has children %d, %d", node.TreeNodeId, node.LeftIndex, node.RightIndex)
	}
	return nil
}

//EncodeModel serializes a tree and compacts it with deflate and base64.
func EncodeModel(tree Tree) ([]byte, error) {
	raw, err := tree.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "encode model")
	}
	var compressed bytes.Buffer
	writer, err := flate.NewWriter(&compressed, flate.BestCompression)
	if err != nil {
		return nil, errors.Wrap(err, "encode model")
	}
	if _, err := writer.Write(raw); err != nil {
		return nil, errors.Wrap(err, "encode model")
	}
	if err := writer.Close(); err != nil {
		return nil, errors.Wrap(err, "encode model")
	}
	encoded := make([]byte, base64.StdEncoding.EncodedLen(compressed.Len()))
	base64.StdEncoding.Encode(encoded, compressed.Bytes())
	return encoded, nil
}

//DecodeModel restores a tree from the output of EncodeModel.
func DecodeModel(encoded []byte) (*RegressionTree, error) {
	compressed := make([]byte, base64.StdEncoding.DecodedLen(len(encoded)))
	n, err := base64.StdEncoding.Decode(compressed, encoded)
	if err != nil {
		return nil, errors.Wrap(err, "decode model")
	}
	reader := flate.NewReader(bytes.NewReader(compressed[:n]))
	defer reader.Close()
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "decode model")
	}
	tree, err := UnmarshalTree(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode model")
	}
	return tree, nil
}
