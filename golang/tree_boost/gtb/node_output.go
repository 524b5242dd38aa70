package gtb

import "math"

type nodeOutputKind int

const (
	twoClassOutput nodeOutputKind = iota
	kClassOutput
)

// kClassEpsilon guards the K-class Newton step against saturated probabilities.
const kClassEpsilon = 1e-10

//NodeOutput computes the regression value of a leaf from the pseudo-residuals routed to it.
//It is a closed set of two variants: TwoClassOutput and KClassOutput.
type NodeOutput struct {
	kind nodeOutputKind
	k    int
}

//TwoClassOutput is the Newton step of the two-class logistic loss.
func TwoClassOutput() NodeOutput {
	return NodeOutput{kind: twoClassOutput, k: 2}
}

//KClassOutput is the Newton step of the K-class logistic loss.
func KClassOutput(k int) NodeOutput {
	return NodeOutput{kind: kClassOutput, k: k}
}

//NumClasses returns the number of classes the strategy was built for.
func (output NodeOutput) NumClasses() int {
	return output.k
}

//LeafValue returns the output of a leaf holding the given rows of response.
func (output NodeOutput) LeafValue(response []float64, rows []int) float64 {
	nu, de := 0.0, 0.0
	switch output.kind {
	case twoClassOutput:
		for _, row := range rows {
			y := response[row]
			abs := math.Abs(y)
			nu += y
			de += abs * (2.0 - abs)
		}
		if de == 0 {
			// every residual vanished, the scores are already saturated
			return 0
		}
		return nu / de
	case kClassOutput:
		for _, row := range rows {
			y := response[row]
			abs := math.Abs(y)
			nu += y
			de += abs * (1.0 - abs)
		}
		if de < kClassEpsilon {
			if len(rows) == 0 {
				return 0
			}
			return nu / float64(len(rows))
		}
		k := float64(output.k)
		return ((k - 1.0) / k) * (nu / de)
	}
	return 0
}

//ComputeLeafValue applies the strategy to a plain residual slice.
func (output NodeOutput) ComputeLeafValue(residuals []float64) float64 {
	rows := make([]int, len(residuals))
	for ind := range rows {
		rows[ind] = ind
	}
	return output.LeafValue(residuals, rows)
}
