package gtb

import (
	"math"
	"time"

	"go.uber.org/zap"
)

//HyperParams collects the boosting hyper-parameters. Use DefaultHyperParams to get a valid starting point.
type HyperParams struct {
	NumTrees        int
	LearningRate    float64 // shrinkage eta in (0, 1]
	Subsample       float64 // fraction of rows drawn for every tree, in (0, 1]
	NumVars         float64 // see ResolveNumVars; 0 selects ceil(sqrt(cols))
	MaxDepth        int
	MaxLeafNodes    int
	MinSamplesSplit int
	MinSamplesLeaf  int
	Seed            *int64 // nil draws a fresh seed
	Attributes      []Attribute

	// LegacyMultiClassUpdate switches the K-class trainer to the legacy score update,
	// h += h + eta*pred with a single running maximum over classes and rows.
	LegacyMultiClassUpdate bool
}

//DefaultHyperParams returns the documented default configuration.
func DefaultHyperParams() HyperParams {
	return HyperParams{
		NumTrees:        500,
		LearningRate:    0.05,
		Subsample:       0.7,
		NumVars:         0,
		MaxDepth:        8,
		MaxLeafNodes:    math.MaxInt32,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  1,
	}
}

//WithSeed returns a copy of params with a fixed seed.
func (params HyperParams) WithSeed(seed int64) HyperParams {
	params.Seed = &seed
	return params
}

//Validate checks every hyper-parameter against its documented range.
func (params HyperParams) Validate() error {
	if params.NumTrees < 1 {
		return configErrorf("number of trees %d must be at least 1", params.NumTrees)
	}
	if !(params.LearningRate > 0 && params.LearningRate <= 1) {
		return configErrorf("shrinkage %v out of range (0, 1]", params.LearningRate)
	}
	if !(params.Subsample > 0 && params.Subsample <= 1) {
		return configErrorf("sampling fraction %v out of range (0, 1]", params.Subsample)
	}
	if math.IsNaN(params.NumVars) || math.IsInf(params.NumVars, 0) {
		return configErrorf("number of variables %v is not finite", params.NumVars)
	}
	if params.MaxDepth < 1 {
		return configErrorf("max depth %d must be at least 1", params.MaxDepth)
	}
	if params.MaxLeafNodes < 1 {
		return configErrorf("max leaf nodes %d must be at least 1", params.MaxLeafNodes)
	}
	if params.MinSamplesSplit <= 0 {
		return configErrorf("min samples split %d must be positive", params.MinSamplesSplit)
	}
	if params.MinSamplesLeaf < 1 {
		return configErrorf("min samples leaf %d must be at least 1", params.MinSamplesLeaf)
	}
	return nil
}

//resolveSeed returns the configured seed or a freshly generated one.
func (params HyperParams) resolveSeed() int64 {
	if params.Seed != nil {
		return *params.Seed
	}
	return time.Now().UnixNano()
}

//logFields describes the configuration in the form used by the training log line.
func (params HyperParams) logFields(k, numVars int, seed int64) []zap.Field {
	return []zap.Field{
		zap.Int("k", k),
		zap.Int("numTrees", params.NumTrees),
		zap.Float64("shrinkage", params.LearningRate),
		zap.Float64("subsample", params.Subsample),
		zap.Int("numVars", numVars),
		zap.Int("maxDepth", params.MaxDepth),
		zap.Int("minSamplesSplit", params.MinSamplesSplit),
		zap.Int("minSamplesLeaf", params.MinSamplesLeaf),
		zap.Int("maxLeafs", params.MaxLeafNodes),
		zap.Int64("seed", seed),
	}
}
