package gtb

import (
	"io"
	"strings"

	"github.com/spf13/pflag"
)

var optionAliases = map[string]string{
	"num_trees":         "trees",
	"learning_rate":     "eta",
	"sampling_frac":     "subsample",
	"num_variables":     "vars",
	"max_depth":         "depth",
	"max_leaf_nodes":    "leafs",
	"min_split":         "splits",
	"attribute_types":   "attrs",
	"legacy_multiclass": "legacy",
}

//NewOptionFlagSet creates the flag set of the training options. Long option names are aliases of the short ones.
func NewOptionFlagSet(params *HyperParams, seed *int64, attrs *string) *pflag.FlagSet {
	fs := pflag.NewFlagSet("gtb", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		name = strings.ReplaceAll(name, "-", "_")
		if alias, ok := optionAliases[name]; ok {
			name = alias
		}
		return pflag.NormalizedName(name)
	})

	fs.IntVar(&params.NumTrees, "trees", params.NumTrees, "The number of trees for each task")
	fs.Float64Var(&params.LearningRate, "eta", params.LearningRate, "The learning rate (0, 1] of procedure")
	fs.Float64Var(&params.Subsample, "subsample", params.Subsample,
		"The fraction of samples to be used for fitting the individual base learners")
	fs.Float64Var(&params.NumVars, "vars", params.NumVars,
		"The number of random selected features, a fraction of the features if in (0, 1] [default: ceil(sqrt(features))]")
	fs.IntVar(&params.MaxDepth, "depth", params.MaxDepth, "The maximum number of the tree depth")
	fs.IntVar(&params.MaxLeafNodes, "leafs", params.MaxLeafNodes, "The maximum number of leaf nodes")
	fs.IntVar(&params.MinSamplesSplit, "splits", params.MinSamplesSplit,
		"A node that has greater than or equals to min_split examples will split")
	fs.IntVar(&params.MinSamplesLeaf, "min_samples_leaf", params.MinSamplesLeaf, "The minimum number of samples in a leaf node")
	fs.Int64Var(seed, "seed", *seed, "seed value, -1 draws a random one")
	fs.StringVar(attrs, "attrs", *attrs, "Comma separated attribute types, Q or C, e.g. [Q,C,Q,C]")
	fs.BoolVar(&params.LegacyMultiClassUpdate, "legacy", params.LegacyMultiClassUpdate,
		"Use the legacy multi-class score update h += h + eta*pred")
	return fs
}

//ParseOptions parses an option string such as "-trees 100 -eta 0.1 -attrs Q,C" on top of the defaults.
//Options may be given with one or two leading dashes.
func ParseOptions(options string) (HyperParams, error) {
	params := DefaultHyperParams()
	seed := int64(-1)
	attrs := ""
	fs := NewOptionFlagSet(&params, &seed, &attrs)

	args := strings.Fields(options)
	for ind, arg := range args {
		if len(arg) > 2 && arg[0] == '-' && arg[1] != '-' && !isNumber(arg) {
			args[ind] = "-" + arg
		}
	}
	if err := fs.Parse(args); err != nil {
		return HyperParams{}, configErrorf("%v", err)
	}
	if fs.NArg() > 0 {
		return HyperParams{}, configErrorf("unexpected arguments %v", fs.Args())
	}

	if seed != -1 {
		params.Seed = &seed
	}
	if attrs != "" {
		attributes, err := ParseAttributes(attrs)
		if err != nil {
			return HyperParams{}, err
		}
		params.Attributes = attributes
	}
	return params, params.Validate()
}

func isNumber(arg string) bool {
	for _, c := range arg[1:] {
		if (c < '0' || c > '9') && c != '.' && c != 'e' && c != 'E' {
			return false
		}
	}
	return true
}
