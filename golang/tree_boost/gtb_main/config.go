package main

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
	"github.com/tarstars/gradient_tree_boosting/golang/tree_boost/gtb"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type TestConfig struct {
	Description          string `mapstructure:"description"`
	FileNameTestFeatures string `mapstructure:"filename_test_features"`
	FileNameTestLabels   string `mapstructure:"filename_test_labels"`
	FileNameTestSparse   string `mapstructure:"filename_test_sparse"`
}

type TrainConfig struct {
	FileNameTrainFeatures string       `mapstructure:"filename_train_features"`
	FileNameTrainLabels   string       `mapstructure:"filename_train_labels"`
	FileNameTrainSparse   string       `mapstructure:"filename_train_sparse"`
	Tests                 []TestConfig `mapstructure:"tests"`
	FileNameModel         string       `mapstructure:"filename_model"`
	FileNameLearningCurve string       `mapstructure:"filename_learning_curve"`
	FileNameImportance    string       `mapstructure:"filename_importance"`
	NumTrees              int          `mapstructure:"num_trees"`
	LearningRate          float64      `mapstructure:"learning_rate"`
	Subsample             float64      `mapstructure:"sampling_frac"`
	NumVars               float64      `mapstructure:"num_variables"`
	MaxDepth              int          `mapstructure:"max_depth"`
	MaxLeafNodes          int          `mapstructure:"max_leaf_nodes"`
	MinSamplesSplit       int          `mapstructure:"min_split"`
	MinSamplesLeaf        int          `mapstructure:"min_samples_leaf"`
	Seed                  int64        `mapstructure:"seed"`
	AttributeTypes        string       `mapstructure:"attribute_types"`
	LegacyMultiClass      bool         `mapstructure:"legacy_multiclass"`
	LogLevel              string       `mapstructure:"log_level"`
}

//HyperParams converts the configuration into validated boosting parameters.
func (config TrainConfig) HyperParams() (gtb.HyperParams, error) {
	params := gtb.HyperParams{
		NumTrees:               config.NumTrees,
		LearningRate:           config.LearningRate,
		Subsample:              config.Subsample,
		NumVars:                config.NumVars,
		MaxDepth:               config.MaxDepth,
		MaxLeafNodes:           config.MaxLeafNodes,
		MinSamplesSplit:        config.MinSamplesSplit,
		MinSamplesLeaf:         config.MinSamplesLeaf,
		LegacyMultiClassUpdate: config.LegacyMultiClass,
	}
	if config.Seed != -1 {
		params = params.WithSeed(config.Seed)
	}
	attributes, err := gtb.ParseAttributes(config.AttributeTypes)
	if err != nil {
		return gtb.HyperParams{}, err
	}
	params.Attributes = attributes
	return params, params.Validate()
}

type GraphConfig struct {
	ModelFileName     string `mapstructure:"filename_model"`
	Iteration         int    `mapstructure:"iteration"`
	FigureType        string `mapstructure:"figure_type"`
	PicturesDirectory string `mapstructure:"pictures_directory"`
	DumpPrefix        string `mapstructure:"dump_prefix"`
	LogLevel          string `mapstructure:"log_level"`
}

type ImportanceConfig struct {
	ModelFileName      string `mapstructure:"filename_model"`
	FileNameImportance string `mapstructure:"filename_importance"`
	Top                int    `mapstructure:"top"`
	LogLevel           string `mapstructure:"log_level"`
}

type LcurveConfig struct {
	ModelFileName         string     `mapstructure:"filename_model"`
	Test                  TestConfig `mapstructure:"test"`
	LearningCurveFileName string     `mapstructure:"filename_learning_curve"`
	LogLevel              string     `mapstructure:"log_level"`
}

func trainDefaults() map[string]interface{} {
	params := gtb.DefaultHyperParams()
	return map[string]interface{}{
		"num_trees":         params.NumTrees,
		"learning_rate":     params.LearningRate,
		"sampling_frac":     params.Subsample,
		"num_variables":     params.NumVars,
		"max_depth":         params.MaxDepth,
		"max_leaf_nodes":    params.MaxLeafNodes,
		"min_split":         params.MinSamplesSplit,
		"min_samples_leaf":  params.MinSamplesLeaf,
		"seed":              -1,
		"attribute_types":   "",
		"legacy_multiclass": false,
		"log_level":         "info",

		"filename_train_features": "",
		"filename_train_labels":   "",
		"filename_train_sparse":   "",
		"filename_model":          "",
		"filename_learning_curve": "",
		"filename_importance":     "",
	}
}

func graphDefaults() map[string]interface{} {
	return map[string]interface{}{
		"filename_model":     "",
		"iteration":          0,
		"figure_type":        "svg",
		"pictures_directory": ".",
		"dump_prefix":        "tree",
		"log_level":          "info",
	}
}

func importanceDefaults() map[string]interface{} {
	return map[string]interface{}{
		"filename_model":      "",
		"filename_importance": "",
		"top":                 20,
		"log_level":           "info",
	}
}

func lcurveDefaults() map[string]interface{} {
	return map[string]interface{}{
		"filename_model":              "",
		"filename_learning_curve":     "",
		"test.description":            "",
		"test.filename_test_features": "",
		"test.filename_test_labels":   "",
		"test.filename_test_sparse":   "",
		"log_level":                   "info",
	}
}

//decodeConfig reads a json or yaml config file. Every key present in defaults can be overridden by a GTB_
//prefixed environment variable, nested keys join with an underscore. List keys such as tests cannot.
func decodeConfig(srcConfig string, defaults map[string]interface{}, out interface{}) error {
	v := viper.New()
	v.SetConfigFile(srcConfig)
	v.SetEnvPrefix("GTB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	if err := v.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "read config %s", srcConfig)
	}
	if err := v.Unmarshal(out); err != nil {
		return errors.Wrapf(err, "decode config %s", srcConfig)
	}
	return nil
}

//newLogger builds a console logger writing to stderr at the given level.
func newLogger(level string) (*zap.Logger, error) {
	atomicLevel, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, errors.Wrapf(err, "log level %q", level)
	}
	config := zap.NewDevelopmentConfig()
	config.Level = atomicLevel
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.Development = atomicLevel.Level() == zapcore.DebugLevel
	return config.Build()
}
