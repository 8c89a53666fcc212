package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultParamsPath is the parameters file read when no override is given.
	DefaultParamsPath = "params.yaml"

	paramsPathEnv   = "FAKENEWS_PARAMS"
	artifactsEnv    = "FAKENEWS_ARTIFACTS"
	logLevelEnv     = "FAKENEWS_LOG_LEVEL"
	historyDBEnv    = "FAKENEWS_HISTORY_DB"
	baselineName    = "lr"
	randomForestKey = "rf"
)

// ErrUnknownExperiment is returned when an experiment name has no parameters section.
var ErrUnknownExperiment = errors.New("unknown experiment")

// Config mirrors params.yaml: one top-level key per stage of the baseline experiment,
// a nested section for the random-forest experiment and the shared infrastructure settings.
type Config struct {
	DataIngestion      DataConfig       `yaml:"data_ingestion"`
	FeatureEngineering FeaturizeConfig  `yaml:"feature_engineering"`
	ModelBuilding      TrainConfig      `yaml:"model_building"`
	RF                 ExperimentConfig `yaml:"rf"`
	Logging            LoggingConfig    `yaml:"logging"`
	Artifacts          ArtifactsConfig  `yaml:"artifacts"`
	History            HistoryConfig    `yaml:"history"`
}

// ExperimentConfig groups the stage settings of one experiment.
type ExperimentConfig struct {
	Data      DataConfig      `yaml:"data"`
	Featurize FeaturizeConfig `yaml:"featurize"`
	Train     TrainConfig     `yaml:"train"`
	Evaluate  EvaluateConfig  `yaml:"evaluate"`
}

// DataConfig drives ingestion and the stratified split.
type DataConfig struct {
	SampleSizePerClass int     `yaml:"sample_size_per_class"`
	TestSize           float64 `yaml:"test_size"`
	RandomState        *int64  `yaml:"random_state"`
	Shuffle            *bool   `yaml:"shuffle"`
	FakePath           string  `yaml:"fake_path"`
	RealPath           string  `yaml:"real_path"`
}

// FeaturizeConfig drives the TF-IDF vectorizer.
type FeaturizeConfig struct {
	MaxFeatures int    `yaml:"max_features"`
	NGramRange  []int  `yaml:"ngram_range"`
	StopWords   string `yaml:"stop_words"`
}

// TrainConfig selects the model strategy and its hyperparameters.
type TrainConfig struct {
	ModelName       string   `yaml:"model_name"`
	Solver          string   `yaml:"solver"`
	MaxIter         int      `yaml:"max_iter"`
	C               *float64 `yaml:"C"`
	NEstimators     int      `yaml:"n_estimators"`
	MaxDepth        *int     `yaml:"max_depth"`
	MinSamplesSplit int      `yaml:"min_samples_split"`
	MinSamplesLeaf  int      `yaml:"min_samples_leaf"`
	MaxFeatures     string   `yaml:"max_features"`
	RandomState     *int64   `yaml:"random_state"`
	NJobs           *int     `yaml:"n_jobs"`
}

// EvaluateConfig names the two classes in reports.
type EvaluateConfig struct {
	TargetNames []string `yaml:"target_names"`
}

// LoggingConfig sets the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// ArtifactsConfig locates the artifact store root.
type ArtifactsConfig struct {
	Root string `yaml:"root"`
}

// HistoryConfig locates the SQLite run history; an empty path disables it.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// Load reads the YAML parameters at path over the defaults and applies environment overrides.
// A missing or malformed file is an error.
func Load(path string) (Config, error) {
	if path == "" {
		path = DefaultParamsPath
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read params %s: %w", path, err)
	}
	return Parse(raw)
}

// ResolvePath picks the parameters file: an explicit flag value, then FAKENEWS_PARAMS, then the default.
func ResolvePath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(paramsPathEnv); v != "" {
		return v
	}
	return DefaultParamsPath
}

// Parse decodes YAML parameters over the defaults.
func Parse(raw []byte) (Config, error) {
	var fileCfg Config
	if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
		return Config{}, fmt.Errorf("parse params: %w", err)
	}

	cfg := mergeConfig(Default(), fileCfg)
	cfg.applyEnvOverrides()

	for _, name := range cfg.ExperimentNames() {
		exp, _ := cfg.Experiment(name)
		if err := exp.Validate(); err != nil {
			return Config{}, fmt.Errorf("experiment %s: %w", name, err)
		}
	}
	return cfg, nil
}

// ExperimentNames lists the experiments defined by the parameters file.
func (c Config) ExperimentNames() []string {
	return []string{baselineName, randomForestKey}
}

// Experiment returns the stage settings of the named experiment.
func (c Config) Experiment(name string) (ExperimentConfig, error) {
	switch name {
	case baselineName:
		return ExperimentConfig{
			Data:      c.DataIngestion,
			Featurize: c.FeatureEngineering,
			Train:     c.ModelBuilding,
			Evaluate:  c.RF.Evaluate,
		}, nil
	case randomForestKey:
		return c.RF, nil
	default:
		return ExperimentConfig{}, fmt.Errorf("%w: %s (available: %s)", ErrUnknownExperiment, name, strings.Join(c.ExperimentNames(), ", "))
	}
}

// Validate checks ranges that would otherwise fail deep inside a stage.
func (e ExperimentConfig) Validate() error {
	if e.Data.SampleSizePerClass <= 0 {
		return fmt.Errorf("sample_size_per_class must be positive, got %d", e.Data.SampleSizePerClass)
	}
	if e.Data.TestSize <= 0 || e.Data.TestSize >= 1 {
		return fmt.Errorf("test_size must be in (0,1), got %v", e.Data.TestSize)
	}
	if len(e.Featurize.NGramRange) != 2 || e.Featurize.NGramRange[0] < 1 || e.Featurize.NGramRange[1] < e.Featurize.NGramRange[0] {
		return fmt.Errorf("ngram_range must be [min, max] with 1 <= min <= max, got %v", e.Featurize.NGramRange)
	}
	if e.Featurize.MaxFeatures < 0 {
		return fmt.Errorf("max_features must not be negative, got %d", e.Featurize.MaxFeatures)
	}
	if len(e.Evaluate.TargetNames) != 0 && len(e.Evaluate.TargetNames) != 2 {
		return fmt.Errorf("target_names must name exactly two classes, got %v", e.Evaluate.TargetNames)
	}
	if e.Train.ModelName == "" {
		return fmt.Errorf("model_name is required")
	}
	return nil
}

// Seed returns the split seed, zero when unset.
func (d DataConfig) Seed() int64 {
	if d.RandomState == nil {
		return 0
	}
	return *d.RandomState
}

// Shuffled reports whether rows are shuffled before splitting.
func (d DataConfig) Shuffled() bool {
	return d.Shuffle != nil && *d.Shuffle
}

// LabelNames returns the fake and real class names.
func (e EvaluateConfig) LabelNames() [2]string {
	if len(e.TargetNames) == 2 {
		return [2]string{e.TargetNames[0], e.TargetNames[1]}
	}
	return [2]string{"Fake", "True"}
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(artifactsEnv); v != "" {
		c.Artifacts.Root = v
	}

	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}

	if v := os.Getenv(historyDBEnv); v != "" {
		c.History.Path = v
	}
}

func mergeConfig(base, override Config) Config {
	base.DataIngestion = mergeData(base.DataIngestion, override.DataIngestion)
	base.FeatureEngineering = mergeFeaturize(base.FeatureEngineering, override.FeatureEngineering)
	base.ModelBuilding = mergeTrain(base.ModelBuilding, override.ModelBuilding)

	base.RF.Data = mergeData(base.RF.Data, override.RF.Data)
	base.RF.Featurize = mergeFeaturize(base.RF.Featurize, override.RF.Featurize)
	base.RF.Train = mergeTrain(base.RF.Train, override.RF.Train)
	if len(override.RF.Evaluate.TargetNames) > 0 {
		base.RF.Evaluate = override.RF.Evaluate
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}
	if override.Artifacts.Root != "" {
		base.Artifacts.Root = override.Artifacts.Root
	}
	if override.History.Path != "" {
		base.History.Path = override.History.Path
	}

	return base
}

func mergeData(base, override DataConfig) DataConfig {
	if override.SampleSizePerClass != 0 {
		base.SampleSizePerClass = override.SampleSizePerClass
	}
	if override.TestSize != 0 {
		base.TestSize = override.TestSize
	}
	if override.RandomState != nil {
		base.RandomState = override.RandomState
	}
	if override.Shuffle != nil {
		base.Shuffle = override.Shuffle
	}
	if override.FakePath != "" {
		base.FakePath = override.FakePath
	}
	if override.RealPath != "" {
		base.RealPath = override.RealPath
	}
	return base
}

func mergeFeaturize(base, override FeaturizeConfig) FeaturizeConfig {
	if override.MaxFeatures != 0 {
		base.MaxFeatures = override.MaxFeatures
	}
	if override.NGramRange != nil {
		base.NGramRange = override.NGramRange
	}
	if override.StopWords != "" {
		base.StopWords = override.StopWords
	}
	return base
}

func mergeTrain(base, override TrainConfig) TrainConfig {
	if override.ModelName != "" {
		base.ModelName = override.ModelName
	}
	if override.Solver != "" {
		base.Solver = override.Solver
	}
	if override.MaxIter != 0 {
		base.MaxIter = override.MaxIter
	}
	if override.C != nil {
		base.C = override.C
	}
	if override.NEstimators != 0 {
		base.NEstimators = override.NEstimators
	}
	if override.MaxDepth != nil {
		base.MaxDepth = override.MaxDepth
	}
	if override.MinSamplesSplit != 0 {
		base.MinSamplesSplit = override.MinSamplesSplit
	}
	if override.MinSamplesLeaf != 0 {
		base.MinSamplesLeaf = override.MinSamplesLeaf
	}
	if override.MaxFeatures != "" {
		base.MaxFeatures = override.MaxFeatures
	}
	if override.RandomState != nil {
		base.RandomState = override.RandomState
	}
	if override.NJobs != nil {
		base.NJobs = override.NJobs
	}
	return base
}

// Default returns the parameters used when params.yaml leaves a value unset.
func Default() Config {
	seed := int64(42)
	shuffle := true
	keepOrder := false
	jobs := -1
	return Config{
		DataIngestion: DataConfig{
			SampleSizePerClass: 1000,
			TestSize:           0.2,
			RandomState:        &seed,
			Shuffle:            &keepOrder,
			FakePath:           "data/raw/Fake.csv",
			RealPath:           "data/raw/True.csv",
		},
		FeatureEngineering: FeaturizeConfig{
			MaxFeatures: 5000,
			NGramRange:  []int{1, 2},
			StopWords:   "english",
		},
		ModelBuilding: TrainConfig{
			ModelName:   "logistic_regression",
			Solver:      "liblinear",
			MaxIter:     1000,
			RandomState: &seed,
		},
		RF: ExperimentConfig{
			Data: DataConfig{
				SampleSizePerClass: 1000,
				TestSize:           0.2,
				RandomState:        &seed,
				Shuffle:            &shuffle,
				FakePath:           "data/raw/Fake.csv",
				RealPath:           "data/raw/True.csv",
			},
			Featurize: FeaturizeConfig{
				MaxFeatures: 5000,
				NGramRange:  []int{1, 2},
				StopWords:   "english",
			},
			Train: TrainConfig{
				ModelName:       "random_forest",
				NEstimators:     100,
				MinSamplesSplit: 2,
				MinSamplesLeaf:  1,
				MaxFeatures:     "sqrt",
				RandomState:     &seed,
				NJobs:           &jobs,
			},
			Evaluate: EvaluateConfig{TargetNames: []string{"Fake", "True"}},
		},
		Logging:   LoggingConfig{Level: "info"},
		Artifacts: ArtifactsConfig{Root: "artifacts"},
		History:   HistoryConfig{Path: "metrics/history.db"},
	}
}
