package usecase

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"FakeNewsDetector/internal/config"
	"FakeNewsDetector/internal/domain"
	"FakeNewsDetector/internal/evaluation"
	"FakeNewsDetector/internal/features"
	"FakeNewsDetector/internal/ingest"
	"FakeNewsDetector/internal/models"
	"FakeNewsDetector/internal/ports"
)

// Stage names used in logs and errors.
const (
	StageIngest    = "ingest"
	StageFeaturize = "featurize"
	StageTrain     = "train"
	StageEvaluate  = "evaluate"
)

// FeatureSet is the persisted output of feature engineering for one partition.
type FeatureSet struct {
	X      *features.Matrix `json:"x"`
	Labels []domain.Label   `json:"labels"`
}

// PipelineDeps wires all driven adapters into the pipeline.
type PipelineDeps struct {
	Store    ports.ArtifactStore
	Registry *models.Registry
	History  ports.RunHistory
	Logger   *slog.Logger
	// Report receives the per-class classification report; nil discards it.
	Report io.Writer
	Now    func() time.Time
}

// Pipeline runs the stages of one experiment. Stages communicate only through the store.
type Pipeline struct {
	store    ports.ArtifactStore
	registry *models.Registry
	history  ports.RunHistory
	logger   *slog.Logger
	report   io.Writer
	now      func() time.Time
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	p := &Pipeline{
		store:    deps.Store,
		registry: deps.Registry,
		history:  deps.History,
		logger:   deps.Logger,
		report:   deps.Report,
		now:      deps.Now,
	}
	if p.registry == nil {
		p.registry = models.NewRegistry()
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if p.report == nil {
		p.report = io.Discard
	}
	if p.now == nil {
		p.now = time.Now
	}
	return p
}

// Run executes ingest, featurize, train and evaluate in order.
func (p *Pipeline) Run(ctx context.Context, experiment string, cfg config.ExperimentConfig) (domain.Metrics, error) {
	if err := p.Ingest(ctx, experiment, cfg); err != nil {
		return domain.Metrics{}, err
	}
	if err := p.Featurize(ctx, experiment, cfg); err != nil {
		return domain.Metrics{}, err
	}
	if err := p.Train(ctx, experiment, cfg); err != nil {
		return domain.Metrics{}, err
	}
	return p.Evaluate(ctx, experiment, cfg)
}

// Ingest reads both corpora, splits them and persists the partitions.
func (p *Pipeline) Ingest(ctx context.Context, experiment string, cfg config.ExperimentConfig) error {
	log := p.stageLogger(StageIngest, experiment)
	log.Info("stage started", "fake_path", cfg.Data.FakePath, "real_path", cfg.Data.RealPath)

	loader := ingest.NewLoader(ingest.Options{
		SampleSizePerClass: cfg.Data.SampleSizePerClass,
		TestSize:           cfg.Data.TestSize,
		Seed:               cfg.Data.Seed(),
		Shuffle:            cfg.Data.Shuffled(),
	}, log)

	split, err := loader.LoadFiles(cfg.Data.FakePath, cfg.Data.RealPath)
	if err != nil {
		return Fail(StageIngest, err)
	}

	if err := p.put(ctx, experiment, domain.ArtifactTrainSplit, split.Train); err != nil {
		return Fail(StageIngest, err)
	}
	if err := p.put(ctx, experiment, domain.ArtifactTestSplit, split.Test); err != nil {
		return Fail(StageIngest, err)
	}

	log.Info("stage finished", "train", split.Train.Len(), "test", split.Test.Len())
	return nil
}

// Featurize fits the vectorizer on the train split and projects both partitions.
func (p *Pipeline) Featurize(ctx context.Context, experiment string, cfg config.ExperimentConfig) error {
	log := p.stageLogger(StageFeaturize, experiment)
	log.Info("stage started", "max_features", cfg.Featurize.MaxFeatures, "ngram_range", cfg.Featurize.NGramRange)

	var train, test domain.Dataset
	if err := p.get(ctx, experiment, domain.ArtifactTrainSplit, &train); err != nil {
		return Fail(StageFeaturize, err)
	}
	if err := p.get(ctx, experiment, domain.ArtifactTestSplit, &test); err != nil {
		return Fail(StageFeaturize, err)
	}

	vectorizer, err := features.NewVectorizer(vectorizerConfig(cfg.Featurize))
	if err != nil {
		return Fail(StageFeaturize, err)
	}
	xTrain, err := vectorizer.FitTransform(train.Texts)
	if err != nil {
		return Fail(StageFeaturize, fmt.Errorf("fit vectorizer: %w", err))
	}
	xTest, err := vectorizer.Transform(test.Texts)
	if err != nil {
		return Fail(StageFeaturize, fmt.Errorf("transform test split: %w", err))
	}

	if err := p.put(ctx, experiment, domain.ArtifactTrainFeatures, FeatureSet{X: xTrain, Labels: train.Labels}); err != nil {
		return Fail(StageFeaturize, err)
	}
	if err := p.put(ctx, experiment, domain.ArtifactTestFeatures, FeatureSet{X: xTest, Labels: test.Labels}); err != nil {
		return Fail(StageFeaturize, err)
	}
	if err := p.put(ctx, experiment, domain.ArtifactVectorizer, vectorizer); err != nil {
		return Fail(StageFeaturize, err)
	}

	log.Info("stage finished", "vocabulary", vectorizer.VocabularySize(), "train_nnz", xTrain.NNZ(), "test_nnz", xTest.NNZ())
	return nil
}

// Train resolves the configured strategy before touching any artifact, so an unsupported
// model name fails without writing a model.
func (p *Pipeline) Train(ctx context.Context, experiment string, cfg config.ExperimentConfig) error {
	log := p.stageLogger(StageTrain, experiment)

	strategy, err := p.registry.Resolve(cfg.Train.ModelName, TrainOptions(cfg.Train))
	if err != nil {
		return Fail(StageTrain, err)
	}
	log.Info("stage started", "model", strategy.Name())

	var set FeatureSet
	if err := p.get(ctx, experiment, domain.ArtifactTrainFeatures, &set); err != nil {
		return Fail(StageTrain, err)
	}
	if set.X == nil {
		return Fail(StageTrain, fmt.Errorf("train features are empty"))
	}
	if err := set.X.Validate(); err != nil {
		return Fail(StageTrain, fmt.Errorf("train features: %w", err))
	}

	started := p.now()
	model, err := strategy.Fit(ctx, set.X, set.Labels)
	if err != nil {
		return Fail(StageTrain, fmt.Errorf("fit %s: %w", strategy.Name(), err))
	}

	env, err := models.Wrap(model)
	if err != nil {
		return Fail(StageTrain, err)
	}
	env.Parameters = strategy.Parameters()
	if err := p.put(ctx, experiment, domain.ArtifactModel, env); err != nil {
		return Fail(StageTrain, err)
	}

	log.Info("stage finished", "rows", len(set.Labels), "features", model.NumFeatures(), "elapsed", p.now().Sub(started))
	return nil
}

// Evaluate scores the model on the test partition and persists the metrics record.
func (p *Pipeline) Evaluate(ctx context.Context, experiment string, cfg config.ExperimentConfig) (domain.Metrics, error) {
	log := p.stageLogger(StageEvaluate, experiment)
	log.Info("stage started")

	var env models.Envelope
	if err := p.get(ctx, experiment, domain.ArtifactModel, &env); err != nil {
		return domain.Metrics{}, Fail(StageEvaluate, err)
	}
	model, err := p.registry.Unwrap(env)
	if err != nil {
		return domain.Metrics{}, Fail(StageEvaluate, err)
	}

	var test FeatureSet
	if err := p.get(ctx, experiment, domain.ArtifactTestFeatures, &test); err != nil {
		return domain.Metrics{}, Fail(StageEvaluate, err)
	}
	if test.X == nil {
		return domain.Metrics{}, Fail(StageEvaluate, fmt.Errorf("test features are empty"))
	}
	var train domain.Dataset
	if err := p.get(ctx, experiment, domain.ArtifactTrainSplit, &train); err != nil {
		return domain.Metrics{}, Fail(StageEvaluate, err)
	}

	predicted, err := models.PredictAll(model, test.X)
	if err != nil {
		return domain.Metrics{}, Fail(StageEvaluate, err)
	}
	report, err := evaluation.Evaluate(test.Labels, predicted)
	if err != nil {
		return domain.Metrics{}, Fail(StageEvaluate, err)
	}

	metrics := report.Metrics()
	metrics.Experiment = experiment
	metrics.ModelType = env.Kind
	metrics.TrainingSamples = train.Len()
	metrics.Parameters = parameters(env, cfg.Featurize)
	metrics.EvaluatedAt = p.now().UTC()

	fmt.Fprintf(p.report, "Classification report (%s, %s)\n%s\n", experiment, env.Kind, report.Text(cfg.Evaluate.LabelNames()))

	if err := p.put(ctx, experiment, domain.ArtifactMetrics, metrics); err != nil {
		return domain.Metrics{}, Fail(StageEvaluate, err)
	}

	if p.history != nil {
		run := domain.RunRecord{
			Experiment: experiment,
			ModelType:  metrics.ModelType,
			Accuracy:   metrics.Accuracy,
			Metrics:    metrics,
			CreatedAt:  metrics.EvaluatedAt,
		}
		if err := p.history.Record(ctx, run); err != nil {
			return domain.Metrics{}, Fail(StageEvaluate, fmt.Errorf("record run: %w", err))
		}
	}

	log.Info("stage finished",
		"accuracy", metrics.Accuracy,
		"f1_fake", metrics.F1Fake,
		"f1_true", metrics.F1True,
		"training_samples", metrics.TrainingSamples,
		"test_samples", metrics.TestSamples)
	return metrics, nil
}

// TrainOptions maps the configured hyperparameters onto strategy options.
func TrainOptions(cfg config.TrainConfig) models.Options {
	opts := models.Options{
		Solver:          cfg.Solver,
		MaxIter:         cfg.MaxIter,
		NEstimators:     cfg.NEstimators,
		MinSamplesSplit: cfg.MinSamplesSplit,
		MinSamplesLeaf:  cfg.MinSamplesLeaf,
		MaxFeatures:     cfg.MaxFeatures,
	}
	if cfg.C != nil {
		opts.C = *cfg.C
	}
	if cfg.MaxDepth != nil {
		opts.MaxDepth = *cfg.MaxDepth
	}
	if cfg.RandomState != nil {
		opts.Seed = *cfg.RandomState
	}
	if cfg.NJobs != nil {
		opts.NJobs = *cfg.NJobs
	}
	return opts
}

func vectorizerConfig(cfg config.FeaturizeConfig) features.Config {
	out := features.Config{
		MaxFeatures: cfg.MaxFeatures,
		NGramMin:    1,
		NGramMax:    1,
		Language:    cfg.StopWords,
	}
	if len(cfg.NGramRange) == 2 {
		out.NGramMin, out.NGramMax = cfg.NGramRange[0], cfg.NGramRange[1]
	}
	return out
}

func parameters(env models.Envelope, featurize config.FeaturizeConfig) map[string]any {
	params := make(map[string]any, len(env.Parameters)+2)
	for k, v := range env.Parameters {
		params[k] = v
	}
	params["tfidf_max_features"] = featurize.MaxFeatures
	params["ngram_range"] = featurize.NGramRange
	return params
}

func (p *Pipeline) stageLogger(stage, experiment string) *slog.Logger {
	return p.logger.With("stage", stage, "experiment", experiment)
}

func (p *Pipeline) put(ctx context.Context, experiment, artifact string, v any) error {
	key := domain.ArtifactKey(experiment, artifact)
	if err := p.store.Put(ctx, key, v); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func (p *Pipeline) get(ctx context.Context, experiment, artifact string, v any) error {
	key := domain.ArtifactKey(experiment, artifact)
	if err := p.store.Get(ctx, key, v); err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	return nil
}
