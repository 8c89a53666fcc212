package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"FakeNewsDetector/internal/compare"
	"FakeNewsDetector/internal/config"
	"FakeNewsDetector/internal/domain"
	"FakeNewsDetector/internal/infrastructure/parser"
	"FakeNewsDetector/internal/infrastructure/storage"
	"FakeNewsDetector/internal/logging"
	"FakeNewsDetector/internal/models"
	"FakeNewsDetector/internal/ports"
	"FakeNewsDetector/internal/predict"
	"FakeNewsDetector/internal/usecase"
)

// ErrHistoryDisabled is returned by History when no database path is configured.
var ErrHistoryDisabled = errors.New("run history is disabled (history.path is empty)")

// Application wires configs to use cases.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	out      io.Writer
	store    ports.ArtifactStore
	registry *models.Registry
	history  *storage.SQLiteHistory
	fetcher  ports.ArticleFetcher
	pipeline *usecase.Pipeline
}

// New opens the artifact store and, when configured, the run history.
// Reports go to out; logs go to baseLogger.
func New(cfg config.Config, baseLogger *slog.Logger, out io.Writer) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level)
	}
	if out == nil {
		out = io.Discard
	}

	store := storage.NewFileStore(cfg.Artifacts.Root)

	a := &Application{
		cfg:      cfg,
		logger:   baseLogger,
		out:      out,
		store:    store,
		registry: models.NewRegistry(),
		fetcher:  parser.NewHTMLFetcher(nil),
	}

	deps := usecase.PipelineDeps{
		Store:    store,
		Registry: a.registry,
		Logger:   baseLogger.With("component", "pipeline"),
		Report:   out,
	}
	if cfg.History.Path != "" {
		history, err := storage.OpenSQLiteHistory(cfg.History.Path)
		if err != nil {
			return nil, usecase.Fail("setup", err)
		}
		a.history = history
		deps.History = history
	}

	a.pipeline = usecase.NewPipeline(deps)
	return a, nil
}

// Close releases the history database.
func (a *Application) Close() error {
	if a.history == nil {
		return nil
	}
	return a.history.Close()
}

// RunStage executes one named stage, or all of them for "run".
func (a *Application) RunStage(ctx context.Context, stage, experiment string) error {
	exp, err := a.cfg.Experiment(experiment)
	if err != nil {
		return usecase.Fail(stage, err)
	}

	switch stage {
	case usecase.StageIngest:
		return a.pipeline.Ingest(ctx, experiment, exp)
	case usecase.StageFeaturize:
		return a.pipeline.Featurize(ctx, experiment, exp)
	case usecase.StageTrain:
		return a.pipeline.Train(ctx, experiment, exp)
	case usecase.StageEvaluate:
		metrics, err := a.pipeline.Evaluate(ctx, experiment, exp)
		if err != nil {
			return err
		}
		a.printMetrics(metrics)
		return nil
	case "run":
		metrics, err := a.pipeline.Run(ctx, experiment, exp)
		if err != nil {
			return err
		}
		a.printMetrics(metrics)
		return nil
	default:
		return usecase.Fail(stage, fmt.Errorf("unknown stage %q", stage))
	}
}

func (a *Application) printMetrics(m domain.Metrics) {
	fmt.Fprintf(a.out, "%s (%s): accuracy=%.4f f1_fake=%.4f f1_true=%.4f train=%d test=%d\n",
		m.Experiment, m.ModelType, m.Accuracy, m.F1Fake, m.F1True, m.TrainingSamples, m.TestSamples)
}

// Compare prints the side-by-side report of two experiments' metrics.
func (a *Application) Compare(ctx context.Context, experimentA, experimentB string) error {
	comparator := compare.New(a.store, a.logger)
	if _, err := comparator.Run(ctx, experimentA, experimentB, a.out); err != nil {
		return usecase.Fail("compare", err)
	}
	return nil
}

func (a *Application) predictor(ctx context.Context, experiment string) (*predict.Predictor, error) {
	exp, err := a.cfg.Experiment(experiment)
	if err != nil {
		return nil, usecase.Fail("predict", err)
	}
	p, err := predict.Load(ctx, a.store, a.registry, experiment, exp.Evaluate.LabelNames(), a.logger.With("component", "predict"))
	if err != nil {
		return nil, usecase.Fail("predict", err)
	}
	return p, nil
}

// Predict classifies the given texts, the article at url, or the demo headlines.
func (a *Application) Predict(ctx context.Context, experiment string, texts []string, url string) error {
	p, err := a.predictor(ctx, experiment)
	if err != nil {
		return err
	}

	if url != "" {
		pred, err := p.PredictURL(ctx, a.fetcher, url)
		if err != nil {
			return usecase.Fail("predict", err)
		}
		fmt.Fprintf(a.out, "%s\n   -> %s\n", url, pred)
		return nil
	}

	if _, err := p.Batch(texts, a.out); err != nil {
		return usecase.Fail("predict", err)
	}
	return nil
}

// Interactive runs the read-classify loop over in.
func (a *Application) Interactive(ctx context.Context, experiment string, in io.Reader) error {
	p, err := a.predictor(ctx, experiment)
	if err != nil {
		return err
	}
	if err := p.Interactive(ctx, in, a.out); err != nil {
		return usecase.Fail("interactive", err)
	}
	return nil
}

// History prints recorded evaluations, newest first.
func (a *Application) History(ctx context.Context, experiment string, limit int) error {
	if a.history == nil {
		return &usecase.StageError{Stage: "history", Kind: usecase.KindConfig, Err: ErrHistoryDisabled}
	}
	runs, err := a.history.List(ctx, experiment, limit)
	if err != nil {
		return usecase.Fail("history", err)
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEVALUATED\tEXPERIMENT\tMODEL\tACCURACY\tTRAIN\tTEST")
	for _, run := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.4f\t%d\t%d\n",
			shortID(run.ID),
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Experiment,
			run.ModelType,
			run.Accuracy,
			run.Metrics.TrainingSamples,
			run.Metrics.TestSamples)
	}
	if err := tw.Flush(); err != nil {
		return usecase.Fail("history", err)
	}
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
