package app

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"FakeNewsDetector/internal/config"
	"FakeNewsDetector/internal/logging"
	"FakeNewsDetector/internal/usecase"
)

const (
	defaultExperiment = "lr"
	defaultCompareB   = "rf"
)

// CLI holds the command tree and builds the Application on first use,
// so help output never needs a parameters file.
type CLI struct {
	paramsPath string
	in         io.Reader
	out        io.Writer
	errOut     io.Writer
	app        *Application
}

// NewCLI creates a CLI reading from in, reporting to out and logging to errOut.
func NewCLI(in io.Reader, out, errOut io.Writer) *CLI {
	return &CLI{in: in, out: out, errOut: errOut}
}

// Execute runs the command line and returns the process exit code.
// Failures are printed to out.
func Execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	c := NewCLI(in, out, errOut)
	root := c.RootCommand()
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if closeErr := c.close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		fmt.Fprintln(out, Describe(err))
	}
	return ExitCode(err)
}

// RootCommand assembles the command tree.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "fakenews",
		Short:         "Train, evaluate and compare TF-IDF fake news classifiers",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)
	root.PersistentFlags().StringVar(&c.paramsPath, "params", "", "Path to the parameters file (default $FAKENEWS_PARAMS or params.yaml)")

	root.AddCommand(
		c.newStageCommand(usecase.StageIngest, "Read the raw corpora and write the stratified train/test split"),
		c.newStageCommand(usecase.StageFeaturize, "Fit the TF-IDF vectorizer on the train split and transform both splits"),
		c.newStageCommand(usecase.StageTrain, "Train the configured model on the train features"),
		c.newStageCommand(usecase.StageEvaluate, "Score the model on the test features and write the metrics record"),
		c.newStageCommand("run", "Run ingest, featurize, train and evaluate in order"),
		c.newCompareCommand(),
		c.newPredictCommand(),
		c.newInteractiveCommand(),
		c.newHistoryCommand(),
	)
	return root
}

func (c *CLI) application() (*Application, error) {
	if c.app != nil {
		return c.app, nil
	}

	cfg, err := config.Load(config.ResolvePath(c.paramsPath))
	if err != nil {
		return nil, &usecase.StageError{Stage: "config", Kind: usecase.KindConfig, Err: err}
	}
	logger := logging.NewWithWriter(c.errOut, cfg.Logging.Level)

	application, err := New(cfg, logger, c.out)
	if err != nil {
		return nil, err
	}
	c.app = application
	return application, nil
}

func (c *CLI) close() error {
	if c.app == nil {
		return nil
	}
	return c.app.Close()
}

func (c *CLI) newStageCommand(stage, short string) *cobra.Command {
	var experiment string

	cmd := &cobra.Command{
		Use:   stage,
		Short: short,
		Args:  cobra.NoArgs,
		Example: fmt.Sprintf(`  fakenews %s --experiment lr
  fakenews %s --experiment rf --params params.yaml`, stage, stage),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application()
			if err != nil {
				return err
			}
			return a.RunStage(cmd.Context(), stage, experiment)
		},
	}

	cmd.Flags().StringVar(&experiment, "experiment", defaultExperiment, "Experiment to run (lr or rf)")
	return cmd
}

func (c *CLI) newCompareCommand() *cobra.Command {
	var experimentA, experimentB string

	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare the metrics of two experiments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application()
			if err != nil {
				return err
			}
			return a.Compare(cmd.Context(), experimentA, experimentB)
		},
	}

	cmd.Flags().StringVar(&experimentA, "a", defaultExperiment, "Baseline experiment")
	cmd.Flags().StringVar(&experimentB, "b", defaultCompareB, "Challenger experiment")
	return cmd
}

func (c *CLI) newPredictCommand() *cobra.Command {
	var (
		experiment string
		url        string
	)

	cmd := &cobra.Command{
		Use:   "predict [text...]",
		Short: "Classify texts, an article URL, or the demo headlines",
		Example: `  fakenews predict "President signs new education bill into law"
  fakenews predict --url https://example.com/story --experiment rf`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if url != "" && len(args) > 0 {
				return &usecase.StageError{Stage: "predict", Kind: usecase.KindConfig, Err: fmt.Errorf("give either texts or --url, not both")}
			}
			a, err := c.application()
			if err != nil {
				return err
			}
			return a.Predict(cmd.Context(), experiment, args, url)
		},
	}

	cmd.Flags().StringVar(&experiment, "experiment", defaultExperiment, "Experiment whose model is used")
	cmd.Flags().StringVar(&url, "url", "", "Fetch and classify the article at this URL")
	return cmd
}

func (c *CLI) newInteractiveCommand() *cobra.Command {
	var experiment string

	cmd := &cobra.Command{
		Use:   "interactive",
		Short: "Classify lines typed on standard input until 'quit'",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application()
			if err != nil {
				return err
			}
			return a.Interactive(cmd.Context(), experiment, cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVar(&experiment, "experiment", defaultExperiment, "Experiment whose model is used")
	return cmd
}

func (c *CLI) newHistoryCommand() *cobra.Command {
	var (
		experiment string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded evaluation runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := c.application()
			if err != nil {
				return err
			}
			return a.History(cmd.Context(), experiment, limit)
		},
	}

	cmd.Flags().StringVar(&experiment, "experiment", "", "Only show runs of this experiment")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs (0 for all)")
	return cmd
}
