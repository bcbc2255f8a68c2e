package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/binsquare/soctop/internal/config"
	"github.com/binsquare/soctop/internal/export"
	"github.com/binsquare/soctop/internal/logging"
	"github.com/binsquare/soctop/internal/pipeline"
	"github.com/binsquare/soctop/internal/powermetrics"
	"github.com/binsquare/soctop/internal/soc"
	"github.com/binsquare/soctop/internal/sysmon"
	"github.com/binsquare/soctop/internal/tui"
)

// NewRunCmd creates the run subcommand.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Monitor live, in the terminal or as a JSON stream",
		Long: `Monitor the SoC live. By default this opens the terminal dashboard;
with --json it streams one JSON record per sample to stdout instead,
suitable for capturing with a shell redirect.

Example:
  sudo soctop
  sudo soctop run --sample-rate 500ms
  sudo soctop run --json > capture.jsonl`,
		Args: cobra.NoArgs,
		RunE: runRun,
	}
	addRunFlags(cmd)
	return cmd
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().DurationVar(&cfg.SampleRate, "sample-rate", config.DefaultSampleRate, "Sampling interval passed to powermetrics")
	cmd.Flags().IntVar(&cfg.HistorySize, "history-size", config.DefaultHistorySize, "Samples kept per history series")
	cmd.Flags().BoolVar(&cfg.JSON, "json", false, "Stream JSON records to stdout instead of the dashboard")
	cmd.Flags().StringVar(&cfg.AccentColor, "accent-color", config.DefaultAccentColor, "Dashboard accent color")
}

func runRun(cmd *cobra.Command, args []string) error {
	warnings, err := cfg.Validate()
	if err != nil {
		return err
	}

	// The dashboard owns the terminal, so logs go to the file only.
	// Stream mode keeps stderr, stdout carries the data.
	log, closeLog, logPath, err := logging.Setup(logging.Options{
		Debug:   cfg.Debug,
		File:    cfg.LogFile,
		Console: cfg.JSON,
	})
	if err != nil {
		return err
	}
	defer closeLog()
	for _, w := range warnings {
		log.Warn().Msg(w)
	}
	log.Info().Str("version", Version).Str("log_file", logPath).Msg("soctop starting")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipe := newPipeline(cfg, log)

	if cfg.JSON {
		return runJSON(ctx, pipe)
	}
	return runDashboard(ctx, pipe)
}

// newPipeline wires the real collaborators: a powermetrics child per
// sampler generation, gopsutil for host snapshots and sysctl for the
// SoC description.
func newPipeline(cfg config.Config, log zerolog.Logger) *pipeline.Pipeline {
	pmLog := log.With().Str("component", "powermetrics").Logger()
	return pipeline.New(
		pipeline.Config{Interval: cfg.SampleRate, HistorySize: cfg.HistorySize},
		pipeline.Deps{
			NewSource: func() pipeline.RecordSource {
				return powermetrics.New(powermetrics.Config{Interval: cfg.SampleRate}, pmLog)
			},
			Monitor: sysmon.NewMonitor(),
			Soc:     soc.Loader{},
		},
		log.With().Str("component", "pipeline").Logger(),
	)
}

func runJSON(ctx context.Context, pipe *pipeline.Pipeline) error {
	emitter := export.NewEmitter(os.Stdout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return pipe.Run(gctx)
	})
	g.Go(func() error {
		defer emitter.Close()
		return emitter.Run(gctx, pipe)
	})
	return g.Wait()
}

func runDashboard(ctx context.Context, pipe *pipeline.Pipeline) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	view := tui.New(pipe, tui.Options{
		Version: Version,
		Accent:  cfg.AccentColor,
		Refresh: cfg.SampleRate,
	})

	// The pipeline outlives sampler failures only on screen: the view
	// keeps showing the failure page until the user quits, then the
	// error decides the exit status.
	pipeErr := make(chan error, 1)
	go func() {
		pipeErr <- pipe.Run(ctx)
	}()

	runErr := view.Run(ctx)
	cancel()

	if err := <-pipeErr; err != nil {
		return err
	}
	return runErr
}
