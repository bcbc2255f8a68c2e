package commands

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/binsquare/soctop/internal/config"
	"github.com/binsquare/soctop/internal/export"
	"github.com/binsquare/soctop/internal/logging"
	"github.com/binsquare/soctop/internal/pipeline"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run HTTP server exposing metrics",
		Long: `Run the sampling pipeline headless and expose it over HTTP.

Endpoints:
  /metrics   Prometheus gauges for every sampled domain
  /soc       Static SoC description (JSON)
  /healthz   Pipeline phase, 503 once sampling has stopped

Example:
  sudo soctop serve --listen :2333`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().StringVar(&cfg.ListenAddr, "listen", config.DefaultListenAddr, "Listen address")
	cmd.Flags().DurationVar(&cfg.SampleRate, "sample-rate", config.DefaultSampleRate, "Sampling interval passed to powermetrics")
	cmd.Flags().IntVar(&cfg.HistorySize, "history-size", config.DefaultHistorySize, "Samples kept per history series")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	warnings, err := cfg.Validate()
	if err != nil {
		return err
	}

	log, closeLog, logPath, err := logging.Setup(logging.Options{
		Debug:   cfg.Debug,
		File:    cfg.LogFile,
		Console: true,
	})
	if err != nil {
		return err
	}
	defer closeLog()
	for _, w := range warnings {
		log.Warn().Msg(w)
	}
	log.Info().Str("version", Version).Str("log_file", logPath).Msg("soctop serving")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipe := newPipeline(cfg, log)
	exporter := export.NewExporter()

	// A dead sampler does not take the server down; /healthz turns 503
	// and carries the error instead.
	var sampleErr atomic.Value

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := pipe.Run(gctx); err != nil {
			log.Error().Err(err).Msg("sampling failed, serving last state")
			sampleErr.Store(err.Error())
		}
		return nil
	})

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-pipe.Updates():
				exporter.Observe(pipe.Latest())
			}
		}
	})

	r := chi.NewRouter()
	r.Handle("/metrics", exporter.Handler())
	r.Get("/soc", func(w http.ResponseWriter, _ *http.Request) {
		info := pipe.Soc()
		if info == nil {
			http.Error(w, "soc not identified yet", http.StatusServiceUnavailable)
			return
		}
		writeJSON(w, http.StatusOK, info)
	})
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		phase := pipe.Phase()
		health := struct {
			Phase string `json:"phase"`
			Error string `json:"error,omitempty"`
		}{Phase: phase.String()}
		if msg, ok := sampleErr.Load().(string); ok {
			health.Error = msg
		}
		code := http.StatusOK
		if phase == pipeline.PhaseFailed || phase == pipeline.PhaseStopped {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, health)
	})

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: r,
	}

	g.Go(func() error {
		log.Info().Str("addr", cfg.ListenAddr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
