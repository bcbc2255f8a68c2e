// Package commands provides the soctop CLI.
package commands

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/binsquare/soctop/internal/config"
	"github.com/binsquare/soctop/internal/powermetrics"
)

// Version is stamped into the dashboard header and --version output.
const Version = "0.1.0"

// cfg is the shared configuration instance. Root and the run
// subcommand bind the same flags into it so `soctop` and `soctop run`
// behave identically.
var cfg = config.Default()

// NewRootCmd creates the root command with all subcommands. Running
// soctop without a subcommand starts the live dashboard.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "soctop",
		Short: "Apple Silicon power and performance monitor",
		Long: `soctop samples the SoC through powermetrics and shows per-cluster
CPU frequency and utilization, GPU and ANE activity, power draw and
memory pressure. It needs root privileges to spawn powermetrics.

Commands:
  run      Live terminal dashboard or JSON stream (default)
  serve    Run HTTP server exposing Prometheus metrics
  report   Render an HTML report from a recorded JSON stream`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runRun,
	}

	root.PersistentFlags().BoolVar(&cfg.Debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&cfg.LogFile, "log-file", "", "Log file path (defaults to a file next to the binary)")
	addRunFlags(root)

	root.AddCommand(
		NewRunCmd(),
		NewServeCmd(),
		NewReportCmd(),
	)

	return root
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "soctop: %v\n", err)
		var exitErr *powermetrics.ExitError
		if errors.As(err, &exitErr) && exitErr.NeedsRoot() {
			fmt.Fprintln(os.Stderr, "soctop: powermetrics needs root privileges, try again with sudo")
		}
		os.Exit(1)
	}
}
