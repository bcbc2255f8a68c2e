package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/binsquare/soctop/internal/export"
	"github.com/binsquare/soctop/internal/report"
)

var reportOut string

// NewReportCmd creates the report subcommand.
func NewReportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report <input.jsonl>",
		Short: "Render an HTML report from a recorded stream",
		Long: `Render interactive power, CPU, GPU and memory charts from a stream
captured with soctop run --json.

Example:
  sudo soctop run --json > capture.jsonl
  soctop report capture.jsonl -o report.html`,
		Args: cobra.ExactArgs(1),
		RunE: runReport,
	}
	cmd.Flags().StringVarP(&reportOut, "output", "o", "soctop-report.html", "Output HTML file")
	return cmd
}

func runReport(cmd *cobra.Command, args []string) error {
	records, err := export.ReadRecords(args[0])
	if err != nil {
		return err
	}
	if err := report.WriteFile(records, reportOut); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d samples)\n", reportOut, len(records))
	return nil
}
