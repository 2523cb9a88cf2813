package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Export an attendance CSV report",
	Long: `Export attendance events as CSV for a daily, weekly or monthly
period around an anchor date. Weeks start on Monday.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().String("period", "daily", "Report period: daily, weekly or monthly")
	reportCmd.Flags().String("date", "", "Anchor date YYYY-MM-DD (defaults to today)")
	reportCmd.Flags().String("output", "", "Output file (defaults to stdout)")
}

func runReport(cmd *cobra.Command, args []string) error {
	period, err := report.ParsePeriod(mustGetString(cmd, "period"))
	if err != nil {
		return err
	}

	anchor := time.Now()
	if date := mustGetString(cmd, "date"); date != "" {
		anchor, err = time.ParseInLocation(ledger.DateLayout, date, time.Local)
		if err != nil {
			return fmt.Errorf("date must be YYYY-MM-DD: %w", err)
		}
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	out := os.Stdout
	if path := mustGetString(cmd, "output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	n, err := a.exporter.ExportPeriod(context.Background(), out, period, anchor)
	if err != nil {
		return fmt.Errorf("exporting report: %w", err)
	}
	fmt.Fprintf(os.Stderr, "Exported %d events\n", n)
	return nil
}
