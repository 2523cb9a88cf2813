package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Import legacy CSV exports into the database",
	Long: `Import UserDetails.csv, Attendance.csv and EnrollmentRequests.csv
from a legacy station export directory. Each table is only imported
when it is empty, so the command is safe to re-run.`,
	Args: cobra.ExactArgs(1),
	RunE: runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	stats, err := a.store.ImportLegacyCSV(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("importing legacy data: %w", err)
	}

	fmt.Printf("Imported %d users, %d attendance events, %d requests (%d rows skipped)\n",
		stats.Users, stats.Attendance, stats.Requests, stats.Skipped)
	return nil
}
