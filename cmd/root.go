package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var dataDir string

var rootCmd = &cobra.Command{
	Use:   "face-attendance",
	Short: "A local face recognition attendance station",
	Long: `Face Attendance runs a fully local attendance station: it enrolls
users from camera captures, trains a face recognizer on the stored
samples, and logs recognized faces to a SQLite ledger during timed
recognition sessions.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", "data", "Directory holding the database, samples and model")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
