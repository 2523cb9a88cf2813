package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/enroll"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Rebuild the recognition model from stored samples",
	RunE:  runTrain,
}

func init() {
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if a.cfg.PrivacyMode {
		return fmt.Errorf("privacy mode enabled, training is disabled")
	}

	fmt.Println("Training recognition model...")
	result, err := enroll.TrainModel(context.Background(), a.guard, a.samples, a.recognizer)
	if err != nil {
		return fmt.Errorf("training model: %w", err)
	}

	fmt.Printf("Model trained on %d samples from %d users\n", result.Samples, result.Users)
	return nil
}
