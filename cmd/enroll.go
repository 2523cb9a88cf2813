package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/camera"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll",
	Short: "Capture face samples for a user",
	Long: `Capture normalized face samples for one user from the configured
camera and register the user in the roster. Run the train command
afterwards to pick the new samples up.`,
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().Int("id", 0, "Numeric user ID (required)")
	enrollCmd.Flags().String("name", "", "Display name (required)")
	enrollCmd.Flags().Int("samples", 0, "Sample count to capture (0 uses the configured value)")
	_ = enrollCmd.MarkFlagRequired("id")
	_ = enrollCmd.MarkFlagRequired("name")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	userID := mustGetInt(cmd, "id")
	name := mustGetString(cmd, "name")
	target := mustGetInt(cmd, "samples")
	if target <= 0 {
		target = a.cfg.SamplesPerUser
	}

	if duplicates, err := a.enroller.SameNameUsers(context.Background(), name); err == nil {
		for _, d := range duplicates {
			if d.ID != userID {
				fmt.Printf("Warning: %q is already enrolled as user %d\n", d.Name, d.ID)
			}
		}
	}

	source, err := camera.FromConfig(a.cfg)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping capture...")
		cancel()
	}()

	fmt.Printf("Capturing %d samples for %s (user %d)\n", target, name, userID)
	bar := progressbar.Default(int64(target), "capturing")
	captured, err := a.enroller.Capture(ctx, source, userID, name, target, func(done, total int) {
		_ = bar.Set(done)
	})
	if err != nil {
		return fmt.Errorf("capturing samples: %w", err)
	}

	fmt.Printf("\nCaptured %d samples for user %d, run the train command to update the model\n", captured, userID)
	return nil
}
