package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/camera"
	"github.com/kozaktomas/face-attendance/internal/session"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Run a recognition session in the terminal",
	Long: `Run a timed recognition session against the configured camera and
print status updates as faces are recognized and logged. The session
ends when its duration elapses, a match is logged with stop-on-success
enabled, or Ctrl+C is pressed.`,
	RunE: runSession,
}

func init() {
	rootCmd.AddCommand(sessionCmd)

	sessionCmd.Flags().Int("duration", 0, "Session duration in seconds (0 uses the configured value)")
	sessionCmd.Flags().Bool("stop-on-success", false, "End the session after the first logged match")
}

func runSession(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	opts := a.sessionOptions()
	if d := mustGetInt(cmd, "duration"); d > 0 {
		opts.Duration = time.Duration(d) * time.Second
	}
	if mustGetBool(cmd, "stop-on-success") {
		opts.StopOnSuccess = true
	}

	source, err := camera.FromConfig(a.cfg)
	if err != nil {
		return err
	}

	events := a.engine.Events().AddListener()
	defer a.engine.Events().RemoveListener(events)

	id, err := a.engine.Start(context.Background(), source, opts)
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	fmt.Printf("Session %s running for %s\n", id, opts.Duration)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nStopping session...")
		a.engine.Stop()
	}()

	for event := range events {
		switch event.Type {
		case session.EventLogged:
			fmt.Printf("[%s] logged %s (user %d)\n", event.Time, event.Name, event.UserID)
		case session.EventDuplicate:
			fmt.Printf("duplicate: %s already logged recently\n", event.Name)
		case session.EventUnknown, session.EventHint:
			fmt.Println(event.Message)
		case session.EventError:
			fmt.Printf("Error: %s\n", event.Message)
			if event.State == session.StateFailed {
				a.engine.Wait()
				return fmt.Errorf("session failed: %s", event.Message)
			}
		case session.EventFinished:
			a.engine.Wait()
			fmt.Println("Session finished")
			return nil
		}
	}
	return nil
}
