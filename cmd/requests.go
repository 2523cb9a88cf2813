package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/face-attendance/internal/ledger"
)

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "Manage enrollment requests",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrollment requests",
	RunE:  runRequestsList,
}

var requestsSubmitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Submit a new enrollment request",
	RunE:  runRequestsSubmit,
}

var requestsDecideCmd = &cobra.Command{
	Use:   "decide <id>",
	Short: "Approve or reject a pending enrollment request",
	Args:  cobra.ExactArgs(1),
	RunE:  runRequestsDecide,
}

func init() {
	rootCmd.AddCommand(requestsCmd)
	requestsCmd.AddCommand(requestsListCmd)
	requestsCmd.AddCommand(requestsSubmitCmd)
	requestsCmd.AddCommand(requestsDecideCmd)

	requestsListCmd.Flags().Bool("pending", false, "Show only pending requests")

	requestsSubmitCmd.Flags().String("name", "", "Requester name (required)")
	requestsSubmitCmd.Flags().String("contact", "", "Contact address (required)")
	requestsSubmitCmd.Flags().String("message", "", "Message for the operator (required)")
	_ = requestsSubmitCmd.MarkFlagRequired("name")
	_ = requestsSubmitCmd.MarkFlagRequired("contact")
	_ = requestsSubmitCmd.MarkFlagRequired("message")

	requestsDecideCmd.Flags().String("status", "", "New status: approved or rejected (required)")
	_ = requestsDecideCmd.MarkFlagRequired("status")
}

func runRequestsList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	var requests []ledger.Request
	if mustGetBool(cmd, "pending") {
		requests, err = a.store.ListPending(context.Background())
	} else {
		requests, err = a.store.ListRequests(context.Background())
	}
	if err != nil {
		return fmt.Errorf("listing requests: %w", err)
	}

	if len(requests) == 0 {
		fmt.Println("No enrollment requests")
		return nil
	}
	for _, r := range requests {
		fmt.Printf("%4d  %-10s %-25s %s\n", r.ID, r.Status, r.Name, r.Contact)
	}
	return nil
}

func runRequestsSubmit(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	id, err := a.store.SubmitRequest(context.Background(),
		mustGetString(cmd, "name"),
		mustGetString(cmd, "contact"),
		mustGetString(cmd, "message"),
	)
	if err != nil {
		return fmt.Errorf("submitting request: %w", err)
	}
	fmt.Printf("Request %d submitted\n", id)
	return nil
}

func runRequestsDecide(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid request id %q", args[0])
	}
	status, err := ledger.ParseRequestStatus(mustGetString(cmd, "status"))
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.SetRequestStatus(context.Background(), id, status); err != nil {
		return fmt.Errorf("updating request %d: %w", id, err)
	}
	fmt.Printf("Request %d %s\n", id, status)
	return nil
}
