package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var usersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage the user roster",
}

var usersListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrolled users with their sample counts",
	RunE:  runUsersList,
}

var usersAddCmd = &cobra.Command{
	Use:   "add <id> <name>",
	Short: "Add or rename a roster entry without capturing samples",
	Args:  cobra.ExactArgs(2),
	RunE:  runUsersAdd,
}

var usersRetireCmd = &cobra.Command{
	Use:   "retire <id>",
	Short: "Remove a user and their samples, keeping attendance history",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsersRetire,
}

func init() {
	rootCmd.AddCommand(usersCmd)
	usersCmd.AddCommand(usersListCmd)
	usersCmd.AddCommand(usersAddCmd)
	usersCmd.AddCommand(usersRetireCmd)
}

func runUsersList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	users, err := a.store.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}
	counts, err := a.samples.CountByUser()
	if err != nil {
		return fmt.Errorf("counting samples: %w", err)
	}

	if len(users) == 0 {
		fmt.Println("No users enrolled")
		return nil
	}
	for _, u := range users {
		fmt.Printf("%4d  %-30s %d samples\n", u.ID, u.Name, counts[u.ID])
	}
	return nil
}

func runUsersAdd(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid user id %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.store.UpsertUser(context.Background(), id, args[1]); err != nil {
		return fmt.Errorf("adding user %d: %w", id, err)
	}
	fmt.Printf("User %d (%s) added, use the enroll command to capture samples\n", id, args[1])
	return nil
}

func runUsersRetire(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[0])
	if err != nil || id <= 0 {
		return fmt.Errorf("invalid user id %q", args[0])
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.enroller.Retire(context.Background(), id); err != nil {
		return fmt.Errorf("retiring user %d: %w", id, err)
	}
	fmt.Printf("User %d retired, run the train command to refresh the model\n", id)
	return nil
}
