package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/lifecycle"
	"github.com/uatkit/uat/internal/types"
)

var (
	devNotes string
	devBy    string
)

var devStatusCmd = &cobra.Command{
	Use:   "dev-status <test-id> <status>",
	Short: "Update developer follow-up on a failed test",
	Long: `Record where developers are with the defect behind a failed test.

Statuses: pending, investigating, fixed, wont_fix, not_a_bug

Example:
  uat dev-status NCCN-P-015 fixed --notes "rule threshold corrected"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := types.DevStatus(args[1])
		if !status.IsValid() {
			return fmt.Errorf("%w: %s", types.ErrInvalidStatus, args[1])
		}
		if err := store.UpdateDevStatus(cmd.Context(), args[0], status, devNotes, actorOr(devBy)); err != nil {
			return err
		}
		success("%s dev status %s %s", args[0], lifecycle.DevBadge(status), status)
		return nil
	},
}

func init() {
	devStatusCmd.Flags().StringVar(&devNotes, "notes", "", "developer notes")
	actorFlag(devStatusCmd, &devBy, "who is updating")
	rootCmd.AddCommand(devStatusCmd)
}
