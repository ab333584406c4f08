package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/lifecycle"
	"github.com/uatkit/uat/internal/types"
)

var (
	updateDate  string
	updateNotes string
	updateBy    string
)

var updateStatusCmd = &cobra.Command{
	Use:   "update-status <cycle> <status>",
	Short: "Move a cycle to another lifecycle phase",
	Long: `Change a cycle's status. Entering a phase stamps its date column
(validation_start, kickoff_date, testing_start, review_date, retest_start,
go_nogo_date) with --date or today.

Statuses: planning, validation, kickoff, testing, review, retesting,
decision, complete, cancelled

Example:
  uat update-status UAT-NCCN-1A2B3C4D testing
  uat update-status UAT-NCCN-1A2B3C4D kickoff --date 2025-11-03 --notes "kickoff call held"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cycle, err := resolveCycle(cmd, args[0])
		if err != nil {
			return err
		}
		status := types.CycleStatus(args[1])
		if !status.IsValid() {
			return fmt.Errorf("%w: %s", types.ErrInvalidStatus, args[1])
		}
		if cycle.Status.IsTerminal() {
			warn("cycle %s is already %s", cycle.CycleID, cycle.Status)
		}
		if err := store.UpdateCycleStatus(cmd.Context(), cycle.CycleID, status, updateDate, actorOr(updateBy), updateNotes); err != nil {
			return err
		}
		success("%s %s → %s %s", cycle.CycleID, lifecycle.Badge(cycle.Status), lifecycle.Badge(status), status)
		return nil
	},
}

func init() {
	updateStatusCmd.Flags().StringVar(&updateDate, "date", "", "phase date (YYYY-MM-DD, default today)")
	updateStatusCmd.Flags().StringVar(&updateNotes, "notes", "", "reason for the change")
	actorFlag(updateStatusCmd, &updateBy, "who is changing the status")
	rootCmd.AddCommand(updateStatusCmd)
}
