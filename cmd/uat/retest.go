package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/types"
)

var (
	retestStatus string
	retestBy     string
	retestNotes  string
)

var retestCmd = &cobra.Command{
	Use:   "retest <test-id>",
	Short: "Record a retest result for a failed or blocked test",
	Long: `Record the outcome of retesting a test after a fix. The initial
execution result is kept for the record.

Example:
  uat retest NCCN-P-015 --status Pass --by lily@example.com --notes "fixed in build 42"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := types.NormalizeTestStatus(retestStatus)
		if !status.IsValid() {
			return fmt.Errorf("%w: %q", types.ErrInvalidStatus, retestStatus)
		}
		if err := store.RecordRetestResult(cmd.Context(), args[0], status, actorOr(retestBy), retestNotes); err != nil {
			return err
		}
		success("%s retest recorded as %s", args[0], status)
		return nil
	},
}

func init() {
	f := retestCmd.Flags()
	f.StringVar(&retestStatus, "status", "", "retest status (required)")
	f.StringVar(&retestNotes, "notes", "", "retest notes")
	actorFlag(retestCmd, &retestBy, "who retested")
	_ = retestCmd.MarkFlagRequired("status")
	rootCmd.AddCommand(retestCmd)
}
