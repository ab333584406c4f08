package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/types"
)

var (
	recordStatus     string
	recordBy         string
	recordNotes      string
	recordDefect     string
	recordDefectDesc string
)

var recordCmd = &cobra.Command{
	Use:   "record <test-id>",
	Short: "Record a test execution result",
	Long: `Record the result of executing a test.

Statuses: Pass, Fail, Blocked, Skipped, Not Run

Example:
  uat record NCCN-P-014 --status Pass --by erin@example.com
  uat record NCCN-P-015 --status Fail --by erin@example.com \
    --notes "rule did not fire" --defect BUG-231`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		status := types.NormalizeTestStatus(recordStatus)
		if !status.IsValid() {
			return fmt.Errorf("%w: %q", types.ErrInvalidStatus, recordStatus)
		}
		err := store.RecordTestResult(cmd.Context(), &types.TestResult{
			TestID:            args[0],
			Status:            status,
			TestedBy:          actorOr(recordBy),
			Notes:             recordNotes,
			DefectID:          recordDefect,
			DefectDescription: recordDefectDesc,
		})
		if err != nil {
			return err
		}
		success("%s recorded as %s", args[0], status)
		return nil
	},
}

func init() {
	f := recordCmd.Flags()
	f.StringVar(&recordStatus, "status", "", "execution status (required)")
	f.StringVar(&recordNotes, "notes", "", "execution notes")
	f.StringVar(&recordDefect, "defect", "", "defect ID for a failure")
	f.StringVar(&recordDefectDesc, "defect-desc", "", "defect description")
	actorFlag(recordCmd, &recordBy, "tester")
	_ = recordCmd.MarkFlagRequired("status")
	rootCmd.AddCommand(recordCmd)
}
