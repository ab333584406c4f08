package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var auditLimit int

var auditCmd = &cobra.Command{
	Use:   "audit <record-id>",
	Short: "Show the audit trail for a cycle, test or gate item",
	Long: `Show audit entries for a record, newest first.

Example:
  uat audit UAT-NCCN-1A2B3C4D
  uat audit NCCN-P-015 --limit 5`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		recordID := args[0]
		if cycle, err := store.ResolveCycle(ctx, recordID); err == nil {
			recordID = cycle.CycleID
		}

		entries, err := store.GetAuditTrail(ctx, recordID, auditLimit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			fmt.Println(gray("No audit entries for " + recordID))
			return nil
		}

		fmt.Printf("\n%s\n", cyan("Audit Trail: "+recordID))
		for _, e := range entries {
			fmt.Printf("  %s  %-20s %s\n", gray(e.ChangedDate), e.Action, e.ChangedBy)
			if e.FieldChanged != "" {
				fmt.Printf("      %s: %q → %q\n", e.FieldChanged, e.OldValue, e.NewValue)
			} else if e.NewValue != "" {
				fmt.Printf("      %s\n", e.NewValue)
			}
			if e.ChangeReason != "" {
				fmt.Printf("      %s\n", gray(e.ChangeReason))
			}
		}
		return nil
	},
}

func init() {
	auditCmd.Flags().IntVar(&auditLimit, "limit", 20, "most entries to show")
	rootCmd.AddCommand(auditCmd)
}
