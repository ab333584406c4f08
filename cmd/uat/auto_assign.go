package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/assign"
	"github.com/uatkit/uat/internal/types"
)

var (
	autoTesters       string
	autoCrossCheckMax int
	autoBy            string
	autoNoPreview     bool
)

var autoAssignCmd = &cobra.Command{
	Use:   "auto-assign <cycle>",
	Short: "Split a cycle's tests evenly across testers with cross-checks",
	Long: `Divide every test in the cycle into contiguous batches, one per tester,
and have each tester cross-check the first few tests of the next tester's
batch. Existing assignments in the cycle are replaced.

Runs as a preview unless --no-preview is given.

Example:
  uat auto-assign UAT-NCCN-1A2B3C4D --testers erin@example.com,lily@example.com,mo@example.com
  uat auto-assign UAT-NCCN-1A2B3C4D --testers erin,lily --cross-check-max 5 --no-preview`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cycle, err := resolveCycle(cmd, args[0])
		if err != nil {
			return err
		}
		tests, err := store.ListCycleTests(ctx, cycle.CycleID, types.TestFilter{})
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(tests))
		for _, tc := range tests {
			ids = append(ids, tc.TestID)
		}

		plan, err := assign.Build(ids, splitList(autoTesters), autoCrossCheckMax)
		if err != nil {
			return err
		}

		fmt.Printf("\n%s\n", cyan("Assignment Plan: "+cycle.Name))
		fmt.Printf("  %d tests, ~%d per tester, %d cross-checks each\n\n",
			len(ids), plan.PerTester, plan.CrossCheckSize)
		for _, load := range plan.Loads {
			fmt.Printf("  %-30s %4d primary  %3d cross-check\n", load.Tester, load.Primary, load.CrossChecks)
		}

		if !autoNoPreview {
			previewNotice()
			return nil
		}
		if err := store.ReplaceAssignments(ctx, cycle.CycleID, plan.Assignments, actorOr(autoBy)); err != nil {
			return err
		}
		fmt.Println()
		success("Assigned %d tests to %d testers", len(ids), len(plan.Loads))
		return nil
	},
}

func init() {
	f := autoAssignCmd.Flags()
	f.StringVar(&autoTesters, "testers", "", "comma separated testers (required)")
	f.IntVar(&autoCrossCheckMax, "cross-check-max", assign.DefaultCrossCheckMax, "most cross-checks per tester")
	f.BoolVar(&autoNoPreview, "no-preview", false, "write the assignments")
	actorFlag(autoAssignCmd, &autoBy, "who is assigning")
	_ = autoAssignCmd.MarkFlagRequired("testers")
	rootCmd.AddCommand(autoAssignCmd)
}
