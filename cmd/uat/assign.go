package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/importer/nccn"
	"github.com/uatkit/uat/internal/types"
)

var (
	assignFile      string
	assignSheet     string
	assignTest      string
	assignTester    string
	assignType      string
	assignNoPreview bool
)

var assignCmd = &cobra.Command{
	Use:   "assign <cycle>",
	Short: "Assign tests to a tester",
	Long: `Assign tests in a cycle to a tester, either one test at a time with
--test or from a tester sheet listing profile IDs with --file.

Sheet imports run as a preview unless --no-preview is given.

Example:
  uat assign UAT-NCCN-1A2B3C4D --test NCCN-P-014 --tester erin@example.com
  uat assign UAT-NCCN-1A2B3C4D --file erin.xlsx --tester erin@example.com --no-preview
  uat assign UAT-NCCN-1A2B3C4D --file lily.xlsx --tester lily@example.com --type cross_check`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cycle, err := resolveCycle(cmd, args[0])
		if err != nil {
			return err
		}
		atype := types.AssignmentType(assignType)
		if !atype.IsValid() {
			return fmt.Errorf("invalid assignment type: %s", assignType)
		}

		switch {
		case assignTest != "":
			if err := store.AssignTestToCycle(ctx, assignTest, cycle.CycleID, assignTester, atype); err != nil {
				return err
			}
			success("%s assigned to %s (%s)", assignTest, assignTester, atype)
			return nil
		case assignFile != "":
			res, err := nccn.New(store, logger).ImportAssignments(ctx, nccn.AssignmentOptions{
				File:    assignFile,
				CycleID: cycle.CycleID,
				Sheet:   assignSheet,
				Tester:  assignTester,
				Type:    atype,
				Preview: !assignNoPreview,
			})
			if err != nil {
				return err
			}
			fmt.Printf("\n%s\n", cyan("Tester Assignment Import"))
			fmt.Printf("  Tester:   %s (%s)\n", res.Tester, res.Type)
			fmt.Printf("  Profiles: %d found\n", res.Found)
			if res.Preview {
				previewNotice()
				return nil
			}
			fmt.Printf("  Assigned: %d\n", res.Assigned)
			if res.Assigned < int64(res.Found) {
				warn("%d profile(s) were not found in cycle %s", int64(res.Found)-res.Assigned, cycle.CycleID)
			}
			return nil
		}
		return fmt.Errorf("either --test or --file is required")
	},
}

func init() {
	f := assignCmd.Flags()
	f.StringVar(&assignTest, "test", "", "test ID to assign")
	f.StringVar(&assignFile, "file", "", "tester sheet (.xlsx) listing profile IDs")
	f.StringVar(&assignSheet, "sheet", "", "sheet name (default: first sheet)")
	f.StringVar(&assignTester, "tester", "", "tester name or email (required)")
	f.StringVar(&assignType, "type", string(types.AssignPrimary), "primary, secondary or cross_check")
	f.BoolVar(&assignNoPreview, "no-preview", false, "write changes (sheet imports)")
	_ = assignCmd.MarkFlagRequired("tester")
	assignCmd.MarkFlagsMutuallyExclusive("test", "file")
	rootCmd.AddCommand(assignCmd)
}
