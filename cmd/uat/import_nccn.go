package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/importer/nccn"
)

var (
	nccnCycle     string
	nccnSheet     string
	nccnProgram   string
	nccnNoPreview bool
)

var importNCCNCmd = &cobra.Command{
	Use:   "import-nccn <file.xlsx>",
	Short: "Import NCCN test profiles from an Excel package",
	Long: `Read the test profile catalog sheet of an NCCN validation package and
create or update one test case per profile, linked to the cycle.

Runs as a preview unless --no-preview is given.

Example:
  uat import-nccn NCCN_Q4_2025.xlsx --cycle UAT-NCCN-1A2B3C4D
  uat import-nccn NCCN_Q4_2025.xlsx --cycle UAT-NCCN-1A2B3C4D --no-preview`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cycle, err := resolveCycle(cmd, nccnCycle)
		if err != nil {
			return err
		}

		res, err := nccn.New(store, logger).ImportProfiles(cmd.Context(), nccn.ProfileOptions{
			File:      args[0],
			CycleID:   cycle.CycleID,
			Sheet:     nccnSheet,
			ProgramID: nccnProgram,
			Preview:   !nccnNoPreview,
		})
		if err != nil {
			return err
		}

		fmt.Printf("\n%s\n", cyan("NCCN Profile Import"))
		fmt.Printf("  Cycle:    %s\n", cycle.CycleID)
		fmt.Printf("  Profiles: %d found\n", res.Found)
		if !res.Preview {
			fmt.Printf("  Created:  %d\n", res.Created)
			fmt.Printf("  Updated:  %d\n", res.Updated)
		}
		printCounts("By platform", res.ByPlatform)
		printCounts("By change type", res.ByChangeType)
		printCounts("By test type", res.ByTestType)

		if res.Preview {
			previewNotice()
		} else {
			success("%s", res.Message)
		}
		return nil
	},
}

func init() {
	f := importNCCNCmd.Flags()
	f.StringVar(&nccnCycle, "cycle", "", "cycle ID or name (required)")
	f.StringVar(&nccnSheet, "sheet", "", `sheet name (default "Test Profile Catalog")`)
	f.StringVar(&nccnProgram, "program-id", "", "program ID (default: the cycle's program)")
	f.BoolVar(&nccnNoPreview, "no-preview", false, "write changes")
	_ = importNCCNCmd.MarkFlagRequired("cycle")
	rootCmd.AddCommand(importNCCNCmd)
}
