package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/report"
)

var coverageCmd = &cobra.Command{
	Use:   "coverage <cycle>",
	Short: "Show NCCN rule coverage for a cycle",
	Long: `Show, per change and rule, how many profiles were tested and how they
split between positive, negative and deprecation tests.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cycle, err := resolveCycle(cmd, args[0])
		if err != nil {
			return err
		}
		out, err := report.New(store, logger).RuleCoverage(cmd.Context(), cycle.CycleID)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(coverageCmd)
}
