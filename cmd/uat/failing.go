package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/report"
)

var failingCmd = &cobra.Command{
	Use:   "failing <cycle>",
	Short: "List failed and blocked tests with their defects",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cycle, err := resolveCycle(cmd, args[0])
		if err != nil {
			return err
		}
		out, err := report.New(store, logger).FailingTests(cmd.Context(), cycle.CycleID)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(failingCmd)
}
