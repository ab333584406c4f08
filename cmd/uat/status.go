package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/report"
)

var (
	statusProgram string
	statusSummary bool
)

var statusCmd = &cobra.Command{
	Use:   "status [cycle]",
	Short: "Show the dashboard for a cycle, or all active cycles",
	Long: `Without a cycle, list every cycle that is not complete or cancelled.
With a cycle ID (or part of its name), show its dashboard: progress,
tester completion, retest queue, gate and decision.

Example:
  uat status
  uat status --program NCCN
  uat status UAT-NCCN-1A2B3C4D
  uat status "Q4 2025" --summary`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		r := report.New(store, logger)

		var (
			out string
			err error
		)
		if len(args) == 0 {
			out, err = r.ActiveCycles(ctx, statusProgram)
		} else {
			cycle, rerr := resolveCycle(cmd, args[0])
			if rerr != nil {
				return rerr
			}
			if statusSummary {
				out, err = r.CycleSummary(ctx, cycle.CycleID)
			} else {
				out, err = r.Dashboard(ctx, cycle.CycleID)
			}
		}
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusProgram, "program", "", "limit active cycles to a program prefix")
	statusCmd.Flags().BoolVar(&statusSummary, "summary", false, "show the compact cycle summary instead of the dashboard")
	rootCmd.AddCommand(statusCmd)
}
