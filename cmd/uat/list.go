package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/report"
	"github.com/uatkit/uat/internal/types"
)

var (
	listProgram string
	listStatus  string
	listType    string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cycles with progress",
	Long: `List cycles, latest launch date first, with execution progress.

Example:
  uat list
  uat list --program NCCN --status testing`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		status := types.CycleStatus(listStatus)
		if status != "" && !status.IsValid() {
			return fmt.Errorf("%w: %s", types.ErrInvalidStatus, listStatus)
		}
		uatType := types.UATType(listType)
		if uatType != "" && !uatType.IsValid() {
			return fmt.Errorf("invalid uat type: %s", listType)
		}

		out, err := report.New(store, logger).ProgressReport(cmd.Context(), types.CycleFilter{
			ProgramPrefix: listProgram,
			Status:        status,
			UATType:       uatType,
		})
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	listCmd.Flags().StringVar(&listProgram, "program", "", "program prefix")
	listCmd.Flags().StringVar(&listStatus, "status", "", "cycle status")
	listCmd.Flags().StringVar(&listType, "type", "", "UAT type")
	rootCmd.AddCommand(listCmd)
}
