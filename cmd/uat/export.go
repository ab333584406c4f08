package main

import (
	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/report/xlsx"
)

var (
	exportOutput string
	exportFile   string
)

var exportCmd = &cobra.Command{
	Use:   "export <cycle>",
	Short: "Export cycle results to an Excel workbook",
	Long: `Write an Excel workbook with a summary sheet and sheets for all tests,
per-tester progress, failed tests and the retest queue.

Example:
  uat export UAT-NCCN-1A2B3C4D
  uat export "Q4 2025" --output ./reports --file q4_results.xlsx`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cycle, err := resolveCycle(cmd, args[0])
		if err != nil {
			return err
		}
		dir := exportOutput
		if dir == "" {
			dir = cfg.OutputDir
		}
		res, err := xlsx.New(store, logger).Export(cmd.Context(), xlsx.Options{
			CycleID:   cycle.CycleID,
			OutputDir: dir,
			FileName:  exportFile,
		})
		if err != nil {
			return err
		}
		success("Exported %d tests (%d failed, %d in retest queue)", res.Tests, res.Failed, res.Retest)
		success("File: %s", res.Path)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "output directory (default: output_dir)")
	exportCmd.Flags().StringVar(&exportFile, "file", "", "file name (default: UAT_Results_<cycle>_<timestamp>.xlsx)")
	rootCmd.AddCommand(exportCmd)
}
