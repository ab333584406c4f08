package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/tracker"
)

var (
	workflowOutput string
	workflowStdout bool
)

var exportWorkflowCmd = &cobra.Command{
	Use:   "export-workflow <cycle>",
	Short: "Export a cycle's tests grouped by workflow section (JSON)",
	Long: `Export the cycle's tests reorganized into the workflow sections testers
walk through, in display order.

Example:
  uat export-workflow UAT-ONB-1A2B3C4D
  uat export-workflow UAT-ONB-1A2B3C4D --output onb.json
  uat export-workflow UAT-ONB-1A2B3C4D --stdout | jq '.sections[].code'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cycle, err := resolveCycle(cmd, args[0])
		if err != nil {
			return err
		}
		exp, err := tracker.New(store, logger).ExportWorkflow(cmd.Context(), cycle.CycleID)
		if err != nil {
			return err
		}
		if workflowStdout {
			return exp.Encode(os.Stdout)
		}

		path := workflowOutput
		if path == "" {
			path = filepath.Join(cfg.OutputDir, tracker.WorkflowFileName(cycle.CycleID))
		}
		if err := exp.Save(path); err != nil {
			return err
		}
		success("Exported %d tests in %d sections to %s", exp.TotalTests, len(exp.Sections), path)
		return nil
	},
}

func init() {
	exportWorkflowCmd.Flags().StringVarP(&workflowOutput, "output", "o", "", "output file (default: <output_dir>/<cycle>_workflow.json)")
	exportWorkflowCmd.Flags().BoolVar(&workflowStdout, "stdout", false, "write JSON to stdout")
	rootCmd.AddCommand(exportWorkflowCmd)
}
