package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/tracker"
)

var (
	trackersOutput string
	trackersFormID string
)

var trackersCmd = &cobra.Command{
	Use:   "trackers <cycle>",
	Short: "Generate HTML test trackers for each tester",
	Long: `Generate one self-contained HTML tracker per tester, an index page
linking them, and a progress dashboard. Trackers keep progress in the
browser and submit results to Formspree when a form ID is configured.

Example:
  uat trackers UAT-NCCN-1A2B3C4D
  uat trackers UAT-NCCN-1A2B3C4D --output ./site --form-id mqeekjjz`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cycle, err := resolveCycle(cmd, args[0])
		if err != nil {
			return err
		}
		dir := trackersOutput
		if dir == "" {
			dir = cfg.TrackerDir
		}
		formID := trackersFormID
		if formID == "" {
			formID = cfg.Formspree.FormID
		}
		if formID == "" {
			warn("No Formspree form ID configured; trackers will only offer JSON download")
		}

		res, err := tracker.New(store, logger).Generate(cmd.Context(), tracker.Options{
			CycleID:   cycle.CycleID,
			OutputDir: dir,
			FormID:    formID,
		})
		if err != nil {
			return err
		}

		fmt.Printf("\n%s\n", cyan("Trackers: "+cycle.Name))
		for _, t := range res.Trackers {
			cross := ""
			if t.CrossChecks > 0 {
				cross = fmt.Sprintf(" + %d cross-checks", t.CrossChecks)
			}
			fmt.Printf("  %-24s %3d tests%s  %s\n", t.Name, t.Tests, cross, gray(t.File()))
		}
		fmt.Println()
		success("Index:     %s", res.Index)
		success("Dashboard: %s", res.Dashboard)
		success("Home:      %s", res.Home)
		return nil
	},
}

func init() {
	trackersCmd.Flags().StringVarP(&trackersOutput, "output", "o", "", "output directory (default: tracker_dir)")
	trackersCmd.Flags().StringVar(&trackersFormID, "form-id", "", "Formspree form ID (default: formspree.form_id)")
	rootCmd.AddCommand(trackersCmd)
}
