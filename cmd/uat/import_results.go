package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/importer/results"
	"github.com/uatkit/uat/internal/types"
)

var (
	resultsPartial   bool
	resultsNoPreview bool
)

var importResultsCmd = &cobra.Command{
	Use:   "import-results <file.json>",
	Short: "Import test results exported from a tester tracker",
	Long: `Apply a JSON results file downloaded from an HTML tracker (or saved from
a form submission) to the database.

Progress syncs (sync_type auto_open, auto_10pm or manual) and --partial
skip "Not Run" results so earlier results are not wiped. Notes are
appended to existing execution notes with the tester's name.

Runs as a preview unless --no-preview is given.

Example:
  uat import-results erin_results.json
  uat import-results erin_results.json --no-preview`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		payload, err := results.LoadFile(args[0])
		if err != nil {
			return err
		}

		if !resultsNoPreview {
			previewPayload(payload, resultsPartial)
			previewNotice()
			return nil
		}

		sum, err := results.New(store, logger).Import(cmd.Context(), payload, results.Options{
			Partial: resultsPartial,
			Source:  args[0],
		})
		if err != nil {
			return err
		}
		printImportSummary(sum)
		return nil
	},
}

func init() {
	importResultsCmd.Flags().BoolVar(&resultsPartial, "partial", false, "skip Not Run results")
	importResultsCmd.Flags().BoolVar(&resultsNoPreview, "no-preview", false, "write changes")
	rootCmd.AddCommand(importResultsCmd)
}

// previewPayload shows what an import would apply
func previewPayload(p *results.Payload, partial bool) {
	counts := map[string]int{}
	for _, r := range p.Results {
		status := r.Status
		if status == "" {
			status = r.TestStatus
		}
		counts[string(types.NormalizeTestStatus(status))]++
	}
	fmt.Printf("\n%s\n", cyan("Results File"))
	fmt.Printf("  Tester:  %s\n", p.Tester)
	if p.SyncType != "" {
		fmt.Printf("  Sync:    %s\n", p.SyncType)
	}
	fmt.Printf("  Partial: %v\n", partial || p.IsProgressSync())
	fmt.Printf("  Results: %d\n", len(p.Results))
	printCounts("By status", counts)
}

func printImportSummary(s *results.Summary) {
	fmt.Printf("\n%s\n", cyan("Import Results"))
	fmt.Printf("  Tester:    %s\n", s.Tester)
	if s.SyncType != "" {
		fmt.Printf("  Sync:      %s\n", s.SyncType)
	}
	fmt.Printf("  In file:   %d\n", s.Total)
	fmt.Printf("  Updated:   %d\n", s.Updated)
	if s.Skipped > 0 {
		fmt.Printf("  Skipped:   %d (Not Run, partial sync)\n", s.Skipped)
	}
	if s.NotFound > 0 {
		fmt.Printf("  Not found: %d\n", s.NotFound)
	}
	if len(s.Errors) > 0 {
		errs := append([]string(nil), s.Errors...)
		sort.Strings(errs)
		fmt.Printf("  %s\n", red("Errors:"))
		for _, e := range errs {
			fmt.Printf("    - %s\n", e)
		}
	}
}
