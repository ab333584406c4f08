package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/stats"
	"github.com/uatkit/uat/internal/types"
)

var (
	decisionBy    string
	decisionNotes string
)

var decisionCmd = &cobra.Command{
	Use:   "decision <cycle> <go|conditional_go|no_go>",
	Short: "Record the Go/No-Go decision for a cycle",
	Long: `Record the launch decision. A "go" decision also completes the cycle.
The recommendation computed from current results is shown for reference.

Example:
  uat decision UAT-NCCN-1A2B3C4D go --by "Kim Childers"
  uat decision UAT-NCCN-1A2B3C4D conditional_go --by "Kim Childers" --notes "2 blocked tests deferred"`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cycle, err := resolveCycle(cmd, args[0])
		if err != nil {
			return err
		}
		decision := types.Decision(strings.ReplaceAll(strings.ToLower(args[1]), "-", "_"))
		if !decision.IsValid() {
			return fmt.Errorf("%w: %s (use go, conditional_go or no_go)", types.ErrInvalidDecision, args[1])
		}

		tally := stats.FromCycle(cycle)
		fmt.Printf("Recommendation from results: %s (%s)\n", stats.Recommend(tally), stats.Rationale(tally))

		display, err := store.RecordDecision(cmd.Context(), cycle.CycleID, decision, actorOr(decisionBy), decisionNotes)
		if err != nil {
			return err
		}
		success("%s: %s", cycle.CycleID, display)
		return nil
	},
}

func init() {
	decisionCmd.Flags().StringVar(&decisionNotes, "notes", "", "decision notes or conditions")
	actorFlag(decisionCmd, &decisionBy, "who made the decision")
	rootCmd.AddCommand(decisionCmd)
}
