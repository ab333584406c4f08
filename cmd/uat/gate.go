package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/report"
)

var (
	gateComplete   int64
	gateIncomplete int64
	gateSignoff    string
	gateBy         string
	gateNotes      string
)

var gateCmd = &cobra.Command{
	Use:   "gate <cycle>",
	Short: "Show or update the pre-UAT gate checklist",
	Long: `Show a cycle's pre-UAT gate checklist, mark items complete, or sign
off the gate once every required item is done.

Example:
  uat gate UAT-NCCN-1A2B3C4D
  uat gate UAT-NCCN-1A2B3C4D --complete 3 --by "Lily" --notes "verified in QA"
  uat gate UAT-NCCN-1A2B3C4D --signoff "Kim Childers"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cycle, err := resolveCycle(cmd, args[0])
		if err != nil {
			return err
		}

		switch {
		case gateComplete > 0:
			if err := store.UpdateGateItem(ctx, gateComplete, true, actorOr(gateBy), gateNotes); err != nil {
				return err
			}
			success("Gate item %d marked complete", gateComplete)
		case gateIncomplete > 0:
			if err := store.UpdateGateItem(ctx, gateIncomplete, false, actorOr(gateBy), gateNotes); err != nil {
				return err
			}
			success("Gate item %d reopened", gateIncomplete)
		case gateSignoff != "":
			if err := store.SignOffGate(ctx, cycle.CycleID, gateSignoff, gateNotes); err != nil {
				return err
			}
			success("Pre-UAT gate signed off by %s", gateSignoff)
		}

		out, err := report.New(store, logger).GateChecklist(ctx, cycle.CycleID)
		if err != nil {
			return err
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	f := gateCmd.Flags()
	f.Int64Var(&gateComplete, "complete", 0, "mark the gate item with this ID complete")
	f.Int64Var(&gateIncomplete, "incomplete", 0, "reopen the gate item with this ID")
	f.StringVar(&gateSignoff, "signoff", "", "sign off the gate as this person")
	f.StringVar(&gateNotes, "notes", "", "notes for the item or sign-off")
	actorFlag(gateCmd, &gateBy, "who completed the item")
	gateCmd.MarkFlagsMutuallyExclusive("complete", "incomplete", "signoff")
	rootCmd.AddCommand(gateCmd)
}
