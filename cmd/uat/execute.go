package main

import (
	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/session"
)

var (
	executeTester string
	executeBy     string
)

var executeCmd = &cobra.Command{
	Use:   "execute <cycle>",
	Short: "Work through unexecuted tests interactively",
	Long: `Start an interactive session that shows each Not Run test in the cycle
and records the result you choose.

Keys: [p]ass [f]ail [b]locked [s]kip [n]ext [q]uit
Failures also ask for a defect ID. Ctrl+D ends the session.

Example:
  uat execute UAT-NCCN-1A2B3C4D --tester erin@example.com`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cycle, err := resolveCycle(cmd, args[0])
		if err != nil {
			return err
		}
		s, err := session.New(&session.Config{
			Store:   store,
			CycleID: cycle.CycleID,
			Tester:  executeTester,
			Actor:   actorOr(executeBy),
			Logger:  logger,
		})
		if err != nil {
			return err
		}
		_, err = s.Run(cmd.Context())
		return err
	},
}

func init() {
	executeCmd.Flags().StringVar(&executeTester, "tester", "", "only tests assigned to this tester")
	actorFlag(executeCmd, &executeBy, "tester recorded for unassigned tests")
	rootCmd.AddCommand(executeCmd)
}
