package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/types"
)

var (
	cycleName        string
	cycleType        string
	cycleLaunch      string
	cycleProgram     string
	cyclePM          string
	cyclePMEmail     string
	cycleDescription string
	cycleBy          string
)

var createCycleCmd = &cobra.Command{
	Use:   "create-cycle",
	Short: "Create a UAT cycle with its pre-UAT gate checklist",
	Long: `Create a UAT cycle in planning status. The gate checklist for the cycle
type is created with it.

Types: rule_validation, feature, regression

Example:
  uat create-cycle --name "NCCN Q4 2025" --type rule_validation \
    --program NCCN --launch 2025-12-15 --pm "Kim Childers"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		id, err := store.CreateCycle(ctx, &types.NewCycle{
			Name:             cycleName,
			UATType:          types.UATType(cycleType),
			TargetLaunchDate: cycleLaunch,
			ProgramPrefix:    cycleProgram,
			ClinicalPM:       cyclePM,
			ClinicalPMEmail:  cyclePMEmail,
			Description:      cycleDescription,
		}, actorOr(cycleBy))
		if err != nil {
			return err
		}
		items, err := store.GetGateItems(ctx, id)
		if err != nil {
			return err
		}

		success("Created cycle %s", id)
		fmt.Printf("  Name:   %s\n", cycleName)
		fmt.Printf("  Type:   %s\n", cycleType)
		if cycleLaunch != "" {
			fmt.Printf("  Launch: %s\n", cycleLaunch)
		}
		fmt.Printf("  Gate:   %d checklist items\n", len(items))
		fmt.Printf("\nNext: uat gate %s\n", id)
		return nil
	},
}

func init() {
	f := createCycleCmd.Flags()
	f.StringVar(&cycleName, "name", "", "cycle name (required)")
	f.StringVar(&cycleType, "type", string(types.UATFeature), "rule_validation, feature or regression")
	f.StringVar(&cycleLaunch, "launch", "", "target launch date (YYYY-MM-DD)")
	f.StringVar(&cycleProgram, "program", "", "program prefix")
	f.StringVar(&cyclePM, "pm", "", "clinical PM name")
	f.StringVar(&cyclePMEmail, "pm-email", "", "clinical PM email")
	f.StringVar(&cycleDescription, "description", "", "cycle description")
	actorFlag(createCycleCmd, &cycleBy, "who is creating the cycle")
	_ = createCycleCmd.MarkFlagRequired("name")
	rootCmd.AddCommand(createCycleCmd)
}
