package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/types"
)

var (
	programName   string
	programPrefix string
	programClient string
	programBy     string
)

var programCmd = &cobra.Command{
	Use:   "program",
	Short: "Manage programs that cycles belong to",
}

var programAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Register a program and its cycle ID prefix",
	Long: `Register a program. The prefix is used in cycle IDs (UAT-<PREFIX>-XXXXXXXX)
and to filter listings.

Example:
  uat program add --name "NCCN Rules" --prefix NCCN`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		p := &types.Program{Name: programName, Prefix: programPrefix, ClientID: programClient}
		if err := store.CreateProgram(cmd.Context(), p, actorOr(programBy)); err != nil {
			return err
		}
		success("Created program %s (%s) as %s", p.Name, p.Prefix, p.ProgramID)
		return nil
	},
}

var programListCmd = &cobra.Command{
	Use:   "list",
	Short: "List programs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		programs, err := store.ListPrograms(cmd.Context())
		if err != nil {
			return err
		}
		if len(programs) == 0 {
			fmt.Println(gray("No programs registered"))
			return nil
		}
		fmt.Printf("\n%s\n", cyan("Programs"))
		for _, p := range programs {
			fmt.Printf("  %-8s %-14s %s\n", p.Prefix, p.ProgramID, p.Name)
		}
		return nil
	},
}

func init() {
	programAddCmd.Flags().StringVar(&programName, "name", "", "program name (required)")
	programAddCmd.Flags().StringVar(&programPrefix, "prefix", "", "cycle ID prefix (required)")
	programAddCmd.Flags().StringVar(&programClient, "client", "", "client ID")
	actorFlag(programAddCmd, &programBy, "who is registering the program")
	_ = programAddCmd.MarkFlagRequired("name")
	_ = programAddCmd.MarkFlagRequired("prefix")

	programCmd.AddCommand(programAddCmd)
	programCmd.AddCommand(programListCmd)
	rootCmd.AddCommand(programCmd)
}
