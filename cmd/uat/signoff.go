package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/signoff"
)

var (
	signoffClient string
	signoffTitle  string
	signoffFormat string
	signoffOutput string
)

var signoffCmd = &cobra.Command{
	Use:   "signoff <cycle>",
	Short: "Generate the client sign-off package (Word)",
	Long: `Generate the client-facing sign-off document for a cycle: cover page,
executive summary with the Go/No-Go recommendation, one approval section
per user story, defect log, compliance matrix and signature page.

Example:
  uat signoff UAT-NCCN-1A2B3C4D --client "Dr. Reyes" --title "Medical Director"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cycle, err := resolveCycle(cmd, args[0])
		if err != nil {
			return err
		}
		dir := signoffOutput
		if dir == "" {
			dir = cfg.SignoffDir
		}
		sum, err := signoff.NewGenerator(store, logger).Generate(cmd.Context(), signoff.Options{
			CycleID:     cycle.CycleID,
			ClientName:  signoffClient,
			ClientTitle: signoffTitle,
			Format:      signoffFormat,
			OutputDir:   dir,
		})
		if err != nil {
			return err
		}
		fmt.Print(sum.String())
		return nil
	},
}

func init() {
	f := signoffCmd.Flags()
	f.StringVar(&signoffClient, "client", "", "client name (required)")
	f.StringVar(&signoffTitle, "title", "", "client title")
	f.StringVar(&signoffFormat, "format", "docx", "output format")
	f.StringVarP(&signoffOutput, "output", "o", "", "output directory (default: signoff_dir)")
	_ = signoffCmd.MarkFlagRequired("client")
	rootCmd.AddCommand(signoffCmd)
}
