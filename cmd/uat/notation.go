package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/uatkit/uat/internal/notation"
)

var (
	notationRule     string
	notationPlatform string
	notationValidate bool
	notationJSON     bool
)

var notationCmd = &cobra.Command{
	Use:   "notation <notation>",
	Short: "Parse NCCN patient-condition notation",
	Long: `Parse the shorthand used in NCCN test profiles into structured
patient and family history conditions.

Example:
  uat notation "POS: PHX Breast age 45 AND FDR Ovarian"
  uat notation "NEG: SDR Prostate (Gleason 6) age 70" --validate
  uat notation "POS: same FDR Breast age 40 AND same FDR Ovarian" --json`,
	Args:        cobra.ExactArgs(1),
	Annotations: map[string]string{noStore: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		if notationValidate {
			res := notation.Validate(args[0])
			if notationJSON {
				return writeJSON(res)
			}
			if res.Valid {
				success("Valid notation")
			} else {
				fmt.Printf("%s Invalid notation\n", red("✗"))
			}
			for _, e := range res.Errors {
				fmt.Printf("  %s %s\n", red("error:"), e)
			}
			for _, w := range res.Warnings {
				fmt.Printf("  %s %s\n", yellow("warning:"), w)
			}
			if res.Parsed != nil {
				fmt.Print(notation.Describe(res.Parsed))
			}
			return nil
		}

		parsed := notation.Parse(args[0], notationRule, notationPlatform)
		if notationJSON {
			return writeJSON(parsed)
		}
		fmt.Print(notation.Describe(parsed))
		for _, e := range parsed.ParseErrors {
			warn("%s", e)
		}
		return nil
	},
}

func writeJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	f := notationCmd.Flags()
	f.StringVar(&notationRule, "rule", "", "target rule the notation belongs to")
	f.StringVar(&notationPlatform, "platform", "", "platform the notation belongs to")
	f.BoolVar(&notationValidate, "validate", false, "report errors and warnings")
	f.BoolVar(&notationJSON, "json", false, "print JSON")
	rootCmd.AddCommand(notationCmd)
}
