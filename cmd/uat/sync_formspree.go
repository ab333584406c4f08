package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/uatkit/uat/internal/formspree"
	"github.com/uatkit/uat/internal/importer/results"
)

var (
	syncSince     string
	syncNoPreview bool
)

var syncFormspreeCmd = &cobra.Command{
	Use:   "sync-formspree",
	Short: "Import tracker submissions from Formspree",
	Long: `Fetch result submissions from the Formspree form testers submit their
trackers to, and import them oldest first.

Needs formspree.form_id and formspree.api_key in the config (or
UAT_FORMSPREE_FORM_ID and UAT_FORMSPREE_API_KEY).

Runs as a preview unless --no-preview is given.

Example:
  uat sync-formspree
  uat sync-formspree --since 2025-12-01T00:00:00Z --no-preview`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		var since time.Time
		if syncSince != "" {
			var err error
			if since, err = time.Parse(time.RFC3339, syncSince); err != nil {
				return fmt.Errorf("--since must be RFC3339 (got %q)", syncSince)
			}
		}

		client, err := formspree.NewClient(formspree.Options{
			BaseURL:           cfg.Formspree.BaseURL,
			FormID:            cfg.Formspree.FormID,
			APIKey:            cfg.Formspree.APIKey,
			RequestsPerSecond: cfg.Formspree.RequestsPerSecond,
			Logger:            logger,
		})
		if err != nil {
			return err
		}
		subs, err := client.Submissions(ctx, since)
		if err != nil {
			return err
		}
		if len(subs) == 0 {
			fmt.Println(gray("No new submissions"))
			return nil
		}
		fmt.Printf("%d submission(s) to import\n", len(subs))

		imp := results.New(store, logger)
		for _, sub := range subs {
			payload, err := sub.Payload()
			if err != nil {
				warn("%v", err)
				continue
			}
			if !syncNoPreview {
				previewPayload(payload, false)
				continue
			}
			sum, err := imp.Import(ctx, payload, results.Options{Source: "formspree " + sub.ID})
			if err != nil {
				logger.Warn("submission import failed", zap.String("submission", sub.ID), zap.Error(err))
				warn("submission %s: %v", sub.ID, err)
				continue
			}
			printImportSummary(sum)
		}

		if !syncNoPreview {
			previewNotice()
			return nil
		}
		fmt.Printf("\nNext sync: uat sync-formspree --since %s --no-preview\n",
			subs[len(subs)-1].Date.UTC().Format(time.RFC3339))
		return nil
	},
}

func init() {
	syncFormspreeCmd.Flags().StringVar(&syncSince, "since", "", "only submissions after this time (RFC3339)")
	syncFormspreeCmd.Flags().BoolVar(&syncNoPreview, "no-preview", false, "write changes")
	rootCmd.AddCommand(syncFormspreeCmd)
}
