package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/uatkit/uat/internal/config"
)

var initWriteConfig bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or upgrade the UAT tables in the shared database",
	Long: `Open the shared requirements database, creating the UAT tables, views
and extension columns that are missing. Safe to run repeatedly.

With --write-config, also writes a uat.yaml with the default settings to
the current directory (never overwriting an existing file).

Example:
  uat init
  uat --db ./data/client_product_database.db init --write-config`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := store.SchemaVersion(cmd.Context())
		if err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}
		success("Database ready: %s (schema v%d)", resolvedDB, version)

		if !initWriteConfig {
			return nil
		}
		const path = "uat.yaml"
		if _, err := os.Stat(path); err == nil {
			warn("%s already exists, leaving it alone", path)
			return nil
		}
		defaults := config.DefaultConfig()
		defaults.DBPath = resolvedDB
		data, err := yaml.Marshal(defaults)
		if err != nil {
			return fmt.Errorf("failed to encode config: %w", err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		success("Wrote %s", path)
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVar(&initWriteConfig, "write-config", false, "also write a default uat.yaml")
	rootCmd.AddCommand(initCmd)
}
