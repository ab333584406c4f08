package config

import (
	"fmt"
	"os"
	"strconv"
)

// applyEnv overrides cfg from environment variables
//
// Environment variables:
//   - UAT_DB_PATH (alias PROPEL_DB_PATH), then REQUIREMENTS_DB_PATH
//   - UAT_OUTPUT_DIR, UAT_SIGNOFF_DIR, UAT_TRACKER_DIR
//   - UAT_FORMSPREE_FORM_ID, UAT_FORMSPREE_API_KEY, UAT_FORMSPREE_RPS
//   - UAT_LOG_LEVEL, UAT_ACTOR
func applyEnv(cfg *Config) error {
	for _, key := range []string{"REQUIREMENTS_DB_PATH", "PROPEL_DB_PATH", "UAT_DB_PATH"} {
		if err := parseEnvString(key, &cfg.DBPath); err != nil {
			return err
		}
	}
	if err := parseEnvString("UAT_OUTPUT_DIR", &cfg.OutputDir); err != nil {
		return err
	}
	if err := parseEnvString("UAT_SIGNOFF_DIR", &cfg.SignoffDir); err != nil {
		return err
	}
	if err := parseEnvString("UAT_TRACKER_DIR", &cfg.TrackerDir); err != nil {
		return err
	}
	if err := parseEnvString("UAT_FORMSPREE_FORM_ID", &cfg.Formspree.FormID); err != nil {
		return err
	}
	if err := parseEnvString("UAT_FORMSPREE_API_KEY", &cfg.Formspree.APIKey); err != nil {
		return err
	}
	if err := parseEnvFloat("UAT_FORMSPREE_RPS", &cfg.Formspree.RequestsPerSecond); err != nil {
		return err
	}
	if err := parseEnvString("UAT_LOG_LEVEL", &cfg.LogLevel); err != nil {
		return err
	}
	return parseEnvString("UAT_ACTOR", &cfg.Actor)
}

// parseEnvFloat parses a float from an environment variable
func parseEnvFloat(key string, dest *float64) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*dest = parsed
	return nil
}

// parseEnvString parses a string from an environment variable
func parseEnvString(key string, dest *string) error {
	value := os.Getenv(key)
	if value == "" {
		return nil // Use default
	}
	*dest = value
	return nil
}
