package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// FormspreeConfig holds credentials and throttling for the Formspree API
type FormspreeConfig struct {
	// FormID is the Formspree form testers submit results through.
	// Embedded in generated trackers and used by sync-formspree.
	FormID string `yaml:"form_id"`

	// APIKey authorizes reads of form submissions.
	// Only needed for sync-formspree.
	APIKey string `yaml:"api_key"`

	// RequestsPerSecond throttles submission paging
	// Default: 2, Range: (0, 10]
	RequestsPerSecond float64 `yaml:"requests_per_second"`

	// BaseURL overrides the API endpoint (tests)
	BaseURL string `yaml:"base_url"`
}

// Config holds settings for the uat tool
type Config struct {
	// DBPath is the shared requirements database.
	// Empty means discover it (see storage.DiscoverDatabase).
	DBPath string `yaml:"db_path"`

	// OutputDir receives Excel exports and workflow JSON
	// Default: outputs
	OutputDir string `yaml:"output_dir"`

	// SignoffDir receives client sign-off packages
	// Default: ~/Downloads
	SignoffDir string `yaml:"signoff_dir"`

	// TrackerDir receives generated HTML trackers
	// Default: docs
	TrackerDir string `yaml:"tracker_dir"`

	Formspree FormspreeConfig `yaml:"formspree"`

	// LogLevel is one of debug, info, warn, error
	// Default: info
	LogLevel string `yaml:"log_level"`

	// Actor is recorded on audit entries when no user is given
	// Default: cli:uat
	Actor string `yaml:"actor"`
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() Config {
	return Config{
		OutputDir:  "outputs",
		SignoffDir: "~/Downloads",
		TrackerDir: "docs",
		Formspree: FormspreeConfig{
			RequestsPerSecond: 2,
			BaseURL:           "https://formspree.io",
		},
		LogLevel: "info",
		Actor:    "cli:uat",
	}
}

// Validate checks if the configuration has valid values
func (c Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("output_dir cannot be empty")
	}
	if c.SignoffDir == "" {
		return fmt.Errorf("signoff_dir cannot be empty")
	}
	if c.TrackerDir == "" {
		return fmt.Errorf("tracker_dir cannot be empty")
	}
	if c.Formspree.RequestsPerSecond <= 0 || c.Formspree.RequestsPerSecond > 10 {
		return fmt.Errorf("formspree.requests_per_second must be > 0 and <= 10 (got %g)",
			c.Formspree.RequestsPerSecond)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be one of debug, info, warn, error (got %q)", c.LogLevel)
	}
	if strings.TrimSpace(c.Actor) == "" {
		return fmt.Errorf("actor cannot be empty")
	}
	return nil
}

// String returns a human-readable representation of the config
func (c Config) String() string {
	key := ""
	if c.Formspree.APIKey != "" {
		key = "****"
	}
	return fmt.Sprintf(
		"Config{DBPath: %q, OutputDir: %q, SignoffDir: %q, TrackerDir: %q, "+
			"FormID: %q, APIKey: %q, RPS: %g, LogLevel: %s, Actor: %s}",
		c.DBPath, c.OutputDir, c.SignoffDir, c.TrackerDir,
		c.Formspree.FormID, key, c.Formspree.RequestsPerSecond, c.LogLevel, c.Actor,
	)
}

// Load builds the configuration from defaults, the YAML file at path (or
// the first default location that exists), and environment variables, in
// that order. A missing file is not an error unless path was given
// explicitly.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	file := path
	if file == "" {
		file = findConfigFile()
	}
	if file != "" {
		data, err := os.ReadFile(file)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, fmt.Errorf("failed to parse config %s: %w", file, err)
			}
		case errors.Is(err, os.ErrNotExist) && path == "":
		default:
			return cfg, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}

	cfg.SignoffDir = ExpandHome(cfg.SignoffDir)
	cfg.OutputDir = ExpandHome(cfg.OutputDir)
	cfg.TrackerDir = ExpandHome(cfg.TrackerDir)
	cfg.DBPath = ExpandHome(cfg.DBPath)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// DefaultConfigPaths lists where Load looks when no path is given
func DefaultConfigPaths() []string {
	paths := []string{"uat.yaml"}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "uat", "config.yaml"))
	}
	return paths
}

func findConfigFile() string {
	for _, p := range DefaultConfigPaths() {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return ""
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~"))
}
