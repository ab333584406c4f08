package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"UAT_DB_PATH", "PROPEL_DB_PATH", "REQUIREMENTS_DB_PATH",
	"UAT_OUTPUT_DIR", "UAT_SIGNOFF_DIR", "UAT_TRACKER_DIR",
	"UAT_FORMSPREE_FORM_ID", "UAT_FORMSPREE_API_KEY", "UAT_FORMSPREE_RPS",
	"UAT_LOG_LEVEL", "UAT_ACTOR",
}

// isolate clears the environment and points HOME at a temp dir so no
// user config file is picked up
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	return home
}

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(t *testing.T, cfg Config)
	}{
		{
			name:    "no environment variables uses defaults",
			envVars: map[string]string{},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "outputs", cfg.OutputDir)
				assert.Equal(t, "docs", cfg.TrackerDir)
				assert.Equal(t, 2.0, cfg.Formspree.RequestsPerSecond)
				assert.Equal(t, "info", cfg.LogLevel)
				assert.Equal(t, "cli:uat", cfg.Actor)
				assert.Empty(t, cfg.DBPath)
			},
		},
		{
			name: "UAT_DB_PATH wins over aliases",
			envVars: map[string]string{
				"REQUIREMENTS_DB_PATH": "/tmp/req.db",
				"PROPEL_DB_PATH":       "/tmp/propel.db",
				"UAT_DB_PATH":          "/tmp/uat.db",
			},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "/tmp/uat.db", cfg.DBPath)
			},
		},
		{
			name:    "REQUIREMENTS_DB_PATH used alone",
			envVars: map[string]string{"REQUIREMENTS_DB_PATH": "/tmp/req.db"},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "/tmp/req.db", cfg.DBPath)
			},
		},
		{
			name: "valid custom configuration",
			envVars: map[string]string{
				"UAT_OUTPUT_DIR":        "/tmp/out",
				"UAT_FORMSPREE_FORM_ID": "xyzabc",
				"UAT_FORMSPREE_API_KEY": "secret",
				"UAT_FORMSPREE_RPS":     "5",
				"UAT_LOG_LEVEL":         "debug",
				"UAT_ACTOR":             "qa-lead",
			},
			check: func(t *testing.T, cfg Config) {
				assert.Equal(t, "/tmp/out", cfg.OutputDir)
				assert.Equal(t, "xyzabc", cfg.Formspree.FormID)
				assert.Equal(t, "secret", cfg.Formspree.APIKey)
				assert.Equal(t, 5.0, cfg.Formspree.RequestsPerSecond)
				assert.Equal(t, "debug", cfg.LogLevel)
				assert.Equal(t, "qa-lead", cfg.Actor)
			},
		},
		{
			name:    "rate above limit",
			envVars: map[string]string{"UAT_FORMSPREE_RPS": "11"},
			wantErr: true,
		},
		{
			name:    "rate not a number",
			envVars: map[string]string{"UAT_FORMSPREE_RPS": "fast"},
			wantErr: true,
		},
		{
			name:    "unknown log level",
			envVars: map[string]string{"UAT_LOG_LEVEL": "trace"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load("")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestLoadYAML(t *testing.T) {
	home := isolate(t)

	path := filepath.Join(t.TempDir(), "uat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db_path: ~/data/shared.db
signoff_dir: /srv/signoffs
formspree:
  form_id: mkabcd
  requests_per_second: 1.5
log_level: warn
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "data", "shared.db"), cfg.DBPath)
	assert.Equal(t, "/srv/signoffs", cfg.SignoffDir)
	assert.Equal(t, "mkabcd", cfg.Formspree.FormID)
	assert.Equal(t, 1.5, cfg.Formspree.RequestsPerSecond)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "outputs", cfg.OutputDir, "unset keys keep defaults")

	t.Setenv("UAT_LOG_LEVEL", "error")
	cfg, err = Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.LogLevel, "environment overrides file")
}

func TestLoadUserConfigFile(t *testing.T) {
	home := isolate(t)
	dir := filepath.Join(home, ".config", "uat")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("actor: reviewer\n"), 0644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "reviewer", cfg.Actor)
}

func TestLoadErrors(t *testing.T) {
	isolate(t)

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "explicit path must exist")

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("log_level: [unclosed"), 0644))
	_, err = Load(bad)
	assert.Error(t, err)
}

func TestConfigStringHidesKey(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Formspree.APIKey = "super-secret"
	assert.NotContains(t, cfg.String(), "super-secret")
}

func TestExpandHome(t *testing.T) {
	home := isolate(t)
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, filepath.Join(home, "Downloads"), ExpandHome("~/Downloads"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}
