package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uatkit/uat/internal/types"
)

func clearDBEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"UAT_DB_PATH", "PROPEL_DB_PATH", "REQUIREMENTS_DB_PATH"} {
		t.Setenv(k, "")
	}
}

func TestDiscoverDatabaseExplicit(t *testing.T) {
	t.Setenv("UAT_DB_PATH", "/tmp/from-env.db")
	assert.Equal(t, "/tmp/explicit.db", DiscoverDatabase("/tmp/explicit.db"))
}

func TestDiscoverDatabaseEnvOrder(t *testing.T) {
	clearDBEnv(t)
	t.Setenv("REQUIREMENTS_DB_PATH", "/tmp/req.db")
	assert.Equal(t, "/tmp/req.db", DiscoverDatabase(""))

	t.Setenv("PROPEL_DB_PATH", "/tmp/propel.db")
	assert.Equal(t, "/tmp/propel.db", DiscoverDatabase(""))

	t.Setenv("UAT_DB_PATH", "/tmp/uat.db")
	assert.Equal(t, "/tmp/uat.db", DiscoverDatabase(""))
}

func TestDiscoverDatabaseFallbacks(t *testing.T) {
	clearDBEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	// Nothing exists: requirements toolkit location
	want := filepath.Join(home, "projects", "requirements_toolkit", "data", DatabaseFile)
	assert.Equal(t, want, DiscoverDatabase(""))

	// Generic location exists
	generic := filepath.Join(home, "projects", "data", DatabaseFile)
	require.NoError(t, os.MkdirAll(filepath.Dir(generic), 0755))
	require.NoError(t, os.WriteFile(generic, nil, 0644))
	assert.Equal(t, generic, DiscoverDatabase(""))

	// Requirements toolkit location takes precedence once it exists
	require.NoError(t, os.MkdirAll(filepath.Dir(want), 0755))
	require.NoError(t, os.WriteFile(want, nil, 0644))
	assert.Equal(t, want, DiscoverDatabase(""))
}

func TestNewStorageMigrates(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "uat.db")

	store, err := NewStorage(ctx, &Config{Path: path})
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	version, err := store.SchemaVersion(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, version)

	// Reopening an up-to-date database applies nothing and keeps data
	_, err = store.CreateCycle(ctx, &types.NewCycle{Name: "Reopen", UATType: types.UATFeature}, "tester")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewStorage(ctx, &Config{Path: path})
	require.NoError(t, err)
	cycles, err := store.ActiveCycles(ctx, "")
	require.NoError(t, err)
	assert.Len(t, cycles, 1)
}
