package migrations

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Example migration for testing
var exampleMigration = Migration{
	Version:     1,
	Description: "Add example test table",
	Up: `
		CREATE TABLE IF NOT EXISTS test_table (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL
		)
	`,
	Down: `
		DROP TABLE IF EXISTS test_table
	`,
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", "file:"+filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteMigrations(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	manager := NewManager(nil)
	manager.Register(exampleMigration)

	applied, err := manager.ApplySQLite(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, applied)

	version, err := CurrentVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 1, version)

	_, err = db.Exec("INSERT INTO test_table (id, name) VALUES (1, 'test')")
	require.NoError(t, err, "test table not created")

	// Second apply is a no-op
	applied, err = manager.ApplySQLite(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 0, applied)

	require.NoError(t, manager.RollbackSQLite(ctx, db))

	var v int
	err = db.QueryRow("SELECT version FROM schema_version WHERE version = 1").Scan(&v)
	assert.ErrorIs(t, err, sql.ErrNoRows, "expected version record to be removed")

	_, err = db.Exec("INSERT INTO test_table (id, name) VALUES (1, 'test')")
	assert.Error(t, err, "test table should have been dropped")

	assert.Error(t, manager.RollbackSQLite(ctx, db), "nothing left to roll back")
}

func TestMigrationsApplyInVersionOrder(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	manager := NewManager(nil)
	manager.Register(Migration{
		Version:     2,
		Description: "Add column",
		UpFunc:      AddColumns("test_table", "extra TEXT"),
	})
	manager.Register(exampleMigration)

	applied, err := manager.ApplySQLite(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 2, applied)

	_, err = db.Exec("INSERT INTO test_table (id, name, extra) VALUES (1, 'a', 'b')")
	assert.NoError(t, err)
}

func TestAddColumnsSkipsExisting(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	_, err := db.Exec(`CREATE TABLE shared (id TEXT PRIMARY KEY, owner TEXT)`)
	require.NoError(t, err)

	manager := NewManager(nil)
	manager.Register(Migration{
		Version:     1,
		Description: "Extend shared table",
		UpFunc:      AddColumns("shared", "OWNER TEXT", "reviewer TEXT"),
	})

	_, err = manager.ApplySQLite(ctx, db)
	require.NoError(t, err)

	_, err = db.Exec("INSERT INTO shared (id, owner, reviewer) VALUES ('x', 'a', 'b')")
	assert.NoError(t, err)
}

func TestAddColumnsMissingTable(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)

	manager := NewManager(nil)
	manager.Register(Migration{
		Version:     1,
		Description: "Extend missing table",
		UpFunc:      AddColumns("nope", "x TEXT"),
	})

	_, err := manager.ApplySQLite(ctx, db)
	require.Error(t, err)

	version, err := CurrentVersion(ctx, db)
	require.NoError(t, err)
	assert.Equal(t, 0, version, "failed migration must not be recorded")
}
