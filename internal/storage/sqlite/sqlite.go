package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"go.uber.org/zap"

	"github.com/uatkit/uat/internal/storage/migrations"
)

// timestampLayout matches SQLite's CURRENT_TIMESTAMP
const timestampLayout = "2006-01-02 15:04:05"

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db        *sql.DB
	sessionID string // groups audit entries written by this instance
	logger    *zap.Logger
	now       func() time.Time
}

// New opens (creating if needed) the shared database at path and brings
// the UAT schema up to date
func New(ctx context.Context, path string, logger *zap.Logger) (*SQLiteStorage, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Ensure directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	dsn := "file:" + path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps pragmas and transactions on the same handle
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, baseSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	manager := migrations.NewManager(logger)
	for _, m := range uatMigrations {
		manager.Register(m)
	}
	applied, err := manager.ApplySQLite(ctx, db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if applied > 0 {
		logger.Info("database migrated", zap.String("path", path), zap.Int("applied", applied))
	}

	return &SQLiteStorage{
		db:        db,
		sessionID: strings.ToUpper(uuid.NewString()[:8]),
		logger:    logger,
		now:       time.Now,
	}, nil
}

// SessionID identifies audit entries written through this storage
func (s *SQLiteStorage) SessionID() string {
	return s.sessionID
}

// SchemaVersion reports the applied migration version
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	return migrations.CurrentVersion(ctx, s.db)
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) today() string {
	return s.now().Format("2006-01-02")
}

func (s *SQLiteStorage) timestamp() string {
	return s.now().UTC().Format(timestampLayout)
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// nullIfEmpty maps "" to NULL so COALESCE keeps the stored value
func nullIfEmpty(v string) interface{} {
	if v == "" {
		return nil
	}
	return v
}
