package storage

import (
	"os"
	"path/filepath"
)

// DatabaseFile is the shared requirements database file name
const DatabaseFile = "client_product_database.db"

// DiscoverDatabase returns the database path to use.
//
// An explicit path wins. Otherwise UAT_DB_PATH, PROPEL_DB_PATH and
// REQUIREMENTS_DB_PATH are checked in that order, then the first existing
// of:
//
//	./data/client_product_database.db
//	~/projects/requirements_toolkit/data/client_product_database.db
//	~/projects/data/client_product_database.db
//
// When nothing exists the requirements toolkit path is returned; the
// database is created there on first open.
func DiscoverDatabase(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, key := range []string{"UAT_DB_PATH", "PROPEL_DB_PATH", "REQUIREMENTS_DB_PATH"} {
		if p := os.Getenv(key); p != "" {
			return p
		}
	}

	candidates := CandidatePaths()
	for _, p := range candidates {
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p
		}
	}
	return candidates[1]
}

// CandidatePaths lists the fallback database locations in lookup order
func CandidatePaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return []string{
		filepath.Join("data", DatabaseFile),
		filepath.Join(home, "projects", "requirements_toolkit", "data", DatabaseFile),
		filepath.Join(home, "projects", "data", DatabaseFile),
	}
}
