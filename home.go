package daobuilder

import (
	"os"
	"path/filepath"
)

// Home returns the daobuilder home directory.
// It defaults to ~/.daobuilder but can be overridden with the DAOBUILDER_HOME environment variable.
func Home() string {
	if v := os.Getenv("DAOBUILDER_HOME"); v != "" {
		return v
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".daobuilder")
}

// DefaultDBPath returns the default SQLite database path (~/.daobuilder/daobuilder.db).
func DefaultDBPath() string {
	return filepath.Join(Home(), "daobuilder.db")
}

// EnsureHome creates the home directory if it doesn't exist.
func EnsureHome() error {
	return os.MkdirAll(Home(), 0o755)
}
