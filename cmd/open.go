package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rinko/go-arena-stats/internal/arena"
	"github.com/rinko/go-arena-stats/internal/storage"
)

// openEngine opens the store at --db and wraps it in an engine. The CLI is a
// local tool, so the authorization gate always allows.
func openEngine() (*arena.Engine, *storage.DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := storage.Open(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open storage: %w", err)
	}
	return arena.New(db, arena.Config{}), db, nil
}
