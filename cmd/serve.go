package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rinko/go-arena-stats/internal/arena"
	"github.com/rinko/go-arena-stats/internal/config"
	"github.com/rinko/go-arena-stats/internal/server"
	"github.com/rinko/go-arena-stats/internal/storage"
)

var serveConfigPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serve the matchup statistics API over HTTP. Configuration comes from an
optional YAML file plus ARENA_-prefixed environment variables; the --db flag
is ignored in favor of the configured db_path.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "path to YAML config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(serveConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer db.Close()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))
	engine := arena.New(db, arena.Config{MaxManualCount: cfg.MaxManualCount})

	return server.New(engine, cfg, log).ListenAndServe()
}
