// Package config loads server configuration from an optional YAML file with
// environment-variable overrides.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds the serve-mode settings.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath locates the SQLite database file.
	DBPath string `koanf:"db_path"`

	// AdminToken gates destructive and moderation endpoints. Empty disables
	// those endpoints entirely.
	AdminToken string `koanf:"admin_token"`

	// AllowedOrigins configures CORS; empty allows any origin.
	AllowedOrigins []string `koanf:"allowed_origins"`

	// MaxManualCount caps wins/losses per manual entry or submission.
	MaxManualCount int `koanf:"max_manual_count"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Addr:           ":8080",
		DBPath:         filepath.Join(userHome(), ".arenastats", "arena.db"),
		MaxManualCount: 10000,
	}
}

// Load layers defaults, an optional YAML file, and ARENA_-prefixed env vars,
// in that precedence order.
func Load(path string) (*Config, error) {
	cfg := *Default()

	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, err
		}
	}

	// ARENA_ADDR -> addr, ARENA_DB_PATH -> db_path, ...
	envProvider := env.Provider("ARENA_", ".", func(s string) string {
		s = strings.ToLower(s)
		return strings.TrimPrefix(s, "arena_")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, err
	}

	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, err
	}

	if cfg.Addr == "" {
		return nil, errors.New("addr must not be empty")
	}
	if cfg.DBPath == "" {
		return nil, errors.New("db_path must not be empty")
	}
	return &cfg, nil
}

func userHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
