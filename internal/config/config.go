// Package config loads strategy-compiler's runtime configuration from
// environment variables, following the defaults/overrideFromEnv/validate
// shape in data-service/internal/config/config.go.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all configuration for the strategy-compiler service.
type Config struct {
	HTTP       HTTPConfig
	Store      StoreConfig
	Auth       AuthConfig
	CatalogDir string
}

// HTTPConfig holds HTTP server parameters.
type HTTPConfig struct {
	Port int
}

// StoreConfig holds the persistence project/database pair a Firestore-
// backed store.Cards/store.Strategies implementation would need. The
// in-process implementation this repo ships does not dial out to any of
// these, but the config surface mirrors what swapping one in later would
// require.
type StoreConfig struct {
	ProjectID     string
	Database      string
	EmulatorHost  string
}

// AuthConfig holds the optional static bearer token. An empty Token means
// auth is disabled entirely.
type AuthConfig struct {
	Token string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := defaults()
	overrideFromEnv(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		HTTP:       HTTPConfig{Port: 8080},
		CatalogDir: "data/catalog",
	}
}

func overrideFromEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.Port = p
		}
	}
	if v := os.Getenv("GOOGLE_CLOUD_PROJECT"); v != "" {
		cfg.Store.ProjectID = v
	}
	if v := os.Getenv("FIRESTORE_DATABASE"); v != "" {
		cfg.Store.Database = v
	}
	if v := os.Getenv("FIRESTORE_EMULATOR_HOST"); v != "" {
		cfg.Store.EmulatorHost = v
	}
	if v := os.Getenv("AUTH_TOKEN"); v != "" {
		cfg.Auth.Token = v
	}
	if v := os.Getenv("CATALOG_DIR"); v != "" {
		cfg.CatalogDir = v
	}
}

func validate(cfg *Config) error {
	if cfg.HTTP.Port < 1 || cfg.HTTP.Port > 65535 {
		return fmt.Errorf("PORT must be 1-65535, got %d", cfg.HTTP.Port)
	}
	if cfg.Store.Database == "" {
		return fmt.Errorf("FIRESTORE_DATABASE environment variable must be set (e.g. \"(default)\" for the emulator, or a named database in production)")
	}
	return nil
}
