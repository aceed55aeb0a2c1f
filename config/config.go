// Package config loads server configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds everything the server and the CLI need at startup.
type Config struct {
	// DBPath is the SQLite database file. ":memory:" works for throwaway runs.
	DBPath string
	// Port is the HTTP listen port.
	Port int
	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string
	// LogFormat is "console" for human output or "json" for structured.
	LogFormat string
	// ReconcileInterval is how often the background status sweep runs.
	ReconcileInterval time.Duration
	// ReconcileEnabled turns the background sweep off entirely; reads still
	// reconcile opportunistically.
	ReconcileEnabled bool
}

// Load reads .env (if present) and the environment. Missing keys fall back
// to defaults; malformed values are errors, not silent defaults.
func Load() (*Config, error) {
	// .env is optional: absent in production, convenient in development.
	_ = godotenv.Load()

	cfg := &Config{
		DBPath:    getEnv("PARTY_DB", "party.db"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),
	}

	port, err := strconv.Atoi(getEnv("PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}
	cfg.Port = port

	interval, err := time.ParseDuration(getEnv("RECONCILE_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_INTERVAL: %w", err)
	}
	if interval <= 0 {
		return nil, fmt.Errorf("RECONCILE_INTERVAL must be positive, got %s", interval)
	}
	cfg.ReconcileInterval = interval

	enabled, err := strconv.ParseBool(getEnv("RECONCILE_ENABLED", "true"))
	if err != nil {
		return nil, fmt.Errorf("invalid RECONCILE_ENABLED: %w", err)
	}
	cfg.ReconcileEnabled = enabled

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
