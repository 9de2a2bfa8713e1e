package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds all application configuration
type Config struct {
	DBPath     string // Path to the SQLite counter-store file
	Wiki       string // Wiki id; prefixes every counter table name
	LadderFile string // Optional JSON file overriding the service-award ladder
	MaxItems   int    // Hard cap on rows a single report may return
	Debug      bool   // Enable debug logging (logs compiled SQL)
}

// Load reads configuration from environment variables and applies defaults
func Load() (*Config, error) {
	cfg := &Config{
		DBPath:     getEnvOrDefault("TALLY_DB_PATH", "/data/tally.db"),
		Wiki:       getEnvOrDefault("TALLY_WIKI", "wiki"),
		LadderFile: os.Getenv("TALLY_LADDER_FILE"),
	}

	// Parse the per-report row cap with default
	maxStr := getEnvOrDefault("TALLY_MAX_ITEMS", "5000")
	maxItems, err := strconv.Atoi(maxStr)
	if err != nil {
		return nil, fmt.Errorf("invalid TALLY_MAX_ITEMS: %w", err)
	}
	if maxItems <= 0 {
		return nil, fmt.Errorf("TALLY_MAX_ITEMS must be positive, got %d", maxItems)
	}
	cfg.MaxItems = maxItems

	if debugStr := os.Getenv("TALLY_DEBUG"); debugStr != "" {
		debug, err := strconv.ParseBool(debugStr)
		if err != nil {
			return nil, fmt.Errorf("invalid TALLY_DEBUG: %w", err)
		}
		cfg.Debug = debug
	}

	return cfg, nil
}

// getEnvOrDefault returns the environment variable value or the default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
