package config

import (
	"fmt"
	"os"
	"strconv"
)

// HistoryRetentionConfig controls pruning of the creation-history
// database. History is an audit trail, not primary data, so it is
// bounded by age and by total row count.
type HistoryRetentionConfig struct {
	// RetentionDays is how long history rows are kept.
	// Default: 90, Range: 1-730
	RetentionDays int

	// MaxEntries caps the total number of history rows. Oldest rows are
	// deleted first once the cap is exceeded. 0 = unlimited.
	// Default: 10000, Range: 0 or 100-1000000
	MaxEntries int

	// CleanupEnabled controls whether pruning runs at startup.
	// Default: true
	CleanupEnabled bool
}

// DefaultHistoryRetentionConfig returns the default retention settings.
func DefaultHistoryRetentionConfig() HistoryRetentionConfig {
	return HistoryRetentionConfig{
		RetentionDays:  90,
		MaxEntries:     10000,
		CleanupEnabled: true,
	}
}

// Validate checks if the configuration has valid values.
func (c HistoryRetentionConfig) Validate() error {
	if c.RetentionDays < 1 || c.RetentionDays > 730 {
		return fmt.Errorf("retention_days must be between 1 and 730 (got %d)", c.RetentionDays)
	}
	if c.MaxEntries < 0 {
		return fmt.Errorf("max_entries cannot be negative (got %d)", c.MaxEntries)
	}
	if c.MaxEntries > 0 && c.MaxEntries < 100 {
		return fmt.Errorf("max_entries must be 0 (unlimited) or >= 100 (got %d)", c.MaxEntries)
	}
	if c.MaxEntries > 1000000 {
		return fmt.Errorf("max_entries too large (got %d, max 1000000)", c.MaxEntries)
	}
	return nil
}

func (c HistoryRetentionConfig) String() string {
	return fmt.Sprintf("HistoryRetentionConfig{RetentionDays: %d, MaxEntries: %d, Enabled: %t}",
		c.RetentionDays, c.MaxEntries, c.CleanupEnabled)
}

// HistoryRetentionFromEnv creates a HistoryRetentionConfig from
// environment variables, falling back to defaults.
//
// Environment variables:
//   - TASKBRIDGE_HISTORY_RETENTION_DAYS: days to keep history rows (default: 90)
//   - TASKBRIDGE_HISTORY_MAX_ENTRIES: total row cap, 0 for unlimited (default: 10000)
//   - TASKBRIDGE_HISTORY_CLEANUP_ENABLED: prune at startup (default: true)
//
// Returns an error if any variable has an invalid value.
func HistoryRetentionFromEnv() (HistoryRetentionConfig, error) {
	cfg := DefaultHistoryRetentionConfig()

	if err := parseEnvInt("TASKBRIDGE_HISTORY_RETENTION_DAYS", &cfg.RetentionDays); err != nil {
		return cfg, err
	}
	if err := parseEnvInt("TASKBRIDGE_HISTORY_MAX_ENTRIES", &cfg.MaxEntries); err != nil {
		return cfg, err
	}
	if err := parseEnvBool("TASKBRIDGE_HISTORY_CLEANUP_ENABLED", &cfg.CleanupEnabled); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid history retention config: %w", err)
	}
	return cfg, nil
}

// parseEnvInt parses an integer environment variable into dst if set.
func parseEnvInt(name string, dst *int) error {
	value := os.Getenv(name)
	if value == "" {
		return nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("%s must be an integer (got %q)", name, value)
	}
	*dst = parsed
	return nil
}

// parseEnvBool parses a boolean environment variable into dst if set.
func parseEnvBool(name string, dst *bool) error {
	value := os.Getenv(name)
	if value == "" {
		return nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fmt.Errorf("%s must be a boolean (got %q)", name, value)
	}
	*dst = parsed
	return nil
}
