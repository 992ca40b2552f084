// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config represents the agent configuration that can be loaded from a JSON
// file. All fields are optional; missing values use defaults or must be
// provided via CLI flags.
type Config struct {
	// Endpoints
	SiteBaseURL string `json:"site_base_url,omitempty"` // Judge site root, e.g. https://www.acmicpc.net
	APIBaseURL  string `json:"api_base_url,omitempty"`  // Companion service root for solve logs
	HubAddr     string `json:"hub_addr,omitempty"`      // Relay hub listen/dial address
	HubURL      string `json:"hub_url,omitempty"`       // Relay hub websocket URL for clients

	// Identity
	UserID string `json:"user_id,omitempty"` // Judge-site handle whose results are watched

	// Store
	StoreDriver string `json:"store_driver,omitempty"` // memory, sqlite or postgres
	StorePath   string `json:"store_path,omitempty"`   // sqlite database file
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL

	// Watcher timings, in milliseconds. Zero keeps the built-in defaults.
	InitialDelayMillis  int `json:"initial_delay_ms,omitempty"`
	SweepIntervalMillis int `json:"sweep_interval_ms,omitempty"`
	BudgetMillis        int `json:"budget_ms,omitempty"`

	// Behavior
	UseBrowser     bool     `json:"use_browser,omitempty"`     // Render pages in a headless browser
	Verbose        bool     `json:"verbose,omitempty"`         // Print detailed debug information
	AllowedOrigins []string `json:"allowed_origins,omitempty"` // Extra origins admitted by the login gate
}

// Store driver names accepted in StoreDriver.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
)

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "", StoreMemory, StoreSQLite, StorePostgres:
	default:
		return fmt.Errorf("config error: unknown store_driver %q", c.StoreDriver)
	}
	if c.StoreDriver == StoreSQLite && c.StorePath == "" {
		return fmt.Errorf("config error: 'store_path' is required for the sqlite store")
	}
	if c.StoreDriver == StorePostgres && c.DatabaseURL == "" {
		return fmt.Errorf("config error: 'database_url' is required for the postgres store")
	}

	if c.InitialDelayMillis < 0 {
		return fmt.Errorf("config error: 'initial_delay_ms' must be non-negative")
	}
	if c.SweepIntervalMillis < 0 {
		return fmt.Errorf("config error: 'sweep_interval_ms' must be non-negative")
	}
	if c.BudgetMillis < 0 {
		return fmt.Errorf("config error: 'budget_ms' must be non-negative")
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This is used to apply config file values as defaults for CLI
// flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.SiteBaseURL == "" {
		result.SiteBaseURL = defaults.SiteBaseURL
	}
	if result.APIBaseURL == "" {
		result.APIBaseURL = defaults.APIBaseURL
	}
	if result.HubAddr == "" {
		result.HubAddr = defaults.HubAddr
	}
	if result.HubURL == "" {
		result.HubURL = defaults.HubURL
	}
	if result.UserID == "" {
		result.UserID = defaults.UserID
	}
	if result.StoreDriver == "" {
		result.StoreDriver = defaults.StoreDriver
	}
	if result.StorePath == "" {
		result.StorePath = defaults.StorePath
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	// Int fields: use default if zero
	if result.InitialDelayMillis == 0 {
		result.InitialDelayMillis = defaults.InitialDelayMillis
	}
	if result.SweepIntervalMillis == 0 {
		result.SweepIntervalMillis = defaults.SweepIntervalMillis
	}
	if result.BudgetMillis == 0 {
		result.BudgetMillis = defaults.BudgetMillis
	}

	if len(result.AllowedOrigins) == 0 {
		result.AllowedOrigins = defaults.AllowedOrigins
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}

// InitialDelay returns the configured initial delay as a duration, zero
// when unset.
func (c *Config) InitialDelay() time.Duration {
	return time.Duration(c.InitialDelayMillis) * time.Millisecond
}

// SweepInterval returns the configured sweep period as a duration.
func (c *Config) SweepInterval() time.Duration {
	return time.Duration(c.SweepIntervalMillis) * time.Millisecond
}

// Budget returns the configured watch budget as a duration.
func (c *Config) Budget() time.Duration {
	return time.Duration(c.BudgetMillis) * time.Millisecond
}
