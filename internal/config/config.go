package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds all crmextender configuration.
type Config struct {
	Sync      SyncConfig      `toml:"sync"`
	Threading ThreadingConfig `toml:"threading"`
	Limits    LimitsConfig    `toml:"limits"`
	Gmail     GmailConfig     `toml:"gmail"`
}

// GmailConfig holds Gmail OAuth credentials.
// Users can override via config file or env vars.
type GmailConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// SyncConfig holds ingestion settings.
type SyncConfig struct {
	BackfillDays int    `toml:"backfill_days"`
	FetchRetries int    `toml:"fetch_retries"`
	RunTimeout   string `toml:"run_timeout"`
}

// ThreadingConfig tunes the heuristic threading pass for messages that
// arrive without a provider thread identifier.
type ThreadingConfig struct {
	RecencyWindowDays   int     `toml:"recency_window_days"`
	HeuristicConfidence float64 `toml:"heuristic_confidence"`
}

// LimitsConfig holds the shared per-provider rate limit.
type LimitsConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

func defaults() Config {
	return Config{
		Sync: SyncConfig{
			BackfillDays: 30,
			FetchRetries: 3,
			RunTimeout:   "10m",
		},
		Threading: ThreadingConfig{
			RecencyWindowDays:   7,
			HeuristicConfidence: 0.8,
		},
		Limits: LimitsConfig{
			RequestsPerSecond: 5,
			Burst:             10,
		},
	}
}

// Load reads config from path. If path is empty or missing, returns defaults.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}

// ConfigDir returns the crmextender config directory path.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "crmextender")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "crmextender")
}

// DataDir returns the crmextender data directory path.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "crmextender")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "crmextender")
}
