package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Sync.BackfillDays != 30 {
		t.Errorf("default backfill_days = %d, want 30", cfg.Sync.BackfillDays)
	}
	if cfg.Sync.FetchRetries != 3 {
		t.Errorf("default fetch_retries = %d, want 3", cfg.Sync.FetchRetries)
	}
	if cfg.Threading.RecencyWindowDays != 7 {
		t.Errorf("default recency_window_days = %d, want 7", cfg.Threading.RecencyWindowDays)
	}
	if cfg.Threading.HeuristicConfidence != 0.8 {
		t.Errorf("default heuristic_confidence = %v, want 0.8", cfg.Threading.HeuristicConfidence)
	}
	if cfg.Limits.RequestsPerSecond != 5 {
		t.Errorf("default requests_per_second = %v, want 5", cfg.Limits.RequestsPerSecond)
	}
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	content := `
[sync]
backfill_days = 90
fetch_retries = 5

[threading]
recency_window_days = 14
heuristic_confidence = 0.6

[limits]
requests_per_second = 2.5
burst = 4
`
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Sync.BackfillDays != 90 {
		t.Errorf("backfill_days = %d, want 90", cfg.Sync.BackfillDays)
	}
	if cfg.Threading.RecencyWindowDays != 14 {
		t.Errorf("recency_window_days = %d, want 14", cfg.Threading.RecencyWindowDays)
	}
	if cfg.Limits.RequestsPerSecond != 2.5 {
		t.Errorf("requests_per_second = %v, want 2.5", cfg.Limits.RequestsPerSecond)
	}
	if cfg.Limits.Burst != 4 {
		t.Errorf("burst = %d, want 4", cfg.Limits.Burst)
	}
}

func TestLoad_NonExistentFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.toml")
	if err != nil {
		t.Fatalf("Load() should return defaults for missing file, got error: %v", err)
	}
	if cfg.Sync.BackfillDays != 30 {
		t.Errorf("backfill_days = %d, want default 30", cfg.Sync.BackfillDays)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(cfgPath, []byte("not valid [[ toml"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Load(cfgPath)
	if err == nil {
		t.Fatal("Load() should return error for invalid TOML")
	}
	if !strings.Contains(err.Error(), "failed to parse config") {
		t.Errorf("error = %q, want it to contain %q", err.Error(), "failed to parse config")
	}
}

func TestConfigDir(t *testing.T) {
	t.Run("with XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "/custom/config")
		dir := ConfigDir()
		want := "/custom/config/crmextender"
		if dir != want {
			t.Errorf("ConfigDir() = %q, want %q", dir, want)
		}
	})
	t.Run("without XDG_CONFIG_HOME", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", "")
		dir := ConfigDir()
		if !strings.HasSuffix(dir, filepath.Join(".config", "crmextender")) {
			t.Errorf("ConfigDir() = %q, want suffix %q", dir, filepath.Join(".config", "crmextender"))
		}
	})
}

func TestDataDir(t *testing.T) {
	t.Run("with XDG_DATA_HOME", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/custom/data")
		dir := DataDir()
		want := "/custom/data/crmextender"
		if dir != want {
			t.Errorf("DataDir() = %q, want %q", dir, want)
		}
	})
	t.Run("without XDG_DATA_HOME", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "")
		dir := DataDir()
		if !strings.HasSuffix(dir, filepath.Join(".local", "share", "crmextender")) {
			t.Errorf("DataDir() = %q, want suffix %q", dir, filepath.Join(".local", "share", "crmextender"))
		}
	})
}
