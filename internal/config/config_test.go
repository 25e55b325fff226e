package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AppName != "rqst" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults %#v", cfg)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("unexpected timeout %v", cfg.Timeout)
	}
	if cfg.HistoryType != "bbolt" || cfg.HistoryTTL != 7*24*time.Hour {
		t.Fatalf("unexpected history settings %#v", cfg)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("RQST_TIMEOUT_SECONDS", "5")
	t.Setenv("RQST_HISTORY_TYPE", "none")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Timeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %v", cfg.Timeout)
	}
	if cfg.HistoryType != "none" {
		t.Fatalf("expected history_type none, got %q", cfg.HistoryType)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rqst.yaml")
	raw := "log_level: debug\nprofiles_file: ./profiles.yaml\nhistory_cleanup_interval_seconds: 60\n"
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.ProfilesFile != "./profiles.yaml" {
		t.Fatalf("config file not applied: %#v", cfg)
	}
	if cfg.HistoryCleanupInterval != time.Minute {
		t.Fatalf("unexpected cleanup interval %v", cfg.HistoryCleanupInterval)
	}
}

func TestLoadRejectsNonPositiveTimeout(t *testing.T) {
	t.Setenv("RQST_TIMEOUT_SECONDS", "0")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error for zero timeout")
	}
}
