package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg != Default() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadOverridesAndBackfills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "netaudit.yaml")
	content := "commandDelaySeconds: 5\nworkers: 4\nport: 2222\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CommandDelaySeconds != 5 || cfg.Workers != 4 || cfg.Port != 2222 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	// Unset keys fall back to defaults.
	if cfg.ConnectTimeoutSeconds != 20 || cfg.QuietWindowMillis != 500 || cfg.LogFile != "healthcheck.log" {
		t.Errorf("defaults not backfilled: %+v", cfg)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("workers: [not a number"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestTimingMapping(t *testing.T) {
	cfg := Default()
	cfg.CommandDelaySeconds = 5
	cfg.QuietWindowMillis = 250

	timing := cfg.Timing()
	if timing.CommandDelay != 5*time.Second {
		t.Errorf("CommandDelay = %v", timing.CommandDelay)
	}
	if timing.QuietWindow != 250*time.Millisecond {
		t.Errorf("QuietWindow = %v", timing.QuietWindow)
	}
	if timing.FirstCommandDelay != 6*time.Second {
		t.Errorf("FirstCommandDelay = %v", timing.FirstCommandDelay)
	}
}
