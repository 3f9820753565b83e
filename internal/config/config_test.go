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
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Ops.Address != ":2112" {
		t.Fatalf("default ops address = %q", cfg.Ops.Address)
	}
	if cfg.Engine.QuitScope != "item" {
		t.Fatalf("default quit scope = %q", cfg.Engine.QuitScope)
	}
	if cfg.Engine.MaxCausesPerIssue != 1 {
		t.Fatalf("default causes per issue = %d", cfg.Engine.MaxCausesPerIssue)
	}
	if cfg.Hub.Timeout != 5*time.Second {
		t.Fatalf("default hub timeout = %v", cfg.Hub.Timeout)
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
ops:
  enabled: true
  address: ":9102"
engine:
  maxIssues: 50
  quitScope: batch
  correlation:
    enabled: true
    windowSeconds: 120
executor:
  dryRun: true
logging:
  level: debug
  json: true
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !cfg.Ops.Enabled || cfg.Ops.Address != ":9102" {
		t.Fatalf("ops section not loaded: %+v", cfg.Ops)
	}
	if cfg.Engine.MaxIssues != 50 || cfg.Engine.QuitScope != "batch" {
		t.Fatalf("engine section not loaded: %+v", cfg.Engine)
	}
	if !cfg.Engine.Correlation.Enabled || cfg.Engine.Correlation.WindowSeconds != 120 {
		t.Fatalf("correlation section not loaded: %+v", cfg.Engine.Correlation)
	}
	if !cfg.Executor.DryRun {
		t.Fatal("executor dryRun not loaded")
	}
	if cfg.Logging.Level != "debug" || !cfg.Logging.JSON {
		t.Fatalf("logging section not loaded: %+v", cfg.Logging)
	}
	// Untouched sections keep defaults.
	if cfg.History.Path == "" {
		t.Fatal("history defaults lost")
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config path")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("REMEDY_OPS_ADDRESS", ":9999")
	t.Setenv("REMEDY_QUIT_SCOPE", "batch")
	t.Setenv("REMEDY_DRY_RUN", "true")
	t.Setenv("REMEDY_HUB_BASE_URL", "http://hub.internal")
	t.Setenv("REMEDY_LOG_FORMAT", "json")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Ops.Address != ":9999" {
		t.Fatalf("ops address override missed: %q", cfg.Ops.Address)
	}
	if cfg.Engine.QuitScope != "batch" {
		t.Fatalf("quit scope override missed: %q", cfg.Engine.QuitScope)
	}
	if !cfg.Executor.DryRun {
		t.Fatal("dry run override missed")
	}
	if !cfg.Hub.Enabled || cfg.Hub.BaseURL != "http://hub.internal" {
		t.Fatalf("hub override missed: %+v", cfg.Hub)
	}
	if !cfg.Logging.JSON {
		t.Fatal("log format override missed")
	}
}
