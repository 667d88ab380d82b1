package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Watcher.DebounceMS != 250 {
		t.Fatalf("expected default debounce 250ms, got %d", cfg.Watcher.DebounceMS)
	}
	if cfg.Jobs.Workers != 4 {
		t.Fatalf("expected default job workers 4, got %d", cfg.Jobs.Workers)
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	contents := "watcher:\n  debounce_ms: 500\njobs:\n  workers: 8\nadmin:\n  enabled: true\n"
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Watcher.DebounceMS != 500 {
		t.Fatalf("expected overridden debounce 500ms, got %d", cfg.Watcher.DebounceMS)
	}
	if cfg.Jobs.Workers != 8 {
		t.Fatalf("expected overridden job workers 8, got %d", cfg.Jobs.Workers)
	}
	if !cfg.Admin.Enabled {
		t.Fatalf("expected admin.enabled true")
	}
}
