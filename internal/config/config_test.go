package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTmpConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yml")
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("write tmp config: %v", err)
	}
	return p
}

func TestLoadValidConfig(t *testing.T) {
	cfg, err := Load(writeTmpConfig(t, `
pipebase:
  manifest:
    path: "graph.yaml"
  log:
    level: "debug"
    format: "json"
  metrics:
    enabled: true
    listen: "0.0.0.0:9090"
    path: "/metrics"
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Manifest.Path != "graph.yaml" {
		t.Errorf("Manifest.Path = %q, want graph.yaml", cfg.Manifest.Path)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
	if cfg.Metrics.Listen != "0.0.0.0:9090" {
		t.Errorf("Metrics.Listen = %q, want 0.0.0.0:9090", cfg.Metrics.Listen)
	}
}

func TestLoadInvalidLogLevel(t *testing.T) {
	_, err := Load(writeTmpConfig(t, `
pipebase:
  log:
    level: "invalid"
    format: "json"
`))
	if err == nil {
		t.Fatal("expected error for invalid log level")
	}
	if !strings.Contains(err.Error(), "invalid log level") {
		t.Errorf("error = %v, want 'invalid log level'", err)
	}
}

func TestLoadInvalidLogFormat(t *testing.T) {
	_, err := Load(writeTmpConfig(t, `
pipebase:
  log:
    level: "info"
    format: "invalid"
`))
	if err == nil {
		t.Fatal("expected error for invalid log format")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeTmpConfig(t, `
pipebase:
  manifest:
    path: "graph.yaml"
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q, want json", cfg.Log.Format)
	}
	if !cfg.Metrics.Enabled {
		t.Error("Metrics.Enabled = false, want true")
	}
	if cfg.Metrics.Listen != ":9091" {
		t.Errorf("Metrics.Listen = %q, want :9091", cfg.Metrics.Listen)
	}
	if cfg.Runtime.DefaultBufferSize != 1024 {
		t.Errorf("Runtime.DefaultBufferSize = %d, want 1024", cfg.Runtime.DefaultBufferSize)
	}
	if cfg.Runtime.ErrorBufferSize != 256 {
		t.Errorf("Runtime.ErrorBufferSize = %d, want 256", cfg.Runtime.ErrorBufferSize)
	}
	if !cfg.Observer.Ingest.Enabled || cfg.Observer.Ingest.Listen != ":8080" {
		t.Errorf("Observer.Ingest = %+v, want enabled on :8080", cfg.Observer.Ingest)
	}
	if !cfg.Observer.Context.Enabled || cfg.Observer.Context.Listen != ":8081" {
		t.Errorf("Observer.Context = %+v, want enabled on :8081", cfg.Observer.Context)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("PIPEBASE_LOG_LEVEL", "debug")

	cfg, err := Load(writeTmpConfig(t, `
pipebase:
  manifest:
    path: "graph.yaml"
  log:
    level: "info"
    format: "json"
`))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug (from env)", cfg.Log.Level)
	}
}

func TestLoadMissingManifestPath(t *testing.T) {
	_, err := Load(writeTmpConfig(t, `
pipebase:
  manifest:
    path: ""
`))
	if err == nil {
		t.Fatal("expected error for empty manifest path")
	}
	if !strings.Contains(err.Error(), "manifest.path") {
		t.Errorf("error = %v, want mention of manifest.path", err)
	}
}
