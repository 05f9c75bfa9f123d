// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// GlobalConfig represents the top-level static configuration for a pipebase
// runtime process. Maps to the `pipebase:` root key in YAML.
type GlobalConfig struct {
	Manifest ManifestConfig `mapstructure:"manifest"`
	Runtime  RuntimeConfig  `mapstructure:"runtime"`
	Observer ObserverConfig `mapstructure:"observer"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// ManifestConfig points at the graph definition to bootstrap.
type ManifestConfig struct {
	Path string `mapstructure:"path"`
}

// RuntimeConfig controls defaults applied to pipes that don't set their own.
type RuntimeConfig struct {
	DefaultBufferSize int    `mapstructure:"default_buffer_size"`
	ErrorBufferSize   int    `mapstructure:"error_buffer_size"`
	ContextPrintEvery string `mapstructure:"context_print_every"` // e.g. "5s"
}

// ─── Observer (ingestion + context HTTP servers) ───

// ObserverConfig configures the two observability HTTP servers.
type ObserverConfig struct {
	Ingest  IngestServerConfig  `mapstructure:"ingest"`
	Context ContextServerConfig `mapstructure:"context"`
}

// IngestServerConfig configures the ingestion server (/v1/ingest, /v1/pause, ...).
type IngestServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// ContextServerConfig configures the context inspection server (/v1/pipe, ...).
type ContextServerConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Listen  string `mapstructure:"listen"`
	Path    string `mapstructure:"path"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string         `mapstructure:"level"`  // debug / info / warn / error
	Format  string         `mapstructure:"format"` // json / text
	Outputs []OutputConfig `mapstructure:"outputs"`
}

// OutputConfig describes a single log output sink. Type selects which of the
// remaining fields apply: "console"/"stdout" (none), "file" (Path + rotation
// fields), "loki" (Endpoint/Labels/BatchSize/FlushInterval).
type OutputConfig struct {
	Type string `mapstructure:"type"`

	// file
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`

	// loki
	Endpoint      string            `mapstructure:"endpoint"`
	Labels        map[string]string `mapstructure:"labels"`
	BatchSize     int               `mapstructure:"batch_size"`
	FlushInterval string            `mapstructure:"flush_interval"`
}

// ─── Loading ───

// configRoot is the top-level wrapper matching the YAML structure `pipebase: ...`.
type configRoot struct {
	Pipebase GlobalConfig `mapstructure:"pipebase"`
}

// Load loads configuration from file. The YAML file uses `pipebase:` as root
// key; env vars use PIPEBASE_ prefix (e.g. PIPEBASE_LOG_LEVEL).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Pipebase

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default values for configuration. All keys use the
// "pipebase." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	v.SetDefault("pipebase.manifest.path", "manifest.yaml")

	v.SetDefault("pipebase.runtime.default_buffer_size", 1024)
	v.SetDefault("pipebase.runtime.error_buffer_size", 256)
	v.SetDefault("pipebase.runtime.context_print_every", "5s")

	v.SetDefault("pipebase.observer.ingest.enabled", true)
	v.SetDefault("pipebase.observer.ingest.listen", ":8080")
	v.SetDefault("pipebase.observer.context.enabled", true)
	v.SetDefault("pipebase.observer.context.listen", ":8081")

	v.SetDefault("pipebase.metrics.enabled", true)
	v.SetDefault("pipebase.metrics.listen", ":9091")
	v.SetDefault("pipebase.metrics.path", "/metrics")

	v.SetDefault("pipebase.log.level", "info")
	v.SetDefault("pipebase.log.format", "json")
}

// ValidateAndApplyDefaults validates configuration and applies runtime defaults.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error)", cfg.Log.Level)
	}
	if cfg.Log.Format != "json" && cfg.Log.Format != "text" {
		return fmt.Errorf("invalid log format: %s (must be json/text)", cfg.Log.Format)
	}

	if cfg.Manifest.Path == "" {
		return fmt.Errorf("manifest.path is required")
	}

	if cfg.Runtime.DefaultBufferSize <= 0 {
		cfg.Runtime.DefaultBufferSize = 1024
	}
	if cfg.Runtime.ErrorBufferSize <= 0 {
		cfg.Runtime.ErrorBufferSize = 256
	}

	return nil
}
