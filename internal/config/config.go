package config

import (
	"encoding/json"
	"fmt"
)

// Config represents the main clawspace configuration
type Config struct {
	// Data directory (defaults to ~/.clawspace)
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`

	// Directory that holds one subdirectory per workspace
	WorkspacesDir string `json:"workspaces_dir" yaml:"workspaces_dir" mapstructure:"workspaces_dir"`

	// SQLite database holding workspace records
	DatabasePath string `json:"database_path" yaml:"database_path" mapstructure:"database_path"`

	// Agent binary discovery
	Binary BinaryConfig `json:"binary" yaml:"binary" mapstructure:"binary"`

	// Logging
	Logging LoggingConfig `json:"logging" yaml:"logging" mapstructure:"logging"`

	// Metrics endpoint
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`

	// Tracing
	Tracing TracingConfig `json:"tracing" yaml:"tracing" mapstructure:"tracing"`

	// Version snapshots of workspace files
	Snapshots SnapshotsConfig `json:"snapshots" yaml:"snapshots" mapstructure:"snapshots"`
}

// BinaryConfig holds agent binary discovery settings
type BinaryConfig struct {
	Path       string `json:"path" yaml:"path" mapstructure:"path"`                      // explicit default path, still overridden by PICOCLAW_BINARY
	AppRoot    string `json:"app_root" yaml:"app_root" mapstructure:"app_root"`          // base for the bin/picoclaw default
	MinVersion string `json:"min_version" yaml:"min_version" mapstructure:"min_version"` // semver constraint, e.g. ">= 0.2.0"
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level" mapstructure:"level"`
	File       string `json:"file" yaml:"file" mapstructure:"file"`
	Console    bool   `json:"console" yaml:"console" mapstructure:"console"`
	Pretty     bool   `json:"pretty" yaml:"pretty" mapstructure:"pretty"`
	Redact     bool   `json:"redact" yaml:"redact" mapstructure:"redact"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `json:"compress" yaml:"compress" mapstructure:"compress"`
}

// MetricsConfig holds Prometheus endpoint configuration
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" yaml:"addr" mapstructure:"addr"`
}

// TracingConfig holds OpenTelemetry configuration
type TracingConfig struct {
	Enabled     bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`
}

// SnapshotsConfig controls git-backed workspace history
type SnapshotsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	GitPath string `json:"git_path" yaml:"git_path" mapstructure:"git_path"`
}

// DefaultConfig returns a config with default values
func DefaultConfig() *Config {
	return &Config{
		Binary: BinaryConfig{
			AppRoot: ".",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Console:    true,
			Pretty:     true,
			Redact:     true,
			MaxSizeMB:  50,
			MaxAgeDays: 14,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    "127.0.0.1:9464",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "clawspace",
		},
		Snapshots: SnapshotsConfig{
			Enabled: true,
			GitPath: "git",
		},
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks that the configuration is usable
func (c *Config) Validate() error {
	errs := NewValidator().ValidateConfig(c)
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("invalid configuration: %w", errs[0])
}
