// Package config loads pkggate configuration from file, environment
// variables, and defaults. Field tags use mapstructure for viper
// unmarshalling.
package config

import (
	"errors"
	"log/slog"
	"net/url"
)

// Config is the top-level configuration struct for pkggate.
type Config struct {
	Registry RegistryConfig `mapstructure:"registry"`
	Pipeline PipelineConfig `mapstructure:"pipeline"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Log      LogConfig      `mapstructure:"log"`
}

// RegistryConfig identifies the registry the binary publishes for.
type RegistryConfig struct {
	URL string `mapstructure:"url"`
}

// PipelineConfig holds analysis resource knobs.
type PipelineConfig struct {
	// Workers bounds module loads in flight within one graph build.
	Workers int `mapstructure:"workers"`

	// Runs bounds how many package versions are analyzed concurrently.
	Runs int `mapstructure:"runs"`

	// BlobCacheSize bounds the per-run source cache used by rebuilds.
	BlobCacheSize int `mapstructure:"blob_cache_size"`
}

// StorageConfig holds S3-compatible object storage settings used by
// tarball rebuilds.
type StorageConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// MetricsConfig holds the optional diagnostics endpoint settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Defaults applied before file and environment values.
const (
	DefaultRegistryURL     = "https://pkggate.dev"
	DefaultPipelineWorkers = 8
	DefaultPipelineRuns    = 4
	DefaultBlobCacheSize   = 256
	DefaultMetricsAddr     = "127.0.0.1:9464"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "text"
)

// Sentinel errors for configuration validation.
var (
	// ErrInvalidWorkers indicates the workers value is negative.
	ErrInvalidWorkers = errors.New("pipeline.workers must be non-negative")
	// ErrInvalidRuns indicates the runs value is negative.
	ErrInvalidRuns = errors.New("pipeline.runs must be non-negative")
	// ErrInvalidBlobCacheSize indicates the blob cache size is negative.
	ErrInvalidBlobCacheSize = errors.New("pipeline.blob_cache_size must be non-negative")
	// ErrInvalidRegistryURL indicates the registry URL is not absolute http(s).
	ErrInvalidRegistryURL = errors.New("registry.url must be an absolute http(s) URL")
	// ErrInvalidLogLevel indicates an unknown log level name.
	ErrInvalidLogLevel = errors.New("log.level must be one of debug, info, warn, error")
	// ErrInvalidLogFormat indicates an unknown log format name.
	ErrInvalidLogFormat = errors.New("log.format must be text or json")
)

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	pipelineErr := c.validatePipeline()
	if pipelineErr != nil {
		return pipelineErr
	}

	if err := validateRegistryURL(c.Registry.URL); err != nil {
		return err
	}

	return c.validateLog()
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.Workers < 0 {
		return ErrInvalidWorkers
	}

	if c.Pipeline.Runs < 0 {
		return ErrInvalidRuns
	}

	if c.Pipeline.BlobCacheSize < 0 {
		return ErrInvalidBlobCacheSize
	}

	return nil
}

func (c *Config) validateLog() error {
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}

	switch c.Log.Format {
	case "", "text", "json":
		return nil
	default:
		return ErrInvalidLogFormat
	}
}

func validateRegistryURL(raw string) error {
	if raw == "" {
		return nil
	}

	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ErrInvalidRegistryURL
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidRegistryURL
	}

	return nil
}

// SlogLevel maps the configured level name onto a slog level. An empty
// name selects info.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch l.Level {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, ErrInvalidLogLevel
	}
}

// JSONLogs reports whether the configured format selects JSON output.
func (l LogConfig) JSONLogs() bool { return l.Format == "json" }
