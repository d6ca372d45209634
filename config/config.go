// Package config loads deployment configuration.
//
// Values are layered: built-in defaults, then an optional YAML file, then
// .env files, then ANNKIT_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/hupe1980/annkit/codec"
	"github.com/hupe1980/annkit/resource"
)

// EnvPrefix is the prefix of all environment variables.
const EnvPrefix = "ANNKIT"

// Limit option names used by the registration table.
const (
	GPUConcurrentSize = "gpu_concurrent_size"
	CPUConcurrentSize = "cpu_concurrent_size"
)

var (
	ErrInvalidLogLevel  = errors.New("invalid log level")
	ErrInvalidLogFormat = errors.New("invalid log format")
	ErrInvalidLimit     = errors.New("concurrency limit must be >= 0")
	ErrInvalidBackend   = errors.New("invalid backend")
	ErrMissingBucket    = errors.New("blob bucket is required")
	ErrInvalidIOLimit   = errors.New("io limit must be >= 0")
)

// Config holds deployment settings.
type Config struct {
	LogLevel  string `envconfig:"LOG_LEVEL" yaml:"log_level"`
	LogFormat string `envconfig:"LOG_FORMAT" yaml:"log_format"`

	// GPUConcurrentSize bounds concurrent Build/Search calls per accelerator index.
	GPUConcurrentSize int `envconfig:"GPU_CONCURRENT_SIZE" yaml:"gpu_concurrent_size"`
	// CPUConcurrentSize bounds CPU indexes. 0 leaves them unwrapped.
	CPUConcurrentSize int `envconfig:"CPU_CONCURRENT_SIZE" yaml:"cpu_concurrent_size"`
	// SlotPolicy is "block" or "failfast".
	SlotPolicy string `envconfig:"SLOT_POLICY" yaml:"slot_policy"`

	BlobBackend    string `envconfig:"BLOB_BACKEND" yaml:"blob_backend"` // memory, local, s3, minio
	BlobRoot       string `envconfig:"BLOB_ROOT" yaml:"blob_root"`       // directory or key prefix
	BlobBucket     string `envconfig:"BLOB_BUCKET" yaml:"blob_bucket"`
	MinioEndpoint  string `envconfig:"MINIO_ENDPOINT" yaml:"minio_endpoint"`
	MinioAccessKey string `envconfig:"MINIO_ACCESS_KEY" yaml:"minio_access_key"`
	MinioSecretKey string `envconfig:"MINIO_SECRET_KEY" yaml:"minio_secret_key"`
	MinioSecure    bool   `envconfig:"MINIO_SECURE" yaml:"minio_secure"`

	CatalogBackend string `envconfig:"CATALOG_BACKEND" yaml:"catalog_backend"` // memory, dynamodb
	CatalogTable   string `envconfig:"CATALOG_TABLE" yaml:"catalog_table"`

	Compression        string `envconfig:"COMPRESSION" yaml:"compression"`
	IOLimitBytesPerSec int64  `envconfig:"IO_LIMIT_BYTES_PER_SEC" yaml:"io_limit_bytes_per_sec"`
}

// Default returns the built-in defaults.
func Default() Config {
	return Config{
		LogLevel:          "info",
		LogFormat:         "text",
		GPUConcurrentSize: 1,
		SlotPolicy:        "block",
		BlobBackend:       "memory",
		BlobRoot:          "annkit",
		CatalogBackend:    "memory",
		CatalogTable:      "annkit-catalog",
		Compression:       "zstd",
	}
}

// LoadOptions selects the files read by Load.
type LoadOptions struct {
	// File is an optional YAML file.
	File string
	// EnvFiles are .env files; missing files are ignored.
	EnvFiles []string
}

// Load builds a Config from defaults, the YAML file, .env files and the
// environment, then validates it.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", opts.File, err)
		}
	}

	for _, f := range opts.EnvFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks all fields.
func (c Config) Validate() error {
	var errs []error
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidLogFormat, c.LogFormat))
	}
	if c.GPUConcurrentSize < 0 {
		errs = append(errs, fmt.Errorf("%w: %s=%d", ErrInvalidLimit, GPUConcurrentSize, c.GPUConcurrentSize))
	}
	if c.CPUConcurrentSize < 0 {
		errs = append(errs, fmt.Errorf("%w: %s=%d", ErrInvalidLimit, CPUConcurrentSize, c.CPUConcurrentSize))
	}
	if _, err := c.Policy(); err != nil {
		errs = append(errs, err)
	}
	switch c.BlobBackend {
	case "memory", "local":
	case "s3", "minio":
		if c.BlobBucket == "" {
			errs = append(errs, fmt.Errorf("%w for %s", ErrMissingBucket, c.BlobBackend))
		}
	default:
		errs = append(errs, fmt.Errorf("%w: blob %q", ErrInvalidBackend, c.BlobBackend))
	}
	switch c.CatalogBackend {
	case "memory", "dynamodb":
	default:
		errs = append(errs, fmt.Errorf("%w: catalog %q", ErrInvalidBackend, c.CatalogBackend))
	}
	if _, err := codec.ParseCompression(c.Compression); err != nil {
		errs = append(errs, err)
	}
	if c.IOLimitBytesPerSec < 0 {
		errs = append(errs, ErrInvalidIOLimit)
	}
	return errors.Join(errs...)
}

// Limits returns the concurrency limit per limit option name.
func (c Config) Limits() map[string]int {
	return map[string]int{
		GPUConcurrentSize: c.GPUConcurrentSize,
		CPUConcurrentSize: c.CPUConcurrentSize,
	}
}

// Policy parses SlotPolicy.
func (c Config) Policy() (resource.Policy, error) {
	return resource.ParsePolicy(c.SlotPolicy)
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return l, nil
}
