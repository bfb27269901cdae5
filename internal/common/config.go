package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// DemoAPIToken is the public EODHD demo token used when no token is configured.
// It only serves a handful of tickers (AAPL.US, MSFT.US, ...).
const DemoAPIToken = "demo"

// Config holds all configuration for eodlake
type Config struct {
	Environment string        `toml:"environment"`
	Clients     ClientsConfig `toml:"clients"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
}

// ClientsConfig holds API client configurations
type ClientsConfig struct {
	EODHD EODHDConfig `toml:"eodhd"`
}

// EODHDConfig holds EODHD API configuration
type EODHDConfig struct {
	BaseURL   string `toml:"base_url"`
	APIKey    string `toml:"api_key"`
	RateLimit int    `toml:"rate_limit"` // requests per second, 0 disables limiting
	Timeout   string `toml:"timeout"`
}

// GetTimeout parses and returns the timeout duration
func (c *EODHDConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// StorageConfig holds the object storage configuration for the raw-data layer.
type StorageConfig struct {
	Backend     string     `toml:"backend"`      // "file" or "s3"
	Prefix      string     `toml:"prefix"`       // dataset root inside the bucket
	PartitionBy string     `toml:"partition_by"` // "year", "month" or "none"
	File        FileConfig `toml:"file"`
	S3          S3Config   `toml:"s3"`
}

// Location returns a human readable address of the configured dataset root.
func (c *StorageConfig) Location() string {
	if c.Backend == "s3" {
		return fmt.Sprintf("s3://%s/%s", c.S3.Bucket, c.Prefix)
	}
	return fmt.Sprintf("file://%s/%s", c.File.Path, c.Prefix)
}

// FileConfig holds local filesystem storage configuration
type FileConfig struct {
	Path string `toml:"path"`
}

// S3Config holds AWS S3 configuration
type S3Config struct {
	Bucket    string `toml:"bucket"`
	Prefix    string `toml:"prefix"`   // Optional key prefix within bucket
	Region    string `toml:"region"`   // AWS region (e.g., "us-east-1")
	Endpoint  string `toml:"endpoint"` // Custom endpoint for S3-compatible stores (MinIO, R2)
	AccessKey string `toml:"access_key"`
	SecretKey string `toml:"secret_key"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // "console" or "json"
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Clients: ClientsConfig{
			EODHD: EODHDConfig{
				BaseURL: "https://eodhd.com/api",
				Timeout: "30s",
			},
		},
		Storage: StorageConfig{
			Backend:     "file",
			Prefix:      "raw-data",
			PartitionBy: "year",
			File:        FileConfig{Path: "data"},
			S3:          S3Config{Region: "us-east-1"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("EODLAKE_ENV"); env != "" {
		config.Environment = env
	}

	if level := os.Getenv("EODLAKE_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	if v := os.Getenv("EODLAKE_EODHD_BASE_URL"); v != "" {
		config.Clients.EODHD.BaseURL = v
	}
	if v := os.Getenv("EODLAKE_EODHD_RATE_LIMIT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Clients.EODHD.RateLimit = n
		}
	}
	config.Clients.EODHD.APIKey = ResolveAPIKey(config.Clients.EODHD.APIKey)

	if v := os.Getenv("EODLAKE_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("EODLAKE_DATA_PATH"); v != "" {
		config.Storage.File.Path = v
	}
	if v := os.Getenv("EODLAKE_PARTITION_BY"); v != "" {
		config.Storage.PartitionBy = strings.ToLower(v)
	}

	// S3 overrides use the standard AWS variable names where one exists
	if v := os.Getenv("EODLAKE_BUCKET"); v != "" {
		config.Storage.S3.Bucket = v
	}
	if v := os.Getenv("EODLAKE_S3_ENDPOINT"); v != "" {
		config.Storage.S3.Endpoint = v
	}
	if v := os.Getenv("AWS_REGION"); v != "" {
		config.Storage.S3.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		config.Storage.S3.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		config.Storage.S3.SecretKey = v
	}
}

// ResolveAPIKey resolves the EODHD token.
// Priority: EOD_API_TOKEN env > EODHD_API_KEY env > configured value > demo token.
func ResolveAPIKey(configured string) string {
	for _, name := range []string{"EOD_API_TOKEN", "EODHD_API_KEY"} {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	if configured != "" {
		return configured
	}
	return DemoAPIToken
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}

// Validate checks that the values needed to build the pipeline are present.
func (c *Config) Validate() error {
	if c.Clients.EODHD.BaseURL == "" {
		return fmt.Errorf("clients.eodhd.base_url is required")
	}
	if c.Storage.Prefix == "" {
		return fmt.Errorf("storage.prefix is required")
	}
	switch c.Storage.PartitionBy {
	case "year", "month", "none":
	default:
		return fmt.Errorf("storage.partition_by must be one of year, month, none (got %q)", c.Storage.PartitionBy)
	}
	switch c.Storage.Backend {
	case "file":
		if c.Storage.File.Path == "" {
			return fmt.Errorf("storage.file.path is required for the file backend")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend: %s (supported: file, s3)", c.Storage.Backend)
	}
	if c.IsProduction() && c.Clients.EODHD.APIKey == DemoAPIToken {
		return fmt.Errorf("clients.eodhd.api_key must not be the demo token in production")
	}
	return nil
}
