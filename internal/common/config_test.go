package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearTokenEnv(t *testing.T) {
	t.Helper()
	t.Setenv("EOD_API_TOKEN", "")
	t.Setenv("EODHD_API_KEY", "")
}

func TestConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	assert.Equal(t, "https://eodhd.com/api", cfg.Clients.EODHD.BaseURL)
	assert.Equal(t, "raw-data", cfg.Storage.Prefix)
	assert.Equal(t, "year", cfg.Storage.PartitionBy)
	assert.Equal(t, "file", cfg.Storage.Backend)
	assert.Equal(t, 0, cfg.Clients.EODHD.RateLimit)
}

func TestConfig_GetTimeout(t *testing.T) {
	c := EODHDConfig{Timeout: "5s"}
	assert.Equal(t, 5*time.Second, c.GetTimeout())

	c.Timeout = "bogus"
	assert.Equal(t, 30*time.Second, c.GetTimeout())
}

func TestResolveAPIKey_Priority(t *testing.T) {
	clearTokenEnv(t)
	assert.Equal(t, DemoAPIToken, ResolveAPIKey(""))
	assert.Equal(t, "from-config", ResolveAPIKey("from-config"))

	t.Setenv("EODHD_API_KEY", "from-eodhd-env")
	assert.Equal(t, "from-eodhd-env", ResolveAPIKey("from-config"))

	t.Setenv("EOD_API_TOKEN", "from-eod-env")
	assert.Equal(t, "from-eod-env", ResolveAPIKey("from-config"))
}

func TestConfig_EnvOverrides(t *testing.T) {
	clearTokenEnv(t)
	t.Setenv("EODLAKE_STORAGE_BACKEND", "S3")
	t.Setenv("EODLAKE_BUCKET", "analytics-raw")
	t.Setenv("EODLAKE_S3_ENDPOINT", "http://localhost:9000")
	t.Setenv("AWS_ACCESS_KEY_ID", "AKIA")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "secret")
	t.Setenv("AWS_REGION", "ap-southeast-2")
	t.Setenv("EODLAKE_EODHD_RATE_LIMIT", "5")
	t.Setenv("EODLAKE_PARTITION_BY", "month")

	cfg := NewDefaultConfig()
	applyEnvOverrides(cfg)

	assert.Equal(t, "s3", cfg.Storage.Backend)
	assert.Equal(t, "analytics-raw", cfg.Storage.S3.Bucket)
	assert.Equal(t, "http://localhost:9000", cfg.Storage.S3.Endpoint)
	assert.Equal(t, "AKIA", cfg.Storage.S3.AccessKey)
	assert.Equal(t, "secret", cfg.Storage.S3.SecretKey)
	assert.Equal(t, "ap-southeast-2", cfg.Storage.S3.Region)
	assert.Equal(t, 5, cfg.Clients.EODHD.RateLimit)
	assert.Equal(t, "month", cfg.Storage.PartitionBy)
	assert.Equal(t, DemoAPIToken, cfg.Clients.EODHD.APIKey)
	assert.Equal(t, "s3://analytics-raw/raw-data", cfg.Storage.Location())
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	clearTokenEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "eodlake.toml")
	content := `
environment = "staging"

[clients.eodhd]
api_key = "file-key"
timeout = "10s"

[storage]
backend = "file"
partition_by = "none"

[storage.file]
path = "/tmp/lake"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path, filepath.Join(dir, "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, "file-key", cfg.Clients.EODHD.APIKey)
	assert.Equal(t, 10*time.Second, cfg.Clients.EODHD.GetTimeout())
	assert.Equal(t, "none", cfg.Storage.PartitionBy)
	assert.Equal(t, "/tmp/lake", cfg.Storage.File.Path)
	// untouched keys keep their defaults
	assert.Equal(t, "raw-data", cfg.Storage.Prefix)

	t.Setenv("EOD_API_TOKEN", "env-key")
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Clients.EODHD.APIKey)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("[storage\nbackend="), 0644))

	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Clients.EODHD.APIKey = DemoAPIToken
	require.NoError(t, cfg.Validate())

	cfg.Storage.PartitionBy = "day"
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Storage.Backend = "s3"
	assert.Error(t, cfg.Validate(), "s3 without bucket")
	cfg.Storage.S3.Bucket = "b"
	assert.NoError(t, cfg.Validate())

	cfg.Storage.Backend = "gcs"
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Environment = "production"
	cfg.Clients.EODHD.APIKey = DemoAPIToken
	assert.Error(t, cfg.Validate())
}
