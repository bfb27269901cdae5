package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bobmcallan/eodlake/internal/clients/eodhd"
	"github.com/bobmcallan/eodlake/internal/common"
	"github.com/bobmcallan/eodlake/internal/interfaces"
	"github.com/bobmcallan/eodlake/internal/storage"
	"github.com/bobmcallan/eodlake/internal/storage/dataset"
)

// FundamentalsFolder is the dataset that fundamentals payloads go to when no
// file name is given.
const FundamentalsFolder = "fundamentals"

// App holds the initialized fetcher, blob store and dataset store.
// It is the shared core behind cmd/eodlake.
type App struct {
	Config      *common.Config
	Logger      *common.Logger
	EODHDClient interfaces.EODHDClient
	Blobs       storage.BlobStore
	Dataset     interfaces.DatasetStore
	StartupTime time.Time
}

// getBinaryDir returns the directory containing the executable.
func getBinaryDir() string {
	exe, err := os.Executable()
	if err != nil {
		return "."
	}
	return filepath.Dir(exe)
}

// resolveConfigPath checks the provided path, EODLAKE_CONFIG, the binary
// directory and finally config/eodlake.toml.
func resolveConfigPath(configPath string) string {
	if configPath == "" {
		configPath = os.Getenv("EODLAKE_CONFIG")
	}
	if configPath == "" {
		configPath = filepath.Join(getBinaryDir(), "eodlake.toml")
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			configPath = "config/eodlake.toml"
		}
	}
	return configPath
}

// NewApp loads configuration and builds every component from it.
// configPath may be empty, in which case the default resolution logic is used.
// A missing config file is not an error; defaults and environment apply.
func NewApp(configPath string) (*App, error) {
	config, err := common.LoadConfig(resolveConfigPath(configPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return New(context.Background(), config, common.NewLoggerFromConfig(config.Logging))
}

// New builds an App from an already loaded config.
func New(ctx context.Context, config *common.Config, logger *common.Logger) (*App, error) {
	startupStart := time.Now()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if config.Clients.EODHD.APIKey == common.DemoAPIToken {
		logger.Warn().Msg("EODHD API token not configured - using the demo token, only a few tickers are served")
	}

	client := eodhd.NewClient(config.Clients.EODHD.APIKey,
		eodhd.WithBaseURL(config.Clients.EODHD.BaseURL),
		eodhd.WithLogger(logger),
		eodhd.WithRateLimit(config.Clients.EODHD.RateLimit),
		eodhd.WithTimeout(config.Clients.EODHD.GetTimeout()),
	)

	blobs, err := storage.NewBlobStore(ctx, logger, storage.BlobStoreConfigFrom(config.Storage))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	store, err := dataset.NewStoreFromConfig(blobs, logger, config.Storage)
	if err != nil {
		blobs.Close()
		return nil, fmt.Errorf("failed to initialize dataset store: %w", err)
	}

	a := &App{
		Config:      config,
		Logger:      logger,
		EODHDClient: client,
		Blobs:       blobs,
		Dataset:     store,
		StartupTime: startupStart,
	}

	logger.Info().
		Str("storage", config.Storage.Location()).
		Str("partition_by", config.Storage.PartitionBy).
		Dur("startup", time.Since(startupStart)).
		Msg("App initialized")

	return a, nil
}

// Close releases all resources held by the App.
func (a *App) Close() {
	if a.Blobs != nil {
		a.Blobs.Close()
		a.Blobs = nil
	}
}
