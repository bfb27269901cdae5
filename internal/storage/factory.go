package storage

import (
	"context"
	"fmt"

	"github.com/bobmcallan/eodlake/internal/common"
)

// Backend type constants.
const (
	BackendFile = "file"
	BackendS3   = "s3"
)

// NewBlobStore creates a blob store based on the configuration.
// Supported backends: "file" (default), "s3".
func NewBlobStore(ctx context.Context, logger *common.Logger, config *BlobStoreConfig) (BlobStore, error) {
	backend := config.Backend
	if backend == "" {
		backend = BackendFile
	}

	switch backend {
	case BackendFile:
		return NewFileBlobStore(logger, &config.File)

	case BackendS3:
		return NewS3BlobStore(ctx, logger, &config.S3)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s (supported: file, s3)", backend)
	}
}

// BlobStoreConfigFrom maps the application storage section onto a BlobStoreConfig.
func BlobStoreConfigFrom(cfg common.StorageConfig) *BlobStoreConfig {
	return &BlobStoreConfig{
		Backend: cfg.Backend,
		File:    FileBlobConfig{BasePath: cfg.File.Path},
		S3: S3BlobConfig{
			Bucket:    cfg.S3.Bucket,
			Prefix:    cfg.S3.Prefix,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
		},
	}
}
