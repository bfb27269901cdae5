package storage

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bobmcallan/eodlake/internal/common"
)

const defaultMaxKeys = 1000

// FileBlobStore implements BlobStore using the local filesystem.
// Keys are mapped to file paths under the base directory.
// Key format: "raw-data/AAPL.US/year=2023/0b1e....csv" -> "{basePath}/raw-data/AAPL.US/year=2023/0b1e....csv"
type FileBlobStore struct {
	basePath string
	logger   *common.Logger
}

// NewFileBlobStore creates a new file-based blob store.
func NewFileBlobStore(logger *common.Logger, config *FileBlobConfig) (*FileBlobStore, error) {
	if config.BasePath == "" {
		return nil, fmt.Errorf("file blob store base_path is required")
	}

	if err := os.MkdirAll(config.BasePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory %s: %w", config.BasePath, err)
	}

	fb := &FileBlobStore{
		basePath: config.BasePath,
		logger:   logger,
	}

	logger.Debug().Str("path", config.BasePath).Msg("FileBlobStore initialized")
	return fb, nil
}

// sanitizeKey converts a key to a safe relative filesystem path.
func (fb *FileBlobStore) sanitizeKey(key string) string {
	clean := filepath.Clean("/" + filepath.FromSlash(key))
	clean = strings.TrimPrefix(clean, string(filepath.Separator))
	if strings.Contains(clean, "..") {
		clean = strings.ReplaceAll(clean, "..", "__")
	}
	return clean
}

// keyToPath converts a key to an absolute filesystem path.
func (fb *FileBlobStore) keyToPath(key string) string {
	return filepath.Join(fb.basePath, fb.sanitizeKey(key))
}

// Get retrieves a blob by key.
func (fb *FileBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(fb.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}

// GetReader returns a reader for streaming large blobs.
func (fb *FileBlobStore) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(fb.keyToPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to open blob %s: %w", key, err)
	}
	return f, nil
}

// Put stores a blob atomically using temp file + rename.
func (fb *FileBlobStore) Put(ctx context.Context, key string, data []byte) error {
	return fb.PutReader(ctx, key, bytes.NewReader(data), int64(len(data)))
}

// PutReader stores a blob from a reader atomically.
func (fb *FileBlobStore) PutReader(ctx context.Context, key string, r io.Reader, size int64) error {
	path := fb.keyToPath(key)
	dir := filepath.Dir(path)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := io.Copy(tmpFile, r); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Delete removes a blob. No error if not found.
func (fb *FileBlobStore) Delete(ctx context.Context, key string) error {
	err := os.Remove(fb.keyToPath(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

// Exists checks if a blob exists.
func (fb *FileBlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(fb.keyToPath(key))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check blob %s: %w", key, err)
}

// Metadata returns metadata for a blob.
func (fb *FileBlobStore) Metadata(ctx context.Context, key string) (*BlobMetadata, error) {
	path := fb.keyToPath(key)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to stat blob %s: %w", key, err)
	}

	// ETag mirrors S3's MD5 of the content
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob for etag %s: %w", key, err)
	}
	hash := md5.Sum(data)

	return &BlobMetadata{
		Key:          key,
		Size:         info.Size(),
		ContentType:  contentType(key),
		LastModified: info.ModTime(),
		ETag:         hex.EncodeToString(hash[:]),
	}, nil
}

// List returns blobs matching the given options in key order. The cursor is
// the last key of the previous page.
func (fb *FileBlobStore) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	searchDir := fb.basePath
	prefix := opts.Prefix

	// Start the walk from the deepest directory named by the prefix
	if prefix != "" {
		prefixDir := filepath.Dir(filepath.FromSlash(prefix))
		if strings.HasSuffix(prefix, "/") {
			prefixDir = filepath.FromSlash(strings.TrimSuffix(prefix, "/"))
		}
		if prefixDir != "." {
			searchDir = filepath.Join(fb.basePath, fb.sanitizeKey(prefixDir))
		}
	}

	maxKeys := opts.MaxKeys
	if maxKeys <= 0 {
		maxKeys = defaultMaxKeys
	}

	var blobs []BlobMetadata
	err := filepath.Walk(searchDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // Skip inaccessible paths
		}
		if info.IsDir() || strings.HasPrefix(info.Name(), ".tmp-") {
			return nil
		}

		relPath, err := filepath.Rel(fb.basePath, path)
		if err != nil {
			return nil
		}
		key := filepath.ToSlash(relPath)

		if prefix != "" && !strings.HasPrefix(key, prefix) {
			return nil
		}
		if opts.Cursor != "" && key <= opts.Cursor {
			return nil
		}

		blobs = append(blobs, BlobMetadata{
			Key:          key,
			Size:         info.Size(),
			LastModified: info.ModTime(),
		})
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to list blobs: %w", err)
	}

	sort.Slice(blobs, func(i, j int) bool { return blobs[i].Key < blobs[j].Key })

	result := &ListResult{Blobs: blobs}
	if len(blobs) > maxKeys {
		result.Blobs = blobs[:maxKeys]
		result.Truncated = true
		result.NextCursor = blobs[maxKeys-1].Key
	}
	return result, nil
}

// Close releases resources (no-op for file storage).
func (fb *FileBlobStore) Close() error {
	return nil
}

var _ BlobStore = (*FileBlobStore)(nil)
