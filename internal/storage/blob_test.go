package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bobmcallan/eodlake/internal/common"
)

func newTestFileStore(t *testing.T) (*FileBlobStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := NewFileBlobStore(common.NewSilentLogger(), &FileBlobConfig{BasePath: dir})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store, dir
}

func TestFileBlobStore_PutGet(t *testing.T) {
	store, dir := newTestFileStore(t)
	ctx := context.Background()

	key := "raw-data/AAPL.US/year=2023/part.csv"
	data := []byte("Date,Close\n2023-01-03,125.07\n")
	require.NoError(t, store.Put(ctx, key, data))

	got, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.FileExists(t, filepath.Join(dir, "raw-data", "AAPL.US", "year=2023", "part.csv"))

	r, err := store.GetReader(ctx, key)
	require.NoError(t, err)
	defer r.Close()
}

func TestFileBlobStore_NotFound(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()

	_, err := store.Get(ctx, "raw-data/missing.csv")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	_, err = store.GetReader(ctx, "raw-data/missing.csv")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	_, err = store.Metadata(ctx, "raw-data/missing.csv")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	exists, err := store.Exists(ctx, "raw-data/missing.csv")
	require.NoError(t, err)
	assert.False(t, exists)

	assert.NoError(t, store.Delete(ctx, "raw-data/missing.csv"))
}

func TestFileBlobStore_DeleteAndExists(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()
	key := "raw-data/SPY.US/part.csv"

	require.NoError(t, store.Put(ctx, key, []byte("x")))
	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, key))
	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFileBlobStore_Metadata(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()
	key := "raw-data/AAPL.US/part.csv"
	data := []byte("Date,Close\n")
	require.NoError(t, store.Put(ctx, key, data))

	meta, err := store.Metadata(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, key, meta.Key)
	assert.Equal(t, int64(len(data)), meta.Size)
	assert.Len(t, meta.ETag, 32)
	assert.True(t, strings.HasPrefix(meta.ContentType, "text/csv"), meta.ContentType)
	assert.False(t, meta.LastModified.IsZero())
}

func TestFileBlobStore_ListPrefixAndOrder(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()

	keys := []string{
		"raw-data/AAPL.US/year=2024/b.csv",
		"raw-data/AAPL.US/year=2023/a.csv",
		"raw-data/AAPL.USX/c.csv",
		"raw-data/BHP.AU/year=2024/c.csv",
		"raw-data/fundamentals/BHP.AU.json",
	}
	for _, k := range keys {
		require.NoError(t, store.Put(ctx, k, []byte("x")))
	}

	all, err := store.List(ctx, ListOptions{})
	require.NoError(t, err)
	assert.Len(t, all.Blobs, len(keys))
	assert.False(t, all.Truncated)

	res, err := store.List(ctx, ListOptions{Prefix: "raw-data/AAPL.US/"})
	require.NoError(t, err)
	require.Len(t, res.Blobs, 2)
	assert.Equal(t, "raw-data/AAPL.US/year=2023/a.csv", res.Blobs[0].Key)
	assert.Equal(t, "raw-data/AAPL.US/year=2024/b.csv", res.Blobs[1].Key)

	// without the trailing slash the prefix also matches sibling folders, as on S3
	res, err = store.List(ctx, ListOptions{Prefix: "raw-data/AAPL.US"})
	require.NoError(t, err)
	assert.Len(t, res.Blobs, 3)

	res, err = store.List(ctx, ListOptions{Prefix: "raw-data/nonexistent/"})
	require.NoError(t, err)
	assert.Empty(t, res.Blobs)
}

func TestFileBlobStore_ListPagination(t *testing.T) {
	store, _ := newTestFileStore(t)
	ctx := context.Background()

	for _, k := range []string{"p/1.csv", "p/2.csv", "p/3.csv", "p/4.csv", "p/5.csv"} {
		require.NoError(t, store.Put(ctx, k, []byte("x")))
	}

	page, err := store.List(ctx, ListOptions{Prefix: "p/", MaxKeys: 2})
	require.NoError(t, err)
	assert.Len(t, page.Blobs, 2)
	assert.True(t, page.Truncated)
	assert.Equal(t, "p/2.csv", page.NextCursor)

	page, err = store.List(ctx, ListOptions{Prefix: "p/", MaxKeys: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	assert.Equal(t, "p/3.csv", page.Blobs[0].Key)

	all, err := ListAll(ctx, store, "p/")
	require.NoError(t, err)
	assert.Len(t, all, 5)
}

func TestFileBlobStore_SanitizeKey(t *testing.T) {
	store, _ := newTestFileStore(t)

	tests := []struct {
		input    string
		expected string
	}{
		{"raw-data/AAPL.US/a.csv", "raw-data/AAPL.US/a.csv"},
		{"../escape.csv", "escape.csv"},
		{"raw-data/../a.csv", "a.csv"},
		{"raw-data/../../a.csv", "a.csv"},
		{"/absolute/a.csv", "absolute/a.csv"},
	}
	for _, tc := range tests {
		t.Run(tc.input, func(t *testing.T) {
			got := filepath.ToSlash(store.sanitizeKey(tc.input))
			assert.Equal(t, tc.expected, got)
			assert.NotContains(t, got, "..")
		})
	}
}

func TestFileBlobStore_AtomicOverwrite(t *testing.T) {
	store, dir := newTestFileStore(t)
	ctx := context.Background()
	key := "part.csv"

	require.NoError(t, store.Put(ctx, key, []byte("v1")))
	require.NoError(t, store.Put(ctx, key, []byte("v2")))

	data, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"))
	}
}

func TestNewFileBlobStore_RequiresPath(t *testing.T) {
	_, err := NewFileBlobStore(common.NewSilentLogger(), &FileBlobConfig{})
	assert.Error(t, err)
}

func TestNewBlobStore_Backends(t *testing.T) {
	ctx := context.Background()
	logger := common.NewSilentLogger()

	store, err := NewBlobStore(ctx, logger, &BlobStoreConfig{File: FileBlobConfig{BasePath: t.TempDir()}})
	require.NoError(t, err)
	_, ok := store.(*FileBlobStore)
	assert.True(t, ok, "empty backend defaults to file")

	_, err = NewBlobStore(ctx, logger, &BlobStoreConfig{Backend: "gcs"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown storage backend")

	_, err = NewBlobStore(ctx, logger, &BlobStoreConfig{Backend: BackendS3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket is required")
}

func TestNewBlobStore_S3(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")

	store, err := NewBlobStore(context.Background(), common.NewSilentLogger(), &BlobStoreConfig{
		Backend: BackendS3,
		S3: S3BlobConfig{
			Bucket:    "analytics",
			Prefix:    "/lake/",
			Region:    "us-east-1",
			Endpoint:  "http://localhost:9000",
			AccessKey: "minio",
			SecretKey: "minio123",
		},
	})
	require.NoError(t, err)
	s3Store, ok := store.(*S3BlobStore)
	require.True(t, ok)
	assert.Equal(t, "analytics", s3Store.bucket)
	assert.Equal(t, "lake", s3Store.prefix)
}

func TestBlobStoreConfigFrom(t *testing.T) {
	cfg := common.NewDefaultConfig().Storage
	cfg.Backend = "s3"
	cfg.S3.Bucket = "b"
	cfg.S3.Endpoint = "http://minio:9000"

	bc := BlobStoreConfigFrom(cfg)
	assert.Equal(t, "s3", bc.Backend)
	assert.Equal(t, "b", bc.S3.Bucket)
	assert.Equal(t, "http://minio:9000", bc.S3.Endpoint)
	assert.Equal(t, "data", bc.File.BasePath)
}
