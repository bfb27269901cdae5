package storage

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/bobmcallan/eodlake/internal/common"
)

const (
	minioUser     = "minioadmin"
	minioPassword = "minioadmin"
)

var (
	minioOnce     sync.Once
	minioEndpoint string
	minioErr      error
)

// startMinIO starts one MinIO container per test process and returns its
// endpoint. Skipped unless EODLAKE_TEST_DOCKER=true.
func startMinIO(t *testing.T) string {
	t.Helper()
	if os.Getenv("EODLAKE_TEST_DOCKER") != "true" {
		t.Skip("Docker tests disabled (set EODLAKE_TEST_DOCKER=true to enable)")
	}

	minioOnce.Do(func() {
		ctx := context.Background()
		req := testcontainers.ContainerRequest{
			Image:        "minio/minio:RELEASE.2024-05-10T01-41-38Z",
			ExposedPorts: []string{"9000/tcp"},
			Cmd:          []string{"server", "/data"},
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioUser,
				"MINIO_ROOT_PASSWORD": minioPassword,
			},
			WaitingFor: wait.ForHTTP("/minio/health/live").WithPort("9000/tcp").
				WithStartupTimeout(60 * time.Second),
		}

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: req,
			Started:          true,
		})
		if err != nil {
			minioErr = fmt.Errorf("start MinIO container: %w", err)
			return
		}

		host, err := container.Host(ctx)
		if err != nil {
			container.Terminate(ctx)
			minioErr = fmt.Errorf("get MinIO host: %w", err)
			return
		}
		port, err := container.MappedPort(ctx, "9000/tcp")
		if err != nil {
			container.Terminate(ctx)
			minioErr = fmt.Errorf("get MinIO port: %w", err)
			return
		}
		minioEndpoint = fmt.Sprintf("http://%s:%s", host, port.Port())
	})

	if minioErr != nil {
		t.Fatalf("MinIO container failed: %v", minioErr)
	}
	return minioEndpoint
}

func TestS3BlobStore_MinIO(t *testing.T) {
	endpoint := startMinIO(t)
	ctx := context.Background()

	bucket := fmt.Sprintf("eodlake-%d", time.Now().UnixNano())
	store, err := NewS3BlobStore(ctx, common.NewSilentLogger(), &S3BlobConfig{
		Bucket:    bucket,
		Prefix:    "it",
		Region:    "us-east-1",
		Endpoint:  endpoint,
		AccessKey: minioUser,
		SecretKey: minioPassword,
	})
	require.NoError(t, err)

	client, ok := store.client.(*s3.Client)
	require.True(t, ok)
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	require.NoError(t, err)

	require.NoError(t, store.Put(ctx, "raw-data/AAPL.US/year=2023/a.csv", []byte("Date,Close\n2023-01-03,125.07\n")))
	require.NoError(t, store.Put(ctx, "raw-data/AAPL.US/year=2024/b.csv", []byte("Date,Close\n2024-01-02,185.64\n")))

	blobs, err := ListAll(ctx, store, "raw-data/AAPL.US/")
	require.NoError(t, err)
	require.Len(t, blobs, 2)
	assert.Equal(t, "raw-data/AAPL.US/year=2023/a.csv", blobs[0].Key)

	_, err = store.Get(ctx, "raw-data/missing.csv")
	assert.ErrorIs(t, err, ErrBlobNotFound)

	meta, err := store.Metadata(ctx, "raw-data/AAPL.US/year=2024/b.csv")
	require.NoError(t, err)
	assert.NotEmpty(t, meta.ETag)

	require.NoError(t, store.Delete(ctx, "raw-data/AAPL.US/year=2024/b.csv"))
	exists, err := store.Exists(ctx, "raw-data/AAPL.US/year=2024/b.csv")
	require.NoError(t, err)
	assert.False(t, exists)
}
