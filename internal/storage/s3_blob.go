package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/bobmcallan/eodlake/internal/common"
)

// S3API is the subset of the S3 client used by S3BlobStore.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3BlobStore implements BlobStore on AWS S3 or any S3-compatible service.
// Keys are stored as "{prefix}/{key}" inside the bucket.
type S3BlobStore struct {
	client S3API
	bucket string
	prefix string
	logger *common.Logger
}

// NewS3BlobStore loads AWS configuration and creates an S3-backed blob store.
// Static credentials are used when both keys are configured; otherwise the
// default AWS credential chain applies.
func NewS3BlobStore(ctx context.Context, logger *common.Logger, config *S3BlobConfig) (*S3BlobStore, error) {
	if config.Bucket == "" {
		return nil, fmt.Errorf("s3 blob store bucket is required")
	}

	var loadOpts []func(*awsconfig.LoadOptions) error
	if config.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(config.Region))
	}
	if config.AccessKey != "" && config.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(config.AccessKey, config.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if config.Endpoint != "" {
			o.BaseEndpoint = aws.String(config.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Debug().
		Str("bucket", config.Bucket).
		Str("prefix", config.Prefix).
		Str("endpoint", config.Endpoint).
		Msg("S3BlobStore initialized")

	return NewS3BlobStoreWithClient(logger, client, config.Bucket, config.Prefix), nil
}

// NewS3BlobStoreWithClient wraps an existing S3 client.
func NewS3BlobStoreWithClient(logger *common.Logger, client S3API, bucket, prefix string) *S3BlobStore {
	return &S3BlobStore{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		logger: logger,
	}
}

func (sb *S3BlobStore) objectKey(key string) string {
	key = strings.TrimPrefix(key, "/")
	if sb.prefix == "" {
		return key
	}
	return sb.prefix + "/" + key
}

func (sb *S3BlobStore) storeKey(objectKey string) string {
	if sb.prefix == "" {
		return objectKey
	}
	return strings.TrimPrefix(objectKey, sb.prefix+"/")
}

func isNotFound(err error) bool {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	return errors.As(err, &nsk) || errors.As(err, &nf)
}

// Get retrieves a blob by key.
func (sb *S3BlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := sb.GetReader(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read blob %s: %w", key, err)
	}
	return data, nil
}

// GetReader returns the object body for streaming.
func (sb *S3BlobStore) GetReader(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := sb.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(sb.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to get blob %s: %w", key, err)
	}
	return out.Body, nil
}

// Put stores a blob.
func (sb *S3BlobStore) Put(ctx context.Context, key string, data []byte) error {
	return sb.PutReader(ctx, key, bytes.NewReader(data), int64(len(data)))
}

// PutReader stores a blob from a reader of known size.
func (sb *S3BlobStore) PutReader(ctx context.Context, key string, r io.Reader, size int64) error {
	input := &s3.PutObjectInput{
		Bucket:        aws.String(sb.bucket),
		Key:           aws.String(sb.objectKey(key)),
		Body:          r,
		ContentLength: aws.Int64(size),
	}
	if ct := contentType(key); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := sb.client.PutObject(ctx, input); err != nil {
		return fmt.Errorf("failed to put blob %s: %w", key, err)
	}
	sb.logger.Debug().Str("bucket", sb.bucket).Str("key", sb.objectKey(key)).Int64("size", size).Msg("S3 object written")
	return nil
}

// Delete removes a blob. S3 does not report missing keys on delete.
func (sb *S3BlobStore) Delete(ctx context.Context, key string) error {
	_, err := sb.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(sb.objectKey(key)),
	})
	if err != nil && !isNotFound(err) {
		return fmt.Errorf("failed to delete blob %s: %w", key, err)
	}
	return nil
}

// Exists checks if a blob exists.
func (sb *S3BlobStore) Exists(ctx context.Context, key string) (bool, error) {
	_, err := sb.Metadata(ctx, key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrBlobNotFound) {
		return false, nil
	}
	return false, err
}

// Metadata returns metadata for a blob via HeadObject.
func (sb *S3BlobStore) Metadata(ctx context.Context, key string) (*BlobMetadata, error) {
	out, err := sb.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(sb.bucket),
		Key:    aws.String(sb.objectKey(key)),
	})
	if err != nil {
		if isNotFound(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("failed to stat blob %s: %w", key, err)
	}
	return &BlobMetadata{
		Key:          key,
		Size:         aws.ToInt64(out.ContentLength),
		ContentType:  aws.ToString(out.ContentType),
		LastModified: aws.ToTime(out.LastModified),
		ETag:         strings.Trim(aws.ToString(out.ETag), `"`),
	}, nil
}

// List returns one page of blobs under opts.Prefix using ListObjectsV2.
func (sb *S3BlobStore) List(ctx context.Context, opts ListOptions) (*ListResult, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(sb.bucket),
		Prefix: aws.String(sb.objectKey(opts.Prefix)),
	}
	if opts.MaxKeys > 0 {
		input.MaxKeys = aws.Int32(int32(opts.MaxKeys))
	}
	if opts.Cursor != "" {
		input.ContinuationToken = aws.String(opts.Cursor)
	}

	out, err := sb.client.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to list blobs under %s: %w", opts.Prefix, err)
	}

	blobs := make([]BlobMetadata, 0, len(out.Contents))
	for _, obj := range out.Contents {
		blobs = append(blobs, BlobMetadata{
			Key:          sb.storeKey(aws.ToString(obj.Key)),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         strings.Trim(aws.ToString(obj.ETag), `"`),
		})
	}

	return &ListResult{
		Blobs:      blobs,
		NextCursor: aws.ToString(out.NextContinuationToken),
		Truncated:  aws.ToBool(out.IsTruncated),
	}, nil
}

// Close releases resources (the S3 client holds none that need closing).
func (sb *S3BlobStore) Close() error {
	return nil
}

var _ BlobStore = (*S3BlobStore)(nil)
