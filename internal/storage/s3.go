package storage

import (
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
)

// S3Config holds configuration for S3-compatible storage.
type S3Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	Region    string
}

// S3Store implements FileStore for S3-compatible services (AWS S3, MinIO, R2).
// fileURL values are either s3://bucket/key or bare object keys resolved
// against the configured bucket.
type S3Store struct {
	client *s3.Client
	bucket string
}

// NewS3Store creates a new S3-compatible file store client.
// Parameters:
//   - cfg: storage configuration including endpoint, credentials, and bucket.
// Returns:
//   - *S3Store: initialized store.
//   - error: non-nil if the AWS config cannot be built.
func NewS3Store(cfg *S3Config) (*S3Store, error) {
	endpoint := normalizeEndpoint(cfg.Endpoint)

	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	endpointURL := fmt.Sprintf("%s://%s", scheme, endpoint)

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpointURL)
		o.UsePathStyle = true // path-style keeps MinIO and other compatibles working
	})

	return &S3Store{
		client: client,
		bucket: cfg.Bucket,
	}, nil
}

// normalizeEndpoint removes protocol prefix and path from endpoint
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimPrefix(endpoint, "https://")
	endpoint = strings.TrimPrefix(endpoint, "http://")

	if idx := strings.Index(endpoint, "/"); idx != -1 {
		endpoint = endpoint[:idx]
	}

	return strings.TrimSuffix(endpoint, "/")
}

// resolve splits a fileURL into bucket and key.
func (s *S3Store) resolve(fileURL string) (bucket, key string) {
	trimmed := strings.TrimPrefix(fileURL, "s3://")
	if trimmed != fileURL {
		if idx := strings.Index(trimmed, "/"); idx != -1 {
			return trimmed[:idx], trimmed[idx+1:]
		}
		return trimmed, ""
	}
	return s.bucket, strings.TrimPrefix(fileURL, "/")
}

// Fetch downloads a stored file as a byte stream.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - fileURL: s3://bucket/key URL or object key in the configured bucket.
// Returns:
//   - io.ReadCloser: file content stream; caller closes.
//   - error: non-nil if the object cannot be read.
func (s *S3Store) Fetch(ctx context.Context, fileURL string) (io.ReadCloser, error) {
	bucket, key := s.resolve(fileURL)
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch object %s: %w", key, err)
	}
	return result.Body, nil
}

// Exists checks if a stored file exists.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - fileURL: s3://bucket/key URL or object key in the configured bucket.
// Returns:
//   - bool: true if the object exists.
//   - error: non-nil on storage failure other than absence.
func (s *S3Store) Exists(ctx context.Context, fileURL string) (bool, error) {
	bucket, key := s.resolve(fileURL)
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	return true, nil
}

// Delete removes a stored file.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - fileURL: s3://bucket/key URL or object key in the configured bucket.
// Returns:
//   - error: non-nil if the delete fails.
func (s *S3Store) Delete(ctx context.Context, fileURL string) error {
	bucket, key := s.resolve(fileURL)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %w", key, err)
	}
	return nil
}
