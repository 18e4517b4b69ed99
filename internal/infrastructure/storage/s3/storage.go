package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kirillkom/contract-intelligence/internal/core/domain"
	"github.com/kirillkom/contract-intelligence/internal/infrastructure/resilience"
)

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	Bucket    string
	UseSSL    bool
}

// Storage keeps original documents in an S3-compatible bucket and addresses them as s3://bucket/key.
type Storage struct {
	client   *minio.Client
	bucket   string
	executor *resilience.Executor
}

func New(cfg Config, executor *resilience.Executor) (*Storage, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := cfg.Region
	if region == "" {
		region = "us-east-1"
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("create s3 client: %w", err)
	}
	return &Storage{client: client, bucket: cfg.Bucket, executor: executor}, nil
}

// EnsureBucket creates the bucket if it doesn't exist.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("create bucket: %w", err)
	}
	return nil
}

func (s *Storage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	key = strings.TrimLeft(key, "/")
	if key == "" {
		return "", domain.InvalidInput("s3 put", "object key is empty")
	}
	_, err := resilience.Do(ctx, s.executor, "s3.put", func(ctx context.Context) (minio.UploadInfo, error) {
		return s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
			ContentType: contentType,
		})
	}, classifyS3Error)
	if err != nil {
		return "", wrapS3Error("s3 put", err)
	}
	return FormatURI(s.bucket, key), nil
}

func (s *Storage) Get(ctx context.Context, uri string) ([]byte, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return nil, err
	}
	data, err := resilience.Do(ctx, s.executor, "s3.get", func(ctx context.Context) ([]byte, error) {
		obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return nil, err
		}
		defer obj.Close()
		return io.ReadAll(obj)
	}, classifyS3Error)
	if err != nil {
		return nil, wrapS3Error("s3 get", err)
	}
	return data, nil
}

func (s *Storage) Presign(ctx context.Context, uri string, ttl time.Duration) (string, error) {
	bucket, key, err := ParseURI(uri)
	if err != nil {
		return "", err
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	signed, err := s.client.PresignedGetObject(ctx, bucket, key, ttl, url.Values{})
	if err != nil {
		return "", fmt.Errorf("presign %s: %w", uri, err)
	}
	return signed.String(), nil
}

func FormatURI(bucket, key string) string {
	return "s3://" + bucket + "/" + strings.TrimLeft(key, "/")
}

// ParseURI splits a storage pointer into bucket and key. It accepts s3://bucket/key,
// virtual-hosted URLs (https://bucket.s3.region.amazonaws.com/key) and path-style URLs
// (https://host/bucket/key).
func ParseURI(raw string) (string, string, error) {
	const op = "parse storage uri"
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", "", domain.InvalidInput(op, fmt.Sprintf("malformed storage uri %q", raw))
	}

	path := strings.TrimLeft(u.Path, "/")
	var bucket, key string
	switch {
	case u.Scheme == "s3":
		bucket, key = u.Host, path
	case u.Scheme == "http" || u.Scheme == "https":
		host := u.Hostname()
		if idx := strings.Index(host, ".s3"); idx > 0 && strings.HasSuffix(host, ".amazonaws.com") {
			bucket, key = host[:idx], path
		} else {
			bucket, key, _ = strings.Cut(path, "/")
		}
	default:
		return "", "", domain.InvalidInput(op, fmt.Sprintf("unsupported scheme %q", u.Scheme))
	}

	if bucket == "" || key == "" {
		return "", "", domain.InvalidInput(op, fmt.Sprintf("storage uri %q has no bucket or key", raw))
	}
	return bucket, key, nil
}

// classifyS3Error retries throttling and server faults; missing keys and denied access are final.
func classifyS3Error(err error) resilience.ErrorClassification {
	if class, ok := resilience.ClassifyCommon(err); ok {
		return class
	}
	resp := minio.ToErrorResponse(err)
	switch {
	case resp.Code == "SlowDown" || resp.Code == "RequestTimeout":
		return resilience.Transient
	case resp.StatusCode != 0:
		return resilience.ClassifyHTTPStatus(resp.StatusCode)
	default:
		return resilience.Permanent
	}
}

func wrapS3Error(operation string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
		return domain.WrapError(domain.ErrNotFound, operation, err)
	}
	if classifyS3Error(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return fmt.Errorf("%s: %w", operation, err)
}
