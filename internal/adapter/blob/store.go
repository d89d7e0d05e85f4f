package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/rescue-triage-service/internal/observability"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ErrNotFound reports a missing bucket or object.
var ErrNotFound = errors.New("blob not found")

// Config describes an S3-compatible store.
type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// Store reads objects from one bucket. It implements roster.BlobGetter.
type Store struct {
	client  *minio.Client
	bucket  string
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewStore creates a Store. Empty keys make anonymous requests.
func NewStore(cfg Config, logger *slog.Logger, metrics *observability.Metrics) (*Store, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.New("blob endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.New("blob bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init blob client: %w", err)
	}
	return &Store{client: client, bucket: bucket, logger: logger, metrics: metrics}, nil
}

// GetObject downloads name from the bucket.
func (s *Store) GetObject(ctx context.Context, name string) ([]byte, error) {
	start := time.Now()
	data, err := s.get(ctx, name)
	s.metrics.BlobDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.BlobFetches.WithLabelValues("error").Inc()
		return nil, err
	}
	s.metrics.BlobFetches.WithLabelValues("success").Inc()
	s.logger.Debug("blob fetched", "bucket", s.bucket, "object", name, "bytes", len(data))
	return data, nil
}

func (s *Store) get(ctx context.Context, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, translate(name, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, translate(name, err)
	}
	return data, nil
}

func translate(name string, err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	default:
		return fmt.Errorf("get object %s: %w", name, err)
	}
}
