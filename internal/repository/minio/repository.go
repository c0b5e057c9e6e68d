package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/repository"
	"github.com/moroshma/MiniToolStream/AssetGateway/pkg/logger"
)

// maxPresignExpiry is the S3 limit for presigned URLs
const maxPresignExpiry = 7 * 24 * time.Hour

// Config represents MinIO repository configuration
type Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	UseSSL          bool
	Region          string

	// CreateBuckets makes Upload create missing buckets
	CreateBuckets bool
}

// Repository implements repository.StorageRepository using MinIO
type Repository struct {
	client        *minio.Client
	config        *Config
	logger        *logger.Logger
	bucketCache   map[string]bool
	bucketCacheMu sync.RWMutex
}

// NewRepository creates a new MinIO repository
func NewRepository(cfg *Config, log *logger.Logger) (*Repository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("%w: minio endpoint is required", entity.ErrConfig)
	}

	minioClient, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	if log == nil {
		log = logger.NewNop()
	}

	return &Repository{
		client:      minioClient,
		config:      cfg,
		logger:      log,
		bucketCache: make(map[string]bool),
	}, nil
}

// EnsureBucket creates bucket if it doesn't exist
func (r *Repository) EnsureBucket(ctx context.Context, bucket string) error {
	r.bucketCacheMu.RLock()
	if r.bucketCache[bucket] {
		r.bucketCacheMu.RUnlock()
		return nil
	}
	r.bucketCacheMu.RUnlock()

	exists, err := r.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}

	if !exists {
		r.logger.Info("Creating bucket", logger.String("bucket", bucket))
		if err := r.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	r.bucketCacheMu.Lock()
	r.bucketCache[bucket] = true
	r.bucketCacheMu.Unlock()

	return nil
}

// Upload stores data under path, replacing any previous object
func (r *Repository) Upload(ctx context.Context, bucket, path string, data []byte, opts repository.UploadOptions) error {
	if r.config.CreateBuckets {
		if err := r.EnsureBucket(ctx, bucket); err != nil {
			return err
		}
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := r.client.PutObject(ctx, bucket, path, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", mapError(err))
	}

	r.logger.Debug("Data uploaded to MinIO",
		logger.String("bucket", bucket),
		logger.String("object", path),
		logger.Int("size", len(data)),
	)
	return nil
}

// Download reads the whole object
func (r *Repository) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	obj, err := r.client.GetObject(ctx, bucket, path, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", mapError(err))
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, fmt.Errorf("failed to read object data: %w", mapError(err))
	}

	return data, nil
}

// CreateSignedURL presigns a GET request for the object
func (r *Repository) CreateSignedURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error) {
	if expiresIn < time.Second || expiresIn > maxPresignExpiry {
		return "", fmt.Errorf("expiry %s out of range [1s, %s]", expiresIn, maxPresignExpiry)
	}

	u, err := r.client.PresignedGetObject(ctx, bucket, path, expiresIn, url.Values{})
	if err != nil {
		return "", fmt.Errorf("failed to presign object: %w", mapError(err))
	}

	return u.String(), nil
}

// ObjectURL returns the path-style URL for accessing an object
func (r *Repository) ObjectURL(bucket, path string) string {
	return entity.JoinObjectURL(r.baseURL(), bucket, path)
}

// ParseObjectURL maps an URL produced by ObjectURL back to bucket and path
func (r *Repository) ParseObjectURL(rawURL string) (string, string, error) {
	return entity.SplitObjectURL(rawURL, r.baseURL())
}

func (r *Repository) baseURL() string {
	protocol := "http"
	if r.config.UseSSL {
		protocol = "https"
	}
	return fmt.Sprintf("%s://%s", protocol, r.config.Endpoint)
}

func mapError(err error) error {
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %w", entity.ErrNotFound, err)
	}
	return err
}
