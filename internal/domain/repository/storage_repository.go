package repository

import (
	"context"
	"time"
)

// UploadOptions carries optional object metadata
type UploadOptions struct {
	ContentType string
}

// StorageRepository defines the interface for object storage operations
type StorageRepository interface {
	// Upload stores data under path in bucket, overwriting any existing object
	Upload(ctx context.Context, bucket, path string, data []byte, opts UploadOptions) error

	// Download returns the object content; a missing object yields entity.ErrNotFound
	Download(ctx context.Context, bucket, path string) ([]byte, error)

	// CreateSignedURL returns an absolute time-limited URL for the object
	CreateSignedURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error)

	// ObjectURL returns the public URL of an object
	ObjectURL(bucket, path string) string

	// ParseObjectURL maps an URL produced by ObjectURL back to bucket and path
	ParseObjectURL(rawURL string) (bucket, path string, err error)
}
