package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/repository"
	"github.com/moroshma/MiniToolStream/AssetGateway/pkg/logger"
)

// StorageRepository implements repository.StorageRepository over the platform storage API
type StorageRepository struct {
	client *Client
}

// NewStorageRepository creates a storage repository on top of client
func NewStorageRepository(client *Client) *StorageRepository {
	return &StorageRepository{client: client}
}

func objectEndpoint(bucket, path string) string {
	return storagePrefix + "/object/" + escapePath(bucket) + "/" + escapePath(path)
}

// Upload stores data with upsert semantics
func (r *StorageRepository) Upload(ctx context.Context, bucket, path string, data []byte, opts repository.UploadOptions) error {
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	_, err := r.client.do(ctx, http.MethodPost, objectEndpoint(bucket, path), data, map[string]string{
		"Content-Type": contentType,
		"x-upsert":     "true",
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %w", mapNotFound(err))
	}

	r.client.logger.Debug("Object uploaded",
		logger.String("bucket", bucket),
		logger.String("path", path),
		logger.Int("size", len(data)),
	)
	return nil
}

// Download fetches an object with the service key
func (r *StorageRepository) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	data, err := r.client.do(ctx, http.MethodGet, objectEndpoint(bucket, path), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download object: %w", mapNotFound(err))
	}
	return data, nil
}

// CreateSignedURL asks the platform to mint a signed URL and resolves it to an absolute one
func (r *StorageRepository) CreateSignedURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error) {
	secs := int64((expiresIn + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}

	body, err := json.Marshal(map[string]int64{"expiresIn": secs})
	if err != nil {
		return "", fmt.Errorf("failed to encode sign request: %w", err)
	}

	endpoint := storagePrefix + "/object/sign/" + escapePath(bucket) + "/" + escapePath(path)
	data, err := r.client.do(ctx, http.MethodPost, endpoint, body, map[string]string{
		"Content-Type": "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("failed to create signed url: %w", mapNotFound(err))
	}

	resp := entity.ParseSignedURLResponse(data)
	if resp.Kind == entity.SignedURLUnrecognized {
		r.client.logger.Warn("Unexpected signed URL response format",
			logger.String("bucket", bucket),
			logger.String("path", path),
			logger.String("body", string(data)),
		)
	}

	return resp.Resolve(r.client.StorageURL())
}

// ObjectURL returns the public URL of an object
func (r *StorageRepository) ObjectURL(bucket, path string) string {
	return entity.JoinObjectURL(r.publicPrefix(), bucket, path)
}

// ParseObjectURL maps a public object URL back to bucket and path
func (r *StorageRepository) ParseObjectURL(rawURL string) (string, string, error) {
	return entity.SplitObjectURL(rawURL, r.publicPrefix())
}

func (r *StorageRepository) publicPrefix() string {
	return r.client.StorageURL() + "/object/public"
}

func mapNotFound(err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", entity.ErrNotFound, err)
	}
	return err
}
