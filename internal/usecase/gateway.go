package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/repository"
	"github.com/moroshma/MiniToolStream/AssetGateway/pkg/logger"
)

// DefaultSignedURLExpiry is used when a caller passes a non-positive expiry
const DefaultSignedURLExpiry = time.Hour

// Options tunes gateway defaults
type Options struct {
	AssetsBucket     string
	SignedURLTTL     time.Duration
	GenerationTables entity.GenerationTables
}

// Gateway translates upload, download, sign and insert calls into backend
// calls and turns every backend failure into a StorageError or DBError.
type Gateway struct {
	storageRepo    repository.StorageRepository
	recordRepo     repository.RecordRepository
	generationRepo repository.GenerationRepository
	logger         *logger.Logger
	opts           Options
	closers        []io.Closer
}

// NewGateway creates a new gateway. generationRepo may be nil when the record
// backend keeps no generation tables. Closers are released by Close in reverse order.
func NewGateway(
	storageRepo repository.StorageRepository,
	recordRepo repository.RecordRepository,
	generationRepo repository.GenerationRepository,
	log *logger.Logger,
	opts Options,
	closers ...io.Closer,
) *Gateway {
	if opts.SignedURLTTL <= 0 {
		opts.SignedURLTTL = DefaultSignedURLExpiry
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Gateway{
		storageRepo:    storageRepo,
		recordRepo:     recordRepo,
		generationRepo: generationRepo,
		logger:         log,
		opts:           opts,
		closers:        closers,
	}
}

// Upload stores data under name in bucket and returns name as the object path
func (g *Gateway) Upload(ctx context.Context, bucket, name string, data []byte) (string, error) {
	return g.upload(ctx, bucket, name, data, repository.UploadOptions{})
}

func (g *Gateway) upload(ctx context.Context, bucket, name string, data []byte, opts repository.UploadOptions) (string, error) {
	if err := validateTarget(bucket, name); err != nil {
		return "", entity.NewStorageError("upload", bucket, name, err)
	}

	if err := g.storageRepo.Upload(ctx, bucket, name, data, opts); err != nil {
		g.logger.Error("Failed to upload object",
			logger.String("bucket", bucket),
			logger.String("path", name),
			logger.Error(err),
		)
		return "", entity.NewStorageError("upload", bucket, name, err)
	}

	g.logger.Info("Uploaded object",
		logger.String("bucket", bucket),
		logger.String("path", name),
		logger.Int("size", len(data)),
	)
	return name, nil
}

// Download retrieves an object
func (g *Gateway) Download(ctx context.Context, bucket, path string) ([]byte, error) {
	if err := validateTarget(bucket, path); err != nil {
		return nil, entity.NewStorageError("download", bucket, path, err)
	}

	data, err := g.storageRepo.Download(ctx, bucket, path)
	if err != nil {
		g.logger.Error("Failed to download object",
			logger.String("bucket", bucket),
			logger.String("path", path),
			logger.Error(err),
		)
		return nil, entity.NewStorageError("download", bucket, path, err)
	}

	g.logger.Info("Downloaded object",
		logger.String("bucket", bucket),
		logger.String("path", path),
		logger.Int("size", len(data)),
	)
	return data, nil
}

// CreateSignedURL returns a temporary-access URL. expiresIn <= 0 uses the configured
// default; partial seconds are rounded up.
func (g *Gateway) CreateSignedURL(ctx context.Context, bucket, path string, expiresIn time.Duration) (string, error) {
	if err := validateTarget(bucket, path); err != nil {
		return "", entity.NewStorageError("sign", bucket, path, err)
	}
	if expiresIn <= 0 {
		expiresIn = g.opts.SignedURLTTL
	}
	// backends sign in whole seconds
	if rem := expiresIn % time.Second; rem != 0 {
		expiresIn += time.Second - rem
	}

	signed, err := g.storageRepo.CreateSignedURL(ctx, bucket, path, expiresIn)
	if err == nil && signed == "" {
		err = entity.ErrUnrecognizedSignedURL
	}
	if err != nil {
		g.logger.Error("Failed to create signed URL",
			logger.String("bucket", bucket),
			logger.String("path", path),
			logger.Error(err),
		)
		return "", entity.NewStorageError("sign", bucket, path, err)
	}

	g.logger.Info("Created signed URL",
		logger.String("bucket", bucket),
		logger.String("path", path),
		logger.Duration("expires_in", expiresIn),
	)
	return signed, nil
}

// InsertRecord writes one image record
func (g *Gateway) InsertRecord(ctx context.Context, record *entity.ImageRecord) (entity.InsertedRecord, error) {
	table := g.recordRepo.Table()
	if record == nil || record.TaskID == "" {
		return nil, entity.NewDBError("insert", table, fmt.Errorf("task id is required"))
	}

	row, err := g.recordRepo.InsertRecord(ctx, record)
	if err == nil && len(row) == 0 {
		err = entity.ErrEmptyResponse
	}
	if err != nil {
		g.logger.Error("Failed to insert image record",
			logger.String("table", table),
			logger.String("task_id", record.TaskID),
			logger.Error(err),
		)
		return nil, entity.NewDBError("insert", table, err)
	}

	g.logger.Info("Inserted image record",
		logger.String("table", table),
		logger.String("task_id", record.TaskID),
	)
	return row, nil
}

// CreateConceptImage inserts a concept image record. An empty status is stored as pending.
func (g *Gateway) CreateConceptImage(ctx context.Context, record *entity.GenerationRecord) (entity.InsertedRecord, error) {
	return g.createGeneration(ctx, entity.KindConceptImage, record)
}

// CreateModel inserts a model record. An empty status is stored as pending.
func (g *Gateway) CreateModel(ctx context.Context, record *entity.GenerationRecord) (entity.InsertedRecord, error) {
	return g.createGeneration(ctx, entity.KindModel, record)
}

// UpdateConceptImage sets the status and any given fields of concept image id
func (g *Gateway) UpdateConceptImage(ctx context.Context, id string, update *entity.GenerationUpdate) (entity.InsertedRecord, error) {
	return g.updateGeneration(ctx, entity.KindConceptImage, id, update)
}

// UpdateModel sets the status and any given fields of model id
func (g *Gateway) UpdateModel(ctx context.Context, id string, update *entity.GenerationUpdate) (entity.InsertedRecord, error) {
	return g.updateGeneration(ctx, entity.KindModel, id, update)
}

func (g *Gateway) createGeneration(ctx context.Context, kind entity.GenerationKind, record *entity.GenerationRecord) (entity.InsertedRecord, error) {
	table, _ := g.opts.GenerationTables.Table(kind)
	switch {
	case record == nil || record.TaskID == "":
		return nil, entity.NewDBError("create", table, fmt.Errorf("task id is required"))
	case record.Prompt == "":
		return nil, entity.NewDBError("create", table, fmt.Errorf("prompt is required"))
	case record.Status != "" && !record.Status.Valid():
		return nil, entity.NewDBError("create", table, fmt.Errorf("invalid status %q", record.Status))
	case g.generationRepo == nil:
		return nil, entity.NewDBError("create", table, entity.ErrUnsupported)
	}

	row, err := g.generationRepo.CreateGeneration(ctx, kind, record)
	if err == nil && len(row) == 0 {
		err = entity.ErrEmptyResponse
	}
	if err != nil {
		g.logger.Error("Failed to create generation record",
			logger.String("table", table),
			logger.String("task_id", record.TaskID),
			logger.Error(err),
		)
		return nil, entity.NewDBError("create", table, err)
	}

	g.logger.Info("Created generation record",
		logger.String("table", table),
		logger.String("task_id", record.TaskID),
	)
	return row, nil
}

func (g *Gateway) updateGeneration(ctx context.Context, kind entity.GenerationKind, id string, update *entity.GenerationUpdate) (entity.InsertedRecord, error) {
	table, _ := g.opts.GenerationTables.Table(kind)
	switch {
	case strings.TrimSpace(id) == "":
		return nil, entity.NewDBError("update", table, fmt.Errorf("record id is required"))
	case update == nil || update.TaskID == "":
		return nil, entity.NewDBError("update", table, fmt.Errorf("task id is required"))
	case !update.Status.Valid():
		return nil, entity.NewDBError("update", table, fmt.Errorf("invalid status %q", update.Status))
	case g.generationRepo == nil:
		return nil, entity.NewDBError("update", table, entity.ErrUnsupported)
	}

	row, err := g.generationRepo.UpdateGeneration(ctx, kind, id, update)
	if err == nil && len(row) == 0 {
		err = entity.ErrEmptyResponse
	}
	if err != nil {
		g.logger.Error("Failed to update generation record",
			logger.String("table", table),
			logger.String("id", id),
			logger.Error(err),
		)
		return nil, entity.NewDBError("update", table, err)
	}

	g.logger.Info("Updated generation record",
		logger.String("table", table),
		logger.String("id", id),
		logger.String("status", string(update.Status)),
	)
	return row, nil
}

// UploadAsset stores a generated asset under <kind>/<task_id>/<file_name> in the
// assets bucket and returns its public URL
func (g *Gateway) UploadAsset(ctx context.Context, asset *entity.AssetUpload) (string, error) {
	bucket := g.opts.AssetsBucket
	if asset == nil || asset.TaskID == "" || asset.Kind == "" || asset.FileName == "" {
		return "", entity.NewStorageError("upload", bucket, "", fmt.Errorf("task id, kind and file name are required"))
	}
	if bucket == "" {
		return "", entity.NewStorageError("upload", bucket, asset.ObjectPath(), fmt.Errorf("assets bucket is not configured"))
	}

	path, err := g.upload(ctx, bucket, asset.ObjectPath(), asset.Data, repository.UploadOptions{
		ContentType: asset.ContentType,
	})
	if err != nil {
		return "", err
	}

	return g.storageRepo.ObjectURL(bucket, path), nil
}

// FetchAsset downloads the object behind a public object URL
func (g *Gateway) FetchAsset(ctx context.Context, objectURL string) ([]byte, error) {
	bucket, path, err := g.storageRepo.ParseObjectURL(objectURL)
	if err != nil {
		g.logger.Warn("Rejected object URL",
			logger.String("url", objectURL),
			logger.Error(err),
		)
		return nil, entity.NewStorageError("fetch", bucket, path, err)
	}

	return g.Download(ctx, bucket, path)
}

// ObjectURL returns the public URL of an object
func (g *Gateway) ObjectURL(bucket, path string) string {
	return g.storageRepo.ObjectURL(bucket, path)
}

// Close releases backend connections
func (g *Gateway) Close() error {
	var errs []error
	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	g.closers = nil

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("failed to close gateway: %w", err)
	}
	return nil
}

func validateTarget(bucket, path string) error {
	if strings.TrimSpace(bucket) == "" {
		return fmt.Errorf("bucket cannot be empty")
	}
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path cannot be empty")
	}
	return nil
}
