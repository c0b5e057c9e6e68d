package repository

import (
	"context"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
)

// RecordRepository defines the interface for table operations
type RecordRepository interface {
	// InsertRecord writes one row and returns it as stored by the backend
	InsertRecord(ctx context.Context, record *entity.ImageRecord) (entity.InsertedRecord, error)

	// Table returns the name of the table rows are written to
	Table() string
}

// GenerationRepository defines the interface for concept image and model rows
type GenerationRepository interface {
	// CreateGeneration inserts one row into the table of kind and returns it with its id
	CreateGeneration(ctx context.Context, kind entity.GenerationKind, record *entity.GenerationRecord) (entity.InsertedRecord, error)

	// UpdateGeneration updates the row with id; no matching row yields entity.ErrNotFound
	UpdateGeneration(ctx context.Context, kind entity.GenerationKind, id string, update *entity.GenerationUpdate) (entity.InsertedRecord, error)
}
