package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
	"github.com/moroshma/MiniToolStream/AssetGateway/pkg/logger"
)

// GenerationRepository implements repository.GenerationRepository over the platform table API
type GenerationRepository struct {
	client *Client
	tables entity.GenerationTables
}

func NewGenerationRepository(client *Client, tables entity.GenerationTables) *GenerationRepository {
	return &GenerationRepository{client: client, tables: tables}
}

// CreateGeneration inserts one concept image or model row
func (r *GenerationRepository) CreateGeneration(ctx context.Context, kind entity.GenerationKind, record *entity.GenerationRecord) (entity.InsertedRecord, error) {
	if record == nil {
		return nil, fmt.Errorf("record cannot be nil")
	}
	table, err := r.tables.Table(kind)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal([]map[string]interface{}{record.Values(kind)})
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	rows, err := r.send(ctx, http.MethodPost, restPrefix+"/"+url.PathEscape(table), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", kind, err)
	}
	if len(rows) == 0 {
		return nil, entity.ErrEmptyResponse
	}

	r.client.logger.Debug("Generation record created",
		logger.String("table", table),
		logger.String("task_id", record.TaskID),
	)
	return rows[0], nil
}

// UpdateGeneration patches the row with id and returns it as updated
func (r *GenerationRepository) UpdateGeneration(ctx context.Context, kind entity.GenerationKind, id string, update *entity.GenerationUpdate) (entity.InsertedRecord, error) {
	if update == nil {
		return nil, fmt.Errorf("update cannot be nil")
	}
	table, err := r.tables.Table(kind)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(update.Values(kind, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("failed to encode update: %w", err)
	}

	q := url.Values{}
	q.Set("id", "eq."+id)
	endpoint := restPrefix + "/" + url.PathEscape(table) + "?" + q.Encode()

	rows, err := r.send(ctx, http.MethodPatch, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to update %s record: %w", kind, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s record %s", entity.ErrNotFound, kind, id)
	}

	r.client.logger.Debug("Generation record updated",
		logger.String("table", table),
		logger.String("id", id),
		logger.String("status", string(update.Status)),
	)
	return rows[0], nil
}

func (r *GenerationRepository) send(ctx context.Context, method, endpoint string, body []byte) ([]entity.InsertedRecord, error) {
	data, err := r.client.do(ctx, method, endpoint, body, map[string]string{
		"Content-Type": "application/json",
		"Prefer":       "return=representation",
	})
	if err != nil {
		return nil, err
	}

	var rows []entity.InsertedRecord
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return rows, nil
}
