package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
	"github.com/moroshma/MiniToolStream/AssetGateway/pkg/logger"
)

// RecordRepository implements repository.RecordRepository over the platform table API
type RecordRepository struct {
	client *Client
	table  string
}

// NewRecordRepository creates a record repository writing to table
func NewRecordRepository(client *Client, table string) *RecordRepository {
	if table == "" {
		table = "images"
	}
	return &RecordRepository{client: client, table: table}
}

// Table returns the target table name
func (r *RecordRepository) Table() string {
	return r.table
}

// InsertRecord inserts one row and returns the representation sent back by the platform
func (r *RecordRepository) InsertRecord(ctx context.Context, record *entity.ImageRecord) (entity.InsertedRecord, error) {
	if record == nil {
		return nil, fmt.Errorf("record cannot be nil")
	}

	body, err := json.Marshal([]*entity.ImageRecord{record})
	if err != nil {
		return nil, fmt.Errorf("failed to encode record: %w", err)
	}

	data, err := r.client.do(ctx, http.MethodPost, restPrefix+"/"+url.PathEscape(r.table), body, map[string]string{
		"Content-Type": "application/json",
		"Prefer":       "return=representation",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	var rows []entity.InsertedRecord
	if len(data) > 0 {
		if err := json.Unmarshal(data, &rows); err != nil {
			return nil, fmt.Errorf("failed to decode insert response: %w", err)
		}
	}
	if len(rows) == 0 {
		return nil, entity.ErrEmptyResponse
	}

	r.client.logger.Debug("Record inserted",
		logger.String("table", r.table),
		logger.String("task_id", record.TaskID),
	)

	return rows[0], nil
}
