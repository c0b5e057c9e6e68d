package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
)

// Concept image and model tables share one layout; source_concept_image_id stays NULL for concept images.
const generationColumns = "id, task_id, user_id, prompt, style, status, asset_url, ai_service_task_id, " +
	"source_input_asset_id, source_concept_image_id, metadata, created_at, updated_at"

// EnsureGenerationTables creates the concept image and model tables and enables the
// generation operations on s.
func (s *Store) EnsureGenerationTables(ctx context.Context, tables entity.GenerationTables) error {
	for _, kind := range []entity.GenerationKind{entity.KindConceptImage, entity.KindModel} {
		table, err := tables.Table(kind)
		if err != nil {
			return err
		}
		if !tableName.MatchString(table) {
			return fmt.Errorf("%w: invalid table name %q", entity.ErrConfig, table)
		}

		schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  task_id TEXT NOT NULL,
  user_id TEXT,
  prompt TEXT,
  style TEXT,
  status TEXT NOT NULL,
  asset_url TEXT,
  ai_service_task_id TEXT,
  source_input_asset_id TEXT,
  source_concept_image_id TEXT,
  metadata TEXT,
  created_at BIGINT NOT NULL,
  updated_at BIGINT
)`, table)
		if _, err := s.db.ExecContext(ctx, schema); err != nil {
			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}

	s.gen = &tables
	return nil
}

func (s *Store) generationTable(kind entity.GenerationKind) (string, error) {
	if s.gen == nil {
		return "", fmt.Errorf("%w: generation tables are not initialized", entity.ErrUnsupported)
	}
	return s.gen.Table(kind)
}

// CreateGeneration inserts a concept image or model row
func (s *Store) CreateGeneration(ctx context.Context, kind entity.GenerationKind, record *entity.GenerationRecord) (entity.InsertedRecord, error) {
	if record == nil {
		return nil, fmt.Errorf("record cannot be nil")
	}
	table, err := s.generationTable(kind)
	if err != nil {
		return nil, err
	}

	values := record.Values(kind)
	values["id"] = uuid.NewString()
	values["created_at"] = time.Now()

	columns, args, err := sqlArgs(values)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		table, strings.Join(columns, ", "), s.placeholders(len(columns)), generationColumns)

	row, err := scanGeneration(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, entity.ErrEmptyResponse
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", kind, err)
	}
	return row, nil
}

// UpdateGeneration updates the row with id; no matching row yields entity.ErrNotFound
func (s *Store) UpdateGeneration(ctx context.Context, kind entity.GenerationKind, id string, update *entity.GenerationUpdate) (entity.InsertedRecord, error) {
	if update == nil {
		return nil, fmt.Errorf("update cannot be nil")
	}
	table, err := s.generationTable(kind)
	if err != nil {
		return nil, err
	}

	columns, args, err := sqlArgs(update.Values(kind, time.Now()))
	if err != nil {
		return nil, err
	}

	sets := make([]string, len(columns))
	for i, c := range columns {
		sets[i] = c + " = " + s.placeholder(i+1)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = %s RETURNING %s",
		table, strings.Join(sets, ", "), s.placeholder(len(args)), generationColumns)

	row, err := scanGeneration(s.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s record %s", entity.ErrNotFound, kind, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update %s record: %w", kind, err)
	}
	return row, nil
}

// sqlArgs orders columns by name and converts metadata to JSON text and times to unix seconds
func sqlArgs(values map[string]interface{}) ([]string, []interface{}, error) {
	columns := make([]string, 0, len(values))
	for c := range values {
		columns = append(columns, c)
	}
	sort.Strings(columns)

	args := make([]interface{}, len(columns))
	for i, c := range columns {
		switch v := values[c].(type) {
		case map[string]interface{}:
			data, err := json.Marshal(v)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to encode %s: %w", c, err)
			}
			args[i] = string(data)
		case time.Time:
			args[i] = v.Unix()
		default:
			args[i] = v
		}
	}
	return columns, args, nil
}

func scanGeneration(row *sql.Row) (entity.InsertedRecord, error) {
	var (
		id, taskID, status                        string
		userID, prompt, style, assetURL, aiTaskID sql.NullString
		sourceInputID, sourceConceptID, metadata  sql.NullString
		createdAt                                 int64
		updatedAt                                 sql.NullInt64
	)
	err := row.Scan(&id, &taskID, &userID, &prompt, &style, &status, &assetURL, &aiTaskID,
		&sourceInputID, &sourceConceptID, &metadata, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	rec := entity.InsertedRecord{
		"id":                      id,
		"task_id":                 taskID,
		"user_id":                 fromNull(userID),
		"prompt":                  fromNull(prompt),
		"style":                   fromNull(style),
		"status":                  status,
		"asset_url":               fromNull(assetURL),
		"ai_service_task_id":      fromNull(aiTaskID),
		"source_input_asset_id":   fromNull(sourceInputID),
		"source_concept_image_id": fromNull(sourceConceptID),
		"metadata":                nil,
		"created_at":              time.Unix(createdAt, 0).UTC(),
		"updated_at":              nil,
	}
	if metadata.Valid {
		var m map[string]interface{}
		if err := json.Unmarshal([]byte(metadata.String), &m); err != nil {
			return nil, fmt.Errorf("failed to decode metadata: %w", err)
		}
		rec["metadata"] = m
	}
	if updatedAt.Valid {
		rec["updated_at"] = time.Unix(updatedAt.Int64, 0).UTC()
	}
	return rec, nil
}
