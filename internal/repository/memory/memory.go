// Package memory keeps objects and records in process memory.
// It backs local runs and tests that need a faithful fake of the platform.
package memory

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/repository"
)

const baseURL = "memory://objects"

type object struct {
	data        []byte
	contentType string
}

// Storage is an in-memory StorageRepository
type Storage struct {
	mu      sync.RWMutex
	objects map[string]object
}

func NewStorage() *Storage {
	return &Storage{objects: make(map[string]object)}
}

func key(bucket, path string) string {
	return bucket + "/" + path
}

func (s *Storage) Upload(_ context.Context, bucket, path string, data []byte, opts repository.UploadOptions) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	s.objects[key(bucket, path)] = object{data: buf, contentType: opts.ContentType}
	s.mu.Unlock()
	return nil
}

func (s *Storage) Download(_ context.Context, bucket, path string) ([]byte, error) {
	s.mu.RLock()
	obj, ok := s.objects[key(bucket, path)]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", entity.ErrNotFound, bucket, path)
	}

	buf := make([]byte, len(obj.data))
	copy(buf, obj.data)
	return buf, nil
}

// ContentType returns the content type an object was uploaded with
func (s *Storage) ContentType(bucket, path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.objects[key(bucket, path)].contentType
}

func (s *Storage) CreateSignedURL(_ context.Context, bucket, path string, expiresIn time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key(bucket, path)]
	s.mu.RUnlock()

	if !ok {
		return "", fmt.Errorf("%w: %s/%s", entity.ErrNotFound, bucket, path)
	}

	q := url.Values{}
	q.Set("token", uuid.NewString())
	q.Set("expires", strconv.FormatInt(time.Now().Add(expiresIn).Unix(), 10))
	return baseURL + "/sign/" + key(bucket, path) + "?" + q.Encode(), nil
}

func (s *Storage) ObjectURL(bucket, path string) string {
	return entity.JoinObjectURL(baseURL+"/public", bucket, path)
}

func (s *Storage) ParseObjectURL(rawURL string) (string, string, error) {
	return entity.SplitObjectURL(rawURL, baseURL+"/public")
}

// Records is an in-memory RecordRepository
type Records struct {
	mu    sync.Mutex
	table string
	rows  []entity.InsertedRecord
}

func NewRecords(table string) *Records {
	if table == "" {
		table = "images"
	}
	return &Records{table: table}
}

func (r *Records) Table() string {
	return r.table
}

func (r *Records) InsertRecord(_ context.Context, record *entity.ImageRecord) (entity.InsertedRecord, error) {
	if record == nil {
		return nil, fmt.Errorf("record cannot be nil")
	}

	row := entity.InsertedRecord(record.Values())
	row["id"] = uuid.NewString()
	row["created_at"] = time.Now().UTC()

	r.mu.Lock()
	r.rows = append(r.rows, row)
	r.mu.Unlock()

	return copyRow(row), nil
}

// Rows returns a snapshot of the inserted rows
func (r *Records) Rows() []entity.InsertedRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entity.InsertedRecord, len(r.rows))
	copy(out, r.rows)
	return out
}

// Generations is an in-memory GenerationRepository
type Generations struct {
	mu     sync.Mutex
	tables entity.GenerationTables
	rows   map[string]map[string]entity.InsertedRecord
}

func NewGenerations(tables entity.GenerationTables) *Generations {
	return &Generations{tables: tables, rows: make(map[string]map[string]entity.InsertedRecord)}
}

func (g *Generations) CreateGeneration(_ context.Context, kind entity.GenerationKind, record *entity.GenerationRecord) (entity.InsertedRecord, error) {
	if record == nil {
		return nil, fmt.Errorf("record cannot be nil")
	}
	table, err := g.tables.Table(kind)
	if err != nil {
		return nil, err
	}

	row := entity.InsertedRecord(record.Values(kind))
	row["id"] = uuid.NewString()
	row["created_at"] = time.Now().UTC()

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.rows[table] == nil {
		g.rows[table] = make(map[string]entity.InsertedRecord)
	}
	g.rows[table][row.String("id")] = row
	return copyRow(row), nil
}

func (g *Generations) UpdateGeneration(_ context.Context, kind entity.GenerationKind, id string, update *entity.GenerationUpdate) (entity.InsertedRecord, error) {
	if update == nil {
		return nil, fmt.Errorf("update cannot be nil")
	}
	table, err := g.tables.Table(kind)
	if err != nil {
		return nil, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	row, ok := g.rows[table][id]
	if !ok {
		return nil, fmt.Errorf("%w: %s record %s", entity.ErrNotFound, kind, id)
	}
	for k, v := range update.Values(kind, time.Now()) {
		row[k] = v
	}
	return copyRow(row), nil
}

func copyRow(row entity.InsertedRecord) entity.InsertedRecord {
	out := make(entity.InsertedRecord, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}
