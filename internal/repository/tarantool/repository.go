package tarantool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tarantool/go-tarantool/v2"

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
	"github.com/moroshma/MiniToolStream/AssetGateway/pkg/logger"
)

// Tuple layout of the records space
var columns = []string{"id", "task_id", "image_url", "bucket_name", "prompt", "style", "created_at"}

// Repository implements repository.RecordRepository using a Tarantool space
type Repository struct {
	conn   *tarantool.Connection
	space  string
	logger *logger.Logger
	mu     sync.RWMutex
	closed bool
}

// Config represents Tarantool repository configuration
type Config struct {
	Address  string
	User     string
	Password string
	Timeout  time.Duration
	Space    string
}

// NewRepository creates a new Tarantool repository
func NewRepository(cfg *Config, log *logger.Logger) (*Repository, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("%w: tarantool address is required", entity.ErrConfig)
	}

	space := cfg.Space
	if space == "" {
		space = "images"
	}
	if log == nil {
		log = logger.NewNop()
	}

	dialer := tarantool.NetDialer{
		Address:  cfg.Address,
		User:     cfg.User,
		Password: cfg.Password,
	}

	connectCtx := context.Background()
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(connectCtx, cfg.Timeout)
		defer cancel()
	}

	conn, err := tarantool.Connect(connectCtx, dialer, tarantool.Opts{
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Tarantool: %w", err)
	}

	return &Repository{
		conn:   conn,
		space:  space,
		logger: log,
	}, nil
}

// Close closes the Tarantool connection
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}

	r.closed = true
	return r.conn.Close()
}

// Ping checks if the connection to Tarantool is alive
func (r *Repository) Ping() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("repository is closed")
	}

	_, err := r.conn.Ping()
	return err
}

const ensureSpaceLua = `
local name = ...
local space = box.schema.space.create(name, {
    if_not_exists = true,
    format = {
        {name = 'id', type = 'string'},
        {name = 'task_id', type = 'string'},
        {name = 'image_url', type = 'string'},
        {name = 'bucket_name', type = 'string'},
        {name = 'prompt', type = 'string', is_nullable = true},
        {name = 'style', type = 'string', is_nullable = true},
        {name = 'created_at', type = 'unsigned'},
    },
})
space:create_index('primary', {parts = {'id'}, if_not_exists = true})
space:create_index('task_id', {parts = {'task_id'}, unique = false, if_not_exists = true})
return space.id
`

// EnsureSpace creates the records space and its indexes if they do not exist.
// The connected user needs schema privileges.
func (r *Repository) EnsureSpace(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return fmt.Errorf("repository is closed")
	}

	req := tarantool.NewEvalRequest(ensureSpaceLua).Args([]interface{}{r.space}).Context(ctx)
	if _, err := r.conn.Do(req).Get(); err != nil {
		return fmt.Errorf("failed to ensure space %s: %w", r.space, err)
	}

	r.logger.Info("Tarantool space ready", logger.String("space", r.space))
	return nil
}

// Table returns the space rows are written to
func (r *Repository) Table() string {
	return r.space
}

// InsertRecord inserts one tuple and returns it decoded
func (r *Repository) InsertRecord(ctx context.Context, record *entity.ImageRecord) (entity.InsertedRecord, error) {
	if record == nil {
		return nil, fmt.Errorf("record cannot be nil")
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return nil, fmt.Errorf("repository is closed")
	}

	values := record.Values()
	tuple := []interface{}{
		uuid.NewString(),
		values["task_id"],
		values["image_url"],
		values["bucket_name"],
		values["prompt"],
		values["style"],
		time.Now().Unix(),
	}

	req := tarantool.NewInsertRequest(r.space).Tuple(tuple).Context(ctx)
	resp, err := r.conn.Do(req).Get()
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	if len(resp) == 0 {
		return nil, entity.ErrEmptyResponse
	}

	row, ok := resp[0].([]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid response format: %T", resp[0])
	}

	r.logger.Debug("Record inserted into Tarantool",
		logger.String("space", r.space),
		logger.String("task_id", record.TaskID),
	)

	return tupleToRecord(row), nil
}

// tupleToRecord maps tuple fields onto column names; missing trailing fields are absent
func tupleToRecord(tuple []interface{}) entity.InsertedRecord {
	rec := make(entity.InsertedRecord, len(columns))
	for i, name := range columns {
		if i >= len(tuple) {
			break
		}
		if name == "created_at" {
			rec[name] = time.Unix(toInt64(tuple[i]), 0).UTC()
			continue
		}
		rec[name] = tuple[i]
	}
	return rec
}

// Helper function for type conversion to int64
func toInt64(val interface{}) int64 {
	switch v := val.(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case uint64:
		return int64(v)
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
