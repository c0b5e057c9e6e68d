// Package sqlstore writes image and generation records through database/sql.
// Postgres goes through the pgx stdlib driver, SQLite through modernc.org/sqlite.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite

	"github.com/moroshma/MiniToolStream/AssetGateway/internal/domain/entity"
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Store struct {
	db     *sql.DB
	driver Driver
	table  string
	gen    *entity.GenerationTables
}

// Open opens a DB and ensures the records table exists.
func Open(ctx context.Context, driver Driver, dsn, table string) (*Store, error) {
	if table == "" {
		table = "images"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("%w: invalid table name %q", entity.ErrConfig, table)
	}

	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite"
		if dsn == "" {
			dsn = "file:assetgw.db?cache=shared&mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			return nil, fmt.Errorf("%w: postgres dsn is required", entity.ErrConfig)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported driver: %s", entity.ErrConfig, driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	s := &Store{db: db, driver: driver, table: table}
	if err := s.ensureSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure schema: %w", err)
	}
	return s, nil
}

func (s *Store) ensureSchema(ctx context.Context) error {
	createdAt := "BIGINT"
	if s.driver == DriverSQLite {
		createdAt = "INTEGER"
	}
	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
  id TEXT PRIMARY KEY,
  task_id TEXT NOT NULL,
  image_url TEXT NOT NULL,
  bucket_name TEXT NOT NULL,
  prompt TEXT,
  style TEXT,
  created_at %s NOT NULL
)`, s.table, createdAt)

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

func (s *Store) Table() string { return s.table }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) InsertRecord(ctx context.Context, record *entity.ImageRecord) (entity.InsertedRecord, error) {
	if record == nil {
		return nil, fmt.Errorf("record cannot be nil")
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, task_id, image_url, bucket_name, prompt, style, created_at)
VALUES (%s)
RETURNING id, task_id, image_url, bucket_name, prompt, style, created_at`, s.table, s.placeholders(7))

	var (
		id, taskID, imageURL, bucket string
		prompt, style                sql.NullString
		createdAt                    int64
	)
	err := s.db.QueryRowContext(ctx, query,
		uuid.NewString(),
		record.TaskID,
		record.ImageURL,
		record.BucketName,
		nullString(record.Prompt),
		nullString(record.Style),
		time.Now().Unix(),
	).Scan(&id, &taskID, &imageURL, &bucket, &prompt, &style, &createdAt)
	if err == sql.ErrNoRows {
		return nil, entity.ErrEmptyResponse
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert record: %w", err)
	}

	return entity.InsertedRecord{
		"id":          id,
		"task_id":     taskID,
		"image_url":   imageURL,
		"bucket_name": bucket,
		"prompt":      fromNull(prompt),
		"style":       fromNull(style),
		"created_at":  time.Unix(createdAt, 0).UTC(),
	}, nil
}

func (s *Store) placeholders(n int) string {
	out := ""
	for i := 1; i <= n; i++ {
		if i > 1 {
			out += ", "
		}
		out += s.placeholder(i)
	}
	return out
}

func (s *Store) placeholder(i int) string {
	if s.driver == DriverPostgres {
		return fmt.Sprintf("$%d", i)
	}
	return "?"
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNull(ns sql.NullString) interface{} {
	if !ns.Valid {
		return nil
	}
	return ns.String
}
