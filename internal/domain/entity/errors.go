package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrConfig is returned when the gateway is built from incomplete configuration
	ErrConfig = errors.New("invalid configuration")

	// ErrNotFound is returned when an object does not exist in its bucket
	ErrNotFound = errors.New("object not found")

	// ErrEmptyResponse is returned when the table API acknowledges an insert without returning a row
	ErrEmptyResponse = errors.New("empty response from table api")

	// ErrUnrecognizedSignedURL is returned when a signed URL response carries none of the known fields
	ErrUnrecognizedSignedURL = errors.New("unrecognized signed url response")

	// ErrUnsupported is returned when the configured backend lacks an operation
	ErrUnsupported = errors.New("operation not supported by backend")

	// ErrInvalidObjectURL is returned when an object URL cannot be mapped back to a bucket and path
	ErrInvalidObjectURL = errors.New("invalid object url")
)

// StorageError is returned by upload, download and signing operations
type StorageError struct {
	Op     string
	Bucket string
	Path   string
	Err    error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s %s/%s: %v", e.Op, e.Bucket, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// DBError is returned by record operations
type DBError struct {
	Op    string
	Table string
	Err   error
}

func (e *DBError) Error() string {
	return fmt.Sprintf("database %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *DBError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps err unless it already is a StorageError
func NewStorageError(op, bucket, path string, err error) error {
	var se *StorageError
	if errors.As(err, &se) {
		return err
	}
	return &StorageError{Op: op, Bucket: bucket, Path: path, Err: err}
}

// NewDBError wraps err unless it already is a DBError
func NewDBError(op, table string, err error) error {
	var de *DBError
	if errors.As(err, &de) {
		return err
	}
	return &DBError{Op: op, Table: table, Err: err}
}
