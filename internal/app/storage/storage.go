/*
Package storage persists zone state records.

A Backend is a flat key/value store of opaque JSON documents. The zone saves
each record wholesale and loads it wholesale at startup; nothing is written
incrementally. Three backends exist: sqlite (default, a local file), postgres,
and S3-compatible object storage.
*/
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned by Load when the key has never been saved.
var ErrNotFound = errors.New("storage: record not found")

// Backend loads and saves whole records by key.
type Backend interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
	Close() error
}

// Driver names accepted by Open.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverS3       = "s3"
	DriverNone     = "none"
)

// Config selects and configures a backend.
type Config struct {
	Driver string

	SQLitePath  string
	DatabaseURL string

	S3BucketName      string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3Prefix          string
}

// Open is the factory for Backend. DriverNone yields a backend that
// remembers records in memory only.
func Open(ctx context.Context, cfg Config) (Backend, error) {
	var (
		b   Backend
		err error
	)
	switch cfg.Driver {
	case DriverSQLite, "":
		b, err = OpenSQLite(cfg.SQLitePath)
	case DriverPostgres:
		b, err = OpenPostgres(ctx, cfg.DatabaseURL)
	case DriverS3:
		b, err = OpenS3(ctx, cfg)
	case DriverNone:
		b = NewMemory()
	default:
		err = fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// LoadJSON decodes the record at key into dst. It reports false, with no
// error, when the record does not exist yet.
func LoadJSON(ctx context.Context, b Backend, key string, dst any) (bool, error) {
	data, err := b.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON encodes v and overwrites the record at key.
func SaveJSON(ctx context.Context, b Backend, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := b.Save(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}
