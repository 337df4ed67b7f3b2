// Package store persists whole JSON documents (events, geocode cache,
// outcome log) as opaque blobs behind a small key-value interface.
package store

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"

	"github.com/meowafisha/eventmap/internal/config"
)

// ErrNotFound is returned by Get when no blob exists under the key.
var ErrNotFound = errors.New("store: blob not found")

// BlobStore reads and writes whole documents by key.
type BlobStore interface {
	// Get returns the blob stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put replaces the blob stored under key.
	Put(ctx context.Context, key string, data []byte) error
	// Close releases underlying resources.
	Close() error
}

// Open creates the BlobStore selected by cfg.Driver and prepares its schema.
func Open(ctx context.Context, cfg config.StoreConfig) (BlobStore, error) {
	switch cfg.Driver {
	case "", "file":
		return NewFile(cfg.Dir)
	case "sqlite":
		st, err := NewSQLite(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close() //nolint:errcheck
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
}
