// Package docstore provides the mutable document store holding the live
// catalog sections and publish quotas. Values are opaque JSON documents
// addressed by flat logical paths ("products", "publish_limits/u1").
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ornata/vitrine/cfg"
)

// ErrNotFound is returned when no document exists at the requested path.
var ErrNotFound = errors.New("document not found")

// Store is the mutable document store. Each backend owns durability; the
// callers treat the store as an already-consistent external service and
// never layer locking on top of it.
type Store interface {
	// Get returns the document at path, or ErrNotFound.
	Get(ctx context.Context, path string) (json.RawMessage, error)
	// Put writes the document at path, replacing any existing value.
	Put(ctx context.Context, path string, value json.RawMessage) error
	// Delete removes the document at path. Deleting a missing path is a no-op.
	Delete(ctx context.Context, path string) error
	// Close releases backend resources.
	Close() error
}

// Open creates a Store for the configured backend.
func Open(config cfg.DocStoreConfiguration, dataDir string) (Store, error) {
	switch config.Type {
	case cfg.DocStoreMemory:
		return NewMemoryStore(), nil
	case cfg.DocStorePebble:
		path := config.PebblePath
		if path == "" {
			path = filepath.Join(dataDir, "docstore")
		}
		return NewPebbleStore(path)
	case cfg.DocStoreSQLite:
		path := config.SQLitePath
		if path == "" {
			path = filepath.Join(dataDir, "docstore.db")
		}
		return NewSQLiteStore(path)
	default:
		return nil, fmt.Errorf("unknown docstore type: %s", config.Type)
	}
}
