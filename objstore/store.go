// Package objstore abstracts the durable object storage that holds the
// published snapshot. One fixed key acts as the latest-version pointer;
// writes replace it wholesale and the store's own last-write-wins
// semantics decide races between concurrent publishers.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/ornata/vitrine/cfg"
)

// ErrNotExist is returned when no object is stored under the key.
var ErrNotExist = errors.New("object does not exist")

// Object is a stored blob plus its serving metadata.
type Object struct {
	Data         []byte
	ContentType  string
	CacheControl string
}

// Store is the object storage backend. A write acknowledgment is not
// trusted as proof of visibility; callers that need durability confirm
// it with their own read-after-write.
type Store interface {
	Put(ctx context.Context, key string, obj Object) error
	Get(ctx context.Context, key string) (Object, error)
	Close() error
}

// Open creates a Store for the configured backend.
func Open(config cfg.ObjectStoreConfiguration, dataDir string) (Store, error) {
	switch config.Type {
	case cfg.ObjectStoreMemory:
		return NewMemoryStore(), nil
	case cfg.ObjectStoreFS:
		dir := config.Dir
		if dir == "" {
			dir = filepath.Join(dataDir, "objects")
		}
		return NewFSStore(dir)
	case cfg.ObjectStoreNATS:
		return NewNATSStore(config.NatsURL, config.Bucket)
	default:
		return nil, fmt.Errorf("unknown object store type: %s", config.Type)
	}
}
