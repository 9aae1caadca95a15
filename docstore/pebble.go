package docstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/rs/zerolog/log"
)

// Key prefix for document records
const prefixDoc = "/doc/"

// PebbleStore implements Store on a local Pebble database. This is the
// default backend for single-node deployments.
type PebbleStore struct {
	db   *pebble.DB
	path string
}

var _ Store = (*PebbleStore)(nil)

// NewPebbleStore creates or opens a Pebble-backed document store.
func NewPebbleStore(path string) (*PebbleStore, error) {
	opts := &pebble.Options{
		// Document workload is small and read-heavy; defaults are fine
		// except WAL, which must stay on for durability.
		DisableWAL: false,
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open docstore at %s: %w", path, err)
	}

	log.Debug().Str("path", path).Msg("Opened pebble document store")
	return &PebbleStore{db: db, path: path}, nil
}

func (s *PebbleStore) key(path string) []byte {
	return []byte(prefixDoc + path)
}

func (s *PebbleStore) Get(_ context.Context, path string) (json.RawMessage, error) {
	val, closer, err := s.db.Get(s.key(path))
	if err == pebble.ErrNotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("docstore get %s: %w", path, err)
	}
	defer closer.Close()

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (s *PebbleStore) Put(_ context.Context, path string, value json.RawMessage) error {
	if err := s.db.Set(s.key(path), value, pebble.Sync); err != nil {
		return fmt.Errorf("docstore put %s: %w", path, err)
	}
	return nil
}

func (s *PebbleStore) Delete(_ context.Context, path string) error {
	if err := s.db.Delete(s.key(path), pebble.Sync); err != nil {
		return fmt.Errorf("docstore delete %s: %w", path, err)
	}
	return nil
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
