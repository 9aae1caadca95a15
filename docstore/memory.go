package docstore

import (
	"context"
	"encoding/json"

	"github.com/puzpuzpuz/xsync/v3"
)

// MemoryStore implements Store using a lock-free concurrent map.
// Used in tests and for ephemeral deployments.
type MemoryStore struct {
	docs *xsync.MapOf[string, []byte]
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: xsync.NewMapOf[string, []byte](),
	}
}

func (s *MemoryStore) Get(_ context.Context, path string) (json.RawMessage, error) {
	val, ok := s.docs.Load(path)
	if !ok {
		return nil, ErrNotFound
	}

	out := make([]byte, len(val))
	copy(out, val)
	return out, nil
}

func (s *MemoryStore) Put(_ context.Context, path string, value json.RawMessage) error {
	stored := make([]byte, len(value))
	copy(stored, value)
	s.docs.Store(path, stored)
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.docs.Delete(path)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
