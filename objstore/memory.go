package objstore

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests. PutErr and GetErr, when
// set, force the next operations to fail so callers can exercise
// durability error paths.
type MemoryStore struct {
	mu      sync.Mutex
	objects map[string]Object

	PutErr error
	GetErr error
	// DropWrites simulates a store that acknowledges writes without
	// making them visible, for verify-read failure tests.
	DropWrites bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory object store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]Object)}
}

func (s *MemoryStore) Put(_ context.Context, key string, obj Object) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.PutErr != nil {
		return s.PutErr
	}
	if s.DropWrites {
		return nil
	}

	stored := obj
	stored.Data = make([]byte, len(obj.Data))
	copy(stored.Data, obj.Data)
	s.objects[key] = stored
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.GetErr != nil {
		return Object{}, s.GetErr
	}

	obj, ok := s.objects[key]
	if !ok {
		return Object{}, ErrNotExist
	}

	out := obj
	out.Data = make([]byte, len(obj.Data))
	copy(out.Data, obj.Data)
	return out, nil
}

func (s *MemoryStore) Close() error {
	return nil
}
