package objstore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// fsMeta is the sidecar metadata persisted next to each object.
type fsMeta struct {
	ContentType  string `json:"content_type"`
	CacheControl string `json:"cache_control,omitempty"`
}

// FSStore implements Store on the local filesystem. Writes go through a
// temp file and rename so a crashed write never leaves a truncated
// object under the published key.
type FSStore struct {
	dir string
}

var _ Store = (*FSStore)(nil)

// NewFSStore creates a filesystem object store rooted at dir.
func NewFSStore(dir string) (*FSStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create object dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// sanitizeKey rejects keys that escape the store directory.
func (s *FSStore) sanitizeKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty object key")
	}
	if filepath.IsAbs(key) {
		return "", fmt.Errorf("absolute object key not allowed: %s", key)
	}
	cleaned := filepath.Clean(key)
	if strings.HasPrefix(cleaned, "..") {
		return "", fmt.Errorf("path traversal not allowed: %s", key)
	}
	return filepath.Join(s.dir, cleaned), nil
}

func (s *FSStore) Put(_ context.Context, key string, obj Object) error {
	path, err := s.sanitizeKey(key)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, obj.Data, 0644); err != nil {
		return fmt.Errorf("failed to write object %s: %w", key, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit object %s: %w", key, err)
	}

	meta, err := json.Marshal(fsMeta{ContentType: obj.ContentType, CacheControl: obj.CacheControl})
	if err != nil {
		return fmt.Errorf("failed to encode object metadata: %w", err)
	}
	if err := os.WriteFile(path+".meta", meta, 0644); err != nil {
		return fmt.Errorf("failed to write object metadata %s: %w", key, err)
	}

	return nil
}

func (s *FSStore) Get(_ context.Context, key string) (Object, error) {
	path, err := s.sanitizeKey(key)
	if err != nil {
		return Object{}, err
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Object{}, ErrNotExist
	}
	if err != nil {
		return Object{}, fmt.Errorf("failed to read object %s: %w", key, err)
	}

	obj := Object{Data: data}
	if metaData, err := os.ReadFile(path + ".meta"); err == nil {
		var meta fsMeta
		if err := json.Unmarshal(metaData, &meta); err == nil {
			obj.ContentType = meta.ContentType
			obj.CacheControl = meta.CacheControl
		}
	}

	return obj, nil
}

func (s *FSStore) Close() error {
	return nil
}
