package docstore

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories builds one store per backend for shared contract tests.
func storeFactories(t *testing.T) map[string]Store {
	t.Helper()

	pebbleStore, err := NewPebbleStore(filepath.Join(t.TempDir(), "docstore"))
	require.NoError(t, err)
	t.Cleanup(func() { pebbleStore.Close() })

	sqliteStore, err := NewSQLiteStore(filepath.Join(t.TempDir(), "docstore.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqliteStore.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"pebble": pebbleStore,
		"sqlite": sqliteStore,
	}
}

func TestStorePutGetDelete(t *testing.T) {
	ctx := context.Background()

	for name, store := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			doc := json.RawMessage(`{"p1":{"name":"Clip","price":99}}`)
			require.NoError(t, store.Put(ctx, "products", doc))

			got, err := store.Get(ctx, "products")
			require.NoError(t, err)
			assert.JSONEq(t, string(doc), string(got))

			require.NoError(t, store.Delete(ctx, "products"))
			_, err = store.Get(ctx, "products")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreGetMissing(t *testing.T) {
	ctx := context.Background()

	for name, store := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "no_such_section")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreOverwrite(t *testing.T) {
	ctx := context.Background()

	for name, store := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "theme_settings", json.RawMessage(`{"color":"red"}`)))
			require.NoError(t, store.Put(ctx, "theme_settings", json.RawMessage(`{"color":"blue"}`)))

			got, err := store.Get(ctx, "theme_settings")
			require.NoError(t, err)
			assert.JSONEq(t, `{"color":"blue"}`, string(got))
		})
	}
}

func TestStoreDeleteMissingIsNoop(t *testing.T) {
	ctx := context.Background()

	for name, store := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			assert.NoError(t, store.Delete(ctx, "never_written"))
		})
	}
}

func TestSlashPaths(t *testing.T) {
	ctx := context.Background()

	for name, store := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			quota := json.RawMessage(`{"count":3,"month":"2026-08"}`)
			require.NoError(t, store.Put(ctx, "publish_limits/admin1", quota))

			got, err := store.Get(ctx, "publish_limits/admin1")
			require.NoError(t, err)
			assert.JSONEq(t, string(quota), string(got))
		})
	}
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	doc := []byte(`{"a":1}`)
	require.NoError(t, store.Put(ctx, "x", doc))
	doc[2] = 'b' // mutate caller's buffer after Put

	got, err := store.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, string(got))
}
