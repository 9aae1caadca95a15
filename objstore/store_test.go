package objstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStores(t *testing.T) map[string]Store {
	t.Helper()

	fsStore, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	return map[string]Store{
		"memory": NewMemoryStore(),
		"fs":     fsStore,
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			obj := Object{
				Data:         []byte(`{"published_at":"2026-08-30T12:00:00Z"}`),
				ContentType:  "application/json",
				CacheControl: "public, max-age=300",
			}
			require.NoError(t, store.Put(ctx, "store-data.json", obj))

			got, err := store.Get(ctx, "store-data.json")
			require.NoError(t, err)
			assert.Equal(t, obj.Data, got.Data)
			assert.Equal(t, "application/json", got.ContentType)
			assert.Equal(t, "public, max-age=300", got.CacheControl)
		})
	}
}

func TestGetMissingKey(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "never-published.json")
			assert.ErrorIs(t, err, ErrNotExist)
		})
	}
}

func TestPutReplacesWholesale(t *testing.T) {
	ctx := context.Background()

	for name, store := range testStores(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, store.Put(ctx, "store-data.json", Object{Data: []byte("v1")}))
			require.NoError(t, store.Put(ctx, "store-data.json", Object{Data: []byte("v2")}))

			got, err := store.Get(ctx, "store-data.json")
			require.NoError(t, err)
			assert.Equal(t, "v2", string(got.Data))
		})
	}
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	ctx := context.Background()
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Put(ctx, "../escape.json", Object{Data: []byte("x")}))
	assert.Error(t, store.Put(ctx, "/abs.json", Object{Data: []byte("x")}))
	_, err = store.Get(ctx, "../escape.json")
	assert.Error(t, err)
}

func TestMemoryStoreDropWrites(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.DropWrites = true

	require.NoError(t, store.Put(ctx, "k", Object{Data: []byte("x")}))
	_, err := store.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotExist)
}
