package readside

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int64) {
	t.Helper()
	var hits atomic.Int64
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server, &hits
}

func TestGetCachesWithinTTL(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, `{"products":{"p1":{"name":"Clip"}}}`)
	cache := NewCache(server.URL, WithTTL(time.Minute))

	first := cache.Get(context.Background())
	require.NotNil(t, first)
	assert.Contains(t, first, "products")

	second := cache.Get(context.Background())
	require.NotNil(t, second)
	assert.Equal(t, int64(1), hits.Load())
}

func TestGetReturnsNilOn404WithoutRetry(t *testing.T) {
	server, hits := countingServer(t, http.StatusNotFound, `{"error":"No published data found","fallback":true}`)
	cache := NewCache(server.URL, WithTTL(time.Minute))

	assert.Nil(t, cache.Get(context.Background()))
	assert.Nil(t, cache.Get(context.Background()))
	assert.Equal(t, int64(1), hits.Load(), "404 answers are cached for the TTL")
}

func TestGetReturnsNilOnServerError(t *testing.T) {
	server, hits := countingServer(t, http.StatusInternalServerError, `boom`)
	cache := NewCache(server.URL, WithTTL(time.Minute))

	assert.Nil(t, cache.Get(context.Background()))
	// Errors are not cached; the next call tries again.
	assert.Nil(t, cache.Get(context.Background()))
	assert.Equal(t, int64(2), hits.Load())
}

func TestGetReturnsNilOnNetworkFailure(t *testing.T) {
	cache := NewCache("http://127.0.0.1:1/api/snapshot", WithTTL(time.Minute))
	assert.Nil(t, cache.Get(context.Background()))
}

func TestGetReturnsNilOnMalformedBody(t *testing.T) {
	server, _ := countingServer(t, http.StatusOK, `{truncated`)
	cache := NewCache(server.URL, WithTTL(time.Minute))
	assert.Nil(t, cache.Get(context.Background()))
}

func TestInvalidateForcesRefetch(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, `{"products":{}}`)
	marker := filepath.Join(t.TempDir(), "invalidated")
	cache := NewCache(server.URL, WithTTL(time.Hour), WithMarkerPath(marker))

	require.NotNil(t, cache.Get(context.Background()))
	require.NoError(t, cache.Invalidate())
	require.NotNil(t, cache.Get(context.Background()))
	assert.Equal(t, int64(2), hits.Load())
}

func TestInvalidationMarkerSharedAcrossInstances(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, `{"products":{}}`)
	marker := filepath.Join(t.TempDir(), "invalidated")

	reader := NewCache(server.URL, WithTTL(time.Hour), WithMarkerPath(marker))
	admin := NewCache(server.URL, WithTTL(time.Hour), WithMarkerPath(marker))

	require.NotNil(t, reader.Get(context.Background()))
	require.Equal(t, int64(1), hits.Load())

	// A publish completed elsewhere invalidates this instance too.
	require.NoError(t, admin.Invalidate())

	require.NotNil(t, reader.Get(context.Background()))
	assert.Equal(t, int64(2), hits.Load())
}

func TestCorruptMarkerIgnored(t *testing.T) {
	server, hits := countingServer(t, http.StatusOK, `{"products":{}}`)
	marker := filepath.Join(t.TempDir(), "invalidated")
	cache := NewCache(server.URL, WithTTL(time.Hour), WithMarkerPath(marker))

	require.NotNil(t, cache.Get(context.Background()))
	require.NoError(t, os.WriteFile(marker, []byte("not-a-number"), 0644))
	require.NotNil(t, cache.Get(context.Background()))
	assert.Equal(t, int64(1), hits.Load())
}
