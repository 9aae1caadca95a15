// Package readside is the storefront-facing client for the published
// snapshot. It wraps the gateway's anonymous read endpoint with a TTL
// cache and a persisted invalidation marker, so transient gateway
// errors degrade to a "no data" state instead of surfacing to the UI.
package readside

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog/log"
)

// Snapshot is the parsed published document.
type Snapshot map[string]json.RawMessage

// DefaultTTL bounds how long a fetched snapshot is served without
// consulting the gateway again.
const DefaultTTL = 60 * time.Second

const cacheKey = "snapshot"

type cachedSnapshot struct {
	data      Snapshot // nil records a "no published data" answer
	fetchedAt time.Time
}

// Cache fetches the published snapshot and caches it locally.
type Cache struct {
	endpoint   string
	client     *http.Client
	ttl        time.Duration
	markerPath string
	entries    *expirable.LRU[string, cachedSnapshot]
	now        func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithTTL overrides the cache TTL.
func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) { c.ttl = ttl }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Cache) { c.client = client }
}

// WithMarkerPath sets the shared invalidation marker file. Separate
// Cache instances pointed at the same path observe each other's
// invalidations.
func WithMarkerPath(path string) Option {
	return func(c *Cache) { c.markerPath = path }
}

// NewCache creates a Cache reading from the given snapshot endpoint URL.
func NewCache(endpoint string, opts ...Option) *Cache {
	c := &Cache{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		ttl:      DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.entries = expirable.NewLRU[string, cachedSnapshot](1, nil, c.ttl)
	return c
}

// Get returns the current snapshot, or nil when none is published or
// the gateway cannot be reached. It never returns an error to the
// caller: the storefront renders a degraded state on nil. A 404 answer
// is cached like a successful one, so repeated calls within the TTL do
// not hammer the gateway.
func (c *Cache) Get(ctx context.Context) Snapshot {
	if entry, ok := c.entries.Get(cacheKey); ok && entry.fetchedAt.After(c.invalidatedAt()) {
		return entry.data
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to build snapshot request")
		return nil
	}

	resp, err := c.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("Snapshot fetch failed")
		return nil
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		c.entries.Add(cacheKey, cachedSnapshot{data: nil, fetchedAt: c.now()})
		return nil
	case resp.StatusCode != http.StatusOK:
		log.Warn().Int("status", resp.StatusCode).Msg("Snapshot fetch returned unexpected status")
		return nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read snapshot body")
		return nil
	}

	var snapshot Snapshot
	if err := json.Unmarshal(body, &snapshot); err != nil {
		log.Warn().Err(err).Msg("Snapshot body is not valid JSON")
		return nil
	}

	c.entries.Add(cacheKey, cachedSnapshot{data: snapshot, fetchedAt: c.now()})
	return snapshot
}

// Invalidate drops the cached entry and persists an invalidation
// marker, so other Cache instances sharing the marker refetch on their
// next Get even if their own TTL has not expired.
func (c *Cache) Invalidate() error {
	c.entries.Purge()

	if c.markerPath == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(c.markerPath), 0755); err != nil {
		return fmt.Errorf("failed to create marker directory: %w", err)
	}

	stamp := strconv.FormatInt(c.now().UnixNano(), 10)
	tmp := c.markerPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(stamp), 0644); err != nil {
		return fmt.Errorf("failed to write invalidation marker: %w", err)
	}
	if err := os.Rename(tmp, c.markerPath); err != nil {
		return fmt.Errorf("failed to persist invalidation marker: %w", err)
	}
	return nil
}

// invalidatedAt reads the shared marker. A missing or unreadable
// marker means "never invalidated".
func (c *Cache) invalidatedAt() time.Time {
	if c.markerPath == "" {
		return time.Time{}
	}

	raw, err := os.ReadFile(c.markerPath)
	if err != nil {
		return time.Time{}
	}

	nanos, err := strconv.ParseInt(strings.TrimSpace(string(raw)), 10, 64)
	if err != nil {
		log.Warn().Str("path", c.markerPath).Msg("Ignoring corrupt invalidation marker")
		return time.Time{}
	}
	return time.Unix(0, nanos)
}
