// Package gateway exposes the HTTP API: publish endpoints for the
// store admin and the anonymous snapshot read path for storefronts.
package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/ornata/vitrine/docstore"
	"github.com/ornata/vitrine/ledger"
	"github.com/ornata/vitrine/objstore"
	"github.com/ornata/vitrine/publish"
	"github.com/ornata/vitrine/quota"
)

// Handlers carries the gateway's collaborators.
type Handlers struct {
	publisher *publish.Publisher
	limiter   *quota.Limiter
	history   ledger.Ledger
	objects   objstore.Store
	documents docstore.Store

	snapshotKey      string
	readCacheSeconds int
	adminToken       string
}

// HandlerConfig wires a Handlers instance.
type HandlerConfig struct {
	Publisher *publish.Publisher
	Limiter   *quota.Limiter
	History   ledger.Ledger
	Objects   objstore.Store
	Documents docstore.Store

	SnapshotKey      string
	ReadCacheSeconds int
	AdminToken       string
}

// NewHandlers creates a Handlers instance.
func NewHandlers(config HandlerConfig) (*Handlers, error) {
	if config.Publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if config.Objects == nil {
		return nil, fmt.Errorf("object store is required")
	}
	if config.SnapshotKey == "" {
		return nil, fmt.Errorf("snapshot key is required")
	}
	if config.ReadCacheSeconds <= 0 {
		config.ReadCacheSeconds = 60
	}

	return &Handlers{
		publisher:        config.Publisher,
		limiter:          config.Limiter,
		history:          config.History,
		objects:          config.Objects,
		documents:        config.Documents,
		snapshotKey:      config.SnapshotKey,
		readCacheSeconds: config.ReadCacheSeconds,
		adminToken:       config.AdminToken,
	}, nil
}

// requestUser identifies the publishing user for quota accounting.
// Anonymous requests share one bucket.
func requestUser(r *http.Request) string {
	if user := r.Header.Get("X-Publish-User"); user != "" {
		return user
	}
	return "default"
}

// parseLimit parses the limit query parameter with defaults.
func parseLimit(r *http.Request, fallback, max int) (int, error) {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return fallback, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %w", err)
	}
	if limit < 1 {
		return 0, fmt.Errorf("limit must be positive")
	}
	if limit > max {
		return 0, fmt.Errorf("limit cannot exceed %d", max)
	}
	return limit, nil
}

// writeJSONResponse writes a successful JSON response
func writeJSONResponse(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error JSON response
func writeErrorResponse(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	response := map[string]interface{}{
		"error": message,
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.Error().Err(err).Msg("Failed to encode error response")
	}
}

// handleHealth handles GET /health
func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"status": "ok",
	})
}
