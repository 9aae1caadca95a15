package gateway

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog/log"

	"github.com/ornata/vitrine/objstore"
	"github.com/ornata/vitrine/telemetry"
)

// handleSnapshot handles GET /api/snapshot: the anonymous storefront
// read path. Serves the raw published document with read-side cache
// headers; a missing snapshot signals the storefront to fall back to
// its bundled defaults.
func (h *Handlers) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	obj, err := h.objects.Get(r.Context(), h.snapshotKey)
	if err != nil {
		if errors.Is(err, objstore.ErrNotExist) {
			telemetry.SnapshotReadsTotal.With("not_found").Inc()
			writeJSONResponse(w, http.StatusNotFound, map[string]interface{}{
				"error":    "No published data found",
				"fallback": true,
			})
			return
		}
		telemetry.SnapshotReadsTotal.With("error").Inc()
		log.Error().Err(err).Msg("Snapshot read failed")
		writeErrorResponse(w, http.StatusInternalServerError, "failed to read snapshot")
		return
	}

	etag := fmt.Sprintf(`"%016x"`, xxhash.Sum64(obj.Data))
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", h.readCacheSeconds))

	if match := r.Header.Get("If-None-Match"); match != "" && etagMatches(match, etag) {
		telemetry.SnapshotReadsTotal.With("ok").Inc()
		w.WriteHeader(http.StatusNotModified)
		return
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)

	telemetry.SnapshotReadsTotal.With("ok").Inc()

	if acceptsGzip(r) {
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		if _, err := gz.Write(obj.Data); err != nil {
			log.Error().Err(err).Msg("Failed to write gzip snapshot response")
		}
		if err := gz.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to flush gzip snapshot response")
		}
		return
	}

	if _, err := w.Write(obj.Data); err != nil {
		log.Error().Err(err).Msg("Failed to write snapshot response")
	}
}

func acceptsGzip(r *http.Request) bool {
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		if strings.TrimSpace(strings.SplitN(enc, ";", 2)[0]) == "gzip" {
			return true
		}
	}
	return false
}

func etagMatches(header, etag string) bool {
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == etag || candidate == "*" {
			return true
		}
	}
	return false
}
