package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/ornata/vitrine/ledger"
	"github.com/ornata/vitrine/publish"
	"github.com/ornata/vitrine/telemetry"
)

// publishRequest is the POST /api/publish payload.
type publishRequest struct {
	Data map[string]json.RawMessage `json:"data"`
}

// publishResponse is the success payload for both publish endpoints.
type publishResponse struct {
	Success       bool     `json:"success"`
	Message       string   `json:"message"`
	PublishedAt   string   `json:"published_at"`
	FileName      string   `json:"fileName"`
	Size          int      `json:"size"`
	UploadTime    int64    `json:"uploadTime"`
	VerifyTime    int64    `json:"verifyTime"`
	DataKeys      []string `json:"dataKeys"`
	ProductCount  int      `json:"productCount"`
	CategoryCount int      `json:"categoryCount"`
	Warnings      []string `json:"warnings"`
}

// handlePublish handles POST /api/publish: the caller supplies the full
// section map and the gateway publishes it as the new snapshot.
func (h *Handlers) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.Data == nil {
		writeErrorResponse(w, http.StatusBadRequest, "No data provided")
		return
	}

	h.runPublish(w, r, func() (*publish.Result, error) {
		return h.publisher.PublishData(r.Context(), req.Data)
	})
}

// handlePublishLive handles POST /api/publish/live: the gateway collects
// every section from the document store itself and publishes the result.
func (h *Handlers) handlePublishLive(w http.ResponseWriter, r *http.Request) {
	h.runPublish(w, r, func() (*publish.Result, error) {
		return h.publisher.PublishLive(r.Context())
	})
}

// runPublish wraps a publish invocation with quota gating. The quota is
// checked before the write begins and incremented only after success, so
// a failed publish never consumes quota.
func (h *Handlers) runPublish(w http.ResponseWriter, r *http.Request, run func() (*publish.Result, error)) {
	user := requestUser(r)

	if h.limiter != nil {
		decision := h.limiter.CheckLimit(r.Context(), user)
		if !decision.Allowed {
			telemetry.QuotaRejectionsTotal.Inc()
			telemetry.PublishTotal.With("rejected").Inc()
			log.Info().Str("user", user).Msg("Publish rejected, monthly limit reached")
			writeErrorResponse(w, http.StatusTooManyRequests, decision.Message)
			return
		}
	}

	result, err := run()
	if err != nil {
		switch {
		case errors.Is(err, publish.ErrNoData):
			writeErrorResponse(w, http.StatusBadRequest, "No data provided")
		default:
			log.Error().Err(err).Str("user", user).Msg("Publish failed")
			writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	if h.limiter != nil {
		h.limiter.IncrementCount(r.Context(), user)
	}

	warnings := result.Warnings
	if warnings == nil {
		warnings = []string{}
	}

	writeJSONResponse(w, http.StatusOK, publishResponse{
		Success:       true,
		Message:       "Published successfully",
		PublishedAt:   result.PublishedAt,
		FileName:      result.FileName,
		Size:          result.Size,
		UploadTime:    result.UploadTimeMs,
		VerifyTime:    result.VerifyTimeMs,
		DataKeys:      result.DataKeys,
		ProductCount:  result.ProductCount,
		CategoryCount: result.CategoryCount,
		Warnings:      warnings,
	})
}

// handlePublishLimit handles GET /api/publish/limit
func (h *Handlers) handlePublishLimit(w http.ResponseWriter, r *http.Request) {
	if h.limiter == nil {
		writeErrorResponse(w, http.StatusInternalServerError, "rate limiter not configured")
		return
	}

	decision := h.limiter.CheckLimit(r.Context(), requestUser(r))
	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"allowed":   decision.Allowed,
		"remaining": decision.Remaining,
		"limit":     h.limiter.Limit(),
		"message":   decision.Message,
	})
}

// handlePublishes handles GET /api/publishes?limit=N
func (h *Handlers) handlePublishes(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeErrorResponse(w, http.StatusInternalServerError, "publish ledger not configured")
		return
	}

	limit, err := parseLimit(r, 50, 200)
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.history.List(limit)
	if err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []ledger.Entry{}
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"publishes": entries,
	})
}
