package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ornata/vitrine/catalog"
	"github.com/ornata/vitrine/docstore"
)

// maxSectionBytes bounds a single section upload.
const maxSectionBytes = 8 << 20

func (h *Handlers) sectionName(w http.ResponseWriter, r *http.Request) (string, bool) {
	if h.documents == nil {
		writeErrorResponse(w, http.StatusInternalServerError, "document store not configured")
		return "", false
	}

	name := chi.URLParam(r, "name")
	if !catalog.IsKnownSection(name) {
		writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("unknown section: %s", name))
		return "", false
	}
	return name, true
}

// handlePutSection handles PUT /api/sections/{name}
func (h *Handlers) handlePutSection(w http.ResponseWriter, r *http.Request) {
	name, ok := h.sectionName(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSectionBytes+1))
	if err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	if len(body) > maxSectionBytes {
		writeErrorResponse(w, http.StatusRequestEntityTooLarge, "section body too large")
		return
	}
	if !json.Valid(body) {
		writeErrorResponse(w, http.StatusBadRequest, "section body must be valid JSON")
		return
	}

	if err := h.documents.Put(r.Context(), name, body); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"section": name,
		"size":    len(body),
	})
}

// handleGetSection handles GET /api/sections/{name}
func (h *Handlers) handleGetSection(w http.ResponseWriter, r *http.Request) {
	name, ok := h.sectionName(w, r)
	if !ok {
		return
	}

	value, err := h.documents.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			writeErrorResponse(w, http.StatusNotFound, fmt.Sprintf("section %s has no data", name))
			return
		}
		writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(value); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err.Error())
	}
}

// handleDeleteSection handles DELETE /api/sections/{name}
func (h *Handlers) handleDeleteSection(w http.ResponseWriter, r *http.Request) {
	name, ok := h.sectionName(w, r)
	if !ok {
		return
	}

	if err := h.documents.Delete(r.Context(), name); err != nil {
		writeErrorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"section": name,
	})
}
