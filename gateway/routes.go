package gateway

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// NewRouter builds the gateway's route table. Read endpoints are open
// to anonymous storefront traffic; write endpoints sit behind the PSK
// middleware when a token is configured.
func NewRouter(h *Handlers) http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/health", h.handleHealth)

	r.Route("/api", func(r chi.Router) {
		// Anonymous read path
		r.Get("/snapshot", h.handleSnapshot)

		// Store admin endpoints
		r.Group(func(r chi.Router) {
			r.Use(h.authMiddleware)

			r.Post("/publish", h.handlePublish)
			r.Post("/publish/live", h.handlePublishLive)
			r.Get("/publish/limit", h.handlePublishLimit)
			r.Get("/publishes", h.handlePublishes)

			r.Put("/sections/{name}", h.handlePutSection)
			r.Get("/sections/{name}", h.handleGetSection)
			r.Delete("/sections/{name}", h.handleDeleteSection)
		})
	})

	return r
}
