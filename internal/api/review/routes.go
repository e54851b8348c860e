package review

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers submission review routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/submissions", func(r chi.Router) {
		r.Get("/", h.ListSubmissions)
		r.Post("/{id}/review", h.ReviewSubmission)
	})
}
