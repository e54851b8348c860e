package trainee

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers trainee routes
func RegisterRoutes(r chi.Router, h *Handler) {
	r.Route("/trainees/{telegram_id}", func(r chi.Router) {
		r.Get("/progress", h.GetProgress)
		r.Get("/report", h.GetReport)
		r.Get("/summary", h.GetSummary)
	})
}
