package api

import (
	"net/http"
	"time"

	"github.com/futig/onboarding-bot/internal/api/docs"
	"github.com/futig/onboarding-bot/internal/api/middleware"
	reviewapi "github.com/futig/onboarding-bot/internal/api/review"
	traineeapi "github.com/futig/onboarding-bot/internal/api/trainee"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter creates and configures the HTTP router
func SetupRouter(traineeHandler *traineeapi.Handler, reviewHandler *reviewapi.Handler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(chimiddleware.Recoverer)                 // Recover from panics
	r.Use(chimiddleware.RequestID)                 // Add request ID
	r.Use(middleware.Logger(logger))               // Log requests
	r.Use(middleware.CORS)                         // Handle CORS
	r.Use(chimiddleware.Timeout(60 * time.Second)) // Report scoring can take a while

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	// Swagger documentation endpoints
	docs.RegisterRoutes(r)

	traineeapi.RegisterRoutes(r, traineeHandler)
	reviewapi.RegisterRoutes(r, reviewHandler)

	return r
}
