package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/trungvh/gazette/internal/api/handlers"
	"github.com/trungvh/gazette/internal/pipeline"
	"github.com/trungvh/gazette/internal/storage"
)

// NewRouter creates and configures the HTTP router with all API routes.
func NewRouter(store *storage.Store, p *pipeline.Pipeline) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware.
	r.Use(RequestLogger)
	r.Use(Recovery)
	r.Use(CORS)

	r.Route("/api", func(api chi.Router) {
		api.Get("/digest/headlines", handlers.GetHeadlines(store))
		api.Get("/digest/summary", handlers.GetDigestSummary(store))

		api.Get("/status", handlers.GetStatus(p))
		api.Post("/refresh", handlers.Refresh(p))
	})

	return r
}
