package router

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/pratik-mahalle/iamgen/internal/api/handlers"
	"github.com/pratik-mahalle/iamgen/internal/api/middleware"
	"github.com/pratik-mahalle/iamgen/internal/config"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
	"github.com/pratik-mahalle/iamgen/internal/pkg/metrics"
)

// Handlers groups every HTTP handler the router mounts
type Handlers struct {
	Health     *handlers.HealthHandler
	Scan       *handlers.ScanHandler
	Query      *handlers.QueryHandler
	Selection  *handlers.SelectionHandler
	Graph      *handlers.GraphHandler
	Generation *handlers.GenerationHandler
}

// New builds the API router. ctx bounds background middleware work.
func New(ctx context.Context, cfg config.ServerConfig, log *logger.Logger, h *Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Recovery(log))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.RateLimit(ctx, cfg.RequestsPerSecond, cfg.Burst))

	// Probes and metrics
	r.Get("/healthz", h.Health.Healthz)
	r.Get("/readyz", h.Health.Readyz)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1/scans", func(r chi.Router) {
		r.Get("/", h.Scan.List)
		r.Post("/", h.Scan.Start)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Scan.Get)

			r.Get("/query", h.Query.Get)
			r.Post("/query", h.Query.Post)

			r.Get("/selection", h.Selection.Get)
			r.Put("/selection", h.Selection.Merge)
			r.Delete("/selection", h.Selection.Clear)
			r.Post("/selection/query", h.Selection.ByQuery)

			r.Get("/graph", h.Graph.Get)
			r.Get("/graph/stats", h.Graph.Stats)

			r.Post("/generate", h.Generation.Generate)
		})
	})

	return r
}
