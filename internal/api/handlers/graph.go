package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/iamgen/internal/domain/graph"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
)

// GraphHandler serves dependency graphs of completed scans
type GraphHandler struct {
	graphs graph.Service
	logger *logger.Logger
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(graphs graph.Service, log *logger.Logger) *GraphHandler {
	return &GraphHandler{
		graphs: graphs,
		logger: log,
	}
}

func (h *GraphHandler) build(r *http.Request) (*graph.DependencyGraph, error) {
	id := chi.URLParam(r, "id")
	if root := r.URL.Query().Get("root"); root != "" {
		return h.graphs.BuildRooted(r.Context(), id, root)
	}
	return h.graphs.Build(r.Context(), id)
}

// Get handles GET /api/v1/scans/{id}/graph?root=...
func (h *GraphHandler) Get(w http.ResponseWriter, r *http.Request) {
	g, err := h.build(r)
	if err != nil {
		respondError(w, h.logger, err, "Failed to build graph")
		return
	}
	respondJSON(w, http.StatusOK, g)
}

// Stats handles GET /api/v1/scans/{id}/graph/stats?root=...
func (h *GraphHandler) Stats(w http.ResponseWriter, r *http.Request) {
	g, err := h.build(r)
	if err != nil {
		respondError(w, h.logger, err, "Failed to build graph")
		return
	}
	respondJSON(w, http.StatusOK, g.Stats())
}
