package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/iamgen/internal/api/dto"
	"github.com/pratik-mahalle/iamgen/internal/api/middleware"
	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
	"github.com/pratik-mahalle/iamgen/internal/services"
)

// SelectionHandler handles the per-scan generation selection
type SelectionHandler struct {
	selections *services.SelectionService
	logger     *logger.Logger
}

// NewSelectionHandler creates a new selection handler
func NewSelectionHandler(selections *services.SelectionService, log *logger.Logger) *SelectionHandler {
	return &SelectionHandler{
		selections: selections,
		logger:     log,
	}
}

// Get handles GET /api/v1/scans/{id}/selection
func (h *SelectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	sel, err := h.selections.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, h.logger, err, "Failed to get selection")
		return
	}
	respondJSON(w, http.StatusOK, dto.SelectionResponse{Selection: sel, Total: sel.Total()})
}

// Merge handles PUT /api/v1/scans/{id}/selection. Listed categories are overwritten.
func (h *SelectionHandler) Merge(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	middleware.AddLogField(w, "scan_id", id)

	var sel scan.Selection
	if err := decodeJSON(r, &sel); err != nil {
		respondError(w, h.logger, err, "Failed to decode selection")
		return
	}

	merged, total, err := h.selections.Select(r.Context(), id, sel)
	if err != nil {
		respondError(w, h.logger, err, "Failed to update selection")
		return
	}
	respondJSON(w, http.StatusOK, dto.SelectionResponse{Selection: merged, Total: total})
}

// ByQuery handles POST /api/v1/scans/{id}/selection/query
func (h *SelectionHandler) ByQuery(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	middleware.AddLogField(w, "scan_id", id)

	var req dto.SelectByQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err, "Failed to decode selection query")
		return
	}

	sel, total, err := h.selections.SelectByQuery(r.Context(), id, req.Query, req.Categories)
	if err != nil {
		respondError(w, h.logger, err, "Failed to select by query")
		return
	}
	respondJSON(w, http.StatusOK, dto.SelectionResponse{Selection: sel, Total: total})
}

// Clear handles DELETE /api/v1/scans/{id}/selection
func (h *SelectionHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.selections.Clear(r.Context(), chi.URLParam(r, "id")); err != nil {
		respondError(w, h.logger, err, "Failed to clear selection")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
