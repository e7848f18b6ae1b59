package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/iamgen/internal/api/dto"
	"github.com/pratik-mahalle/iamgen/internal/api/middleware"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
	"github.com/pratik-mahalle/iamgen/internal/services"
)

// QueryHandler handles record queries against completed scans
type QueryHandler struct {
	queries *services.QueryService
	logger  *logger.Logger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(queries *services.QueryService, log *logger.Logger) *QueryHandler {
	return &QueryHandler{
		queries: queries,
		logger:  log,
	}
}

// Get handles GET /api/v1/scans/{id}/query?q=...&category=...&page=...&page_size=...
func (h *QueryHandler) Get(w http.ResponseWriter, r *http.Request) {
	h.run(w, r, dto.QueryRequest{
		Query:      r.URL.Query().Get("q"),
		Categories: queryList(r, "category"),
		Page:       queryInt(r, "page"),
		PageSize:   queryInt(r, "page_size"),
	})
}

// Post handles POST /api/v1/scans/{id}/query
func (h *QueryHandler) Post(w http.ResponseWriter, r *http.Request) {
	var req dto.QueryRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err, "Failed to decode query request")
		return
	}
	h.run(w, r, req)
}

func (h *QueryHandler) run(w http.ResponseWriter, r *http.Request, req dto.QueryRequest) {
	id := chi.URLParam(r, "id")
	middleware.AddLogField(w, "scan_id", id)

	result, err := h.queries.Query(r.Context(), services.QueryRequest{
		ScanID:     id,
		Query:      req.Query,
		Categories: req.Categories,
		Page:       req.Page,
		PageSize:   req.PageSize,
	})
	if err != nil {
		respondError(w, h.logger, err, "Query failed")
		return
	}
	respondJSON(w, http.StatusOK, result)
}
