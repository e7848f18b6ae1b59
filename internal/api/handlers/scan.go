package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/iamgen/internal/api/dto"
	"github.com/pratik-mahalle/iamgen/internal/api/middleware"
	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
)

// ScanHandler handles scan lifecycle requests
type ScanHandler struct {
	scans  scan.Service
	logger *logger.Logger
}

// NewScanHandler creates a new scan handler
func NewScanHandler(scans scan.Service, log *logger.Logger) *ScanHandler {
	return &ScanHandler{
		scans:  scans,
		logger: log,
	}
}

// Start handles POST /api/v1/scans
func (h *ScanHandler) Start(w http.ResponseWriter, r *http.Request) {
	var req dto.StartScanRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err, "Failed to decode scan request")
		return
	}

	id, err := h.scans.Start(r.Context(), req.ToConfig())
	if err != nil {
		respondError(w, h.logger, err, "Failed to start scan")
		return
	}
	middleware.AddLogField(w, "scan_id", id)

	respondJSON(w, http.StatusAccepted, dto.StartScanResponse{
		ScanID: id,
		Status: string(scan.StatusPending),
	})
}

// List handles GET /api/v1/scans
func (h *ScanHandler) List(w http.ResponseWriter, r *http.Request) {
	states, err := h.scans.List(r.Context())
	if err != nil {
		respondError(w, h.logger, err, "Failed to list scans")
		return
	}

	resp := dto.ListScansResponse{
		Scans: make([]dto.ScanResponse, 0, len(states)),
		Total: len(states),
	}
	for _, st := range states {
		resp.Scans = append(resp.Scans, dto.NewScanResponse(st, false))
	}
	respondJSON(w, http.StatusOK, resp)
}

// Get handles GET /api/v1/scans/{id}. ?document=true includes the scan document.
func (h *ScanHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	middleware.AddLogField(w, "scan_id", id)

	st, err := h.scans.Status(r.Context(), id)
	if err != nil {
		respondError(w, h.logger, err, "Failed to get scan")
		return
	}

	respondJSON(w, http.StatusOK, dto.NewScanResponse(st, r.URL.Query().Get("document") == "true"))
}
