package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pratik-mahalle/iamgen/internal/api/dto"
	"github.com/pratik-mahalle/iamgen/internal/api/middleware"
	"github.com/pratik-mahalle/iamgen/internal/domain/generation"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
)

// GenerationHandler turns scans into Terraform on disk
type GenerationHandler struct {
	generator generation.Service
	defaults  generation.Config
	logger    *logger.Logger
}

// NewGenerationHandler creates a new generation handler. Empty request fields take their value
// from defaults.
func NewGenerationHandler(generator generation.Service, defaults generation.Config, log *logger.Logger) *GenerationHandler {
	return &GenerationHandler{
		generator: generator,
		defaults:  defaults,
		logger:    log,
	}
}

// Generate handles POST /api/v1/scans/{id}/generate
func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	middleware.AddLogField(w, "scan_id", id)

	var req dto.GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, h.logger, err, "Failed to decode generation request")
		return
	}

	result, err := h.generator.Generate(r.Context(), generation.Request{
		ScanID:    id,
		Config:    h.withDefaults(req.Config),
		Selection: req.Selection,
	})
	if err != nil {
		respondError(w, h.logger, err, "Generation failed")
		return
	}
	middleware.AddLogField(w, "generation_id", result.GenerationID)

	respondJSON(w, http.StatusCreated, result)
}

func (h *GenerationHandler) withDefaults(cfg generation.Config) generation.Config {
	if cfg.OutputDir == "" {
		cfg.OutputDir = h.defaults.OutputDir
	}
	if cfg.FileSplit == "" {
		cfg.FileSplit = h.defaults.FileSplit
	}
	if cfg.NamingConvention == "" {
		cfg.NamingConvention = h.defaults.NamingConvention
	}
	if cfg.ImportScriptFormat == "" {
		cfg.ImportScriptFormat = h.defaults.ImportScriptFormat
	}
	if cfg.PreviewChars == 0 {
		cfg.PreviewChars = h.defaults.PreviewChars
	}
	return cfg
}
