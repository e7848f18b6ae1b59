package generation

import (
	"context"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
)

// Request is one generation request
type Request struct {
	ScanID    string         `json:"scan_id" validate:"required"`
	Config    Config         `json:"config"`
	Selection scan.Selection `json:"selection,omitempty"`
}

// Service defines the code generation contract
type Service interface {
	// Generate renders the selected resources of a completed scan into a fresh output directory.
	// A nil request selection falls back to the selection stored for the scan.
	Generate(ctx context.Context, req Request) (*Result, error)
}
