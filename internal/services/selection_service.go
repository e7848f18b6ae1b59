package services

import (
	"context"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
)

// SelectionService records which resources of a scan go into code generation
type SelectionService struct {
	selections scan.SelectionStore
	scans      scan.Store
	logger     *logger.Logger
}

// NewSelectionService creates a new selection service
func NewSelectionService(selections scan.SelectionStore, scans scan.Store, log *logger.Logger) *SelectionService {
	return &SelectionService{
		selections: selections,
		scans:      scans,
		logger:     log,
	}
}

// Get returns the stored selection of a scan
func (s *SelectionService) Get(ctx context.Context, scanID string) (scan.Selection, error) {
	sel, err := s.selections.Get(ctx, scanID)
	if err != nil {
		return nil, apperrors.StoreError("failed to load selection", err)
	}
	return sel, nil
}

// Select overwrites the listed categories and returns the merged selection and its total
func (s *SelectionService) Select(ctx context.Context, scanID string, sel scan.Selection) (scan.Selection, int, error) {
	if _, err := s.scans.Get(ctx, scanID); err != nil {
		return nil, 0, err
	}

	merged, err := s.selections.Merge(ctx, scanID, sel)
	if err != nil {
		return nil, 0, apperrors.StoreError("failed to store selection", err)
	}

	s.logger.WithFields(map[string]interface{}{
		"scan_id": scanID,
		"total":   merged.Total(),
	}).Info("Selection updated")

	return merged, merged.Total(), nil
}

// SelectByQuery selects exactly the records matching input in each of the given categories, or in
// every category of the scan when none are named. Categories without matches end up selecting nothing.
func (s *SelectionService) SelectByQuery(ctx context.Context, scanID, input string, categories []string) (scan.Selection, int, error) {
	expr, err := parseQuery(input)
	if err != nil {
		return nil, 0, err
	}

	doc, err := completedDocument(ctx, s.scans, scanID)
	if err != nil {
		return nil, 0, err
	}
	if len(categories) == 0 {
		categories = doc.Categories()
	}

	sel := make(scan.Selection, len(categories))
	for _, c := range categories {
		sel[c] = []any{}
	}
	for _, m := range Match(doc, expr, categories) {
		if m.Identity != "" {
			sel[m.Category] = append(sel[m.Category], m.Identity)
		}
	}

	return s.Select(ctx, scanID, sel)
}

// Clear drops every restriction so generation includes everything again
func (s *SelectionService) Clear(ctx context.Context, scanID string) error {
	if err := s.selections.Put(ctx, scanID, scan.Selection{}); err != nil {
		return apperrors.StoreError("failed to clear selection", err)
	}
	return nil
}
