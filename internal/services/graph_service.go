package services

import (
	"context"

	"github.com/pratik-mahalle/iamgen/internal/domain/graph"
	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	"github.com/pratik-mahalle/iamgen/internal/pkg/logger"
)

// GraphService builds dependency graphs from stored scans
type GraphService struct {
	store  scan.Store
	logger *logger.Logger
}

// NewGraphService creates a new graph service
func NewGraphService(store scan.Store, log *logger.Logger) *GraphService {
	return &GraphService{
		store:  store,
		logger: log,
	}
}

// Build implements graph.Service
func (s *GraphService) Build(ctx context.Context, scanID string) (*graph.DependencyGraph, error) {
	doc, err := completedDocument(ctx, s.store, scanID)
	if err != nil {
		return nil, err
	}

	g := graph.Build(doc)
	s.logger.WithFields(map[string]interface{}{
		"scan_id": scanID,
		"nodes":   len(g.Nodes),
		"edges":   len(g.Edges),
	}).Debug("Dependency graph built")
	return g, nil
}

// BuildRooted implements graph.Service
func (s *GraphService) BuildRooted(ctx context.Context, scanID, rootID string) (*graph.DependencyGraph, error) {
	g, err := s.Build(ctx, scanID)
	if err != nil {
		return nil, err
	}
	return graph.FilterByRoot(g, rootID), nil
}

var _ graph.Service = (*GraphService)(nil)
