package graph

import "context"

// Service defines the dependency graph contract
type Service interface {
	// Build reconstructs the graph of a completed scan
	Build(ctx context.Context, scanID string) (*DependencyGraph, error)

	// BuildRooted returns only the part of the graph reachable from rootID
	BuildRooted(ctx context.Context, scanID, rootID string) (*DependencyGraph, error)
}
