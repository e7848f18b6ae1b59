package scan

import "context"

// Store holds scan states keyed by scan id
type Store interface {
	// Create stores a new scan state
	Create(ctx context.Context, state *ScanState) error

	// Get retrieves a scan by id
	Get(ctx context.Context, id string) (*ScanState, error)

	// Update atomically applies fn to the stored state of id
	Update(ctx context.Context, id string, fn func(*ScanState) error) error

	// List retrieves every known scan, newest first
	List(ctx context.Context) ([]*ScanState, error)
}

// SelectionStore holds the per-scan selection
type SelectionStore interface {
	// Get retrieves the selection of a scan; an unknown scan yields an empty selection
	Get(ctx context.Context, scanID string) (Selection, error)

	// Put replaces the selection of a scan
	Put(ctx context.Context, scanID string, sel Selection) error

	// Merge overwrites the given categories and returns the merged selection
	Merge(ctx context.Context, scanID string, sel Selection) (Selection, error)
}
