package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
)

// ScanStore keeps scan states in process memory. Readers get snapshots, so polling never
// observes a half-applied update.
type ScanStore struct {
	mu    sync.RWMutex
	scans map[string]*scan.ScanState
}

// NewScanStore creates an empty store
func NewScanStore() *ScanStore {
	return &ScanStore{scans: make(map[string]*scan.ScanState)}
}

// Create implements scan.Store
func (s *ScanStore) Create(ctx context.Context, state *scan.ScanState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.scans[state.ID]; exists {
		return apperrors.Conflict("scan " + state.ID + " already exists")
	}
	cp := *state
	s.scans[state.ID] = &cp
	return nil
}

// Get implements scan.Store
func (s *ScanStore) Get(ctx context.Context, id string) (*scan.ScanState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.scans[id]
	if !ok {
		return nil, apperrors.NotFound("scan " + id)
	}
	cp := *st
	return &cp, nil
}

// Update implements scan.Store
func (s *ScanStore) Update(ctx context.Context, id string, fn func(*scan.ScanState) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.scans[id]
	if !ok {
		return apperrors.NotFound("scan " + id)
	}
	cp := *st
	if err := fn(&cp); err != nil {
		return err
	}
	s.scans[id] = &cp
	return nil
}

// List implements scan.Store
func (s *ScanStore) List(ctx context.Context) ([]*scan.ScanState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*scan.ScanState, 0, len(s.scans))
	for _, st := range s.scans {
		cp := *st
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.After(out[j].StartedAt)
	})
	return out, nil
}

// SelectionStore keeps per-scan selections in process memory
type SelectionStore struct {
	mu         sync.RWMutex
	selections map[string]scan.Selection
}

// NewSelectionStore creates an empty store
func NewSelectionStore() *SelectionStore {
	return &SelectionStore{selections: make(map[string]scan.Selection)}
}

// Get implements scan.SelectionStore
func (s *SelectionStore) Get(ctx context.Context, scanID string) (scan.Selection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return scan.Selection{}.Merge(s.selections[scanID]), nil
}

// Put implements scan.SelectionStore
func (s *SelectionStore) Put(ctx context.Context, scanID string, sel scan.Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selections[scanID] = scan.Selection{}.Merge(sel)
	return nil
}

// Merge implements scan.SelectionStore
func (s *SelectionStore) Merge(ctx context.Context, scanID string, sel scan.Selection) (scan.Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := s.selections[scanID].Merge(sel)
	s.selections[scanID] = merged
	return scan.Selection{}.Merge(merged), nil
}

var (
	_ scan.Store          = (*ScanStore)(nil)
	_ scan.SelectionStore = (*SelectionStore)(nil)
)
