package testutil

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	"github.com/pratik-mahalle/iamgen/internal/providers"
)

// MockCategory scripts one category of a MockScanner
type MockCategory struct {
	Name      string
	NameField string
	Records   []scan.Record
	ListErr   error

	// EnrichField, when set, is written on every enriched record
	EnrichField string
	// EnrichErr makes enrichment of every record fail softly
	EnrichErr error
	// EnrichHook runs inside every enrichment call
	EnrichHook func()
}

// MockScanner is a scripted providers.Scanner
type MockScanner struct {
	ProviderTag scan.Provider
	PrepareErr  error
	Cats        []MockCategory

	mu       sync.Mutex
	listed   []string
	enriched atomic.Int64
}

// Provider implements providers.Scanner
func (m *MockScanner) Provider() scan.Provider {
	if m.ProviderTag == "" {
		return scan.ProviderAWS
	}
	return m.ProviderTag
}

// Prepare implements providers.Scanner
func (m *MockScanner) Prepare(ctx context.Context) error {
	return m.PrepareErr
}

// Categories implements providers.Scanner
func (m *MockScanner) Categories() []providers.Category {
	out := make([]providers.Category, 0, len(m.Cats))
	for _, c := range m.Cats {
		cat := providers.Category{
			Name:      c.Name,
			NameField: c.NameField,
			List: func(ctx context.Context) ([]scan.Record, error) {
				m.mu.Lock()
				m.listed = append(m.listed, c.Name)
				m.mu.Unlock()
				if c.ListErr != nil {
					return nil, c.ListErr
				}
				return cloneRecords(c.Records), nil
			},
		}
		if c.EnrichField != "" || c.EnrichErr != nil || c.EnrichHook != nil {
			cat.Enrich = func(ctx context.Context, r scan.Record) error {
				m.enriched.Add(1)
				if c.EnrichHook != nil {
					c.EnrichHook()
				}
				if c.EnrichErr != nil {
					return c.EnrichErr
				}
				r.Set(c.EnrichField, true)
				return nil
			}
		}
		out = append(out, cat)
	}
	return out
}

// Listed returns the categories whose List ran, in order
func (m *MockScanner) Listed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.listed...)
}

// Enriched returns the number of enrichment calls made
func (m *MockScanner) Enriched() int {
	return int(m.enriched.Load())
}

// Factory returns a providers.Factory that always hands out m
func (m *MockScanner) Factory() providers.Factory {
	return func(ctx context.Context, cfg scan.ScanConfig) (providers.Scanner, error) {
		return m, nil
	}
}
