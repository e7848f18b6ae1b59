package scan

import "context"

// Service defines the scan orchestration contract
type Service interface {
	// Start validates config, registers a pending scan and runs it in the background
	Start(ctx context.Context, config ScanConfig) (string, error)

	// Status returns the current state of a scan
	Status(ctx context.Context, scanID string) (*ScanState, error)

	// List returns every known scan
	List(ctx context.Context) ([]*ScanState, error)

	// Wait blocks until the scan reaches a terminal state or ctx is done
	Wait(ctx context.Context, scanID string) (*ScanState, error)
}

// ProgressSink receives progress events from a running scan
type ProgressSink interface {
	Report(progress int, message string)
}

// ProgressFunc adapts a function to ProgressSink
type ProgressFunc func(progress int, message string)

// Report implements ProgressSink
func (f ProgressFunc) Report(progress int, message string) {
	f(progress, message)
}
