package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
	"github.com/pratik-mahalle/iamgen/internal/testutil"
)

type fakeScans struct {
	mu      sync.Mutex
	configs []scan.ScanConfig
	err     error
}

func (f *fakeScans) Start(ctx context.Context, cfg scan.ScanConfig) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.configs = append(f.configs, cfg)
	return fmt.Sprintf("scan-%d", len(f.configs)), nil
}

func (f *fakeScans) Status(ctx context.Context, id string) (*scan.ScanState, error) {
	return nil, apperrors.NotFound("scan " + id)
}

func (f *fakeScans) List(ctx context.Context) ([]*scan.ScanState, error) {
	return nil, nil
}

func (f *fakeScans) Wait(ctx context.Context, id string) (*scan.ScanState, error) {
	return nil, apperrors.NotFound("scan " + id)
}

func (f *fakeScans) started() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.configs)
}

var awsUsers = scan.ScanConfig{
	Provider:   scan.ProviderAWS,
	Categories: map[string]bool{scan.CategoryUsers: true},
}

func TestScanScheduler_AddValidates(t *testing.T) {
	rejectAzure := func(cfg scan.ScanConfig) error {
		if cfg.Provider == scan.ProviderAzure {
			return apperrors.ConfigurationError("azure not allowed", nil)
		}
		return nil
	}
	s := NewScanScheduler(&fakeScans{}, rejectAzure, testutil.NewTestLogger())

	_, err := s.Add(Schedule{Spec: "not a cron", Config: awsUsers})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))

	_, err = s.Add(Schedule{Spec: "@hourly", Config: scan.ScanConfig{Provider: scan.ProviderAzure}})
	assert.ErrorContains(t, err, "azure not allowed")

	id, err := s.Add(Schedule{Spec: "*/5 * * * *", Config: awsUsers})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	_, err = s.Add(Schedule{ID: id, Spec: "@daily", Config: awsUsers})
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConflict))
}

func TestScanScheduler_RunNowStartsFreshScans(t *testing.T) {
	scans := &fakeScans{}
	s := NewScanScheduler(scans, nil, testutil.NewTestLogger())

	_, err := s.Add(Schedule{ID: "nightly", Spec: "0 2 * * *", Config: awsUsers})
	require.NoError(t, err)

	first, err := s.RunNow("nightly")
	require.NoError(t, err)
	second, err := s.RunNow("nightly")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Equal(t, 2, scans.started())

	statuses := s.Statuses()
	require.Len(t, statuses, 1)
	assert.Equal(t, "nightly", statuses[0].ID)
	assert.Equal(t, second, statuses[0].LastScanID)

	_, err = s.RunNow("missing")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestScanScheduler_StartFailureKeepsLastScan(t *testing.T) {
	scans := &fakeScans{}
	s := NewScanScheduler(scans, nil, testutil.NewTestLogger())
	_, err := s.Add(Schedule{ID: "hourly", Spec: "@hourly", Config: awsUsers})
	require.NoError(t, err)

	last, err := s.RunNow("hourly")
	require.NoError(t, err)

	scans.err = errors.New("store unavailable")
	s.tick("hourly")

	assert.Equal(t, last, s.Statuses()[0].LastScanID)
}

func TestScanScheduler_StartStop(t *testing.T) {
	s := NewScanScheduler(&fakeScans{}, nil, testutil.NewTestLogger())
	_, err := s.Add(Schedule{ID: "a", Spec: "@every 1h", Config: awsUsers})
	require.NoError(t, err)

	s.Start(context.Background())
	require.Eventually(t, func() bool {
		return !s.Statuses()[0].Next.IsZero()
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, s.Remove("a"))
	assert.Empty(t, s.Statuses())
	assert.True(t, apperrors.IsCode(s.Remove("a"), apperrors.ErrCodeNotFound))

	select {
	case <-s.Stop().Done():
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
