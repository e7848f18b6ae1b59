package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
	"github.com/pratik-mahalle/iamgen/internal/repository/postgres"
	"github.com/pratik-mahalle/iamgen/internal/testutil"
	"github.com/pratik-mahalle/iamgen/migrations"
)

func TestScanRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewScanRepository(testutil.NewTestDB(t), "sqlite")

	st := scan.NewScanState("scan-1", scan.ProviderAWS)
	require.NoError(t, repo.Create(ctx, st))

	got, err := repo.Get(ctx, "scan-1")
	require.NoError(t, err)
	assert.Equal(t, scan.StatusPending, got.Status)
	assert.Nil(t, got.Document)
	assert.Nil(t, got.CompletedAt)
	assert.WithinDuration(t, st.StartedAt, got.StartedAt, time.Second)

	doc := scan.NewDocument(scan.ProviderAWS)
	doc.SetRecords(scan.CategoryUsers, []scan.Record{{"user_name": "alice", "tags": map[string]any{"env": "prod"}}})

	require.NoError(t, repo.Update(ctx, "scan-1", func(s *scan.ScanState) error { return s.Advance(40, "Scanning users...") }))
	require.NoError(t, repo.Update(ctx, "scan-1", func(s *scan.ScanState) error { return s.Complete(doc, "done") }))

	got, err = repo.Get(ctx, "scan-1")
	require.NoError(t, err)
	assert.Equal(t, scan.StatusCompleted, got.Status)
	assert.Equal(t, 100, got.Progress)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.Document)
	assert.Equal(t, map[string]int{scan.CategoryUsers: 1}, got.Summary())
	assert.Equal(t, "prod", got.Document.Records(scan.CategoryUsers)[0]["tags"].(map[string]any)["env"])
}

func TestScanRepository_TerminalStateIsFrozen(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewScanRepository(testutil.NewTestDB(t), "sqlite")
	require.NoError(t, repo.Create(ctx, scan.NewScanState("scan-1", scan.ProviderAzure)))
	require.NoError(t, repo.Update(ctx, "scan-1", func(s *scan.ScanState) error { return s.Fail("denied") }))

	err := repo.Update(ctx, "scan-1", func(s *scan.ScanState) error { return s.Advance(10, "late") })
	assert.ErrorIs(t, err, scan.ErrTerminalState)

	got, err := repo.Get(ctx, "scan-1")
	require.NoError(t, err)
	assert.Equal(t, scan.StatusFailed, got.Status)
	assert.Equal(t, "denied", got.Message)
}

func TestScanRepository_NotFound(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewScanRepository(testutil.NewTestDB(t), "sqlite")

	_, err := repo.Get(ctx, "nope")
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))

	err = repo.Update(ctx, "nope", func(s *scan.ScanState) error { return nil })
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeNotFound))
}

func TestScanRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := postgres.NewScanRepository(testutil.NewTestDB(t), "sqlite")

	older := scan.NewScanState("older", scan.ProviderAWS)
	older.StartedAt = older.StartedAt.Add(-time.Hour)
	require.NoError(t, repo.Create(ctx, older))
	require.NoError(t, repo.Create(ctx, scan.NewScanState("newer", scan.ProviderAWS)))

	list, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "newer", list[0].ID)
	assert.Equal(t, "older", list[1].ID)
}

func TestRunMigrations_Idempotent(t *testing.T) {
	db := testutil.NewTestDB(t)

	n, err := postgres.RunMigrations(db, migrations.GetFS())
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
