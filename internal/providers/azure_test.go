package providers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
	apperrors "github.com/pratik-mahalle/iamgen/internal/pkg/errors"
	"github.com/pratik-mahalle/iamgen/internal/providers"
	"github.com/pratik-mahalle/iamgen/internal/testutil"
)

func azureConfig() scan.ScanConfig {
	return scan.ScanConfig{
		Provider: scan.ProviderAzure,
		Auth:     scan.AuthParams{TenantID: "tenant", SubscriptionID: "sub-1"},
	}
}

func TestAzureScanner_RoleDefinitions(t *testing.T) {
	rbac := &testutil.MockAzureRBAC{Definitions: []scan.Record{{"id": "/rd/1", "role_name": "Reader"}}}
	cfg := azureConfig()
	cfg.Filters = map[string]string{scan.FilterRoleType: "custom"}
	s := providers.NewAzureScannerWithClients(rbac, nil, cfg, nil)

	records, err := category(t, s, scan.CategoryRoleDefinitions).List(context.Background())
	require.NoError(t, err)
	assert.Len(t, records, 1)
	assert.Equal(t, "/subscriptions/sub-1", rbac.LastScope)
	assert.True(t, rbac.LastCustomOnly)
}

func TestAzureScanner_ListFailure(t *testing.T) {
	rbac := &testutil.MockAzureRBAC{AssignmentsErr: errors.New("AuthorizationFailed")}
	s := providers.NewAzureScannerWithClients(rbac, nil, azureConfig(), nil)

	_, err := category(t, s, scan.CategoryRoleAssignments).List(context.Background())
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeCategoryEnumeration))
	assert.Contains(t, err.Error(), `subscription "sub-1"`)
}

func TestAzureScanner_EnrichAssignment(t *testing.T) {
	dir := &testutil.MockDirectory{Names: map[string]string{"p1": "Alice"}}
	s := providers.NewAzureScannerWithClients(&testutil.MockAzureRBAC{}, dir, azureConfig(), nil)
	enrich := category(t, s, scan.CategoryRoleAssignments).Enrich

	rec := scan.Record{"principal_id": "p1"}
	require.NoError(t, enrich(context.Background(), rec))
	assert.Equal(t, "Alice", rec.String("principal_display_name"))
}

func TestAzureScanner_EnrichWithoutTokenDegradesSilently(t *testing.T) {
	dir := &testutil.MockDirectory{Err: providers.ErrTokenUnavailable}
	s := providers.NewAzureScannerWithClients(&testutil.MockAzureRBAC{}, dir, azureConfig(), nil)

	rec := scan.Record{"principal_id": "p1"}
	require.NoError(t, category(t, s, scan.CategoryRoleAssignments).Enrich(context.Background(), rec))
	assert.NotContains(t, rec, "principal_display_name")
}

type countingCredential struct {
	calls atomic.Int32
	err   error
}

func (c *countingCredential) GetToken(ctx context.Context, opts policy.TokenRequestOptions) (azcore.AccessToken, error) {
	c.calls.Add(1)
	if c.err != nil {
		return azcore.AccessToken{}, c.err
	}
	return azcore.AccessToken{Token: "graph-token", ExpiresOn: time.Now().Add(time.Hour)}, nil
}

func TestGraphDirectory_CachesToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer graph-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/directoryObjects/p1":
			_, _ = w.Write([]byte(`{"displayName":"Alice"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	cred := &countingCredential{}
	dir := providers.NewGraphDirectory(cred, nil).WithBaseURL(srv.URL)

	for i := 0; i < 3; i++ {
		name, err := dir.DisplayName(context.Background(), "p1")
		require.NoError(t, err)
		assert.Equal(t, "Alice", name)
	}
	assert.Equal(t, int32(1), cred.calls.Load())

	_, err := dir.DisplayName(context.Background(), "missing")
	assert.Error(t, err)
}

func TestGraphDirectory_TokenFailure(t *testing.T) {
	cred := &countingCredential{err: errors.New("no login")}
	dir := providers.NewGraphDirectory(cred, nil)

	_, err := dir.DisplayName(context.Background(), "p1")
	assert.ErrorIs(t, err, providers.ErrTokenUnavailable)
	_, err = dir.DisplayName(context.Background(), "p2")
	assert.ErrorIs(t, err, providers.ErrTokenUnavailable)
	assert.Equal(t, int32(1), cred.calls.Load())
}

func TestNewAzureScanner_RequiresSubscription(t *testing.T) {
	_, err := providers.NewAzureScanner(scan.ScanConfig{Provider: scan.ProviderAzure}, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeConfiguration))
}
