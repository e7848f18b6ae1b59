package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanState_Transitions(t *testing.T) {
	s := NewScanState("scan-1", ProviderAWS)
	assert.Equal(t, StatusPending, s.Status)

	require.NoError(t, s.Advance(40, "Scanning roles"))
	assert.Equal(t, StatusInProgress, s.Status)
	assert.Equal(t, 40, s.Progress)

	// progress never goes backwards
	require.NoError(t, s.Advance(20, "late event"))
	assert.Equal(t, 40, s.Progress)

	doc := NewDocument(ProviderAWS)
	require.NoError(t, s.Complete(doc, "done"))
	assert.Equal(t, StatusCompleted, s.Status)
	assert.Equal(t, 100, s.Progress)
	assert.NotNil(t, s.CompletedAt)

	assert.ErrorIs(t, s.Advance(50, "again"), ErrTerminalState)
	assert.ErrorIs(t, s.Fail("boom"), ErrTerminalState)
	assert.ErrorIs(t, s.Complete(doc, "twice"), ErrTerminalState)
	assert.Equal(t, StatusCompleted, s.Status)
}

func TestScanState_FailIsTerminal(t *testing.T) {
	s := NewScanState("scan-2", ProviderAzure)
	require.NoError(t, s.Fail("no permission"))
	assert.Equal(t, StatusFailed, s.Status)
	assert.Nil(t, s.Summary())
	assert.ErrorIs(t, s.Complete(NewDocument(ProviderAzure), "x"), ErrTerminalState)
}

func TestScanConfig_AuthContext(t *testing.T) {
	cfg := ScanConfig{Provider: ProviderAWS, Auth: AuthParams{RoleARN: "arn:aws:iam::1:role/Audit"}}
	assert.Equal(t, `profile "default", role "arn:aws:iam::1:role/Audit"`, cfg.AuthContext())

	az := ScanConfig{Provider: ProviderAzure, Auth: AuthParams{TenantID: "t1", SubscriptionID: "s1"}}
	assert.Equal(t, `tenant "t1", subscription "s1"`, az.AuthContext())
}

func TestRecord_Strings(t *testing.T) {
	r := Record{"members": []any{"alice", 3, "bob"}, "names": []string{"x"}}
	assert.Equal(t, []string{"alice", "bob"}, r.Strings("members"))
	assert.Equal(t, []string{"x"}, r.Strings("names"))
	assert.Nil(t, r.Strings("missing"))
}

func TestDocument_Summary(t *testing.T) {
	doc := NewDocument(ProviderAWS)
	doc.SetRecords(CategoryUsers, []Record{{"user_name": "a"}, {"user_name": "b"}})
	doc.SetRecords(CategoryGroups, nil)

	assert.Equal(t, map[string]int{CategoryUsers: 2, CategoryGroups: 0}, doc.Summary())
	assert.Equal(t, []string{CategoryGroups, CategoryUsers}, doc.Categories())
}
