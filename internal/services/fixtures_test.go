package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
)

// seedCompletedScan stores a finished scan holding doc
func seedCompletedScan(t *testing.T, store scan.Store, id string, doc *scan.Document) {
	t.Helper()
	state := scan.NewScanState(id, doc.Provider)
	require.NoError(t, state.Complete(doc, "done"))
	require.NoError(t, store.Create(context.Background(), state))
}

func sampleAWSDocument() *scan.Document {
	doc := scan.NewDocument(scan.ProviderAWS)
	doc.SetRecords(scan.CategoryUsers, []scan.Record{
		{"user_name": "app-user-123", "arn": "arn:aws:iam::1:user/app-user-123", "tags": map[string]any{"env": "production"}, "groups": []any{"deployers"}},
		{"user_name": "app-user-456", "arn": "arn:aws:iam::1:user/app-user-456", "tags": map[string]any{"env": "staging"}},
		{"user_name": "ops-admin", "arn": "arn:aws:iam::1:user/ops-admin", "tags": map[string]any{"env": "production"}},
	})
	doc.SetRecords(scan.CategoryGroups, []scan.Record{
		{"group_name": "deployers", "arn": "arn:aws:iam::1:group/deployers", "members": []any{"app-user-123"}},
	})
	doc.SetRecords(scan.CategoryRoles, []scan.Record{
		{"role_name": "ci-runner", "arn": "arn:aws:iam::1:role/ci-runner", "assume_role_policy_document": `{"Version":"2012-10-17","Statement":[]}`},
	})
	doc.SetRecords(scan.CategoryPolicies, []scan.Record{
		{"policy_name": "deploy", "arn": "arn:aws:iam::1:policy/deploy", "policy_document": `{"Version":"2012-10-17","Statement":[]}`},
	})
	doc.SetRecords(scan.CategoryPolicyAttachments, []scan.Record{
		{"attachment_id": "group/deployers/arn:aws:iam::1:policy/deploy", "entity_type": "group", "entity_name": "deployers", "policy_arn": "arn:aws:iam::1:policy/deploy"},
	})
	return doc
}
