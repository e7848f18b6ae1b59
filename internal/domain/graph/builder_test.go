package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
)

func awsDocument() *scan.Document {
	doc := scan.NewDocument(scan.ProviderAWS)
	doc.SetRecords(scan.CategoryUsers, []scan.Record{
		{"user_name": "alice", "arn": "arn:aws:iam::1:user/alice", "groups": []any{"admins"}},
		{"user_name": "bob", "arn": "arn:aws:iam::1:user/bob"},
	})
	doc.SetRecords(scan.CategoryGroups, []scan.Record{
		{"group_name": "admins", "arn": "arn:aws:iam::1:group/admins", "members": []any{"alice", "bob"}},
	})
	doc.SetRecords(scan.CategoryRoles, []scan.Record{
		{"role_name": "deployer", "arn": "arn:aws:iam::1:role/deployer", "attached_policies": []any{
			map[string]any{"policy_arn": "arn:aws:iam::1:policy/deploy", "policy_name": "deploy"},
		}},
		{"role_name": "isolated", "arn": "arn:aws:iam::1:role/isolated"},
	})
	doc.SetRecords(scan.CategoryPolicies, []scan.Record{
		{"policy_name": "deploy", "arn": "arn:aws:iam::1:policy/deploy"},
	})
	doc.SetRecords(scan.CategoryPolicyAttachments, []scan.Record{
		{"entity_type": "role", "entity_name": "deployer", "policy_arn": "arn:aws:iam::1:policy/deploy", "policy_name": "deploy"},
		{"entity_type": "group", "entity_name": "admins", "policy_arn": "arn:aws:iam::aws:policy/AdministratorAccess", "policy_name": "AdministratorAccess"},
	})
	return doc
}

func TestBuild_AWS(t *testing.T) {
	g := Build(awsDocument())

	stats := g.Stats()
	assert.Equal(t, map[string]int{"user": 2, "group": 1, "role": 2, "policy": 2}, stats.NodesByType)
	assert.Equal(t, map[string]int{EdgeMemberOf: 2, EdgeHasPolicy: 2}, stats.EdgesByType)

	assert.Contains(t, g.Edges, Edge{
		Source: "user:alice", Target: "group:admins", EdgeType: EdgeMemberOf, Label: "member of",
	})
	assert.Contains(t, g.Edges, Edge{
		Source: "role:deployer", Target: "policy:arn:aws:iam::1:policy/deploy", EdgeType: EdgeHasPolicy, Label: "has policy",
	})

	// AWS managed policies are never scanned but still become nodes
	managed, ok := g.Node("policy:arn:aws:iam::aws:policy/AdministratorAccess")
	require.True(t, ok)
	assert.Equal(t, "AdministratorAccess", managed.DisplayName)
	assert.Nil(t, managed.RawData)

	scanned, ok := g.Node("policy:arn:aws:iam::1:policy/deploy")
	require.True(t, ok)
	assert.Equal(t, "deploy", scanned.DisplayName)
	assert.NotNil(t, scanned.RawData)
}

func TestBuild_Azure(t *testing.T) {
	doc := scan.NewDocument(scan.ProviderAzure)
	doc.SetRecords(scan.CategoryRoleDefinitions, []scan.Record{
		{"id": "/rd/reader", "role_name": "Reader"},
	})
	doc.SetRecords(scan.CategoryRoleAssignments, []scan.Record{
		{"id": "/ra/1", "principal_id": "p1", "principal_type": "User", "principal_display_name": "Alice", "role_definition_id": "/rd/reader"},
		{"id": "/ra/2", "principal_id": "p1", "principal_type": "User", "role_definition_id": "/rd/owner"},
		{"id": "/ra/3", "principal_id": "p2", "role_definition_id": "/rd/reader"},
	})

	g := Build(doc)

	assert.Len(t, g.Edges, 3)
	assert.Equal(t, map[string]int{"role_definition": 2, "user": 1, "principal": 1}, g.Stats().NodesByType)

	alice, ok := g.Node("user:p1")
	require.True(t, ok)
	assert.Equal(t, "Alice", alice.DisplayName)

	_, ok = g.Node("role_definition:/rd/owner")
	assert.True(t, ok)
	assert.Contains(t, g.Edges, Edge{Source: "principal:p2", Target: "role_definition:/rd/reader", EdgeType: EdgeAssigned, Label: "assigned"})
}

func TestBuild_EmptyDocument(t *testing.T) {
	assert.Equal(t, Empty(), Build(nil))
	assert.Equal(t, Empty(), Build(scan.NewDocument(scan.ProviderAWS)))
}

func TestFilterByRoot(t *testing.T) {
	g := Build(awsDocument())
	nodes, edges := len(g.Nodes), len(g.Edges)

	t.Run("follows edges in both directions", func(t *testing.T) {
		sub := FilterByRoot(g, "user:bob")

		ids := make([]string, 0, len(sub.Nodes))
		for _, n := range sub.Nodes {
			ids = append(ids, n.ID)
		}
		assert.Equal(t, []string{
			"user:alice",
			"user:bob",
			"group:admins",
			"policy:arn:aws:iam::aws:policy/AdministratorAccess",
		}, ids)
		assert.Len(t, sub.Edges, 3)
	})

	t.Run("isolated node", func(t *testing.T) {
		sub := FilterByRoot(g, "role:isolated")
		assert.Len(t, sub.Nodes, 1)
		assert.Empty(t, sub.Edges)
	})

	t.Run("unknown root", func(t *testing.T) {
		sub := FilterByRoot(g, "user:nobody")
		assert.Equal(t, []Node{}, sub.Nodes)
		assert.Equal(t, []Edge{}, sub.Edges)
	})

	assert.Len(t, g.Nodes, nodes)
	assert.Len(t, g.Edges, edges)
}
