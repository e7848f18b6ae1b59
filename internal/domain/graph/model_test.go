package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDependencyGraph_Stats(t *testing.T) {
	g := &DependencyGraph{
		Nodes: []Node{
			{ID: "user:alice", Type: NodeTypeUser},
			{ID: "user:bob", Type: NodeTypeUser},
			{ID: "group:admins", Type: NodeTypeGroup},
		},
		Edges: []Edge{
			{Source: "user:alice", Target: "group:admins", EdgeType: EdgeMemberOf},
		},
	}

	s := g.Stats()
	assert.Equal(t, 3, s.NodeCount)
	assert.Equal(t, 1, s.EdgeCount)
	assert.Equal(t, 2, s.NodesByType[NodeTypeUser])
	assert.Equal(t, 1, s.EdgesByType[EdgeMemberOf])

	n, ok := g.Node("group:admins")
	assert.True(t, ok)
	assert.Equal(t, NodeTypeGroup, n.Type)

	_, ok = g.Node("group:missing")
	assert.False(t, ok)
}

func TestNodeID(t *testing.T) {
	assert.Equal(t, "policy:arn:aws:iam::1:policy/p", NodeID(NodeTypePolicy, "arn:aws:iam::1:policy/p"))
	assert.NotEqual(t, NodeID(NodeTypeUser, "x"), NodeID(NodeTypeGroup, "x"))
}
