package graph

import (
	"strings"

	"github.com/pratik-mahalle/iamgen/internal/domain/scan"
)

type builder struct {
	graph *DependencyGraph
	nodes map[string]int
	edges map[Edge]struct{}
}

func newBuilder() *builder {
	return &builder{
		graph: Empty(),
		nodes: make(map[string]int),
		edges: make(map[Edge]struct{}),
	}
}

// addNode records a node; a later full record replaces an earlier synthesized placeholder
func (b *builder) addNode(n Node) {
	if i, ok := b.nodes[n.ID]; ok {
		if b.graph.Nodes[i].RawData == nil && n.RawData != nil {
			b.graph.Nodes[i] = n
		}
		return
	}
	b.nodes[n.ID] = len(b.graph.Nodes)
	b.graph.Nodes = append(b.graph.Nodes, n)
}

// ensureNode synthesizes a placeholder for an endpoint that was not scanned itself
func (b *builder) ensureNode(nodeType, identity, displayName string) string {
	id := NodeID(nodeType, identity)
	if _, ok := b.nodes[id]; !ok {
		if displayName == "" {
			displayName = identity
		}
		b.addNode(Node{ID: id, Type: nodeType, DisplayName: displayName})
	}
	return id
}

func (b *builder) addEdge(source, target, edgeType, label string) {
	e := Edge{Source: source, Target: target, EdgeType: edgeType, Label: label}
	if _, ok := b.edges[e]; ok {
		return
	}
	b.edges[e] = struct{}{}
	b.graph.Edges = append(b.graph.Edges, e)
}

// Build reconstructs the dependency graph of a scan document
func Build(doc *scan.Document) *DependencyGraph {
	if doc == nil {
		return Empty()
	}
	b := newBuilder()
	switch doc.Provider {
	case scan.ProviderAWS:
		b.buildAWS(doc)
	case scan.ProviderAzure:
		b.buildAzure(doc)
	}
	return b.graph
}

var awsNodeCategories = []struct {
	category  string
	nodeType  string
	nameField string
}{
	{scan.CategoryUsers, NodeTypeUser, "user_name"},
	{scan.CategoryGroups, NodeTypeGroup, "group_name"},
	{scan.CategoryRoles, NodeTypeRole, "role_name"},
	{scan.CategoryPolicies, NodeTypePolicy, "policy_name"},
}

func (b *builder) buildAWS(doc *scan.Document) {
	for _, c := range awsNodeCategories {
		for _, r := range doc.Records(c.category) {
			identity := scan.IdentityOf(c.category, r)
			if identity == "" {
				continue
			}
			display := r.String(c.nameField)
			if display == "" {
				display = identity
			}
			b.addNode(Node{
				ID:          NodeID(c.nodeType, identity),
				Type:        c.nodeType,
				DisplayName: display,
				RawData:     r,
			})
		}
	}

	for _, r := range doc.Records(scan.CategoryPolicyAttachments) {
		entityType, entity, arn := r.String("entity_type"), r.String("entity_name"), r.String("policy_arn")
		if entityType == "" || entity == "" || arn == "" {
			continue
		}
		b.hasPolicy(entityType, entity, arn, r.String("policy_name"))
	}

	for _, c := range awsNodeCategories[:3] {
		for _, r := range doc.Records(c.category) {
			name := r.String(c.nameField)
			if name == "" {
				continue
			}
			for _, p := range attachedPolicies(r) {
				b.hasPolicy(c.nodeType, name, p["policy_arn"], p["policy_name"])
			}
		}
	}

	for _, r := range doc.Records(scan.CategoryGroups) {
		group := r.String("group_name")
		if group == "" {
			continue
		}
		for _, user := range r.Strings("members") {
			b.memberOf(user, group)
		}
	}
	for _, r := range doc.Records(scan.CategoryUsers) {
		user := r.String("user_name")
		if user == "" {
			continue
		}
		for _, group := range r.Strings("groups") {
			b.memberOf(user, group)
		}
	}
}

func (b *builder) hasPolicy(entityType, entity, arn, policyName string) {
	if arn == "" {
		return
	}
	source := b.ensureNode(entityType, entity, entity)
	target := b.ensureNode(NodeTypePolicy, arn, policyName)
	b.addEdge(source, target, EdgeHasPolicy, "has policy")
}

func (b *builder) memberOf(user, group string) {
	source := b.ensureNode(NodeTypeUser, user, user)
	target := b.ensureNode(NodeTypeGroup, group, group)
	b.addEdge(source, target, EdgeMemberOf, "member of")
}

func attachedPolicies(r scan.Record) []map[string]string {
	items, _ := r["attached_policies"].([]any)
	out := make([]map[string]string, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		arn, _ := m["policy_arn"].(string)
		name, _ := m["policy_name"].(string)
		out = append(out, map[string]string{"policy_arn": arn, "policy_name": name})
	}
	return out
}

func (b *builder) buildAzure(doc *scan.Document) {
	for _, r := range doc.Records(scan.CategoryRoleDefinitions) {
		id := r.String("id")
		if id == "" {
			continue
		}
		display := r.String("role_name")
		if display == "" {
			display = id
		}
		b.addNode(Node{
			ID:          NodeID(NodeTypeRoleDefinition, id),
			Type:        NodeTypeRoleDefinition,
			DisplayName: display,
			RawData:     r,
		})
	}

	for _, r := range doc.Records(scan.CategoryRoleAssignments) {
		principal, roleDef := r.String("principal_id"), r.String("role_definition_id")
		if principal == "" || roleDef == "" {
			continue
		}

		principalType := strings.ToLower(r.String("principal_type"))
		if principalType == "" {
			principalType = "principal"
		}
		display := r.String("principal_display_name")
		if display == "" {
			display = principal
		}

		source := b.ensureNode(principalType, principal, display)
		target := b.ensureNode(NodeTypeRoleDefinition, roleDef, roleDef)
		b.addEdge(source, target, EdgeAssigned, "assigned")
	}
}

// FilterByRoot keeps the nodes reachable from rootID, treating edges as undirected, and the edges
// between them. An unknown root yields an empty graph. g is not modified.
func FilterByRoot(g *DependencyGraph, rootID string) *DependencyGraph {
	if g == nil {
		return Empty()
	}
	if _, ok := g.Node(rootID); !ok {
		return Empty()
	}

	adjacent := make(map[string][]string)
	for _, e := range g.Edges {
		adjacent[e.Source] = append(adjacent[e.Source], e.Target)
		adjacent[e.Target] = append(adjacent[e.Target], e.Source)
	}

	visited := map[string]bool{rootID: true}
	queue := []string{rootID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range adjacent[id] {
			if !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}

	out := Empty()
	for _, n := range g.Nodes {
		if visited[n.ID] {
			out.Nodes = append(out.Nodes, n)
		}
	}
	for _, e := range g.Edges {
		if visited[e.Source] && visited[e.Target] {
			out.Edges = append(out.Edges, e)
		}
	}
	return out
}
