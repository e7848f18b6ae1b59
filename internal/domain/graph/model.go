package graph

// Node types
const (
	NodeTypeUser           = "user"
	NodeTypeGroup          = "group"
	NodeTypeRole           = "role"
	NodeTypePolicy         = "policy"
	NodeTypeRoleDefinition = "role_definition"
)

// Edge types
const (
	EdgeHasPolicy = "has_policy"
	EdgeMemberOf  = "member_of"
	EdgeAssigned  = "assigned"
)

// Node is one resource in a dependency graph
type Node struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	DisplayName string         `json:"display_name"`
	RawData     map[string]any `json:"raw_data,omitempty"`
}

// Edge connects two nodes by id
type Edge struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	EdgeType string `json:"edge_type"`
	Label    string `json:"label"`
}

// DependencyGraph is a typed relationship graph reconstructed from a scan document
type DependencyGraph struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Empty returns a graph with no nodes and no edges
func Empty() *DependencyGraph {
	return &DependencyGraph{Nodes: []Node{}, Edges: []Edge{}}
}

// NodeID builds the collision-free node id for a resource of nodeType
func NodeID(nodeType, identity string) string {
	return nodeType + ":" + identity
}

// Node looks up a node by id
func (g *DependencyGraph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Stats summarizes a graph
type Stats struct {
	NodeCount   int            `json:"node_count"`
	EdgeCount   int            `json:"edge_count"`
	NodesByType map[string]int `json:"nodes_by_type"`
	EdgesByType map[string]int `json:"edges_by_type"`
}

// Stats counts nodes and edges by type
func (g *DependencyGraph) Stats() Stats {
	s := Stats{
		NodeCount:   len(g.Nodes),
		EdgeCount:   len(g.Edges),
		NodesByType: make(map[string]int),
		EdgesByType: make(map[string]int),
	}
	for _, n := range g.Nodes {
		s.NodesByType[n.Type]++
	}
	for _, e := range g.Edges {
		s.EdgesByType[e.EdgeType]++
	}
	return s
}
