package domain

// Edge is a directed transition between two nodes. An empty Condition
// marks the default (unconditional) edge.
type Edge struct {
	SourceNodeID string `json:"source_node_id"`
	TargetNodeID string `json:"target_node_id"`
	Condition    string `json:"condition,omitempty"`
}

// FlowDefinition is the compiled, read-only form of an authored flow.
// Instances are shared across every session of a tenant+template pair
// and must never be mutated after compilation.
type FlowDefinition struct {
	ID          string          `json:"id"`
	TenantID    string          `json:"tenant_id"`
	Version     string          `json:"version"`
	EntryNodeID string          `json:"entry_node_id"`
	Nodes       map[string]Node `json:"nodes"`
	// EdgesBySource preserves authored declaration order per source node;
	// condition nodes depend on it.
	EdgesBySource map[string][]Edge `json:"edges_by_source"`
}

// Node returns the node with the given id, if present.
func (f *FlowDefinition) Node(id string) (Node, bool) {
	n, ok := f.Nodes[id]
	return n, ok
}

// OutgoingEdges returns the ordered outgoing edges of a node.
func (f *FlowDefinition) OutgoingEdges(id string) []Edge {
	return f.EdgesBySource[id]
}

// DefaultEdge returns the first unconditional outgoing edge of a node.
func (f *FlowDefinition) DefaultEdge(id string) (Edge, bool) {
	for _, e := range f.EdgesBySource[id] {
		if e.Condition == "" {
			return e, true
		}
	}
	return Edge{}, false
}
