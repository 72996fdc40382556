package domain

// EdgeType distinguishes the implicit successor link from a labeled choice.
type EdgeType string

const (
	EdgeNext   EdgeType = "next"
	EdgeChoice EdgeType = "choice"
)

// Edge is a directed transition derived from a node's NextID or Choices.
type Edge struct {
	Type     EdgeType
	FromID   string
	ToID     string
	ChoiceID string
	Label    string
}

// Graph is a complete episode.
type Graph struct {
	// StartNodeID designates the entry point. When empty it is derived.
	StartNodeID string `json:"startNodeId,omitempty" yaml:"startNodeId,omitempty" mapstructure:"startNodeId"`
	Nodes       []Node `json:"nodes" yaml:"nodes" mapstructure:"nodes"`
}

// DefaultStartNodeID is the id of the node synthesized for empty episodes.
const DefaultStartNodeID = "start"

// NewEmptyGraph returns the graph of an episode with no authored content:
// a single synthesized start node.
func NewEmptyGraph() *Graph {
	return &Graph{
		StartNodeID: DefaultStartNodeID,
		Nodes: []Node{
			{ID: DefaultStartNodeID, Kind: NodeKindStart, Title: "Start"},
		},
	}
}

// FindNode returns the node with the given id, or nil.
func (g *Graph) FindNode(id string) *Node {
	if g == nil || id == "" {
		return nil
	}
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i]
		}
	}
	return nil
}

// OutgoingEdges lists the effective transitions leaving a node. Choices take
// precedence over NextID, so a node with both yields only its choices.
func (g *Graph) OutgoingEdges(id string) []Edge {
	n := g.FindNode(id)
	if n == nil {
		return nil
	}
	if n.IsDecision() {
		edges := make([]Edge, 0, len(n.Choices))
		for _, c := range n.Choices {
			edges = append(edges, Edge{
				Type:     EdgeChoice,
				FromID:   n.ID,
				ToID:     c.LeadsToNodeID,
				ChoiceID: c.ID,
				Label:    c.Text,
			})
		}
		return edges
	}
	if n.NextID != "" {
		return []Edge{{Type: EdgeNext, FromID: n.ID, ToID: n.NextID}}
	}
	return nil
}

// IncomingCounts counts the effective edges that target each node id.
func (g *Graph) IncomingCounts() map[string]int {
	counts := make(map[string]int)
	for _, n := range g.Nodes {
		for _, e := range g.OutgoingEdges(n.ID) {
			counts[e.ToID]++
		}
	}
	return counts
}

// NodeIDs returns node ids in array order.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		ids = append(ids, n.ID)
	}
	return ids
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	if g == nil {
		return nil
	}
	out := &Graph{StartNodeID: g.StartNodeID}
	if g.Nodes != nil {
		out.Nodes = make([]Node, len(g.Nodes))
		for i, n := range g.Nodes {
			out.Nodes[i] = n.Clone()
		}
	}
	return out
}
