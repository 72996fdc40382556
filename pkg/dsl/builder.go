package dsl

import (
	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/validator"
)

// Builder manages the graph construction. Nodes keep the order in which they
// were first added.
type Builder struct {
	start string
	order []string
	nodes map[string]*NodeBuilder
}

// New creates a new graph builder.
func New() *Builder {
	return &Builder{
		nodes: make(map[string]*NodeBuilder),
	}
}

// Add creates a new node in the graph.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node: domain.Node{
			ID: id,
		},
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Start designates the entry node explicitly.
func (b *Builder) Start(id string) *Builder {
	b.start = id
	return b
}

// Graph returns the graph without validating it.
func (b *Builder) Graph() *domain.Graph {
	g := &domain.Graph{
		StartNodeID: b.start,
		Nodes:       make([]domain.Node, 0, len(b.order)),
	}
	for _, id := range b.order {
		g.Nodes = append(g.Nodes, b.nodes[id].node.Clone())
	}
	return g
}

// Build returns the graph together with its integrity violations as an
// *validator.AggregateError. The graph is returned even when err is non-nil.
func (b *Builder) Build() (*domain.Graph, error) {
	g := b.Graph()
	return g, validator.Validate(g).Err()
}
