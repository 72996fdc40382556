package dsl

import "github.com/wavebound/storyline/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	node    domain.Node
	builder *Builder
}

// Kind sets the declared kind. It is a presentation hint only.
func (n *NodeBuilder) Kind(kind domain.NodeKind) *NodeBuilder {
	n.node.Kind = kind
	return n
}

// Title sets the node title.
func (n *NodeBuilder) Title(title string) *NodeBuilder {
	n.node.Title = title
	return n
}

// Description sets the node description.
func (n *NodeBuilder) Description(text string) *NodeBuilder {
	n.node.Description = text
	return n
}

// Audio sets the audio reference.
func (n *NodeBuilder) Audio(ref string) *NodeBuilder {
	n.node.AudioRef = ref
	return n
}

// At sets the offset, in seconds, at which choices are presented.
func (n *NodeBuilder) At(seconds float64) *NodeBuilder {
	n.node.Timestamp = domain.Seconds(seconds)
	return n
}

// Go sets the linear successor.
func (n *NodeBuilder) Go(nextID string) *NodeBuilder {
	n.node.NextID = nextID
	return n
}

// Choice appends a choice. The first choice is the timeout default.
func (n *NodeBuilder) Choice(id, text, to string) *NodeBuilder {
	n.node.Choices = append(n.node.Choices, domain.Choice{ID: id, Text: text, LeadsToNodeID: to})
	return n
}

// Sets appends flags written when the node is reached.
func (n *NodeBuilder) Sets(flags ...string) *NodeBuilder {
	n.node.SetsFlags = append(n.node.SetsFlags, flags...)
	return n
}

// Requires appends gating flags.
func (n *NodeBuilder) Requires(flags ...string) *NodeBuilder {
	n.node.RequiredFlags = append(n.node.RequiredFlags, flags...)
	return n
}

// Terminal clears any way forward.
func (n *NodeBuilder) Terminal() *NodeBuilder {
	n.node.NextID = ""
	n.node.Choices = nil
	return n
}

// Add continues with another node of the same builder.
func (n *NodeBuilder) Add(id string) *NodeBuilder {
	return n.builder.Add(id)
}
