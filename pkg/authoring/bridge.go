package authoring

import (
	"fmt"

	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/validator"
)

// ToVisual projects a graph onto the canvas. Nodes without a stored position
// are placed on a grid by array index, so repeated conversions are stable.
func ToVisual(g *domain.Graph, layout Layout) *Canvas {
	c := &Canvas{Nodes: []CanvasNode{}, Edges: []CanvasEdge{}}
	if g == nil {
		return c
	}
	c.StartNodeID = g.StartNodeID
	kinds := validator.Classify(g)

	for i, n := range g.Nodes {
		pos, ok := layout[n.ID]
		if !ok {
			pos = GridPosition(i)
		}

		n = n.Clone()
		data := NodeData{
			Kind:          n.Kind,
			Title:         n.Title,
			Description:   n.Description,
			AudioRef:      n.AudioRef,
			Timestamp:     n.Timestamp,
			SetsFlags:     n.SetsFlags,
			RequiredFlags: n.RequiredFlags,
		}
		for _, ch := range n.Choices {
			data.Choices = append(data.Choices, ChoiceSlot{ID: ch.ID, Text: ch.Text})
		}
		c.Nodes = append(c.Nodes, CanvasNode{
			ID:       n.ID,
			Position: pos,
			Category: kinds[n.ID],
			Data:     data,
		})

		if n.NextID != "" {
			c.Edges = append(c.Edges, CanvasEdge{
				ID:           nextEdgeID(n.ID),
				Source:       n.ID,
				Target:       n.NextID,
				SourceHandle: HandleNext,
			})
		}
		for _, ch := range n.Choices {
			if ch.LeadsToNodeID == "" {
				continue
			}
			c.Edges = append(c.Edges, CanvasEdge{
				ID:           choiceEdgeID(n.ID, ch.ID),
				Source:       n.ID,
				Target:       ch.LeadsToNodeID,
				SourceHandle: ChoiceHandle(ch.ID),
				Label:        ch.Text,
			})
		}
	}
	return c
}

// Result is the outcome of flattening a canvas.
type Result struct {
	Graph  *domain.Graph
	Layout Layout
	// Violations lists canvas problems followed by graph validation findings.
	// They never block the edit.
	Violations []*domain.ValidationError
}

// FromVisual rebuilds the canonical graph from a canvas. It always returns a
// best-effort graph; problems are reported in Result.Violations.
func FromVisual(c *Canvas) *Result {
	res := &Result{Graph: &domain.Graph{Nodes: []domain.Node{}}, Layout: Layout{}}
	if c == nil {
		res.Violations = validator.Validate(res.Graph).Violations
		return res
	}
	res.Graph.StartNodeID = c.StartNodeID

	index := make(map[string]int, len(c.Nodes))
	var slots [][]ChoiceSlot
	for _, cn := range c.Nodes {
		if _, dup := index[cn.ID]; dup {
			res.Violations = append(res.Violations, &domain.ValidationError{
				Code:    domain.CodeDuplicateID,
				NodeID:  cn.ID,
				Message: "canvas node id is used more than once; the first one is kept",
			})
			continue
		}
		index[cn.ID] = len(res.Graph.Nodes)
		res.Layout[cn.ID] = cn.Position
		res.Graph.Nodes = append(res.Graph.Nodes, nodeFromData(cn))
		slots = append(slots, cn.Data.Choices)
	}

	outgoing := make(map[string][]CanvasEdge)
	for _, e := range c.Edges {
		if _, ok := index[e.Source]; !ok {
			res.Violations = append(res.Violations, &domain.ValidationError{
				Code:     domain.CodeStrayEdge,
				TargetID: e.Target,
				Message:  fmt.Sprintf("edge %q leaves unknown node %q", e.ID, e.Source),
			})
			continue
		}
		outgoing[e.Source] = append(outgoing[e.Source], e)
	}

	for i := range res.Graph.Nodes {
		n := &res.Graph.Nodes[i]
		res.Violations = append(res.Violations, wireNode(n, slots[i], outgoing[n.ID])...)
	}

	res.Violations = append(res.Violations, validator.Validate(res.Graph).Violations...)
	return res
}

func nodeFromData(cn CanvasNode) domain.Node {
	n := domain.Node{
		ID:            cn.ID,
		Kind:          cn.Data.Kind,
		Title:         cn.Data.Title,
		Description:   cn.Data.Description,
		AudioRef:      cn.Data.AudioRef,
		Timestamp:     cn.Data.Timestamp,
		SetsFlags:     cn.Data.SetsFlags,
		RequiredFlags: cn.Data.RequiredFlags,
	}
	return n.Clone()
}

// wireNode sets NextID and Choices of n from the edges leaving it.
func wireNode(n *domain.Node, slots []ChoiceSlot, edges []CanvasEdge) []*domain.ValidationError {
	var violations []*domain.ValidationError
	byChoice := make(map[string]CanvasEdge)
	var extra []CanvasEdge

	known := make(map[string]bool, len(slots))
	for _, s := range slots {
		known[s.ID] = true
	}

	for _, e := range edges {
		if choiceID, ok := parseHandle(e.SourceHandle); ok {
			if _, seen := byChoice[choiceID]; seen {
				violations = append(violations, &domain.ValidationError{
					Code:     domain.CodeDuplicateChoiceID,
					NodeID:   n.ID,
					ChoiceID: choiceID,
					TargetID: e.Target,
					Message:  fmt.Sprintf("choice %q has more than one edge; the first one is kept", choiceID),
				})
				continue
			}
			byChoice[choiceID] = e
			if !known[choiceID] {
				extra = append(extra, e)
			}
			continue
		}

		if (e.SourceHandle != "" && e.SourceHandle != HandleNext) || e.Label != "" {
			violations = append(violations, &domain.ValidationError{
				Code:     domain.CodeStrayEdge,
				NodeID:   n.ID,
				TargetID: e.Target,
				Message:  fmt.Sprintf("edge %q is labeled but not attached to a choice", e.ID),
			})
			continue
		}

		if n.NextID != "" {
			violations = append(violations, &domain.ValidationError{
				Code:     domain.CodeAmbiguousNext,
				NodeID:   n.ID,
				TargetID: e.Target,
				Message:  fmt.Sprintf("more than one unlabeled edge; keeping %q", n.NextID),
			})
			continue
		}
		n.NextID = e.Target
	}

	for _, s := range slots {
		ch := domain.Choice{ID: s.ID, Text: s.Text}
		if e, ok := byChoice[s.ID]; ok {
			ch.LeadsToNodeID = e.Target
			if e.Label != "" {
				ch.Text = e.Label
			}
		}
		n.Choices = append(n.Choices, ch)
	}
	for _, e := range extra {
		id, _ := parseHandle(e.SourceHandle)
		n.Choices = append(n.Choices, domain.Choice{ID: id, Text: e.Label, LeadsToNodeID: e.Target})
	}
	return violations
}
