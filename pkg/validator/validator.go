package validator

import (
	"fmt"

	"github.com/wavebound/storyline/pkg/domain"
)

// Report is the outcome of validating a graph.
type Report struct {
	// StartNodeID is the effective start node, empty for an empty graph.
	StartNodeID string
	// Kinds holds the effective kind of every node, keyed by id.
	Kinds      map[string]domain.EffectiveKind
	Violations []*domain.ValidationError
}

// OK reports whether the graph has no violations.
func (r *Report) OK() bool {
	return len(r.Violations) == 0
}

// Err returns the violations as an *AggregateError, or nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Violations))
	for i, v := range r.Violations {
		errs[i] = v
	}
	return &AggregateError{Errors: errs}
}

// Has reports whether a violation with the given code was found.
func (r *Report) Has(code domain.ViolationCode) bool {
	for _, v := range r.Violations {
		if v.Code == code {
			return true
		}
	}
	return false
}

// Validate checks referential integrity and derives effective kinds.
// It never fails; problems are listed in the report.
func Validate(g *domain.Graph) *Report {
	r := &Report{Kinds: make(map[string]domain.EffectiveKind)}
	if g == nil || len(g.Nodes) == 0 {
		r.Violations = append(r.Violations, &domain.ValidationError{
			Code:    domain.CodeEmptyGraph,
			Message: "graph has no nodes",
		})
		return r
	}

	start, startViolations := resolveStart(g)
	r.StartNodeID = start

	r.Violations = append(r.Violations, checkNodes(g)...)
	r.Violations = append(r.Violations, startViolations...)
	r.Violations = append(r.Violations, checkReachability(g, start)...)
	r.Violations = append(r.Violations, checkFlags(g)...)

	r.Kinds = classify(g, start)
	return r
}

// Classify returns the effective kind of every node.
func Classify(g *domain.Graph) map[string]domain.EffectiveKind {
	return classify(g, ResolveStart(g))
}

func classify(g *domain.Graph, start string) map[string]domain.EffectiveKind {
	incoming := g.IncomingCounts()
	kinds := make(map[string]domain.EffectiveKind, len(g.Nodes))
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if _, dup := kinds[n.ID]; dup {
			continue
		}
		kinds[n.ID] = domain.EffectiveKindOf(n, n.ID == start, incoming[n.ID])
	}
	return kinds
}

// Normalize returns a copy of g with StartNodeID set to the effective start.
func Normalize(g *domain.Graph) *domain.Graph {
	out := g.Clone()
	if out == nil {
		return domain.NewEmptyGraph()
	}
	out.StartNodeID = ResolveStart(out)
	return out
}

func checkNodes(g *domain.Graph) []*domain.ValidationError {
	var out []*domain.ValidationError
	seen := make(map[string]bool, len(g.Nodes))

	for i, n := range g.Nodes {
		if n.ID == "" {
			out = append(out, &domain.ValidationError{
				Code:    domain.CodeEmptyNodeID,
				Message: fmt.Sprintf("node at index %d has no id", i),
			})
			continue
		}
		if seen[n.ID] {
			out = append(out, &domain.ValidationError{
				Code:    domain.CodeDuplicateID,
				NodeID:  n.ID,
				Message: fmt.Sprintf("node id is used more than once (index %d is ignored)", i),
			})
			continue
		}
		seen[n.ID] = true

		if n.Timestamp != nil && *n.Timestamp < 0 {
			out = append(out, &domain.ValidationError{
				Code:    domain.CodeNegativeTimestamp,
				NodeID:  n.ID,
				Message: fmt.Sprintf("timestamp %.2f is negative", *n.Timestamp),
			})
		}

		if n.IsDecision() {
			if n.NextID != "" {
				out = append(out, &domain.ValidationError{
					Code:     domain.CodeNextShadowed,
					NodeID:   n.ID,
					TargetID: n.NextID,
					Message:  fmt.Sprintf("nextId %q is ignored because the node has choices", n.NextID),
				})
			}
			out = append(out, checkChoices(g, &n)...)
			continue
		}

		if n.NextID != "" && g.FindNode(n.NextID) == nil {
			out = append(out, &domain.ValidationError{
				Code:     domain.CodeDanglingNext,
				NodeID:   n.ID,
				TargetID: n.NextID,
				Message:  fmt.Sprintf("nextId %q does not exist", n.NextID),
			})
		}
	}
	return out
}

func checkChoices(g *domain.Graph, n *domain.Node) []*domain.ValidationError {
	var out []*domain.ValidationError
	ids := make(map[string]bool, len(n.Choices))

	for _, c := range n.Choices {
		if ids[c.ID] {
			out = append(out, &domain.ValidationError{
				Code:     domain.CodeDuplicateChoiceID,
				NodeID:   n.ID,
				ChoiceID: c.ID,
				Message:  fmt.Sprintf("choice id %q is used more than once", c.ID),
			})
		}
		ids[c.ID] = true

		switch {
		case c.LeadsToNodeID == "":
			out = append(out, &domain.ValidationError{
				Code:     domain.CodeEmptyChoiceTarget,
				NodeID:   n.ID,
				ChoiceID: c.ID,
				Message:  fmt.Sprintf("choice %q leads nowhere", c.ID),
			})
		case g.FindNode(c.LeadsToNodeID) == nil:
			out = append(out, &domain.ValidationError{
				Code:     domain.CodeDanglingChoice,
				NodeID:   n.ID,
				ChoiceID: c.ID,
				TargetID: c.LeadsToNodeID,
				Message:  fmt.Sprintf("choice %q leads to missing node %q", c.ID, c.LeadsToNodeID),
			})
		}
	}
	return out
}

// checkReachability crawls effective edges breadth-first from the start.
func checkReachability(g *domain.Graph, start string) []*domain.ValidationError {
	visited := map[string]bool{start: true}
	queue := []string{start}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, e := range g.OutgoingEdges(current) {
			if e.ToID == "" || visited[e.ToID] || g.FindNode(e.ToID) == nil {
				continue
			}
			visited[e.ToID] = true
			queue = append(queue, e.ToID)
		}
	}

	var out []*domain.ValidationError
	reported := make(map[string]bool)
	for _, n := range g.Nodes {
		if n.ID == "" || visited[n.ID] || reported[n.ID] {
			continue
		}
		reported[n.ID] = true
		out = append(out, &domain.ValidationError{
			Code:    domain.CodeUnreachable,
			NodeID:  n.ID,
			Message: fmt.Sprintf("node cannot be reached from start %q", start),
		})
	}
	return out
}

// checkFlags reports required flags that no checkpoint ever sets.
func checkFlags(g *domain.Graph) []*domain.ValidationError {
	set := make(map[string]bool)
	for _, n := range g.Nodes {
		for _, f := range n.SetsFlags {
			set[f] = true
		}
	}

	var out []*domain.ValidationError
	for _, n := range g.Nodes {
		for _, f := range n.RequiredFlags {
			if set[f] {
				continue
			}
			out = append(out, &domain.ValidationError{
				Code:    domain.CodeUnknownFlag,
				NodeID:  n.ID,
				Message: fmt.Sprintf("required flag %q is never set in this episode", f),
			})
		}
	}
	return out
}
