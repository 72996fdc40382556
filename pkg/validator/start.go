package validator

import (
	"fmt"

	"github.com/wavebound/storyline/pkg/domain"
)

// ResolveStart determines the effective start node. The node named by
// StartNodeID wins when it exists; otherwise the first node declared as
// start; otherwise the first node in array order. An empty graph yields "".
func ResolveStart(g *domain.Graph) string {
	id, _ := resolveStart(g)
	return id
}

func resolveStart(g *domain.Graph) (string, []*domain.ValidationError) {
	if g == nil || len(g.Nodes) == 0 {
		return "", nil
	}

	var violations []*domain.ValidationError
	var declared []string
	for _, n := range g.Nodes {
		if n.Kind == domain.NodeKindStart && n.ID != "" {
			declared = append(declared, n.ID)
		}
	}

	if g.StartNodeID != "" {
		if g.FindNode(g.StartNodeID) != nil {
			return g.StartNodeID, violations
		}
		violations = append(violations, &domain.ValidationError{
			Code:     domain.CodeUnknownStart,
			TargetID: g.StartNodeID,
			Message:  fmt.Sprintf("startNodeId %q does not exist", g.StartNodeID),
		})
	}

	if len(declared) > 0 {
		for _, extra := range declared[1:] {
			violations = append(violations, &domain.ValidationError{
				Code:    domain.CodeMultipleStarts,
				NodeID:  extra,
				Message: fmt.Sprintf("node is declared as start but %q already claims it", declared[0]),
			})
		}
		return declared[0], violations
	}

	return g.Nodes[0].ID, violations
}

// maxSilentHops bounds a chain of audio-less linear nodes.
const maxSilentHops = 1000

// FirstPlayable follows nextId links from id through skippable nodes (no
// audio, no choices) and returns the visited chain. The last element is the
// node to present: one with audio, one with choices, or a dead end.
//
// A missing node or a cycle of silent nodes yields a *domain.ResolutionError.
func FirstPlayable(g *domain.Graph, id string) ([]string, error) {
	var chain []string
	seen := make(map[string]bool)
	from := ""

	for hops := 0; hops < maxSilentHops; hops++ {
		n := g.FindNode(id)
		if n == nil {
			return chain, &domain.ResolutionError{
				FromNodeID: from,
				TargetID:   id,
				Reason:     "target node does not exist",
			}
		}
		if seen[id] {
			return chain, &domain.ResolutionError{
				FromNodeID: from,
				TargetID:   id,
				Reason:     "silent nodes form a cycle",
			}
		}
		seen[id] = true
		chain = append(chain, id)

		if !n.IsSkippable() {
			return chain, nil
		}
		from, id = id, n.NextID
	}

	return chain, &domain.ResolutionError{FromNodeID: from, TargetID: id, Reason: "too many silent nodes"}
}
