package authoring

import (
	"slices"

	"github.com/wavebound/storyline/pkg/domain"
)

// Equivalent reports whether two graphs have the same nodes, content and
// effective edges. Node order and layout are ignored.
func Equivalent(a, b *domain.Graph) bool {
	if a == nil || b == nil {
		return a == b
	}
	if len(a.Nodes) != len(b.Nodes) {
		return false
	}
	for _, na := range a.Nodes {
		nb := b.FindNode(na.ID)
		if nb == nil || !sameNode(&na, nb) {
			return false
		}
	}
	return sameIDSet(a, b)
}

func sameIDSet(a, b *domain.Graph) bool {
	x, y := a.NodeIDs(), b.NodeIDs()
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}

func sameNode(a, b *domain.Node) bool {
	if a.Kind != b.Kind || a.Title != b.Title || a.Description != b.Description || a.AudioRef != b.AudioRef {
		return false
	}
	if (a.Timestamp == nil) != (b.Timestamp == nil) || a.Timestamp != nil && *a.Timestamp != *b.Timestamp {
		return false
	}
	if !slices.Equal(a.SetsFlags, b.SetsFlags) || !slices.Equal(a.RequiredFlags, b.RequiredFlags) {
		return false
	}
	if !slices.Equal(a.Choices, b.Choices) {
		return false
	}
	// NextID only matters when there are no choices.
	return a.IsDecision() || a.NextID == b.NextID
}
