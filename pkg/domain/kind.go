package domain

// EffectiveKind is the behaviorally relevant classification of a node,
// derived from its content. Authoring and playback both use EffectiveKindOf so
// they never disagree.
type EffectiveKind string

const (
	KindStart      EffectiveKind = "start"
	KindScene      EffectiveKind = "scene"
	KindDecision   EffectiveKind = "decision"
	KindCheckpoint EffectiveKind = "checkpoint"
	KindMerge      EffectiveKind = "merge"
	KindEnd        EffectiveKind = "end"
)

// EffectiveKindOf derives a node's kind. isStart is the outcome of start
// resolution for the graph; incoming is the number of effective edges that
// target the node.
//
// Precedence: decision, start, checkpoint, merge, end, scene.
func EffectiveKindOf(n *Node, isStart bool, incoming int) EffectiveKind {
	switch {
	case n.IsDecision():
		return KindDecision
	case isStart:
		return KindStart
	case len(n.SetsFlags) > 0:
		return KindCheckpoint
	case incoming > 1 && n.NextID != "":
		return KindMerge
	case n.NextID == "":
		return KindEnd
	default:
		return KindScene
	}
}
