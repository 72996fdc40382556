package domain

// NodeKind is the declared kind of a node. It is a hint for authors and
// presentation only; behavior is derived by EffectiveKindOf.
type NodeKind string

// Declared node kinds.
const (
	NodeKindStart      NodeKind = "start"
	NodeKindScene      NodeKind = "scene"
	NodeKindChoice     NodeKind = "choice"
	NodeKindCheckpoint NodeKind = "checkpoint"
	NodeKindMerge      NodeKind = "merge"
	NodeKindEnd        NodeKind = "end"
)

// Node represents a unit of narrative content in the graph.
type Node struct {
	ID          string   `json:"id" yaml:"id" mapstructure:"id"`
	Kind        NodeKind `json:"kind,omitempty" yaml:"kind,omitempty" mapstructure:"kind"`
	Title       string   `json:"title,omitempty" yaml:"title,omitempty" mapstructure:"title"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty" mapstructure:"description"`

	// AudioRef points at an external playable asset. Empty means the node is a
	// pure transition or decision point.
	AudioRef string `json:"audioRef,omitempty" yaml:"audioRef,omitempty" mapstructure:"audioRef"`

	// Timestamp is the offset in seconds into the node's audio at which its
	// choices are presented. Nil means the player's fallback offset applies.
	Timestamp *float64 `json:"timestamp,omitempty" yaml:"timestamp,omitempty" mapstructure:"timestamp"`

	// NextID is the linear successor, used only when Choices is empty.
	NextID  string   `json:"nextId,omitempty" yaml:"nextId,omitempty" mapstructure:"nextId"`
	Choices []Choice `json:"choices,omitempty" yaml:"choices,omitempty" mapstructure:"choices"`

	// SetsFlags are written into session memory when the node is reached.
	SetsFlags []string `json:"setsFlags,omitempty" yaml:"setsFlags,omitempty" mapstructure:"setsFlags"`
	// RequiredFlags is reserved for gating and is not enforced by playback.
	RequiredFlags []string `json:"requiredFlags,omitempty" yaml:"requiredFlags,omitempty" mapstructure:"requiredFlags"`
}

// Choice is one outgoing decision option of a node.
type Choice struct {
	ID            string `json:"id" yaml:"id" mapstructure:"id"`
	Text          string `json:"text" yaml:"text" mapstructure:"text"`
	LeadsToNodeID string `json:"leadsToNodeId" yaml:"leadsToNodeId" mapstructure:"leadsToNodeId"`
}

// HasAudio reports whether the node references a playable asset.
func (n *Node) HasAudio() bool {
	return n.AudioRef != ""
}

// IsDecision reports whether the node behaves as a decision point.
// Populated choices win over any declared kind.
func (n *Node) IsDecision() bool {
	return len(n.Choices) > 0
}

// IsSkippable reports whether the node is a silent, non-interactive link that
// playback should pass through.
func (n *Node) IsSkippable() bool {
	return !n.HasAudio() && !n.IsDecision() && n.NextID != ""
}

// IsTerminal reports whether the node has no way forward.
func (n *Node) IsTerminal() bool {
	return !n.IsDecision() && n.NextID == ""
}

// ChoiceByID returns the choice with the given id, or nil.
func (n *Node) ChoiceByID(id string) *Choice {
	for i := range n.Choices {
		if n.Choices[i].ID == id {
			return &n.Choices[i]
		}
	}
	return nil
}

// ChoiceOffset returns the node's timestamp, or fallback when unset.
func (n *Node) ChoiceOffset(fallback float64) float64 {
	if n.Timestamp == nil {
		return fallback
	}
	return *n.Timestamp
}

// Clone returns a deep copy of the node.
func (n Node) Clone() Node {
	out := n
	if n.Timestamp != nil {
		ts := *n.Timestamp
		out.Timestamp = &ts
	}
	out.Choices = cloneSlice(n.Choices)
	out.SetsFlags = cloneSlice(n.SetsFlags)
	out.RequiredFlags = cloneSlice(n.RequiredFlags)
	return out
}

// Seconds is a convenience for building optional timestamps.
func Seconds(v float64) *float64 {
	return &v
}

func cloneSlice[T any](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
