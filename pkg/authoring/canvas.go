package authoring

import (
	"strings"

	"github.com/wavebound/storyline/pkg/domain"
)

// Grid geometry used when a node has no stored position.
const (
	GridColumns   = 4
	ColumnSpacing = 280.0
	RowSpacing    = 180.0
)

// Connection point names on canvas nodes.
const (
	HandleNext         = "next"
	choiceHandlePrefix = "choice:"
)

// ChoiceHandle returns the connection point name for a choice.
func ChoiceHandle(choiceID string) string {
	return choiceHandlePrefix + choiceID
}

// parseHandle reports whether handle is choice-shaped and, if so, its id.
func parseHandle(handle string) (string, bool) {
	if !strings.HasPrefix(handle, choiceHandlePrefix) {
		return "", false
	}
	return strings.TrimPrefix(handle, choiceHandlePrefix), true
}

// Position is a point on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Layout stores node positions by node id.
type Layout map[string]Position

// GridPosition returns the default position of the node at index.
func GridPosition(index int) Position {
	return Position{
		X: float64(index%GridColumns) * ColumnSpacing,
		Y: float64(index/GridColumns) * RowSpacing,
	}
}

// Canvas is the visual form of an episode.
type Canvas struct {
	StartNodeID string       `json:"startNodeId,omitempty"`
	Nodes       []CanvasNode `json:"nodes"`
	Edges       []CanvasEdge `json:"edges"`
}

// CanvasNode is a node as drawn in the editor.
type CanvasNode struct {
	ID       string   `json:"id"`
	Position Position `json:"position"`
	// Category drives presentation only.
	Category domain.EffectiveKind `json:"category"`
	Data     NodeData             `json:"data"`
}

// NodeData carries the node content verbatim.
type NodeData struct {
	Kind          domain.NodeKind `json:"kind,omitempty"`
	Title         string          `json:"title,omitempty"`
	Description   string          `json:"description,omitempty"`
	AudioRef      string          `json:"audioRef,omitempty"`
	Timestamp     *float64        `json:"timestamp,omitempty"`
	SetsFlags     []string        `json:"setsFlags,omitempty"`
	RequiredFlags []string        `json:"requiredFlags,omitempty"`
	// Choices lists the choice connection points in authored order.
	Choices []ChoiceSlot `json:"choices,omitempty"`
}

// ChoiceSlot is a choice connection point on a canvas node.
type ChoiceSlot struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// CanvasEdge is a drawn connection. SourceHandle is HandleNext (or empty) for
// the linear successor and ChoiceHandle(id) for a choice.
type CanvasEdge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	Label        string `json:"label,omitempty"`
}

func nextEdgeID(from string) string {
	return "e:" + from + ":" + HandleNext
}

func choiceEdgeID(from, choiceID string) string {
	return "e:" + from + ":" + ChoiceHandle(choiceID)
}
