package graph

import (
	"fmt"
	"strings"

	"github.com/wavebound/storyline/pkg/domain"
	"github.com/wavebound/storyline/pkg/validator"
)

// GraphOverlay contains session data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFor builds an overlay from a session's trail and position.
func OverlayFor(s domain.Session) *GraphOverlay {
	return &GraphOverlay{VisitedNodes: s.Trail, CurrentNode: s.CurrentNodeID}
}

// GenerateMermaid produces a Mermaid flowchart for an episode graph.
// Shapes follow the effective kind of each node:
// - Start: ((Circle))
// - Decision: {Rhombus}
// - Checkpoint: [[Subroutine]]
// - Merge: ([Stadium])
// - End: (((Double circle)))
// - Scene: [Rectangle]
// Links to missing nodes are dashed. Overlay styles (visited/current) are
// applied when overlay is non-nil.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if g == nil {
		return sb.String()
	}

	kinds := validator.Classify(g)
	for _, node := range g.Nodes {
		if node.ID == "" {
			continue
		}
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch kinds[node.ID] {
		case domain.KindStart:
			opener, closer = "((", "))"
		case domain.KindDecision:
			opener, closer = "{", "}"
		case domain.KindCheckpoint:
			opener, closer = "[[", "]]"
		case domain.KindMerge:
			opener, closer = "([", "])"
		case domain.KindEnd:
			opener, closer = "(((", ")))"
		}

		text := escape(node.ID)
		if node.Title != "" {
			text = escape(node.Title)
		}
		if node.IsDecision() && node.Timestamp != nil {
			text = fmt.Sprintf("%s <br/> ⏱️ %gs", text, *node.Timestamp)
		}
		if len(node.SetsFlags) > 0 {
			text = fmt.Sprintf("%s <br/> 🏁 %s", text, escape(strings.Join(node.SetsFlags, ", ")))
		}
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", safeID, opener, text, closer)

		for _, e := range g.OutgoingEdges(node.ID) {
			if e.ToID == "" {
				continue
			}
			missing := g.FindNode(e.ToID) == nil
			arrow := "-->"
			if missing {
				arrow = "-.->"
			}
			if e.Type == domain.EdgeChoice {
				label := escape(e.Label)
				if label == "" {
					label = escape(e.ChoiceID)
				}
				arrow = fmt.Sprintf("-- \"%s\" -->", label)
				if missing {
					arrow = fmt.Sprintf("-. \"%s\" .->", label)
				}
			}
			fmt.Fprintf(&sb, "    %s %s %s\n", safeID, arrow, sanitizeMermaidID(e.ToID))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Black text keeps contrast on light fills in both themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if safeID != "" && !visitedSet[safeID] && g.FindNode(id) != nil {
				visitedSet[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}

		if overlay.CurrentNode != "" && g.FindNode(overlay.CurrentNode) != nil {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
