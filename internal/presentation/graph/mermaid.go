package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/parley/pkg/domain"
)

// GraphOverlay contains dynamic state data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of a dialogue.
// Node shapes follow the node kind:
// - Start: ((Circle))
// - Selector: {Rhombus}
// - Proxy: [[Subroutine]]
// - Sequence: [/Parallelogram/]
// - End: ([Stadium])
// - Default: [Rectangle]
// Conditional links are dashed. Overlay styles (visited/current) apply when provided.
func GenerateMermaid(d *domain.Dialogue, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, node := range d.Nodes {
		if node == nil {
			continue
		}
		safeID := sanitizeMermaidID(node.ID)

		opener, closer := "[", "]"
		switch {
		case d.IsStart(node.ID):
			opener, closer = "((", "))"
		case node.Kind == domain.NodeSelector:
			opener, closer = "{", "}"
		case node.Kind == domain.NodeProxy:
			opener, closer = "[[", "]]"
		case node.Kind == domain.NodeSequence:
			opener, closer = "[/", "/]"
		case node.Kind == domain.NodeEnd:
			opener, closer = "([", "])"
		}

		label := node.ID
		if node.Speaker != "" {
			label = fmt.Sprintf("%s <br/> %s", node.ID, escape(node.Speaker))
		}
		if node.Restriction != domain.RestrictNone {
			label = fmt.Sprintf("%s <br/> %s", label, node.Restriction)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		if node.Kind == domain.NodeProxy {
			sb.WriteString(fmt.Sprintf("    %s -.-> %s\n", safeID, sanitizeMermaidID(node.ProxyTo)))
			continue
		}

		for _, l := range node.Children {
			safeTo := sanitizeMermaidID(l.Target)
			conditional := len(l.Conditions) > 0

			arrow := "-->"
			if conditional {
				arrow = "-.->"
			}
			if l.Text != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", escape(l.Text))
				if conditional {
					arrow = fmt.Sprintf("-. \"%s\" .->", escape(l.Text))
				}
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, safeTo))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for contrast on light fills in both themes.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentNode != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode)))
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
	return s
}
