package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/agentgraph/pkg/domain"
)

// inputsID is the synthetic node that supplies keys no node writes.
const inputsID = "inputs"

// GraphOverlay contains run data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// GenerateMermaid produces a Mermaid flowchart of the graph's data flow.
// Node shapes follow the node kind:
// - LLM generate: (Rounded)
// - Worker llm_call: [[Subroutine]]
// - Worker function: {{Hexagon}}
// Edges run from the node that writes a key to every node that reads it, labelled with
// the key. Keys nobody writes come from a synthetic ((inputs)) node.
func GenerateMermaid(g *domain.Graph, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	inputs := g.InputKeys()
	if len(inputs) > 0 {
		sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", inputsID, inputsID))
	}

	writers := make(map[string]string)
	for _, node := range g.Nodes {
		for _, key := range node.OutputKeys {
			writers[key] = node.ID
		}
	}

	for _, node := range g.Nodes {
		safeID := sanitizeMermaidID(node.ID)
		opener, closer := shape(node)

		label := node.ID
		if node.Name != "" && node.Name != node.ID {
			label = fmt.Sprintf("%s <br/> %s", node.ID, escapeLabel(node.Name))
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		for _, key := range node.InputKeys {
			from, ok := writers[key]
			if !ok {
				from = inputsID
			}
			sb.WriteString(fmt.Sprintf("    %s -- \"%s\" --> %s\n", sanitizeMermaidID(from), escapeLabel(key), safeID))
		}
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
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

// OverlayFromMemory marks as visited every node whose output keys are all present in memory.
// The first node that is not complete becomes the current node.
func OverlayFromMemory(g *domain.Graph, memory *domain.SharedMemory) *GraphOverlay {
	overlay := &GraphOverlay{}
	for _, node := range g.Nodes {
		done := len(node.OutputKeys) > 0
		for _, key := range node.OutputKeys {
			if _, ok := memory.Get(key); !ok {
				done = false
				break
			}
		}
		if done {
			overlay.VisitedNodes = append(overlay.VisitedNodes, node.ID)
		} else if overlay.CurrentNode == "" {
			overlay.CurrentNode = node.ID
		}
	}
	return overlay
}

func shape(node domain.NodeSpec) (string, string) {
	if node.NodeType != domain.NodeTypeWorker || node.Action == nil {
		return "(", ")"
	}
	if node.Action.Type == domain.ActionFunction {
		return "{{", "}}"
	}
	return "[[", "]]"
}

func escapeLabel(s string) string {
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
