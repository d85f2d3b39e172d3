// Package export renders compiled flows in external formats for
// authoring and review tools.
package export

import (
	"fmt"
	"sort"
	"strings"

	"github.com/avelardos/convoflow/pkg/domain"
)

// Overlay marks session state on the rendered graph.
type Overlay struct {
	CurrentNodeID string
}

// Mermaid produces a Mermaid flowchart of a compiled flow.
// Node shapes follow kind semantics:
//   - start/end: ((circle))
//   - input and capturing messages: [/parallelogram/]
//   - buttons, list, categories: [[subroutine]]
//   - condition: {rhombus}
//   - everything else: [rectangle]
//
// Option overrides render as dotted edges labeled with the option text.
func Mermaid(def *domain.FlowDefinition, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	ids := make([]string, 0, len(def.Nodes))
	for id := range def.Nodes {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		node := def.Nodes[id]
		safeID := sanitizeID(id)

		opener, closer := "[", "]"
		switch {
		case node.Kind == domain.KindStart || node.Kind == domain.KindEnd:
			opener, closer = "((", "))"
		case node.Kind == domain.KindInput || (node.Kind == domain.KindMessage && node.Captures):
			opener, closer = "[/", "/]"
		case node.Kind.Selective():
			opener, closer = "[[", "]]"
		case node.Kind == domain.KindCondition:
			opener, closer = "{", "}"
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, escapeLabel(id), closer))

		for _, edge := range def.OutgoingEdges(id) {
			arrow := "-->"
			if edge.Condition != "" {
				arrow = fmt.Sprintf("-- \"%s\" -->", escapeLabel(edge.Condition))
			}
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeID(edge.TargetNodeID)))
		}
		for _, opt := range node.Options {
			if opt.TargetNodeOverride == "" {
				continue
			}
			arrow := fmt.Sprintf("-. \"%s\" .->", escapeLabel(opt.DisplayText))
			sb.WriteString(fmt.Sprintf("    %s %s %s\n", safeID, arrow, sanitizeID(opt.TargetNodeOverride)))
		}
	}

	if overlay != nil && overlay.CurrentNodeID != "" {
		sb.WriteString("\n    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeID(overlay.CurrentNodeID)))
	}

	return sb.String()
}

func sanitizeID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}

func escapeLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}
