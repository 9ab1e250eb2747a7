package graph

import (
	"fmt"
	"strings"
)

// Overlay contains run data to visualize on the plan.
type Overlay struct {
	Visited    []string
	Current    string
	FailedStep string
}

// GenerateMermaid produces a Mermaid flowchart of a transition plan, one node
// per pipeline step in execution order. Every step can fail into cleanup.
// Shapes:
// - Gate waits: [/Parallelogram/], with a clock when timed
// - Status markers: ([Stadium])
// - Default: [Rectangle]
func GenerateMermaid(steps []string, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for i, step := range steps {
		safeID := sanitizeMermaidID(step)

		opener, closer := "[", "]"
		label := step
		switch {
		case strings.HasPrefix(step, "wait_gate_timed."):
			opener, closer = "[/", "/]"
			label = strings.TrimPrefix(step, "wait_gate_timed.") + " <br/> ⏱️"
		case strings.HasPrefix(step, "wait_gate."):
			opener, closer = "[/", "/]"
			label = strings.TrimPrefix(step, "wait_gate.")
		case strings.HasPrefix(step, "status."):
			opener, closer = "([", "])"
			label = strings.TrimPrefix(step, "status.")
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		if i > 0 {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", sanitizeMermaidID(steps[i-1]), safeID))
		}
		sb.WriteString(fmt.Sprintf("    %s -.-> cleanup\n", safeID))
	}
	if len(steps) > 0 {
		sb.WriteString("    cleanup{{\"cleanup\"}} --> failed((\"failed\"))\n")
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme (Light/Dark)
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")

		seen := make(map[string]bool)
		for _, step := range overlay.Visited {
			safeID := sanitizeMermaidID(step)
			if !seen[safeID] && safeID != "" {
				seen[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}
		if overlay.Current != "" {
			sb.WriteString(fmt.Sprintf("    class %s current;\n", sanitizeMermaidID(overlay.Current)))
		}
		if overlay.FailedStep != "" {
			sb.WriteString(fmt.Sprintf("    class %s failed;\n", sanitizeMermaidID(overlay.FailedStep)))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
