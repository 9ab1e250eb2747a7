package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/transit/internal/presentation/graph"
	"github.com/stretchr/testify/assert"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		steps    []string
		overlay  *graph.Overlay
		contains []string
		excludes []string
	}{
		{
			name:  "Step Shapes",
			steps: []string{"block_input", "status.load_started", "wait_gate.after-unload", "wait_gate_timed.before-activation"},
			contains: []string{
				"block_input[\"block_input\"]",
				"status_load_started([\"load_started\"])",
				"wait_gate_after_unload[/\"after-unload\"/]",
				"wait_gate_timed_before_activation[/\"before-activation <br/> ⏱️\"/]",
			},
		},
		{
			name:  "Edges In Order",
			steps: []string{"fade_in", "unload", "load"},
			contains: []string{
				"fade_in --> unload",
				"unload --> load",
				"load -.-> cleanup",
				"cleanup{{\"cleanup\"}} --> failed((\"failed\"))",
			},
			excludes: []string{"load --> unload", "classDef"},
		},
		{
			name:    "Overlay",
			steps:   []string{"fade_in", "unload", "load"},
			overlay: &graph.Overlay{Visited: []string{"fade_in", "fade_in", "unload"}, FailedStep: "load"},
			contains: []string{
				"class fade_in visited;",
				"class unload visited;",
				"class load failed;",
			},
		},
		{
			name:     "Empty",
			steps:    nil,
			excludes: []string{"cleanup"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.steps, tt.overlay)
			assert.True(t, strings.HasPrefix(got, "graph TD\n"))
			for _, want := range tt.contains {
				assert.Contains(t, got, want)
			}
			for _, unwanted := range tt.excludes {
				assert.NotContains(t, got, unwanted)
			}
			if tt.overlay != nil {
				assert.Equal(t, 1, strings.Count(got, "class fade_in visited;"))
			}
		})
	}
}
