package export_test

import (
	"strings"
	"testing"

	"github.com/avelardos/convoflow/internal/export"
	"github.com/avelardos/convoflow/pkg/domain"
)

func TestMermaid(t *testing.T) {
	tests := []struct {
		name     string
		def      *domain.FlowDefinition
		overlay  *export.Overlay
		contains []string
	}{
		{
			name: "node shapes",
			def: &domain.FlowDefinition{
				Nodes: map[string]domain.Node{
					"start": {ID: "start", Kind: domain.KindStart},
					"ask":   {ID: "ask", Kind: domain.KindInput},
					"pick":  {ID: "pick", Kind: domain.KindButtons},
					"route": {ID: "route", Kind: domain.KindCondition},
					"done":  {ID: "done", Kind: domain.KindEnd},
				},
			},
			contains: []string{
				"start((\"start\"))",
				"ask[/\"ask\"/]",
				"pick[[\"pick\"]]",
				"route{\"route\"}",
				"done((\"done\"))",
			},
		},
		{
			name: "conditional edge label",
			def: &domain.FlowDefinition{
				Nodes: map[string]domain.Node{
					"route": {ID: "route", Kind: domain.KindCondition},
					"gold":  {ID: "gold", Kind: domain.KindMessage},
				},
				EdgesBySource: map[string][]domain.Edge{
					"route": {{SourceNodeID: "route", TargetNodeID: "gold", Condition: `tier == "gold"`}},
				},
			},
			contains: []string{
				`route -- "tier == 'gold'" --> gold`,
			},
		},
		{
			name: "option override edge",
			def: &domain.FlowDefinition{
				Nodes: map[string]domain.Node{
					"pick": {ID: "pick", Kind: domain.KindButtons, Options: []domain.Option{
						{Index: 1, DisplayText: "Comprar", TargetNodeOverride: "buy-info"},
					}},
					"buy-info": {ID: "buy-info", Kind: domain.KindMessage},
				},
			},
			contains: []string{
				`pick -. "Comprar" .-> buy_info`,
			},
		},
		{
			name: "id sanitization",
			def: &domain.FlowDefinition{
				Nodes: map[string]domain.Node{
					"hyphen-ated": {ID: "hyphen-ated", Kind: domain.KindMessage},
				},
			},
			contains: []string{
				`hyphen_ated["hyphen-ated"]`,
			},
		},
		{
			name: "overlay marks current node",
			def: &domain.FlowDefinition{
				Nodes: map[string]domain.Node{
					"ask": {ID: "ask", Kind: domain.KindInput},
				},
			},
			overlay: &export.Overlay{CurrentNodeID: "ask"},
			contains: []string{
				"classDef current",
				"class ask current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := export.Mermaid(tt.def, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q:\n%s", want, out)
				}
			}
		})
	}
}
