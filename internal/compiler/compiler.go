// Package compiler turns authored node-graphs into validated, read-only
// runtime definitions. Compilation is a pure function: identical input
// yields a structurally identical FlowDefinition, and nothing is cached
// here; caching is the caller's concern.
package compiler

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/avelardos/convoflow/pkg/domain"
)

// kindAliases maps the many synonymous type names used by authoring
// tools onto the closed NodeKind set. Unknown names are a CompileError,
// never silently ignored.
var kindAliases = map[string]domain.NodeKind{
	"start":          domain.KindStart,
	"startnode":      domain.KindStart,
	"entry":          domain.KindStart,
	"message":        domain.KindMessage,
	"messagenode":    domain.KindMessage,
	"text":           domain.KindMessage,
	"textnode":       domain.KindMessage,
	"input":          domain.KindInput,
	"inputnode":      domain.KindInput,
	"question":       domain.KindInput,
	"capture":        domain.KindInput,
	"buttons":        domain.KindButtons,
	"button":         domain.KindButtons,
	"buttonsnode":    domain.KindButtons,
	"quickreply":     domain.KindButtons,
	"list":           domain.KindList,
	"listnode":       domain.KindList,
	"menu":           domain.KindList,
	"categories":     domain.KindCategories,
	"category":       domain.KindCategories,
	"categoriesnode": domain.KindCategories,
	"condition":      domain.KindCondition,
	"conditionnode":  domain.KindCondition,
	"branch":         domain.KindCondition,
	"action":         domain.KindAction,
	"actionnode":     domain.KindAction,
	"hook":           domain.KindAction,
	"end":            domain.KindEnd,
	"endnode":        domain.KindEnd,
	"finish":         domain.KindEnd,
}

// rawFlow is the tolerant decode target for authored documents.
type rawFlow struct {
	ID       string    `mapstructure:"id"`
	TenantID string    `mapstructure:"tenant_id"`
	Version  string    `mapstructure:"version"`
	Entry    string    `mapstructure:"entry_node_id"`
	Nodes    []rawNode `mapstructure:"nodes"`
	Edges    []rawEdge `mapstructure:"edges"`
}

type rawNode struct {
	ID               string      `mapstructure:"id"`
	Kind             string      `mapstructure:"kind"`
	Type             string      `mapstructure:"type"`
	Content          string      `mapstructure:"content"`
	MediaURL         string      `mapstructure:"media_url"`
	Captures         bool        `mapstructure:"captures"`
	ExpectedVariable string      `mapstructure:"expected_variable"`
	ValidationRule   string      `mapstructure:"validation_rule"`
	RetryMessage     string      `mapstructure:"retry_message"`
	Options          []rawOption `mapstructure:"options"`
	NumberingEnabled *bool       `mapstructure:"numbering_enabled"`
	AllowFreeText    bool        `mapstructure:"allow_free_text"`
	StageHook        string      `mapstructure:"stage_hook"`
}

type rawOption struct {
	Index              int    `mapstructure:"index"`
	DisplayText        string `mapstructure:"display_text"`
	Label              string `mapstructure:"label"`
	MachineValue       string `mapstructure:"machine_value"`
	Value              string `mapstructure:"value"`
	TargetNodeOverride string `mapstructure:"target_node_override"`
}

type rawEdge struct {
	Source    string `mapstructure:"source_node_id"`
	From      string `mapstructure:"from"`
	Target    string `mapstructure:"target_node_id"`
	To        string `mapstructure:"to"`
	Condition string `mapstructure:"condition"`
}

// Compile validates and normalizes a raw graph into a FlowDefinition.
func Compile(raw map[string]any) (*domain.FlowDefinition, error) {
	var doc rawFlow
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, &domain.CompileError{FlowID: fmt.Sprintf("%v", raw["id"]), Problems: []string{err.Error()}}
	}

	var problems []string

	nodes := make(map[string]domain.Node, len(doc.Nodes))
	order := make([]string, 0, len(doc.Nodes))
	for _, rn := range doc.Nodes {
		if rn.ID == "" {
			problems = append(problems, "node missing id")
			continue
		}
		if _, dup := nodes[rn.ID]; dup {
			problems = append(problems, fmt.Sprintf("duplicate node id %q", rn.ID))
			continue
		}
		node, errs := normalizeNode(rn)
		problems = append(problems, errs...)
		nodes[rn.ID] = node
		order = append(order, rn.ID)
	}

	entry := doc.Entry
	if entry == "" {
		// Fall back to the single start-kind node when the document
		// does not name an entry explicitly.
		for _, id := range order {
			if nodes[id].Kind == domain.KindStart {
				entry = id
				break
			}
		}
	}
	if entry == "" {
		problems = append(problems, "no entry node")
	} else if _, ok := nodes[entry]; !ok {
		problems = append(problems, fmt.Sprintf("entry node %q does not exist", entry))
	}

	edgesBySource := make(map[string][]domain.Edge)
	for i, re := range doc.Edges {
		src := re.Source
		if src == "" {
			src = re.From
		}
		tgt := re.Target
		if tgt == "" {
			tgt = re.To
		}
		if src == "" || tgt == "" {
			problems = append(problems, fmt.Sprintf("edge %d missing source or target", i))
			continue
		}
		if _, ok := nodes[src]; !ok {
			problems = append(problems, fmt.Sprintf("edge %d source %q does not exist", i, src))
			continue
		}
		if _, ok := nodes[tgt]; !ok {
			problems = append(problems, fmt.Sprintf("edge %d target %q does not exist", i, tgt))
			continue
		}
		edgesBySource[src] = append(edgesBySource[src], domain.Edge{
			SourceNodeID: src,
			TargetNodeID: tgt,
			Condition:    strings.TrimSpace(re.Condition),
		})
	}

	// Option overrides are edges in disguise; check their targets too.
	for _, id := range order {
		for _, opt := range nodes[id].Options {
			if opt.TargetNodeOverride == "" {
				continue
			}
			if _, ok := nodes[opt.TargetNodeOverride]; !ok {
				problems = append(problems,
					fmt.Sprintf("node %q option %d targets missing node %q", id, opt.Index, opt.TargetNodeOverride))
			}
		}
	}

	// Non-end nodes reachable from the entry need a way out, except
	// waiting nodes whose continuation arrives when the wait resolves
	// via an option override.
	if entry != "" {
		for _, id := range reachable(entry, nodes, edgesBySource) {
			node := nodes[id]
			if node.Kind == domain.KindEnd {
				continue
			}
			if len(edgesBySource[id]) > 0 {
				continue
			}
			if node.Kind.Selective() && allOptionsOverride(node) {
				continue
			}
			problems = append(problems, fmt.Sprintf("node %q has no outgoing edge", id))
		}
	}

	if len(problems) > 0 {
		sort.Strings(problems)
		return nil, &domain.CompileError{FlowID: doc.ID, Problems: problems}
	}

	return &domain.FlowDefinition{
		ID:            doc.ID,
		TenantID:      doc.TenantID,
		Version:       doc.Version,
		EntryNodeID:   entry,
		Nodes:         nodes,
		EdgesBySource: edgesBySource,
	}, nil
}

func normalizeNode(rn rawNode) (domain.Node, []string) {
	var problems []string

	kindName := rn.Kind
	if kindName == "" {
		kindName = rn.Type
	}
	kind, ok := kindAliases[strings.ToLower(strings.TrimSpace(kindName))]
	if !ok {
		problems = append(problems, fmt.Sprintf("node %q has unknown kind %q", rn.ID, kindName))
	}

	options := make([]domain.Option, 0, len(rn.Options))
	for i, ro := range rn.Options {
		label := ro.DisplayText
		if label == "" {
			label = ro.Label
		}
		value := ro.MachineValue
		if value == "" {
			value = ro.Value
		}
		if value == "" {
			value = label
		}
		idx := ro.Index
		if idx == 0 {
			idx = i + 1
		}
		options = append(options, domain.Option{
			Index:              idx,
			DisplayText:        label,
			MachineValue:       value,
			TargetNodeOverride: ro.TargetNodeOverride,
		})
	}

	if kind.Selective() && len(options) == 0 {
		problems = append(problems, fmt.Sprintf("node %q has no options", rn.ID))
	}

	expected := rn.ExpectedVariable
	// A capturing node always names a variable, so the waiting
	// invariant (waiting implies expectation) holds at runtime.
	if expected == "" && (rn.Captures || kind == domain.KindInput || kind.Selective()) {
		expected = rn.ID
	}

	numbering := true
	if rn.NumberingEnabled != nil {
		numbering = *rn.NumberingEnabled
	}

	return domain.Node{
		ID:               rn.ID,
		Kind:             kind,
		Content:          rn.Content,
		MediaURL:         rn.MediaURL,
		Captures:         rn.Captures,
		ExpectedVariable: expected,
		ValidationRule:   strings.TrimSpace(rn.ValidationRule),
		RetryMessage:     rn.RetryMessage,
		Options:          options,
		NumberingEnabled: numbering,
		AllowFreeText:    rn.AllowFreeText,
		StageHook:        rn.StageHook,
	}, problems
}

func allOptionsOverride(n domain.Node) bool {
	for _, opt := range n.Options {
		if opt.TargetNodeOverride == "" {
			return false
		}
	}
	return len(n.Options) > 0
}

func reachable(entry string, nodes map[string]domain.Node, edges map[string][]domain.Edge) []string {
	seen := map[string]bool{entry: true}
	queue := []string{entry}
	var out []string
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		out = append(out, id)
		for _, e := range edges[id] {
			if !seen[e.TargetNodeID] {
				seen[e.TargetNodeID] = true
				queue = append(queue, e.TargetNodeID)
			}
		}
		for _, opt := range nodes[id].Options {
			if opt.TargetNodeOverride != "" && !seen[opt.TargetNodeOverride] {
				seen[opt.TargetNodeOverride] = true
				queue = append(queue, opt.TargetNodeOverride)
			}
		}
	}
	sort.Strings(out)
	return out
}
