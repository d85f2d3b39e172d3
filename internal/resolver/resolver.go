// Package resolver substitutes {{token}} placeholders using a layered
// variable scope: session-captured values win over tenant system
// variables, which win over built-in defaults. Unresolved tokens are
// left verbatim; resolution never fails.
package resolver

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/oliveagle/jsonpath"

	"github.com/avelardos/convoflow/pkg/domain"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([^{}]+?)\s*\}\}`)

// maxPasses bounds re-resolution when resolved values themselves
// contain tokens, so circular definitions cannot recurse forever.
const maxPasses = 3

// Defaults returns the built-in bottom layer of the scope.
func Defaults() map[string]any {
	return map[string]any{
		"name": "Usuario",
	}
}

// Scope is one immutable layering of variables for a single turn.
type Scope struct {
	layers []map[string]any
	merged map[string]any
}

// NewScope layers session variables over tenant system variables over
// built-in defaults. Earlier layers win.
func NewScope(session, system map[string]any) *Scope {
	layers := []map[string]any{session, system, Defaults()}
	merged := make(map[string]any)
	for i := len(layers) - 1; i >= 0; i-- {
		for k, v := range layers[i] {
			merged[k] = v
		}
	}
	return &Scope{layers: layers, merged: merged}
}

// Variables returns a merged copy of every layer, most specific
// winning. It re-reads the layers so values written after the scope
// was built are included.
func (s *Scope) Variables() map[string]any {
	merged := make(map[string]any, len(s.merged))
	for i := len(s.layers) - 1; i >= 0; i-- {
		for k, v := range s.layers[i] {
			merged[k] = v
		}
	}
	return merged
}

// Lookup resolves a single variable name through the layers.
// Names starting with "$." are jsonpath expressions evaluated against
// the merged scope, which lets templates reach into structured values.
func (s *Scope) Lookup(name string) (any, bool) {
	if strings.HasPrefix(name, "$.") {
		value, err := jsonpath.JsonPathLookup(s.merged, name)
		if err != nil || value == nil {
			return nil, false
		}
		return value, true
	}
	for _, layer := range s.layers {
		if v, ok := layer[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// Resolve substitutes tokens left-to-right, re-resolving up to three
// passes for values that themselves contain tokens.
func (s *Scope) Resolve(text string) string {
	out := text
	for pass := 0; pass < maxPasses; pass++ {
		if !strings.Contains(out, "{{") {
			return out
		}
		next := tokenPattern.ReplaceAllStringFunc(out, func(token string) string {
			name := strings.TrimSpace(tokenPattern.FindStringSubmatch(token)[1])
			value, ok := s.Lookup(name)
			if !ok {
				return token
			}
			return fmt.Sprintf("%v", value)
		})
		if next == out {
			return out
		}
		out = next
	}
	return out
}

// ResolveOptions resolves labels and machine values of an option set.
func (s *Scope) ResolveOptions(options []domain.Option) []domain.Option {
	out := make([]domain.Option, len(options))
	for i, opt := range options {
		opt.DisplayText = s.Resolve(opt.DisplayText)
		opt.MachineValue = s.Resolve(opt.MachineValue)
		out[i] = opt
	}
	return out
}
