// Package conditions evaluates edge guard expressions against the
// session's variables. Expressions are plain JavaScript booleans
// ("intent == 'buy'", "visits > 3 && vip") executed in a throwaway
// goja VM per evaluation; flows are authored by the tenant, so the
// expressions are trusted, just not assumed correct.
package conditions

import (
	"fmt"

	"github.com/dop251/goja"
)

// Evaluator runs guard expressions. The zero value is usable.
type Evaluator struct{}

// New returns an Evaluator.
func New() *Evaluator {
	return &Evaluator{}
}

// Evaluate returns the truthiness of expr with vars bound as globals.
// The full variable map is also bound as "$" for names that are not
// valid identifiers.
func (e *Evaluator) Evaluate(expr string, vars map[string]any) (bool, error) {
	vm := goja.New()
	if err := vm.Set("$", vars); err != nil {
		return false, err
	}
	for name, value := range vars {
		if !validIdentifier(name) {
			continue
		}
		if err := vm.Set(name, value); err != nil {
			return false, err
		}
	}

	value, err := vm.RunString(expr)
	if err != nil {
		return false, fmt.Errorf("condition %q: %w", expr, err)
	}
	return value.ToBoolean(), nil
}

func validIdentifier(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
