package runtime

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/avelardos/convoflow/pkg/domain"
)

var (
	emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phonePattern = regexp.MustCompile(`^\+?[0-9 ().-]{7,20}$`)
)

// ValidateInput checks inbound text against an input node's rule.
// An empty rule accepts anything. Unknown rules accept anything too,
// but loudly: the compiler cannot know every tenant's custom rules, so
// the conversation must not dead-end on one.
func ValidateInput(node domain.Node, input string) error {
	rule := node.ValidationRule
	trimmed := strings.TrimSpace(input)

	fail := func() error {
		return &domain.ValidationError{NodeID: node.ID, Rule: rule, Input: input}
	}

	switch {
	case rule == "":
		return nil
	case rule == "nonempty":
		if trimmed == "" {
			return fail()
		}
	case rule == "email":
		if !emailPattern.MatchString(trimmed) {
			return fail()
		}
	case rule == "phone":
		if !phonePattern.MatchString(trimmed) {
			return fail()
		}
	case rule == "number":
		if _, err := strconv.ParseFloat(trimmed, 64); err != nil {
			return fail()
		}
	case strings.HasPrefix(rule, "regex:"):
		pattern, err := regexp.Compile(strings.TrimPrefix(rule, "regex:"))
		if err != nil {
			return nil
		}
		if !pattern.MatchString(trimmed) {
			return fail()
		}
	}
	return nil
}
