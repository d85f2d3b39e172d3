// Package matcher resolves raw user input against a node's option set.
// The precedence is canonical and applied uniformly to every selective
// node kind: numeric index, machine value, display text, substring,
// then free text when the node allows it.
package matcher

import (
	"strconv"
	"strings"

	"github.com/avelardos/convoflow/pkg/domain"
)

// Flags adjust matching per node configuration.
type Flags struct {
	// NumberingEnabled accepts the option's 1-based index as input.
	NumberingEnabled bool
	// AllowFreeText synthesizes an ad-hoc option from unmatched input.
	AllowFreeText bool
}

// Match resolves input against options. The first rule that yields a
// result wins; when none does and free text is disallowed, callers get
// a NoMatchError and must re-prompt without advancing.
func Match(input string, options []domain.Option, flags Flags) (domain.Option, error) {
	trimmed := strings.TrimSpace(input)

	if flags.NumberingEnabled {
		if idx, err := strconv.Atoi(trimmed); err == nil {
			for _, opt := range options {
				if opt.Index == idx {
					return opt, nil
				}
			}
		}
	}

	for _, opt := range options {
		if strings.EqualFold(trimmed, opt.MachineValue) {
			return opt, nil
		}
	}

	for _, opt := range options {
		if strings.EqualFold(trimmed, opt.DisplayText) {
			return opt, nil
		}
	}

	if trimmed != "" {
		lower := strings.ToLower(trimmed)
		for _, opt := range options {
			label := strings.ToLower(opt.DisplayText)
			if label == "" {
				continue
			}
			if strings.Contains(label, lower) || strings.Contains(lower, label) {
				return opt, nil
			}
		}
	}

	if flags.AllowFreeText {
		return domain.Option{
			Index:        0,
			DisplayText:  input,
			MachineValue: input,
		}, nil
	}

	return domain.Option{}, &domain.NoMatchError{Input: input, OptionCount: len(options)}
}
