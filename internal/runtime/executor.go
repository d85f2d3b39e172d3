// Package runtime is the state-machine core: per-node-kind behavior,
// wait-state resolution, and the bounded auto-advance loop that drives
// a session through its flow within a single turn.
package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avelardos/convoflow/internal/conditions"
	"github.com/avelardos/convoflow/internal/hooks"
	"github.com/avelardos/convoflow/internal/matcher"
	"github.com/avelardos/convoflow/internal/resolver"
	"github.com/avelardos/convoflow/pkg/domain"
)

const (
	// DefaultHopLimit bounds node executions per turn. A two-node
	// auto-advance cycle must hit this instead of spinning forever.
	DefaultHopLimit = 10
	// DefaultMaxRetries bounds consecutive invalid answers to an input
	// node before the capture is recorded as empty and the flow moves on.
	DefaultMaxRetries = 3

	defaultRetryMessage = "No entendí tu respuesta, intenta de nuevo."
)

// Executor drives per-node behavior. It is stateless with respect to
// sessions and safe for concurrent use across them.
type Executor struct {
	evaluator  *conditions.Evaluator
	hooks      *hooks.Dispatcher
	logger     *slog.Logger
	hopLimit   int
	maxRetries int
}

// Option configures an Executor.
type Option func(*Executor)

// WithHopLimit overrides the per-turn hop bound.
func WithHopLimit(n int) Option {
	return func(e *Executor) {
		if n > 0 {
			e.hopLimit = n
		}
	}
}

// WithMaxRetries overrides the invalid-input retry bound.
func WithMaxRetries(n int) Option {
	return func(e *Executor) {
		if n >= 0 {
			e.maxRetries = n
		}
	}
}

// WithLogger sets the executor logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Executor. The hook dispatcher may be nil when action
// nodes have no external system to notify.
func New(hookDispatcher *hooks.Dispatcher, opts ...Option) *Executor {
	e := &Executor{
		evaluator:  conditions.New(),
		hooks:      hookDispatcher,
		logger:     slog.Default(),
		hopLimit:   DefaultHopLimit,
		maxRetries: DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Turn accumulates everything one inbound message produces.
type Turn struct {
	Messages []domain.OutboundMessage
	Options  []domain.OptionPayload
	Hops     int
}

func (t *Turn) say(text, mediaURL string) {
	t.Messages = append(t.Messages, domain.OutboundMessage{Text: text, MediaURL: mediaURL})
}

// ResolveWait consumes inbound text for the node the session is
// waiting on. It returns true when the session advanced and the
// auto-advance loop should run, false when the turn ends here
// (re-prompt emitted, still waiting).
func (ex *Executor) ResolveWait(ctx context.Context, def *domain.FlowDefinition, sess *domain.Session, systemVars map[string]any, input string, turn *Turn) (bool, error) {
	node, ok := def.Node(sess.CurrentNodeID)
	if !ok {
		return false, fmt.Errorf("session %s waiting on unknown node %q", sess.Key, sess.CurrentNodeID)
	}
	scope := resolver.NewScope(sess.Variables, systemVars)

	if node.Kind.Selective() {
		opt, err := matcher.Match(input, sess.ValidSelectionSet, matcher.Flags{
			NumberingEnabled: node.NumberingEnabled,
			AllowFreeText:    node.AllowFreeText,
		})
		if err != nil {
			sess.RetryCount++
			turn.say(retryMessage(node, scope), "")
			ex.logger.Debug("selection did not match",
				"session", sess.Key.String(), "node", node.ID, "err", err)
			return false, nil
		}
		sess.Variables[node.ExpectedVariable] = opt.MachineValue
		sess.ClearWait()
		if opt.TargetNodeOverride != "" {
			sess.CurrentNodeID = opt.TargetNodeOverride
			return true, nil
		}
		return ex.advance(def, sess, scope, node)
	}

	if node.Kind == domain.KindInput {
		if err := ValidateInput(node, input); err != nil {
			sess.RetryCount++
			if sess.RetryCount > ex.maxRetries {
				// Give up on this capture: record it as empty and let
				// the flow proceed instead of looping forever.
				ex.logger.Warn("input retries exhausted",
					"session", sess.Key.String(), "node", node.ID, "rule", node.ValidationRule)
				sess.Variables[node.ExpectedVariable] = ""
				sess.ClearWait()
				return ex.advance(def, sess, scope, node)
			}
			turn.say(retryMessage(node, scope), "")
			return false, nil
		}
		sess.Variables[node.ExpectedVariable] = strings.TrimSpace(input)
		sess.ClearWait()
		return ex.advance(def, sess, scope, node)
	}

	// Capturing message node: store the raw text and move on.
	if node.ExpectedVariable != "" {
		sess.Variables[node.ExpectedVariable] = strings.TrimSpace(input)
	}
	sess.ClearWait()
	return ex.advance(def, sess, scope, node)
}

// Run executes nodes from the session's current position until one
// waits for input or the flow ends. Each executed node is a hop;
// exceeding the hop limit returns a SafetyError.
func (ex *Executor) Run(ctx context.Context, def *domain.FlowDefinition, sess *domain.Session, systemVars map[string]any, turn *Turn) error {
	for {
		turn.Hops++
		if turn.Hops > ex.hopLimit {
			return &domain.SafetyError{NodeID: sess.CurrentNodeID, Hops: ex.hopLimit}
		}

		node, ok := def.Node(sess.CurrentNodeID)
		if !ok {
			return fmt.Errorf("session %s points at unknown node %q", sess.Key, sess.CurrentNodeID)
		}
		scope := resolver.NewScope(sess.Variables, systemVars)

		switch node.Kind {
		case domain.KindStart:
			// Entry marker only.

		case domain.KindMessage:
			turn.say(scope.Resolve(node.Content), scope.Resolve(node.MediaURL))
			if node.Captures {
				sess.BeginWait(node.ExpectedVariable, nil)
				return nil
			}

		case domain.KindInput:
			turn.say(scope.Resolve(node.Content), scope.Resolve(node.MediaURL))
			sess.BeginWait(node.ExpectedVariable, nil)
			return nil

		case domain.KindButtons, domain.KindList, domain.KindCategories:
			options := scope.ResolveOptions(node.Options)
			turn.say(scope.Resolve(node.Content), scope.Resolve(node.MediaURL))
			turn.Options = append(turn.Options, domain.OptionPayload{
				NodeID:  node.ID,
				Kind:    node.Kind,
				Options: options,
			})
			sess.BeginWait(node.ExpectedVariable, options)
			return nil

		case domain.KindCondition:
			// Routing only; edge conditions are evaluated below.

		case domain.KindAction:
			// Fire-and-continue; Dispatch logs failures itself.
			_ = ex.hooks.Dispatch(ctx, sess.Key.TenantID, sess.Key.UserID, node.StageHook, sess.Snapshot())

		case domain.KindEnd:
			sess.Ended = true
			sess.ClearWait()
			return nil
		}

		advanced, err := ex.advance(def, sess, scope, node)
		if err != nil {
			return err
		}
		if !advanced {
			return nil
		}
	}
}

// advance moves the session along the first satisfied conditional edge,
// falling back to the default edge. Conditions evaluate against the
// same layered scope messages resolve with, so guards can reference
// tenant system variables. A node with no usable edge ends the
// conversation rather than stranding it.
func (ex *Executor) advance(def *domain.FlowDefinition, sess *domain.Session, scope *resolver.Scope, node domain.Node) (bool, error) {
	for _, edge := range def.OutgoingEdges(node.ID) {
		if edge.Condition == "" {
			continue
		}
		ok, err := ex.evaluator.Evaluate(edge.Condition, scope.Variables())
		if err != nil {
			ex.logger.Warn("edge condition failed to evaluate",
				"node", node.ID, "condition", edge.Condition, "err", err)
			continue
		}
		if ok {
			sess.CurrentNodeID = edge.TargetNodeID
			return true, nil
		}
	}
	if edge, ok := def.DefaultEdge(node.ID); ok {
		sess.CurrentNodeID = edge.TargetNodeID
		return true, nil
	}

	ex.logger.Warn("no outgoing edge matched, ending conversation",
		"session", sess.Key.String(), "node", node.ID)
	sess.Ended = true
	sess.ClearWait()
	return false, nil
}

func retryMessage(node domain.Node, scope *resolver.Scope) string {
	if node.RetryMessage != "" {
		return scope.Resolve(node.RetryMessage)
	}
	return defaultRetryMessage
}
