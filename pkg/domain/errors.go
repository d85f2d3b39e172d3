package domain

import (
	"errors"
	"fmt"
)

// ErrSessionNotFound is returned by stores when the key has no session.
var ErrSessionNotFound = errors.New("session not found")

// ErrFlowNotFound is returned by flow sources for unknown templates.
var ErrFlowNotFound = errors.New("flow template not found")

// CompileError reports a malformed flow graph. It is fatal at compile
// time and never reaches runtime traversal.
type CompileError struct {
	FlowID   string
	Problems []string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("flow %q failed to compile: %d problem(s): %v", e.FlowID, len(e.Problems), e.Problems)
}

// ValidationError reports captured input failing a node's rule.
// Recoverable: the orchestrator re-prompts without advancing.
type ValidationError struct {
	NodeID string
	Rule   string
	Input  string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("input for node %q failed rule %q", e.NodeID, e.Rule)
}

// NoMatchError reports user input that resolves to none of the valid
// options. Recoverable: re-prompt, no advance.
type NoMatchError struct {
	Input       string
	OptionCount int
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("input %q matched none of %d options", e.Input, e.OptionCount)
}

// SafetyError reports the per-turn hop limit being exceeded during
// auto-advance. Fatal for the turn; the caller gets a fallback message.
type SafetyError struct {
	NodeID string
	Hops   int
}

func (e *SafetyError) Error() string {
	return fmt.Sprintf("hop limit %d exceeded at node %q", e.Hops, e.NodeID)
}

// HookError reports a failed or timed-out funnel hook. Logged only;
// never surfaced to the user, never blocks traversal.
type HookError struct {
	StageID string
	Err     error
}

func (e *HookError) Error() string {
	return fmt.Sprintf("stage hook %q failed: %v", e.StageID, e.Err)
}

func (e *HookError) Unwrap() error { return e.Err }

// PersistenceError reports an unavailable session store. The turn fails
// as a whole; no partial session state is ever committed.
type PersistenceError struct {
	Op  string
	Key string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("session store %s for %s failed: %v", e.Op, e.Key, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
