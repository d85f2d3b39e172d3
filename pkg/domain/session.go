package domain

import (
	"fmt"
	"time"
)

// SessionKey identifies one conversation. Tenant isolation starts here:
// every store keys by the full triple, never by user alone.
type SessionKey struct {
	TenantID  string `json:"tenant_id"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// String renders the key in store-friendly "tenant:user:session" form.
func (k SessionKey) String() string {
	return fmt.Sprintf("%s:%s:%s", k.TenantID, k.UserID, k.SessionID)
}

// Session is the durable per-conversation execution state. It is owned
// exclusively by the turn currently processing it; stores hand out
// copies, not shared pointers.
type Session struct {
	Key            SessionKey `json:"key"`
	FlowTemplateID string     `json:"flow_template_id"`
	CurrentNodeID  string     `json:"current_node_id"`

	// Waiting is true iff the next inbound message must be consumed as a
	// response to the current node. Invariant: Waiting == true exactly
	// when ExpectedVariable is set or ValidSelectionSet is non-empty.
	Waiting           bool     `json:"waiting"`
	ExpectedVariable  string   `json:"expected_variable,omitempty"`
	ValidSelectionSet []Option `json:"valid_selection_set,omitempty"`

	Variables map[string]any `json:"variables"`

	// RetryCount tracks consecutive failed answers to the waiting node.
	RetryCount int `json:"retry_count"`

	Ended         bool      `json:"ended"`
	StartedAt     time.Time `json:"started_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
}

// NewSession creates a fresh session positioned at the flow entry node.
func NewSession(key SessionKey, templateID, entryNodeID string) *Session {
	now := time.Now().UTC()
	return &Session{
		Key:            key,
		FlowTemplateID: templateID,
		CurrentNodeID:  entryNodeID,
		Variables:      make(map[string]any),
		StartedAt:      now,
		LastUpdatedAt:  now,
	}
}

// BeginWait puts the session into waiting state for the given node.
func (s *Session) BeginWait(expectedVariable string, selectionSet []Option) {
	s.Waiting = true
	s.ExpectedVariable = expectedVariable
	s.ValidSelectionSet = selectionSet
}

// ClearWait leaves waiting state and resets the retry counter.
func (s *Session) ClearWait() {
	s.Waiting = false
	s.ExpectedVariable = ""
	s.ValidSelectionSet = nil
	s.RetryCount = 0
}

// Reset rewinds an ended session to the entry node, keeping captured
// variables from the previous run.
func (s *Session) Reset(entryNodeID string) {
	s.CurrentNodeID = entryNodeID
	s.Ended = false
	s.ClearWait()
}

// Touch bumps the idle-eviction clock.
func (s *Session) Touch() {
	s.LastUpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy safe for independent mutation.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	next := *s
	next.Variables = make(map[string]any, len(s.Variables))
	for k, v := range s.Variables {
		next.Variables[k] = v
	}
	next.ValidSelectionSet = append([]Option(nil), s.ValidSelectionSet...)
	return &next
}

// Snapshot is the read-only view handed to funnel hooks.
type Snapshot struct {
	Key            SessionKey     `json:"key"`
	FlowTemplateID string         `json:"flow_template_id"`
	CurrentNodeID  string         `json:"current_node_id"`
	Variables      map[string]any `json:"variables"`
}

// Snapshot captures the session state for external consumers.
func (s *Session) Snapshot() Snapshot {
	vars := make(map[string]any, len(s.Variables))
	for k, v := range s.Variables {
		vars[k] = v
	}
	return Snapshot{
		Key:            s.Key,
		FlowTemplateID: s.FlowTemplateID,
		CurrentNodeID:  s.CurrentNodeID,
		Variables:      vars,
	}
}
