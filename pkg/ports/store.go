package ports

import (
	"context"
	"time"

	"github.com/avelardos/convoflow/pkg/domain"
)

// SessionStore owns durable per-conversation state. Pure data access:
// no flow logic belongs behind this interface.
//
// Save is last-writer-wins for a key; the orchestrator serializes
// writes per session, so implementations do not need optimistic
// concurrency. Implementations must return copies (or freshly decoded
// values) so a loaded session is exclusively owned by its turn.
type SessionStore interface {
	// Load retrieves the session for a key.
	// Returns domain.ErrSessionNotFound when absent.
	Load(ctx context.Context, key domain.SessionKey) (*domain.Session, error)

	// Save persists the full session state.
	Save(ctx context.Context, session *domain.Session) error

	// Delete removes the session for a key.
	Delete(ctx context.Context, key domain.SessionKey) error

	// List returns the keys of all stored sessions.
	List(ctx context.Context) ([]domain.SessionKey, error)

	// EvictIdle removes sessions idle for longer than maxAge and
	// returns how many were removed. It is a background sweep: a turn
	// in flight always completes on the state it loaded.
	EvictIdle(ctx context.Context, maxAge time.Duration) (int, error)
}
