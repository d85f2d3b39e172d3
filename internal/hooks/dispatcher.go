// Package hooks dispatches funnel stage notifications to an external
// lead-progression system. Dispatch is fire-and-continue: the call is
// awaited with a timeout, failures are logged as HookError and never
// abort the turn in progress.
package hooks

import (
	"context"
	"log/slog"
	"time"

	"github.com/avelardos/convoflow/pkg/domain"
	"github.com/avelardos/convoflow/pkg/ports"
)

// DefaultTimeout bounds one hook invocation.
const DefaultTimeout = 5 * time.Second

// Dispatcher wraps a HookDispatcher port with timeout and logging.
type Dispatcher struct {
	impl    ports.HookDispatcher
	timeout time.Duration
	logger  *slog.Logger

	// OnFailure, when set, observes dispatch failures (metrics).
	OnFailure func(stageID string)
}

// New creates a Dispatcher. A nil impl disables dispatching entirely.
func New(impl ports.HookDispatcher, timeout time.Duration, logger *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{impl: impl, timeout: timeout, logger: logger}
}

// Dispatch notifies the external system about a traversed stage node.
// It blocks for at most the configured timeout and returns the failure,
// if any, purely for observation; callers must not treat it as fatal.
func (d *Dispatcher) Dispatch(ctx context.Context, tenantID, userID, stageID string, snapshot domain.Snapshot) error {
	if d == nil || d.impl == nil || stageID == "" {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- d.impl.OnStageNode(ctx, tenantID, userID, stageID, snapshot)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err == nil {
		return nil
	}

	hookErr := &domain.HookError{StageID: stageID, Err: err}
	d.logger.Warn("stage hook failed",
		"tenant", tenantID,
		"user", userID,
		"stage", stageID,
		"err", hookErr)
	if d.OnFailure != nil {
		d.OnFailure(stageID)
	}
	return hookErr
}
