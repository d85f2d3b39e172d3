package ports

import (
	"context"

	"github.com/avelardos/convoflow/pkg/domain"
)

// HookDispatcher notifies an external lead/stage-progression system
// when an action node is traversed. Side effect only: the engine fires
// and continues; a failing or slow dispatcher never aborts a turn.
type HookDispatcher interface {
	OnStageNode(ctx context.Context, tenantID, userID, stageID string, snapshot domain.Snapshot) error
}

// HookFunc adapts a plain function to a HookDispatcher.
type HookFunc func(ctx context.Context, tenantID, userID, stageID string, snapshot domain.Snapshot) error

func (f HookFunc) OnStageNode(ctx context.Context, tenantID, userID, stageID string, snapshot domain.Snapshot) error {
	return f(ctx, tenantID, userID, stageID, snapshot)
}
