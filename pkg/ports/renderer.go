package ports

import (
	"context"

	"github.com/avelardos/convoflow/pkg/domain"
)

// ChannelRenderer delivers engine output to a concrete channel. The
// engine decides what to send and when to wait; the renderer decides
// how a given channel presents it.
type ChannelRenderer interface {
	RenderMessage(ctx context.Context, key domain.SessionKey, msg domain.OutboundMessage) error
	RenderOptions(ctx context.Context, key domain.SessionKey, prompt string, payload domain.OptionPayload) error
}
