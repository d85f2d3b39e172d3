// Package tui renders engine output for an interactive terminal. It is
// the channel adapter behind the chat simulator command.
package tui

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"

	"github.com/avelardos/convoflow/pkg/domain"
	"github.com/avelardos/convoflow/pkg/ports"
)

// Renderer writes conversation output as styled terminal text.
type Renderer struct {
	out      io.Writer
	markdown func(string) (string, error)
	profile  termenv.Profile
}

// Ensure Renderer implements the channel port.
var _ ports.ChannelRenderer = (*Renderer)(nil)

// NewRenderer builds a terminal renderer writing to out. Message text
// is treated as markdown; flows authored for chat channels commonly
// use *emphasis* and lists.
func NewRenderer(out io.Writer) *Renderer {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	markdown := func(s string) (string, error) {
		if r == nil {
			return s + "\n", nil
		}
		return r.Render(s)
	}
	return &Renderer{out: out, markdown: markdown, profile: termenv.ColorProfile()}
}

// RenderMessage prints one outbound message.
func (r *Renderer) RenderMessage(ctx context.Context, key domain.SessionKey, msg domain.OutboundMessage) error {
	rendered, err := r.markdown(msg.Text)
	if err != nil {
		rendered = msg.Text + "\n"
	}
	if _, err := fmt.Fprint(r.out, rendered); err != nil {
		return err
	}
	if msg.MediaURL != "" {
		link := termenv.String("  [media] "+msg.MediaURL).Foreground(r.profile.Color("#818cf8"))
		if _, err := fmt.Fprintln(r.out, link); err != nil {
			return err
		}
	}
	return nil
}

// RenderOptions prints the selectable options as a numbered list.
func (r *Renderer) RenderOptions(ctx context.Context, key domain.SessionKey, prompt string, payload domain.OptionPayload) error {
	for _, opt := range payload.Options {
		num := termenv.String(fmt.Sprintf("  %d)", opt.Index)).Foreground(r.profile.Color("#a78bfa")).Bold()
		if _, err := fmt.Fprintf(r.out, "%s %s\n", num, opt.DisplayText); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(r.out)
	return err
}
