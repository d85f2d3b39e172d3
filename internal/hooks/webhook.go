package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/avelardos/convoflow/pkg/domain"
)

// Webhook posts stage notifications as JSON to a fixed URL. It is the
// default production implementation of the funnel hook port.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook creates a Webhook dispatcher. A nil client falls back to
// http.DefaultClient; the caller's context carries the deadline.
func NewWebhook(url string, client *http.Client) *Webhook {
	if client == nil {
		client = http.DefaultClient
	}
	return &Webhook{url: url, client: client}
}

type webhookPayload struct {
	TenantID string          `json:"tenant_id"`
	UserID   string          `json:"user_id"`
	StageID  string          `json:"stage_id"`
	Session  domain.Snapshot `json:"session"`
}

// OnStageNode implements ports.HookDispatcher.
func (w *Webhook) OnStageNode(ctx context.Context, tenantID, userID, stageID string, snapshot domain.Snapshot) error {
	body, err := json.Marshal(webhookPayload{
		TenantID: tenantID,
		UserID:   userID,
		StageID:  stageID,
		Session:  snapshot,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
