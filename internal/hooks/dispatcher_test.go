package hooks_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelardos/convoflow/internal/hooks"
	"github.com/avelardos/convoflow/internal/logging"
	"github.com/avelardos/convoflow/pkg/domain"
	"github.com/avelardos/convoflow/pkg/ports"
)

func snapshot() domain.Snapshot {
	return domain.Snapshot{
		Key:           domain.SessionKey{TenantID: "t", UserID: "u", SessionID: "s"},
		CurrentNodeID: "stage_node",
		Variables:     map[string]any{"name": "Maria"},
	}
}

func TestDispatchSuccess(t *testing.T) {
	var calls atomic.Int32
	impl := ports.HookFunc(func(ctx context.Context, tenantID, userID, stageID string, s domain.Snapshot) error {
		calls.Add(1)
		assert.Equal(t, "lead_qualified", stageID)
		return nil
	})

	d := hooks.New(impl, time.Second, logging.NewNop())
	err := d.Dispatch(context.Background(), "t", "u", "lead_qualified", snapshot())
	assert.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatchFailureIsObservedNotFatal(t *testing.T) {
	impl := ports.HookFunc(func(ctx context.Context, tenantID, userID, stageID string, s domain.Snapshot) error {
		return errors.New("crm is down")
	})

	var failed atomic.Int32
	d := hooks.New(impl, time.Second, logging.NewNop())
	d.OnFailure = func(string) { failed.Add(1) }

	err := d.Dispatch(context.Background(), "t", "u", "stage", snapshot())
	var he *domain.HookError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, int32(1), failed.Load())
}

func TestDispatchTimesOut(t *testing.T) {
	impl := ports.HookFunc(func(ctx context.Context, tenantID, userID, stageID string, s domain.Snapshot) error {
		<-ctx.Done()
		return ctx.Err()
	})

	d := hooks.New(impl, 50*time.Millisecond, logging.NewNop())
	start := time.Now()
	err := d.Dispatch(context.Background(), "t", "u", "stage", snapshot())
	var he *domain.HookError
	require.ErrorAs(t, err, &he)
	assert.Less(t, time.Since(start), time.Second)
}

func TestDispatchSkipsEmptyStage(t *testing.T) {
	impl := ports.HookFunc(func(ctx context.Context, tenantID, userID, stageID string, s domain.Snapshot) error {
		t.Fatal("should not be called")
		return nil
	})
	d := hooks.New(impl, time.Second, logging.NewNop())
	assert.NoError(t, d.Dispatch(context.Background(), "t", "u", "", snapshot()))
}

func TestWebhook(t *testing.T) {
	var got atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	wh := hooks.NewWebhook(srv.URL, srv.Client())
	err := wh.OnStageNode(context.Background(), "t", "u", "stage", snapshot())
	require.NoError(t, err)
	assert.Equal(t, "application/json", got.Load())
}

func TestWebhookNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	wh := hooks.NewWebhook(srv.URL, srv.Client())
	assert.Error(t, wh.OnStageNode(context.Background(), "t", "u", "stage", snapshot()))
}
