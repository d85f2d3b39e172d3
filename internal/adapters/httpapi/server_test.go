package httpapi_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelardos/convoflow"
	"github.com/avelardos/convoflow/internal/adapters/httpapi"
	"github.com/avelardos/convoflow/internal/adapters/memory"
	"github.com/avelardos/convoflow/internal/logging"
	"github.com/avelardos/convoflow/internal/metrics"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	source := memory.NewSource()
	source.Register("acme", "greeting", map[string]any{
		"id":            "greeting",
		"entry_node_id": "start",
		"nodes": []any{
			map[string]any{"id": "start", "kind": "start"},
			map[string]any{"id": "ask", "kind": "input", "content": "What is your name?", "expected_variable": "name"},
			map[string]any{"id": "bye", "kind": "message", "content": "Hi {{name}}"},
			map[string]any{"id": "done", "kind": "end"},
		},
		"edges": []any{
			map[string]any{"from": "start", "to": "ask"},
			map[string]any{"from": "ask", "to": "bye"},
			map[string]any{"from": "bye", "to": "done"},
		},
	})

	reg := prometheus.NewRegistry()
	m := metrics.New()
	require.NoError(t, m.Register(reg))

	eng, err := convoflow.New(source, convoflow.WithMetrics(m), convoflow.WithLogger(logging.NewNop()))
	require.NoError(t, err)

	srv := httptest.NewServer(httpapi.NewHandler(eng, logging.NewNop(), reg))
	t.Cleanup(srv.Close)
	return srv
}

func postTurn(t *testing.T, srv *httptest.Server, body string) (*http.Response, map[string]any) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/v1/turn", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	var decoded map[string]any
	if resp.Header.Get("Content-Type") == "application/json" {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	}
	return resp, decoded
}

func TestTurnEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postTurn(t, srv, `{"tenant_id":"acme","user_id":"u1","template_id":"greeting","text":"hola"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	sessionID, _ := body["session_id"].(string)
	require.NotEmpty(t, sessionID, "a new conversation must return its generated session id")
	messages := body["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "What is your name?", messages[0].(map[string]any)["text"])

	resp, body = postTurn(t, srv,
		`{"tenant_id":"acme","user_id":"u1","session_id":"`+sessionID+`","template_id":"greeting","text":"Maria"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	messages = body["messages"].([]any)
	require.Len(t, messages, 1)
	assert.Equal(t, "Hi Maria", messages[0].(map[string]any)["text"])
}

func TestTurnEndpointRejectsBadBody(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := postTurn(t, srv, `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = postTurn(t, srv, `{"user_id":"u1","template_id":"greeting"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTurnEndpointUnknownTemplate(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := postTurn(t, srv, `{"tenant_id":"acme","user_id":"u1","template_id":"missing","text":"hola"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSessionDebugEndpoint(t *testing.T) {
	srv := newTestServer(t)

	resp, body := postTurn(t, srv, `{"tenant_id":"acme","user_id":"u1","template_id":"greeting","text":"hola"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	sessionID := body["session_id"].(string)

	resp, err := http.Get(srv.URL + "/v1/sessions/acme/u1/" + sessionID)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Equal(t, "ask", snap["current_node_id"])

	resp, err = http.Get(srv.URL + "/v1/sessions/acme/u1/nope")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	postTurn(t, srv, `{"tenant_id":"acme","user_id":"u1","template_id":"greeting","text":"hola"}`)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
