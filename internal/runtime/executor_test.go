package runtime_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelardos/convoflow/internal/compiler"
	"github.com/avelardos/convoflow/internal/hooks"
	"github.com/avelardos/convoflow/internal/logging"
	"github.com/avelardos/convoflow/internal/runtime"
	"github.com/avelardos/convoflow/pkg/domain"
	"github.com/avelardos/convoflow/pkg/ports"
)

func compile(t *testing.T, raw map[string]any) *domain.FlowDefinition {
	t.Helper()
	def, err := compiler.Compile(raw)
	require.NoError(t, err)
	return def
}

func newSession(def *domain.FlowDefinition) *domain.Session {
	key := domain.SessionKey{TenantID: "t", UserID: "u", SessionID: "s"}
	return domain.NewSession(key, def.ID, def.EntryNodeID)
}

func TestRunMessageChainUntilInput(t *testing.T) {
	def := compile(t, map[string]any{
		"id":            "f",
		"entry_node_id": "start",
		"nodes": []any{
			map[string]any{"id": "start", "type": "start"},
			map[string]any{"id": "m1", "type": "message", "content": "Hola {{name}}"},
			map[string]any{"id": "ask", "type": "input", "content": "Como te llamas?", "expected_variable": "name", "validation_rule": "nonempty"},
			map[string]any{"id": "done", "type": "end"},
		},
		"edges": []any{
			map[string]any{"from": "start", "to": "m1"},
			map[string]any{"from": "m1", "to": "ask"},
			map[string]any{"from": "ask", "to": "done"},
		},
	})

	ex := runtime.New(nil, runtime.WithLogger(logging.NewNop()))
	sess := newSession(def)
	turn := &runtime.Turn{}

	require.NoError(t, ex.Run(context.Background(), def, sess, nil, turn))

	require.Len(t, turn.Messages, 2)
	assert.Equal(t, "Hola Usuario", turn.Messages[0].Text)
	assert.Equal(t, "Como te llamas?", turn.Messages[1].Text)
	assert.True(t, sess.Waiting)
	assert.Equal(t, "name", sess.ExpectedVariable)
	assert.Equal(t, "ask", sess.CurrentNodeID)
}

func TestResolveWaitStoresInputAndAdvances(t *testing.T) {
	def := compile(t, map[string]any{
		"id":            "f",
		"entry_node_id": "ask",
		"nodes": []any{
			map[string]any{"id": "ask", "type": "input", "content": "Nombre?", "expected_variable": "name"},
			map[string]any{"id": "done", "type": "end"},
		},
		"edges": []any{map[string]any{"from": "ask", "to": "done"}},
	})

	ex := runtime.New(nil, runtime.WithLogger(logging.NewNop()))
	sess := newSession(def)
	sess.BeginWait("name", nil)

	turn := &runtime.Turn{}
	advanced, err := ex.ResolveWait(context.Background(), def, sess, nil, "  Maria  ", turn)
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, "Maria", sess.Variables["name"])
	assert.False(t, sess.Waiting)
	assert.Equal(t, "done", sess.CurrentNodeID)
}

func TestInputRetriesThenGivesUp(t *testing.T) {
	def := compile(t, map[string]any{
		"id":            "f",
		"entry_node_id": "ask",
		"nodes": []any{
			map[string]any{"id": "ask", "type": "input", "content": "Correo?", "expected_variable": "email", "validation_rule": "email", "retry_message": "Ese correo no es válido."},
			map[string]any{"id": "done", "type": "end"},
		},
		"edges": []any{map[string]any{"from": "ask", "to": "done"}},
	})

	ex := runtime.New(nil, runtime.WithLogger(logging.NewNop()), runtime.WithMaxRetries(2))
	sess := newSession(def)
	sess.BeginWait("email", nil)

	// Two invalid answers are re-prompted.
	for i := 0; i < 2; i++ {
		turn := &runtime.Turn{}
		advanced, err := ex.ResolveWait(context.Background(), def, sess, nil, "no es un correo", turn)
		require.NoError(t, err)
		assert.False(t, advanced)
		require.Len(t, turn.Messages, 1)
		assert.Equal(t, "Ese correo no es válido.", turn.Messages[0].Text)
		assert.True(t, sess.Waiting)
	}

	// Third invalid answer records empty and advances.
	turn := &runtime.Turn{}
	advanced, err := ex.ResolveWait(context.Background(), def, sess, nil, "tampoco", turn)
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, "", sess.Variables["email"])
	assert.False(t, sess.Waiting)
	assert.Equal(t, "done", sess.CurrentNodeID)
}

func TestSelectionOverrideWinsOverDefaultEdge(t *testing.T) {
	def := compile(t, map[string]any{
		"id":            "f",
		"entry_node_id": "pick",
		"nodes": []any{
			map[string]any{
				"id": "pick", "type": "buttons", "content": "Elige",
				"expected_variable": "choice",
				"options": []any{
					map[string]any{"label": "Comprar", "value": "buy"},
					map[string]any{"label": "Rentar", "value": "rent", "target_node_override": "rentals"},
				},
			},
			map[string]any{"id": "sales", "type": "end"},
			map[string]any{"id": "rentals", "type": "end"},
		},
		"edges": []any{map[string]any{"from": "pick", "to": "sales"}},
	})

	ex := runtime.New(nil, runtime.WithLogger(logging.NewNop()))

	sess := newSession(def)
	turn := &runtime.Turn{}
	require.NoError(t, ex.Run(context.Background(), def, sess, nil, turn))
	require.Len(t, turn.Options, 1)
	require.True(t, sess.Waiting)

	advanced, err := ex.ResolveWait(context.Background(), def, sess, nil, "Rentar", turn)
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, "rent", sess.Variables["choice"])
	assert.Equal(t, "rentals", sess.CurrentNodeID)

	// Default edge path.
	sess2 := newSession(def)
	turn2 := &runtime.Turn{}
	require.NoError(t, ex.Run(context.Background(), def, sess2, nil, turn2))
	advanced, err = ex.ResolveWait(context.Background(), def, sess2, nil, "1", turn2)
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, "buy", sess2.Variables["choice"])
	assert.Equal(t, "sales", sess2.CurrentNodeID)
}

func TestConditionRouting(t *testing.T) {
	def := compile(t, map[string]any{
		"id":            "f",
		"entry_node_id": "route",
		"nodes": []any{
			map[string]any{"id": "route", "type": "condition"},
			map[string]any{"id": "vip", "type": "message", "content": "Bienvenido VIP"},
			map[string]any{"id": "plain", "type": "message", "content": "Hola"},
			map[string]any{"id": "done", "type": "end"},
		},
		"edges": []any{
			map[string]any{"from": "route", "to": "vip", "condition": "tier == 'gold'"},
			map[string]any{"from": "route", "to": "plain"},
			map[string]any{"from": "vip", "to": "done"},
			map[string]any{"from": "plain", "to": "done"},
		},
	})

	ex := runtime.New(nil, runtime.WithLogger(logging.NewNop()))

	gold := newSession(def)
	gold.Variables["tier"] = "gold"
	turn := &runtime.Turn{}
	require.NoError(t, ex.Run(context.Background(), def, gold, nil, turn))
	require.Len(t, turn.Messages, 1)
	assert.Equal(t, "Bienvenido VIP", turn.Messages[0].Text)
	assert.True(t, gold.Ended)

	basic := newSession(def)
	turn = &runtime.Turn{}
	require.NoError(t, ex.Run(context.Background(), def, basic, nil, turn))
	require.Len(t, turn.Messages, 1)
	assert.Equal(t, "Hola", turn.Messages[0].Text)
}

func TestActionNodeDispatchesHookAndContinues(t *testing.T) {
	def := compile(t, map[string]any{
		"id":            "f",
		"entry_node_id": "stage",
		"nodes": []any{
			map[string]any{"id": "stage", "type": "action", "stage_hook": "lead_qualified"},
			map[string]any{"id": "bye", "type": "message", "content": "Listo"},
			map[string]any{"id": "done", "type": "end"},
		},
		"edges": []any{
			map[string]any{"from": "stage", "to": "bye"},
			map[string]any{"from": "bye", "to": "done"},
		},
	})

	var gotStage string
	impl := ports.HookFunc(func(ctx context.Context, tenantID, userID, stageID string, s domain.Snapshot) error {
		gotStage = stageID
		return nil
	})
	dispatcher := hooks.New(impl, time.Second, logging.NewNop())

	ex := runtime.New(dispatcher, runtime.WithLogger(logging.NewNop()))
	sess := newSession(def)
	turn := &runtime.Turn{}
	require.NoError(t, ex.Run(context.Background(), def, sess, nil, turn))

	assert.Equal(t, "lead_qualified", gotStage)
	require.Len(t, turn.Messages, 1)
	assert.Equal(t, "Listo", turn.Messages[0].Text)
	assert.True(t, sess.Ended)
}

func TestHopLimitBreaksCycle(t *testing.T) {
	def := compile(t, map[string]any{
		"id":            "f",
		"entry_node_id": "a",
		"nodes": []any{
			map[string]any{"id": "a", "type": "message", "content": "ping"},
			map[string]any{"id": "b", "type": "message", "content": "pong"},
		},
		"edges": []any{
			map[string]any{"from": "a", "to": "b"},
			map[string]any{"from": "b", "to": "a"},
		},
	})

	ex := runtime.New(nil, runtime.WithLogger(logging.NewNop()), runtime.WithHopLimit(10))
	sess := newSession(def)
	turn := &runtime.Turn{}

	err := ex.Run(context.Background(), def, sess, nil, turn)
	var se *domain.SafetyError
	require.ErrorAs(t, err, &se)
	assert.LessOrEqual(t, len(turn.Messages), 10)
}

func TestSystemVariablesReachConditions(t *testing.T) {
	def := compile(t, map[string]any{
		"id":            "f",
		"entry_node_id": "route",
		"nodes": []any{
			map[string]any{"id": "route", "type": "condition"},
			map[string]any{"id": "beta", "type": "message", "content": "Acceso beta"},
			map[string]any{"id": "plain", "type": "message", "content": "Hola"},
			map[string]any{"id": "done", "type": "end"},
		},
		"edges": []any{
			map[string]any{"from": "route", "to": "beta", "condition": "plan == 'beta'"},
			map[string]any{"from": "route", "to": "plain"},
			map[string]any{"from": "beta", "to": "done"},
			map[string]any{"from": "plain", "to": "done"},
		},
	})

	ex := runtime.New(nil, runtime.WithLogger(logging.NewNop()))
	sess := newSession(def)
	turn := &runtime.Turn{}
	require.NoError(t, ex.Run(context.Background(), def, sess, map[string]any{"plan": "beta"}, turn))
	require.Len(t, turn.Messages, 1)
	assert.Equal(t, "Acceso beta", turn.Messages[0].Text)

	// Session variables still win over the system layer.
	sess2 := newSession(def)
	sess2.Variables["plan"] = "free"
	turn = &runtime.Turn{}
	require.NoError(t, ex.Run(context.Background(), def, sess2, map[string]any{"plan": "beta"}, turn))
	require.Len(t, turn.Messages, 1)
	assert.Equal(t, "Hola", turn.Messages[0].Text)
}

func TestCapturedValueVisibleToGuardsSameTurn(t *testing.T) {
	def := compile(t, map[string]any{
		"id":            "f",
		"entry_node_id": "ask",
		"nodes": []any{
			map[string]any{"id": "ask", "type": "input", "content": "Confirmas?", "expected_variable": "answer"},
			map[string]any{"id": "yes", "type": "end"},
			map[string]any{"id": "no", "type": "end"},
		},
		"edges": []any{
			map[string]any{"from": "ask", "to": "yes", "condition": "answer == 'si'"},
			map[string]any{"from": "ask", "to": "no"},
		},
	})

	ex := runtime.New(nil, runtime.WithLogger(logging.NewNop()))
	sess := newSession(def)
	sess.BeginWait("answer", nil)

	turn := &runtime.Turn{}
	advanced, err := ex.ResolveWait(context.Background(), def, sess, nil, "si", turn)
	require.NoError(t, err)
	assert.True(t, advanced)
	assert.Equal(t, "yes", sess.CurrentNodeID)
}

func TestSystemVariablesReachMessages(t *testing.T) {
	def := compile(t, map[string]any{
		"id":            "f",
		"entry_node_id": "m",
		"nodes": []any{
			map[string]any{"id": "m", "type": "message", "content": "Bienvenido a {{company}}"},
			map[string]any{"id": "done", "type": "end"},
		},
		"edges": []any{map[string]any{"from": "m", "to": "done"}},
	})

	ex := runtime.New(nil, runtime.WithLogger(logging.NewNop()))
	sess := newSession(def)
	turn := &runtime.Turn{}
	require.NoError(t, ex.Run(context.Background(), def, sess, map[string]any{"company": "Casas MX"}, turn))
	require.Len(t, turn.Messages, 1)
	assert.Equal(t, "Bienvenido a Casas MX", turn.Messages[0].Text)
}
