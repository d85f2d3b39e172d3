package convoflow_test

import (
	"context"
	"fmt"
	"log"

	"github.com/avelardos/convoflow"
	"github.com/avelardos/convoflow/internal/adapters/memory"
)

// Example demonstrates driving a small flow with the in-memory source.
// Production deployments usually load flows from disk and keep sessions
// in Redis; the engine API is the same.
func Example() {
	source := memory.NewSource()
	source.Register("acme", "welcome", map[string]any{
		"id":            "welcome",
		"entry_node_id": "start",
		"nodes": []any{
			map[string]any{"id": "start", "kind": "start"},
			map[string]any{"id": "ask", "kind": "input", "content": "What is your name?", "expected_variable": "name"},
			map[string]any{"id": "greet", "kind": "message", "content": "Welcome, {{name}}!"},
			map[string]any{"id": "done", "kind": "end"},
		},
		"edges": []any{
			map[string]any{"from": "start", "to": "ask"},
			map[string]any{"from": "ask", "to": "greet"},
			map[string]any{"from": "greet", "to": "done"},
		},
	})

	engine, err := convoflow.New(source)
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()
	req := convoflow.TurnRequest{
		TenantID:   "acme",
		UserID:     "user-1",
		SessionID:  "session-1",
		TemplateID: "welcome",
		Text:       "hi",
	}

	res, err := engine.ProcessTurn(ctx, req)
	if err != nil {
		log.Fatal(err)
	}
	for _, msg := range res.Messages {
		fmt.Println(msg.Text)
	}

	req.Text = "Maria"
	res, err = engine.ProcessTurn(ctx, req)
	if err != nil {
		log.Fatal(err)
	}
	for _, msg := range res.Messages {
		fmt.Println(msg.Text)
	}

	// Output:
	// What is your name?
	// Welcome, Maria!
}
