// Package ports defines the boundary interfaces of the engine.
// The engine consumes these and stays oblivious to which transport,
// persistence technology or lead system sits behind them; adapters
// under internal/adapters provide the concrete implementations.
package ports
