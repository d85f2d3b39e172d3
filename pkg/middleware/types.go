// Package middleware wraps a SessionStore with cross-cutting storage
// behavior such as encryption at rest and PII masking.
package middleware

import "github.com/avelardos/convoflow/pkg/ports"

// Middleware allows wrapping a SessionStore to add behavior.
type Middleware func(ports.SessionStore) ports.SessionStore

// Chain applies middlewares right to left, so the first one listed is
// the outermost wrapper.
func Chain(store ports.SessionStore, middlewares ...Middleware) ports.SessionStore {
	for i := len(middlewares) - 1; i >= 0; i-- {
		store = middlewares[i](store)
	}
	return store
}
