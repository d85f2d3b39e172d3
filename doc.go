// Package convoflow is a multi-tenant conversation flow engine. It
// compiles authored node graphs into immutable flow definitions and
// drives per-session state machines through them one inbound message
// at a time: capturing free text, matching option selections,
// interpolating variables, and firing funnel hooks along the way.
//
// The root package is the library facade. Channel adapters (HTTP, a
// terminal simulator) live under internal/adapters; the state-machine
// core lives under internal/runtime. Sessions persist behind the
// ports.SessionStore interface with in-memory and Redis
// implementations.
package convoflow
