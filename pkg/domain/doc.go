// Package domain holds the core data model of the conversation engine:
// compiled flow definitions, per-conversation sessions, and the error
// taxonomy shared by every layer. It has no dependencies on adapters or
// transports; everything here is plain data.
package domain
