// Package memory provides in-process implementations of the session
// store and flow source ports. They back the CLI simulator and tests;
// production deployments use the redis adapters.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/avelardos/convoflow/pkg/domain"
)

// Store implements ports.SessionStore in memory.
// Safe for concurrent use.
type Store struct {
	mu   sync.RWMutex
	data map[domain.SessionKey]*domain.Session
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{data: make(map[domain.SessionKey]*domain.Session)}
}

// Save stores a deep copy so the caller keeps exclusive ownership.
func (s *Store) Save(ctx context.Context, session *domain.Session) error {
	clone := session.Clone()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[session.Key] = clone
	return nil
}

// Load returns a deep copy of the stored session.
func (s *Store) Load(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.data[key]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return sess.Clone(), nil
}

// Delete removes the session for a key.
func (s *Store) Delete(ctx context.Context, key domain.SessionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return nil
}

// List returns all stored session keys.
func (s *Store) List(ctx context.Context) ([]domain.SessionKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]domain.SessionKey, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys, nil
}

// EvictIdle removes sessions whose last update is older than maxAge.
func (s *Store) EvictIdle(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge)
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for k, sess := range s.data {
		if sess.LastUpdatedAt.Before(cutoff) {
			delete(s.data, k)
			evicted++
		}
	}
	return evicted, nil
}
