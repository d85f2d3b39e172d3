// Package redis implements the session store and distributed locker
// ports on Redis. Sessions are stored as JSON values with a ZSET index
// scored by last-update time, which makes the idle sweep a single
// range query.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	backend "github.com/redis/go-redis/v9"

	"github.com/avelardos/convoflow/pkg/domain"
)

// Store implements ports.SessionStore on Redis.
type Store struct {
	client backend.UniversalClient
	prefix string
	ttl    time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithTTL sets a hard expiration on session keys, independent of the
// idle sweep.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// WithPrefix sets the key namespace.
func WithPrefix(prefix string) Option {
	return func(s *Store) { s.prefix = prefix }
}

// NewStore creates a Redis-backed session store.
func NewStore(client backend.UniversalClient, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: "convoflow:session:",
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(key domain.SessionKey) string {
	return s.prefix + key.String()
}

func (s *Store) indexKey() string {
	return s.prefix + "index"
}

// Save persists the session and refreshes its position in the idle
// index. The two writes go through one pipeline so the index never
// references a missing session for long.
func (s *Store) Save(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.key(session.Key), data, s.ttl)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(session.LastUpdatedAt.Unix()),
		Member: session.Key.String(),
	})
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save session to redis: %w", err)
	}
	return nil
}

// Load retrieves and decodes the session.
func (s *Store) Load(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	val, err := s.client.Get(ctx, s.key(key)).Result()
	if err != nil {
		if err == backend.Nil {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session from redis: %w", err)
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &session, nil
}

// Delete removes the session and its index entry.
func (s *Store) Delete(ctx context.Context, key domain.SessionKey) error {
	pipe := s.client.Pipeline()
	pipe.Del(ctx, s.key(key))
	pipe.ZRem(ctx, s.indexKey(), key.String())
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete session from redis: %w", err)
	}
	return nil
}

// List returns the keys of all indexed sessions.
func (s *Store) List(ctx context.Context) ([]domain.SessionKey, error) {
	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	keys := make([]domain.SessionKey, 0, len(members))
	for _, m := range members {
		if key, ok := parseKey(m); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// EvictIdle removes every session whose indexed last-update score is
// older than maxAge.
func (s *Store) EvictIdle(ctx context.Context, maxAge time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-maxAge).Unix()
	members, err := s.client.ZRangeByScore(ctx, s.indexKey(), &backend.ZRangeBy{
		Min: "-inf",
		Max: fmt.Sprintf("%d", cutoff),
	}).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to scan idle sessions: %w", err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	pipe := s.client.Pipeline()
	for _, m := range members {
		pipe.Del(ctx, s.prefix+m)
		pipe.ZRem(ctx, s.indexKey(), m)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to evict idle sessions: %w", err)
	}
	return len(members), nil
}

func parseKey(member string) (domain.SessionKey, bool) {
	parts := strings.SplitN(member, ":", 3)
	if len(parts) != 3 {
		return domain.SessionKey{}, false
	}
	return domain.SessionKey{TenantID: parts[0], UserID: parts[1], SessionID: parts[2]}, true
}
