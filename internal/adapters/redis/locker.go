package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"

	"github.com/avelardos/convoflow/pkg/ports"
)

const lockPollInterval = 25 * time.Millisecond

// Locker implements ports.Locker with SET NX and polling. It
// serializes turns for one session across engine replicas.
type Locker struct {
	client backend.UniversalClient
	prefix string
}

// NewLocker creates a Redis-backed locker.
func NewLocker(client backend.UniversalClient, prefix string) *Locker {
	return &Locker{client: client, prefix: prefix}
}

// Lock blocks until the lock is acquired or ctx is done. The token
// guards against releasing a lock that expired and was re-acquired by
// someone else.
func (l *Locker) Lock(ctx context.Context, key string, ttl time.Duration) (ports.UnlockFunc, error) {
	lockKey := l.prefix + "lock:" + key
	token := uuid.New().String()

	for {
		ok, err := l.client.SetNX(ctx, lockKey, token, ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}

	unlock := func(ctx context.Context) error {
		current, err := l.client.Get(ctx, lockKey).Result()
		if err == backend.Nil {
			return nil
		}
		if err != nil {
			return err
		}
		if current != token {
			return nil
		}
		return l.client.Del(ctx, lockKey).Err()
	}
	return unlock, nil
}
