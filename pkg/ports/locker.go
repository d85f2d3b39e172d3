package ports

import (
	"context"
	"time"
)

// UnlockFunc releases an acquired lock.
type UnlockFunc func(ctx context.Context) error

// Locker serializes turns for the same session across replicas. The
// engine always holds an in-process lock per session; a Locker extends
// that discipline to multi-instance deployments.
type Locker interface {
	// Lock blocks until the lock for key is acquired or ctx is done.
	// The returned UnlockFunc must be called to release it; ttl bounds
	// how long a crashed holder can block others.
	Lock(ctx context.Context, key string, ttl time.Duration) (UnlockFunc, error)
}
