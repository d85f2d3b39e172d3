// Package sweeper evicts idle sessions in the background. The sweep
// only removes persisted state; it never cancels a turn in flight,
// because turns operate on the session copy they loaded.
package sweeper

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/avelardos/convoflow/pkg/ports"
)

// Sweeper periodically calls EvictIdle on a session store.
type Sweeper struct {
	store    ports.SessionStore
	interval time.Duration
	maxAge   time.Duration
	logger   *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates a Sweeper that evicts sessions idle longer than maxAge,
// checking every interval.
func New(store ports.SessionStore, interval, maxAge time.Duration, logger *slog.Logger) *Sweeper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		store:    store,
		interval: interval,
		maxAge:   maxAge,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start launches the sweep loop.
func (s *Sweeper) Start() {
	ticker := time.NewTicker(s.interval)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.sweep()
			case <-s.stop:
				s.logger.Info("stopping session sweeper")
				return
			}
		}
	}()
	s.logger.Info("session sweeper started",
		"interval", s.interval.String(), "max_age", s.maxAge.String())
}

// Stop terminates the loop and waits for it to exit.
func (s *Sweeper) Stop() {
	close(s.stop)
	s.wg.Wait()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()
	n, err := s.store.EvictIdle(ctx, s.maxAge)
	if err != nil {
		s.logger.Warn("idle sweep failed", "err", err)
		return
	}
	if n > 0 {
		s.logger.Info("evicted idle sessions", "count", n)
	}
}
