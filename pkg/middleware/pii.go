package middleware

import (
	"context"
	"regexp"
	"time"

	"github.com/avelardos/convoflow/pkg/domain"
	"github.com/avelardos/convoflow/pkg/ports"
)

type piiStore struct {
	next     ports.SessionStore
	patterns []*regexp.Regexp
}

// NewPIIMasking creates a middleware that masks captured variables
// whose names match any of the patterns before they reach the backing
// store. The in-memory session the engine works with stays intact.
func NewPIIMasking(patternStrings []string) Middleware {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiStore{next: next, patterns: patterns}
	}
}

func (m *piiStore) Save(ctx context.Context, session *domain.Session) error {
	cloned := session.Clone()
	cloned.Variables = deepCopyMap(session.Variables)
	maskMap(cloned.Variables, m.patterns)
	return m.next.Save(ctx, cloned)
}

func (m *piiStore) Load(ctx context.Context, key domain.SessionKey) (*domain.Session, error) {
	return m.next.Load(ctx, key)
}

func (m *piiStore) Delete(ctx context.Context, key domain.SessionKey) error {
	return m.next.Delete(ctx, key)
}

func (m *piiStore) List(ctx context.Context) ([]domain.SessionKey, error) {
	return m.next.List(ctx)
}

func (m *piiStore) EvictIdle(ctx context.Context, maxAge time.Duration) (int, error) {
	return m.next.EvictIdle(ctx, maxAge)
}

// Helpers

func deepCopyMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if subMap, ok := v.(map[string]any); ok {
			out[k] = deepCopyMap(subMap)
		} else {
			out[k] = v
		}
	}
	return out
}

func maskMap(m map[string]any, patterns []*regexp.Regexp) {
	for k, v := range m {
		for _, p := range patterns {
			if p.MatchString(k) {
				m[k] = "***"
				break
			}
		}
		if subMap, ok := v.(map[string]any); ok {
			maskMap(subMap, patterns)
		}
	}
}
