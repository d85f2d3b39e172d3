package memory

import (
	"context"
	"sync"

	"github.com/avelardos/convoflow/pkg/domain"
)

// Source implements ports.FlowSource over registered raw graphs.
type Source struct {
	mu    sync.RWMutex
	flows map[string]map[string]any
}

// NewSource creates an empty in-memory flow source.
func NewSource() *Source {
	return &Source{flows: make(map[string]map[string]any)}
}

// Register stores the raw graph for a tenant's template.
func (s *Source) Register(tenantID, templateID string, raw map[string]any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flows[tenantID+"/"+templateID] = raw
}

// Load implements ports.FlowSource.
func (s *Source) Load(ctx context.Context, tenantID, templateID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.flows[tenantID+"/"+templateID]
	if !ok {
		return nil, domain.ErrFlowNotFound
	}
	return raw, nil
}
