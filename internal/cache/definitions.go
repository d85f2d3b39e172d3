// Package cache holds compiled flow definitions. Definitions are
// immutable, so the cache hands out shared pointers; invalidation only
// happens on template version change or explicit eviction.
package cache

import (
	"fmt"
	"time"

	c "github.com/patrickmn/go-cache"

	"github.com/avelardos/convoflow/pkg/domain"
)

// DefaultTTL bounds how long a compiled definition is served before
// the source is consulted again.
const DefaultTTL = 30 * time.Minute

// Definitions caches compiled flows per (tenant, template).
type Definitions struct {
	cache *c.Cache
}

// NewDefinitions creates a definition cache with the given TTL.
func NewDefinitions(ttl time.Duration) *Definitions {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Definitions{
		cache: c.New(ttl, 10*time.Minute),
	}
}

func key(tenantID, templateID string) string {
	return fmt.Sprintf("%s:%s", tenantID, templateID)
}

// Get returns the cached definition, if present.
func (d *Definitions) Get(tenantID, templateID string) (*domain.FlowDefinition, bool) {
	v, found := d.cache.Get(key(tenantID, templateID))
	if !found {
		return nil, false
	}
	return v.(*domain.FlowDefinition), true
}

// Put stores a compiled definition.
func (d *Definitions) Put(tenantID, templateID string, def *domain.FlowDefinition) {
	d.cache.Set(key(tenantID, templateID), def, c.DefaultExpiration)
}

// Invalidate drops the cached definition for a template.
func (d *Definitions) Invalidate(tenantID, templateID string) {
	d.cache.Delete(key(tenantID, templateID))
}
