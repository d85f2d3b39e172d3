package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/avelardos/convoflow/internal/cache"
	"github.com/avelardos/convoflow/pkg/domain"
)

func TestDefinitions(t *testing.T) {
	defs := cache.NewDefinitions(time.Minute)
	def := &domain.FlowDefinition{ID: "welcome", TenantID: "tenant-a"}

	_, found := defs.Get("tenant-a", "welcome")
	assert.False(t, found)

	defs.Put("tenant-a", "welcome", def)
	got, found := defs.Get("tenant-a", "welcome")
	assert.True(t, found)
	assert.Same(t, def, got)

	// Same template id under another tenant is a different entry.
	_, found = defs.Get("tenant-b", "welcome")
	assert.False(t, found)

	defs.Invalidate("tenant-a", "welcome")
	_, found = defs.Get("tenant-a", "welcome")
	assert.False(t, found)
}
