package ports

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avelardos/convoflow/pkg/domain"
)

// RunSessionStoreContract verifies that a SessionStore implementation
// adheres to the interface contract. Adapter test suites call it
// against their concrete store.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	key := domain.SessionKey{
		TenantID:  "tenant-a",
		UserID:    "user-1",
		SessionID: "contract-" + time.Now().Format("20060102150405"),
	}

	t.Run("save and load", func(t *testing.T) {
		sess := domain.NewSession(key, "welcome", "start")
		sess.Variables["name"] = "Maria"
		sess.BeginWait("name", nil)

		require.NoError(t, store.Save(ctx, sess))

		loaded, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, key, loaded.Key)
		assert.Equal(t, "start", loaded.CurrentNodeID)
		assert.Equal(t, "Maria", loaded.Variables["name"])
		assert.True(t, loaded.Waiting)
		assert.Equal(t, "name", loaded.ExpectedVariable)
	})

	t.Run("loaded session is a private copy", func(t *testing.T) {
		sess := domain.NewSession(key, "welcome", "start")
		require.NoError(t, store.Save(ctx, sess))

		first, err := store.Load(ctx, key)
		require.NoError(t, err)
		first.Variables["scratch"] = true
		first.CurrentNodeID = "elsewhere"

		second, err := store.Load(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, "start", second.CurrentNodeID)
		assert.NotContains(t, second.Variables, "scratch")
	})

	t.Run("load missing", func(t *testing.T) {
		missing := key
		missing.SessionID = "does-not-exist"
		_, err := store.Load(ctx, missing)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("tenant isolation", func(t *testing.T) {
		other := key
		other.TenantID = "tenant-b"

		a := domain.NewSession(key, "welcome", "start")
		a.Variables["name"] = "Maria"
		b := domain.NewSession(other, "welcome", "start")
		b.Variables["name"] = "Jose"
		b.CurrentNodeID = "ask_name"

		require.NoError(t, store.Save(ctx, a))
		require.NoError(t, store.Save(ctx, b))
		defer store.Delete(ctx, other)

		gotA, err := store.Load(ctx, key)
		require.NoError(t, err)
		gotB, err := store.Load(ctx, other)
		require.NoError(t, err)
		assert.Equal(t, "Maria", gotA.Variables["name"])
		assert.Equal(t, "Jose", gotB.Variables["name"])
		assert.NotEqual(t, gotA.CurrentNodeID, gotB.CurrentNodeID)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, domain.NewSession(key, "welcome", "start")))
		require.NoError(t, store.Delete(ctx, key))
		_, err := store.Load(ctx, key)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("list", func(t *testing.T) {
		k1, k2 := key, key
		k1.SessionID = key.SessionID + "-1"
		k2.SessionID = key.SessionID + "-2"
		require.NoError(t, store.Save(ctx, domain.NewSession(k1, "welcome", "start")))
		require.NoError(t, store.Save(ctx, domain.NewSession(k2, "welcome", "start")))
		defer func() {
			_ = store.Delete(ctx, k1)
			_ = store.Delete(ctx, k2)
		}()

		keys, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, keys, k1)
		assert.Contains(t, keys, k2)
	})

	t.Run("evict idle", func(t *testing.T) {
		stale, fresh := key, key
		stale.SessionID = key.SessionID + "-stale"
		fresh.SessionID = key.SessionID + "-fresh"

		old := domain.NewSession(stale, "welcome", "start")
		old.LastUpdatedAt = time.Now().UTC().Add(-2 * time.Hour)
		require.NoError(t, store.Save(ctx, old))
		require.NoError(t, store.Save(ctx, domain.NewSession(fresh, "welcome", "start")))
		defer store.Delete(ctx, fresh)

		n, err := store.EvictIdle(ctx, time.Hour)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, n, 1)

		_, err = store.Load(ctx, stale)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
		_, err = store.Load(ctx, fresh)
		assert.NoError(t, err)
	})
}
