package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/pipelineatlas/atlas-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryKeyStore(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup of unknown key fails", func(t *testing.T) {
		store := NewMemoryKeyStore()
		_, err := store.Lookup(ctx, "missing")
		assert.True(t, errors.Is(err, ErrUnknownKey))
	})

	t.Run("register then lookup", func(t *testing.T) {
		store := NewMemoryKeyStore()
		require.NoError(t, store.Register(ctx, "k1", &models.User{ID: "u1", Role: models.RoleAuditor}))

		user, err := store.Lookup(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
	})

	t.Run("lookup returns a copy", func(t *testing.T) {
		store := NewMemoryKeyStore()
		require.NoError(t, store.Register(ctx, "k1", &models.User{ID: "u1", Role: models.RoleViewer}))

		first, err := store.Lookup(ctx, "k1")
		require.NoError(t, err)
		first.Role = models.RoleAdmin

		second, err := store.Lookup(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, models.RoleViewer, second.Role)
	})

	t.Run("register overwrites", func(t *testing.T) {
		store := NewMemoryKeyStore()
		require.NoError(t, store.Register(ctx, "k1", &models.User{ID: "u1", Role: models.RoleViewer}))
		require.NoError(t, store.Register(ctx, "k1", &models.User{ID: "u2", Role: models.RoleAdmin}))

		user, err := store.Lookup(ctx, "k1")
		require.NoError(t, err)
		assert.Equal(t, "u2", user.ID)
	})

	t.Run("remove is idempotent", func(t *testing.T) {
		store := NewMemoryKeyStore()
		require.NoError(t, store.Register(ctx, "k1", &models.User{ID: "u1"}))
		require.NoError(t, store.Remove(ctx, "k1"))
		require.NoError(t, store.Remove(ctx, "k1"))

		_, err := store.Lookup(ctx, "k1")
		assert.True(t, errors.Is(err, ErrUnknownKey))
	})
}
