package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pipelineatlas/atlas-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) (*Resolver, *Codec, *MemoryKeyStore) {
	t.Helper()
	codec := NewCodec(testSecret, time.Hour)
	keys := NewMemoryKeyStore()
	return NewResolver(codec, keys), codec, keys
}

func TestResolve(t *testing.T) {
	ctx := context.Background()

	t.Run("empty header is missing credential", func(t *testing.T) {
		resolver, _, _ := newTestResolver(t)
		_, err := resolver.Resolve(ctx, "")
		assert.True(t, errors.Is(err, ErrMissingCredential))
	})

	t.Run("header without a space is malformed", func(t *testing.T) {
		resolver, _, _ := newTestResolver(t)
		_, err := resolver.Resolve(ctx, "Bearertoken")
		assert.True(t, errors.Is(err, ErrMalformedCredential))
	})

	t.Run("unknown scheme is rejected", func(t *testing.T) {
		resolver, _, _ := newTestResolver(t)
		_, err := resolver.Resolve(ctx, "Digest abc123")
		assert.True(t, errors.Is(err, ErrUnsupportedScheme))
	})

	t.Run("bearer token resolves through the codec", func(t *testing.T) {
		resolver, codec, _ := newTestResolver(t)
		token, err := codec.Issue(&models.User{ID: "u1", Username: "yoad", Role: models.RoleAdmin})
		require.NoError(t, err)

		user, err := resolver.Resolve(ctx, "Bearer "+token)
		require.NoError(t, err)
		assert.Equal(t, "u1", user.ID)
	})

	t.Run("scheme matching is case-insensitive", func(t *testing.T) {
		resolver, codec, _ := newTestResolver(t)
		token, err := codec.Issue(&models.User{ID: "u1", Role: models.RoleViewer})
		require.NoError(t, err)

		_, err = resolver.Resolve(ctx, "BEARER "+token)
		assert.NoError(t, err)
	})

	t.Run("api key resolves through the store", func(t *testing.T) {
		resolver, _, keys := newTestResolver(t)
		require.NoError(t, keys.Register(ctx, "ci-key-1", &models.User{ID: "ci", Role: models.RoleAuditor}))

		user, err := resolver.Resolve(ctx, "ApiKey ci-key-1")
		require.NoError(t, err)
		assert.Equal(t, "ci", user.ID)
		assert.Equal(t, models.RoleAuditor, user.Role)
	})

	t.Run("unregistered api key is rejected", func(t *testing.T) {
		resolver, _, _ := newTestResolver(t)
		_, err := resolver.Resolve(ctx, "ApiKey nope")
		assert.True(t, errors.Is(err, ErrUnknownKey))
	})
}
