package auth

import (
	"context"
	"strings"

	"github.com/pipelineatlas/atlas-api/models"
)

// Resolver is the single authentication entry point: it classifies the
// Authorization header and resolves the credential to a user. Route handlers
// depend on it rather than re-implementing header parsing.
//
// Supported forms:
//
//	Authorization: Bearer <signed token>
//	Authorization: ApiKey <opaque key>
type Resolver struct {
	codec *Codec
	keys  KeyStore
}

// NewResolver creates a credential resolver backed by the token codec and
// API-key store.
func NewResolver(codec *Codec, keys KeyStore) *Resolver {
	return &Resolver{codec: codec, keys: keys}
}

// Resolve authenticates the Authorization header value and returns the user
// it identifies.
func (r *Resolver) Resolve(ctx context.Context, authorization string) (*models.User, error) {
	if authorization == "" {
		return nil, ErrMissingCredential
	}

	parts := strings.SplitN(authorization, " ", 2)
	if len(parts) != 2 {
		return nil, ErrMalformedCredential
	}
	scheme, credential := parts[0], parts[1]

	switch strings.ToLower(scheme) {
	case "bearer":
		return r.codec.Verify(credential)
	case "apikey":
		return r.keys.Lookup(ctx, credential)
	default:
		return nil, ErrUnsupportedScheme
	}
}
