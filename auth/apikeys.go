package auth

import (
	"context"
	"sync"

	"github.com/pipelineatlas/atlas-api/models"
)

// KeyStore maps opaque API keys to users. CI integrations register keys out
// of band and present them via `Authorization: ApiKey <key>`.
//
// Production wiring backs this with the relational store; the in-memory
// implementation serves tests and single-process development setups.
type KeyStore interface {
	// Lookup resolves a key to its user, returning ErrUnknownKey when the
	// key is not registered.
	Lookup(ctx context.Context, key string) (*models.User, error)

	// Register associates a key with a user, overwriting any previous
	// association.
	Register(ctx context.Context, key string, user *models.User) error

	// Remove deletes a key. Removing an absent key is a no-op.
	Remove(ctx context.Context, key string) error
}

// MemoryKeyStore is a concurrency-safe in-memory KeyStore. Reads come from
// every request handler; writes only from administrative operations.
type MemoryKeyStore struct {
	mu   sync.RWMutex
	keys map[string]models.User
}

// NewMemoryKeyStore creates an empty in-memory key store
func NewMemoryKeyStore() *MemoryKeyStore {
	return &MemoryKeyStore{keys: make(map[string]models.User)}
}

// Lookup resolves a key to its user
func (s *MemoryKeyStore) Lookup(_ context.Context, key string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.keys[key]
	if !ok {
		return nil, ErrUnknownKey
	}
	// Copy so callers cannot mutate the stored record.
	out := user
	return &out, nil
}

// Register associates a key with a user
func (s *MemoryKeyStore) Register(_ context.Context, key string, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key] = *user
	return nil
}

// Remove deletes a key
func (s *MemoryKeyStore) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}
