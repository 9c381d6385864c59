package postgres

import (
	"github.com/pipelineatlas/atlas-api/auth"
	"github.com/pipelineatlas/atlas-api/repositories"
	"go.uber.org/zap"
)

// NewRepositories wires all PostgreSQL-backed repositories over a shared
// connection pool.
func NewRepositories(db *DB, logger *zap.Logger) *repositories.Repositories {
	return &repositories.Repositories{
		WebhookEvents: NewWebhookEventRepository(db, logger),
		Tenants:       NewTenantRepository(db, logger),
		Proposals:     NewProposalRepository(db, logger),
		Snapshots:     NewSnapshotRepository(db, logger),
		TxManager:     NewTransactionManager(db, logger),
	}
}

// NewKeyStore returns the PostgreSQL-backed API key store
func NewKeyStore(db *DB, logger *zap.Logger) auth.KeyStore {
	return NewAPIKeyRepository(db, logger)
}
