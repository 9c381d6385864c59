package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pipelineatlas/atlas-api/auth"
	"github.com/pipelineatlas/atlas-api/models"
	"go.uber.org/zap"
)

// APIKeyRepository implements auth.KeyStore over the api_keys table
type APIKeyRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewAPIKeyRepository creates a new API key repository
func NewAPIKeyRepository(db *DB, logger *zap.Logger) auth.KeyStore {
	return &APIKeyRepository{
		db:     db,
		logger: logger,
	}
}

// Lookup resolves a key to its user, returning auth.ErrUnknownKey when the
// key is not registered.
func (r *APIKeyRepository) Lookup(ctx context.Context, key string) (*models.User, error) {
	query := `
		SELECT user_id, username, role, email
		FROM api_keys
		WHERE key = $1
	`

	executor := GetExecutor(ctx, r.db)
	user := &models.User{}

	err := executor.QueryRowContext(ctx, query, key).Scan(
		&user.ID,
		&user.Username,
		&user.Role,
		&user.Email,
	)
	if err == sql.ErrNoRows {
		return nil, auth.ErrUnknownKey
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up api key: %w", err)
	}

	return user, nil
}

// Register associates a key with a user, overwriting any previous association
func (r *APIKeyRepository) Register(ctx context.Context, key string, user *models.User) error {
	query := `
		INSERT INTO api_keys (key, user_id, username, role, email)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    username = EXCLUDED.username,
		    role = EXCLUDED.role,
		    email = EXCLUDED.email
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query, key, user.ID, user.Username, user.Role, user.Email)
	if err != nil {
		return fmt.Errorf("failed to register api key: %w", err)
	}

	r.logger.Info("api key registered",
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)))
	return nil
}

// Remove deletes a key. Removing an absent key is a no-op.
func (r *APIKeyRepository) Remove(ctx context.Context, key string) error {
	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, "DELETE FROM api_keys WHERE key = $1", key); err != nil {
		return fmt.Errorf("failed to remove api key: %w", err)
	}
	return nil
}
