package postgres

import (
	"context"
	"fmt"

	"github.com/pipelineatlas/atlas-api/models"
	"github.com/pipelineatlas/atlas-api/repositories"
	"go.uber.org/zap"
)

// WebhookEventRepository implements repositories.WebhookEventRepository
type WebhookEventRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewWebhookEventRepository creates a new webhook event repository
func NewWebhookEventRepository(db *DB, logger *zap.Logger) repositories.WebhookEventRepository {
	return &WebhookEventRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores a new webhook event
func (r *WebhookEventRepository) Insert(ctx context.Context, event *models.WebhookEvent) error {
	query := `
		INSERT INTO webhook_events (id, platform, event_type, repository, ref, sender, action, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		event.ID,
		event.Platform,
		event.EventType,
		event.Repository,
		event.Ref,
		event.Sender,
		event.Action,
		event.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert webhook event: %w", err)
	}

	r.logger.Debug("webhook event stored",
		zap.String("id", event.ID),
		zap.String("platform", string(event.Platform)),
		zap.String("event_type", event.EventType))
	return nil
}

// ListRecent returns the most recent events, newest first
func (r *WebhookEventRepository) ListRecent(ctx context.Context, limit int) ([]*models.WebhookEvent, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}

	query := `
		SELECT id, platform, event_type, repository, ref, sender, action, received_at
		FROM webhook_events
		ORDER BY received_at DESC
		LIMIT $1
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhook events: %w", err)
	}
	defer rows.Close()

	var events []*models.WebhookEvent
	for rows.Next() {
		event := &models.WebhookEvent{}
		err := rows.Scan(
			&event.ID,
			&event.Platform,
			&event.EventType,
			&event.Repository,
			&event.Ref,
			&event.Sender,
			&event.Action,
			&event.ReceivedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook event: %w", err)
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating webhook event rows: %w", err)
	}

	return events, nil
}
