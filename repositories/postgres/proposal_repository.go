package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/pipelineatlas/atlas-api/models"
	"github.com/pipelineatlas/atlas-api/repositories"
	"go.uber.org/zap"
)

// ProposalRepository implements repositories.ProposalRepository. Comments
// live in a JSONB column; the row is small and always read whole.
type ProposalRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewProposalRepository creates a new proposal repository
func NewProposalRepository(db *DB, logger *zap.Logger) repositories.ProposalRepository {
	return &ProposalRepository{
		db:     db,
		logger: logger,
	}
}

// Create stores a new proposal
func (r *ProposalRepository) Create(ctx context.Context, proposal *models.Proposal) error {
	comments, err := json.Marshal(proposal.Comments)
	if err != nil {
		return fmt.Errorf("failed to marshal proposal comments: %w", err)
	}

	query := `
		INSERT INTO proposals (id, graph_id, plan_id, title, description, author, status,
			suggestion_count, diff_preview, comments, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	executor := GetExecutor(ctx, r.db)
	_, err = executor.ExecContext(ctx, query,
		proposal.ID,
		proposal.GraphID,
		proposal.PlanID,
		proposal.Title,
		proposal.Description,
		proposal.Author,
		proposal.Status,
		proposal.SuggestionCount,
		proposal.DiffPreview,
		comments,
		proposal.CreatedAt,
		proposal.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create proposal: %w", err)
	}

	r.logger.Debug("proposal created",
		zap.String("id", proposal.ID),
		zap.String("graph_id", proposal.GraphID))
	return nil
}

// GetByID retrieves a proposal by ID
func (r *ProposalRepository) GetByID(ctx context.Context, id string) (*models.Proposal, error) {
	query := `
		SELECT id, graph_id, plan_id, title, description, author, status,
			suggestion_count, diff_preview, comments, created_at, updated_at
		FROM proposals
		WHERE id = $1
	`

	executor := GetExecutor(ctx, r.db)
	row := executor.QueryRowContext(ctx, query, id)

	proposal, err := scanProposal(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("proposal not found: %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}
	return proposal, nil
}

// List retrieves proposals, optionally filtered by status. Results are
// newest first.
func (r *ProposalRepository) List(ctx context.Context, status models.ProposalStatus) ([]*models.Proposal, error) {
	query := `
		SELECT id, graph_id, plan_id, title, description, author, status,
			suggestion_count, diff_preview, comments, created_at, updated_at
		FROM proposals
	`
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY created_at DESC"

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query proposals: %w", err)
	}
	defer rows.Close()

	var proposals []*models.Proposal
	for rows.Next() {
		proposal, err := scanProposal(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal: %w", err)
		}
		proposals = append(proposals, proposal)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating proposal rows: %w", err)
	}

	return proposals, nil
}

// Update persists status and comment changes
func (r *ProposalRepository) Update(ctx context.Context, proposal *models.Proposal) error {
	comments, err := json.Marshal(proposal.Comments)
	if err != nil {
		return fmt.Errorf("failed to marshal proposal comments: %w", err)
	}

	query := `
		UPDATE proposals
		SET status = $1, comments = $2, updated_at = $3
		WHERE id = $4
	`

	executor := GetExecutor(ctx, r.db)
	result, err := executor.ExecContext(ctx, query,
		proposal.Status,
		comments,
		proposal.UpdatedAt,
		proposal.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update proposal: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("proposal not found: %s", proposal.ID)
	}

	return nil
}

// rowScanner covers both *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProposal(row rowScanner) (*models.Proposal, error) {
	proposal := &models.Proposal{}
	var comments []byte

	err := row.Scan(
		&proposal.ID,
		&proposal.GraphID,
		&proposal.PlanID,
		&proposal.Title,
		&proposal.Description,
		&proposal.Author,
		&proposal.Status,
		&proposal.SuggestionCount,
		&proposal.DiffPreview,
		&comments,
		&proposal.CreatedAt,
		&proposal.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(comments, &proposal.Comments); err != nil {
		return nil, fmt.Errorf("failed to unmarshal proposal comments: %w", err)
	}
	return proposal, nil
}
