package postgres

import (
	"context"
	"fmt"

	"github.com/pipelineatlas/atlas-api/models"
	"github.com/pipelineatlas/atlas-api/repositories"
	"go.uber.org/zap"
)

// SnapshotRepository implements repositories.SnapshotRepository
type SnapshotRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(db *DB, logger *zap.Logger) repositories.SnapshotRepository {
	return &SnapshotRepository{
		db:     db,
		logger: logger,
	}
}

// Insert stores a new snapshot
func (r *SnapshotRepository) Insert(ctx context.Context, snapshot *models.Snapshot) error {
	query := `
		INSERT INTO snapshots (id, graph_name, graph_id, complexity_score, fragility_score,
			maturity_score, finding_count, node_count, edge_count, scanned_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	executor := GetExecutor(ctx, r.db)
	_, err := executor.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.GraphName,
		snapshot.GraphID,
		snapshot.ComplexityScore,
		snapshot.FragilityScore,
		snapshot.MaturityScore,
		snapshot.FindingCount,
		snapshot.NodeCount,
		snapshot.EdgeCount,
		snapshot.ScannedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert snapshot: %w", err)
	}

	r.logger.Debug("snapshot stored",
		zap.String("id", snapshot.ID),
		zap.String("graph_name", snapshot.GraphName))
	return nil
}

// ListByGraph returns all snapshots for a graph, oldest first. Trend
// computation walks consecutive pairs, so ordering matters.
func (r *SnapshotRepository) ListByGraph(ctx context.Context, graphName string) ([]*models.Snapshot, error) {
	query := `
		SELECT id, graph_name, graph_id, complexity_score, fragility_score,
			maturity_score, finding_count, node_count, edge_count, scanned_at
		FROM snapshots
		WHERE graph_name = $1
		ORDER BY scanned_at ASC
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, graphName)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []*models.Snapshot
	for rows.Next() {
		snapshot := &models.Snapshot{}
		err := rows.Scan(
			&snapshot.ID,
			&snapshot.GraphName,
			&snapshot.GraphID,
			&snapshot.ComplexityScore,
			&snapshot.FragilityScore,
			&snapshot.MaturityScore,
			&snapshot.FindingCount,
			&snapshot.NodeCount,
			&snapshot.EdgeCount,
			&snapshot.ScannedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snapshot)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}

	return snapshots, nil
}
