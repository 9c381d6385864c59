package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pipelineatlas/atlas-api/repositories"
	"go.uber.org/zap"
)

// TenantRepository implements repositories.TenantRepository. All writes are
// idempotent upserts or atomic in-place increments, so the usage worker can
// replay duplicate deliveries without corrupting counters.
type TenantRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewTenantRepository creates a new tenant repository
func NewTenantRepository(db *DB, logger *zap.Logger) repositories.TenantRepository {
	return &TenantRepository{
		db:     db,
		logger: logger,
	}
}

// UpsertTenant inserts the tenant if absent. Existing rows keep their name
// and plan tier.
func (r *TenantRepository) UpsertTenant(ctx context.Context, tenantID string) error {
	query := `
		INSERT INTO tenants (id, name, plan_tier)
		VALUES ($1, $2, 'free')
		ON CONFLICT (id) DO NOTHING
	`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, tenantID, tenantID); err != nil {
		return fmt.Errorf("failed to upsert tenant: %w", err)
	}
	return nil
}

// EnsureUsage inserts a zeroed usage row for the tenant if absent
func (r *TenantRepository) EnsureUsage(ctx context.Context, tenantID string) error {
	query := `
		INSERT INTO tenant_usage (tenant_id, scans_count, token_count)
		VALUES ($1, 0, 0)
		ON CONFLICT (tenant_id) DO NOTHING
	`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, tenantID); err != nil {
		return fmt.Errorf("failed to ensure usage row: %w", err)
	}
	return nil
}

// AddTokens atomically increments the tenant's token counter
func (r *TenantRepository) AddTokens(ctx context.Context, tenantID string, tokens int64) error {
	query := `
		UPDATE tenant_usage
		SET token_count = token_count + $1, last_updated = NOW()
		WHERE tenant_id = $2
	`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, tokens, tenantID); err != nil {
		return fmt.Errorf("failed to add tokens: %w", err)
	}
	return nil
}

// AddScan atomically increments the tenant's scan counter by one
func (r *TenantRepository) AddScan(ctx context.Context, tenantID string) error {
	query := `
		UPDATE tenant_usage
		SET scans_count = scans_count + 1, last_updated = NOW()
		WHERE tenant_id = $1
	`

	executor := GetExecutor(ctx, r.db)
	if _, err := executor.ExecContext(ctx, query, tenantID); err != nil {
		return fmt.Errorf("failed to add scan: %w", err)
	}
	return nil
}

// GetUsage returns the tenant's plan tier and counters. Unknown tenants
// report the free tier with zero counters rather than an error.
func (r *TenantRepository) GetUsage(ctx context.Context, tenantID string) (*repositories.BillingStatus, error) {
	query := `
		SELECT t.plan_tier, COALESCE(tu.scans_count, 0), COALESCE(tu.token_count, 0)
		FROM tenants t
		LEFT JOIN tenant_usage tu ON t.id = tu.tenant_id
		WHERE t.id = $1
	`

	executor := GetExecutor(ctx, r.db)
	status := &repositories.BillingStatus{}

	err := executor.QueryRowContext(ctx, query, tenantID).Scan(
		&status.PlanTier,
		&status.ScansCount,
		&status.TokenCount,
	)
	if err == sql.ErrNoRows {
		return &repositories.BillingStatus{PlanTier: "free"}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant usage: %w", err)
	}

	return status, nil
}

// CrossTenantStats aggregates usage across all tenants, busiest first
func (r *TenantRepository) CrossTenantStats(ctx context.Context, limit int) ([]*repositories.TenantStats, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT
			t.name,
			t.plan_tier,
			COALESCE(tu.scans_count, 0) AS scans,
			COALESCE(tu.token_count, 0) AS tokens
		FROM tenants t
		LEFT JOIN tenant_usage tu ON t.id = tu.tenant_id
		ORDER BY tu.scans_count DESC NULLS LAST
		LIMIT $1
	`

	executor := GetExecutor(ctx, r.db)
	rows, err := executor.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query tenant stats: %w", err)
	}
	defer rows.Close()

	var stats []*repositories.TenantStats
	for rows.Next() {
		row := &repositories.TenantStats{}
		if err := rows.Scan(&row.Name, &row.Plan, &row.Scans, &row.Tokens); err != nil {
			return nil, fmt.Errorf("failed to scan tenant stats: %w", err)
		}
		stats = append(stats, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tenant stats rows: %w", err)
	}

	return stats, nil
}
