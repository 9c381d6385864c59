package repositories

import (
	"context"

	"github.com/pipelineatlas/atlas-api/models"
)

// TransactionManager manages database transactions. Repositories pick up an
// open transaction from the context, so code inside InTransaction uses the
// same repository instances it uses outside.
type TransactionManager interface {
	// InTransaction executes fn within a transaction, committing when fn
	// succeeds and rolling back when it errors.
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// WebhookEventRepository persists verified webhook deliveries. Events are
// append-only.
type WebhookEventRepository interface {
	// Insert stores a new webhook event
	Insert(ctx context.Context, event *models.WebhookEvent) error

	// ListRecent returns the most recent events, newest first
	ListRecent(ctx context.Context, limit int) ([]*models.WebhookEvent, error)
}

// TenantRepository manages tenants and their usage counters. Tenants are
// created lazily via upsert; counters only ever increment.
type TenantRepository interface {
	// UpsertTenant inserts the tenant if absent; existing rows are never
	// overwritten.
	UpsertTenant(ctx context.Context, tenantID string) error

	// EnsureUsage inserts a zeroed usage row for the tenant if absent
	EnsureUsage(ctx context.Context, tenantID string) error

	// AddTokens atomically increments the tenant's token counter
	AddTokens(ctx context.Context, tenantID string, tokens int64) error

	// AddScan atomically increments the tenant's scan counter by one
	AddScan(ctx context.Context, tenantID string) error

	// GetUsage returns the tenant's plan tier and counters. Unknown tenants
	// report the free tier with zero counters.
	GetUsage(ctx context.Context, tenantID string) (*BillingStatus, error)

	// CrossTenantStats aggregates usage across all tenants, busiest first
	CrossTenantStats(ctx context.Context, limit int) ([]*TenantStats, error)
}

// ProposalRepository handles refactor proposal storage
type ProposalRepository interface {
	// Create stores a new proposal
	Create(ctx context.Context, proposal *models.Proposal) error

	// GetByID retrieves a proposal by ID
	GetByID(ctx context.Context, id string) (*models.Proposal, error)

	// List retrieves proposals, optionally filtered by status
	List(ctx context.Context, status models.ProposalStatus) ([]*models.Proposal, error)

	// Update persists status and comment changes
	Update(ctx context.Context, proposal *models.Proposal) error
}

// SnapshotRepository handles scan snapshot storage for trend tracking
type SnapshotRepository interface {
	// Insert stores a new snapshot
	Insert(ctx context.Context, snapshot *models.Snapshot) error

	// ListByGraph returns all snapshots for a graph, oldest first
	ListByGraph(ctx context.Context, graphName string) ([]*models.Snapshot, error)
}

// BillingStatus is a tenant's plan and accumulated usage
type BillingStatus struct {
	PlanTier   string `json:"plan_tier"`
	ScansCount int64  `json:"scans_count"`
	TokenCount int64  `json:"token_count"`
}

// TenantStats is one row of the cross-tenant usage aggregate
type TenantStats struct {
	Name   string `json:"name"`
	Plan   string `json:"plan"`
	Scans  int64  `json:"scans"`
	Tokens int64  `json:"tokens"`
}

// Repositories aggregates all repository interfaces
type Repositories struct {
	WebhookEvents WebhookEventRepository
	Tenants       TenantRepository
	Proposals     ProposalRepository
	Snapshots     SnapshotRepository
	TxManager     TransactionManager
}
