package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/pipelineatlas/atlas-api/config"
	"go.uber.org/zap"
)

// DB wraps the sql.DB connection pool
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// NewDB creates a new database connection pool
func NewDB(cfg config.DatabaseConfig, logger *zap.Logger) (*DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("database connection established",
		zap.String("connection", cfg.LogString()))

	return &DB{
		DB:     db,
		logger: logger,
	}, nil
}

// Close closes the database connection pool
func (db *DB) Close() error {
	db.logger.Info("closing database connection")
	return db.DB.Close()
}

// HealthCheck performs a health check on the database
func (db *DB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var result int
	if err := db.QueryRowContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

// InitSchema creates the required tables if they do not already exist
func (db *DB) InitSchema(ctx context.Context) error {
	schema := `
		-- Webhook deliveries (append-only)
		CREATE TABLE IF NOT EXISTS webhook_events (
			id           TEXT PRIMARY KEY,
			platform     TEXT NOT NULL,
			event_type   TEXT NOT NULL,
			repository   TEXT,
			ref          TEXT,
			sender       TEXT,
			action       TEXT,
			received_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		-- Tenants, created lazily by the usage worker
		CREATE TABLE IF NOT EXISTS tenants (
			id         TEXT PRIMARY KEY,
			name       TEXT NOT NULL,
			plan_tier  TEXT NOT NULL DEFAULT 'free'
		);

		-- Per-tenant usage counters (monotonic increments only)
		CREATE TABLE IF NOT EXISTS tenant_usage (
			tenant_id     TEXT PRIMARY KEY REFERENCES tenants(id),
			scans_count   BIGINT NOT NULL DEFAULT 0,
			token_count   BIGINT NOT NULL DEFAULT 0,
			last_updated  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		-- API keys for CI integrations
		CREATE TABLE IF NOT EXISTS api_keys (
			key       TEXT PRIMARY KEY,
			user_id   TEXT NOT NULL,
			username  TEXT NOT NULL,
			role      TEXT NOT NULL,
			email     TEXT NOT NULL DEFAULT ''
		);

		-- Refactor proposals
		CREATE TABLE IF NOT EXISTS proposals (
			id                TEXT PRIMARY KEY,
			graph_id          TEXT NOT NULL,
			plan_id           TEXT NOT NULL,
			title             TEXT NOT NULL,
			description       TEXT NOT NULL DEFAULT '',
			author            TEXT NOT NULL DEFAULT '',
			status            TEXT NOT NULL,
			suggestion_count  INTEGER NOT NULL DEFAULT 0,
			diff_preview      TEXT NOT NULL DEFAULT '',
			comments          JSONB NOT NULL DEFAULT '[]',
			created_at        TIMESTAMPTZ NOT NULL,
			updated_at        TIMESTAMPTZ NOT NULL
		);

		-- Scan snapshots for trend tracking
		CREATE TABLE IF NOT EXISTS snapshots (
			id                TEXT PRIMARY KEY,
			graph_name        TEXT NOT NULL,
			graph_id          TEXT NOT NULL DEFAULT '',
			complexity_score  DOUBLE PRECISION NOT NULL DEFAULT 0,
			fragility_score   DOUBLE PRECISION NOT NULL DEFAULT 0,
			maturity_score    DOUBLE PRECISION NOT NULL DEFAULT 0,
			finding_count     INTEGER NOT NULL DEFAULT 0,
			node_count        INTEGER NOT NULL DEFAULT 0,
			edge_count        INTEGER NOT NULL DEFAULT 0,
			scanned_at        TIMESTAMPTZ NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_webhook_events_received_at ON webhook_events(received_at);
		CREATE INDEX IF NOT EXISTS idx_proposals_status ON proposals(status);
		CREATE INDEX IF NOT EXISTS idx_snapshots_graph_name ON snapshots(graph_name);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	db.logger.Info("database schema initialized")
	return nil
}
