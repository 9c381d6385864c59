package app

import (
	"context"
	"fmt"

	"github.com/pipelineatlas/atlas-api/auth"
	"github.com/pipelineatlas/atlas-api/config"
	"github.com/pipelineatlas/atlas-api/middleware"
	"github.com/pipelineatlas/atlas-api/observability"
	"github.com/pipelineatlas/atlas-api/repositories"
	"github.com/pipelineatlas/atlas-api/repositories/postgres"
	"github.com/pipelineatlas/atlas-api/usage"
	"github.com/pipelineatlas/atlas-api/webhooks"
	"go.uber.org/zap"
)

// Dependencies holds all application dependencies. This is the central
// wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Broker  *usage.RedisBroker
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Repositories
	Repos *repositories.Repositories
	Keys  auth.KeyStore

	// Auth
	Codec          *auth.Codec
	Resolver       *auth.Resolver
	AuthMiddleware *middleware.AuthMiddleware
	RateLimiter    *middleware.RateLimiter

	// Webhooks
	Verifier *webhooks.Verifier

	// Background processing
	Worker *usage.Worker
}

// NewDependencies creates and wires up all application dependencies
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if cfg.Observability.MetricsEnabled {
		deps.Metrics = observability.NewMetrics()
	}

	db, err := postgres.NewDB(cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	deps.DB = db

	if err := db.InitSchema(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	deps.Repos = postgres.NewRepositories(db, logger)
	deps.Keys = postgres.NewKeyStore(db, logger)

	deps.Codec = auth.NewCodec(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	deps.Resolver = auth.NewResolver(deps.Codec, deps.Keys)
	deps.AuthMiddleware = middleware.NewAuthMiddleware(deps.Resolver, logger)
	deps.RateLimiter = middleware.NewRateLimiter(cfg.RateLimit, logger)

	deps.Verifier = webhooks.NewVerifier(cfg.Webhooks.GitHubSecret, cfg.Webhooks.GitLabSecret, logger)

	if cfg.Worker.Enabled {
		broker, err := usage.NewRedisBroker(cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize stream broker: %w", err)
		}
		deps.Broker = broker
		deps.Worker = usage.NewWorker(
			broker,
			deps.Repos.Tenants,
			deps.Repos.TxManager,
			cfg.Worker,
			deps.Metrics,
			logger,
		)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// StartWorker launches the usage worker when the stream broker is enabled
func (d *Dependencies) StartWorker(ctx context.Context) {
	if d.Worker != nil {
		d.Worker.Start(ctx)
	}
}

// Close releases all held resources in reverse initialization order
func (d *Dependencies) Close() {
	if d.Worker != nil {
		d.Worker.Stop()
	}
	if d.Broker != nil {
		if err := d.Broker.Close(); err != nil {
			d.Logger.Error("failed to close broker", zap.Error(err))
		}
	}
	if d.RateLimiter != nil {
		d.RateLimiter.Close()
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error("failed to close database", zap.Error(err))
		}
	}
}
