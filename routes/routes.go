package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pipelineatlas/atlas-api/app"
	"github.com/pipelineatlas/atlas-api/handlers"
	"github.com/pipelineatlas/atlas-api/middleware"
	"github.com/pipelineatlas/atlas-api/models"
	"github.com/pipelineatlas/atlas-api/utils"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))
	r.Use(deps.RateLimiter.Limit)
	if deps.Metrics != nil {
		r.Use(middleware.Metrics(deps.Metrics))
	}

	// CORS for the dashboard UI
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.Config.CORS.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Tenant-Id"},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	var brokerPinger handlers.Pinger
	if deps.Broker != nil {
		brokerPinger = deps.Broker
	}
	healthHandler := handlers.NewHealthHandler(deps.DB, brokerPinger, deps.Logger)
	authHandler := handlers.NewAuthHandler(deps.Codec, deps.Keys, deps.Logger)
	var publisher handlers.StreamPublisher
	if deps.Broker != nil {
		publisher = deps.Broker
	}
	webhookHandler := handlers.NewWebhookHandler(
		deps.Verifier,
		deps.Repos.WebhookEvents,
		publisher,
		deps.Config.Worker.ScanStream,
		deps.Metrics,
		deps.Logger,
	)
	proposalHandler := handlers.NewProposalHandler(deps.Repos.Proposals, deps.Logger)
	trendHandler := handlers.NewTrendHandler(deps.Repos.Snapshots, deps.Logger)
	billingHandler := handlers.NewBillingHandler(deps.Repos.Tenants, deps.Logger)
	adminHandler := handlers.NewAdminHandler(deps.Repos.Tenants, deps.Logger)

	// Health and metrics
	r.Get("/health", healthHandler.HandleHealth)
	if deps.Metrics != nil {
		r.Handle("/metrics", deps.Metrics.Handler())
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Webhook receivers authenticate via platform signatures, not
		// bearer credentials.
		r.Route("/webhooks", func(r chi.Router) {
			r.Post("/github", webhookHandler.HandleGitHub)
			r.Post("/gitlab", webhookHandler.HandleGitLab)

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireAuth)
				r.Get("/events", webhookHandler.HandleListEvents)
			})
		})

		// Token and API key administration
		r.Route("/auth", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireRole(models.RoleAdmin))
			r.Post("/token", authHandler.HandleIssueToken)
			r.Post("/keys", authHandler.HandleRegisterAPIKey)
			r.Delete("/keys/{key}", authHandler.HandleRemoveAPIKey)
		})

		// Refactor proposals: anyone authenticated can read, auditors
		// review.
		r.Route("/proposals", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/", proposalHandler.HandleListProposals)
			r.Get("/{id}", proposalHandler.HandleGetProposal)

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireRole(models.RoleAuditor))
				r.Post("/", proposalHandler.HandleCreateProposal)
				r.Patch("/{id}", proposalHandler.HandleUpdateProposal)
			})
		})

		// Trend tracking
		r.Group(func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Get("/trends/{graphName}", trendHandler.HandleGetTrends)

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireRole(models.RoleAuditor))
				r.Post("/snapshots", trendHandler.HandleCreateSnapshot)
			})
		})

		// Billing: tenant scoping comes from the X-Tenant-Id header. The
		// payment provider webhook is unauthenticated by design.
		r.Route("/billing", func(r chi.Router) {
			r.Post("/webhook", billingHandler.HandleStripeWebhook)

			r.Group(func(r chi.Router) {
				r.Use(deps.AuthMiddleware.RequireAuth)
				r.Get("/status", billingHandler.HandleBillingStatus)
				r.Post("/create-checkout-session", billingHandler.HandleCreateCheckoutSession)
			})
		})

		// Cross-tenant admin queries
		r.Route("/admin", func(r chi.Router) {
			r.Use(deps.AuthMiddleware.RequireAuth)
			r.Use(deps.AuthMiddleware.RequireRole(models.RoleAdmin))
			r.Get("/cross-org-stats", adminHandler.HandleCrossOrgStats)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "Route not found")
	})

	return r
}
