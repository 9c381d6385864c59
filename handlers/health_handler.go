package handlers

import (
	"context"
	"net/http"

	"github.com/pipelineatlas/atlas-api/utils"
	"go.uber.org/zap"
)

// Pinger is a dependency whose connectivity the health endpoint reports
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// HealthHandler handles health check requests
type HealthHandler struct {
	db     Pinger
	broker Pinger
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. The broker may be nil when
// the usage worker is disabled.
func NewHealthHandler(db Pinger, broker Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		db:     db,
		broker: broker,
		logger: logger,
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis,omitempty"`
	Service  string `json:"service"`
}

// HandleHealth handles GET /health. Dependency failures are reported as a
// degraded status; error details never reach the response body, they may
// contain connection strings.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	resp := HealthResponse{
		Status:   "up",
		Database: "ok",
		Service:  "atlas-api",
	}

	if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.Error("database health check failed", zap.Error(err))
		resp.Status = "degraded"
		resp.Database = "error"
	}

	if h.broker != nil {
		resp.Redis = "ok"
		if err := h.broker.HealthCheck(ctx); err != nil {
			h.logger.Error("redis health check failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Redis = "error"
		}
	}

	status := http.StatusOK
	if resp.Status != "up" {
		status = http.StatusServiceUnavailable
	}
	_ = utils.WriteJSON(w, status, resp)
}
