package handlers

import (
	"net/http"

	"github.com/pipelineatlas/atlas-api/middleware"
	"github.com/pipelineatlas/atlas-api/repositories"
	"github.com/pipelineatlas/atlas-api/utils"
	"go.uber.org/zap"
)

// crossOrgStatsLimit bounds the admin dashboard aggregate
const crossOrgStatsLimit = 50

// CrossOrgStatsResponse is the body of GET /api/v1/admin/cross-org-stats
type CrossOrgStatsResponse struct {
	Tenants []*repositories.TenantStats `json:"tenants"`
}

// AdminHandler handles cross-tenant administrative queries. Routes mounting
// this handler enforce the admin role.
type AdminHandler struct {
	tenants repositories.TenantRepository
	logger  *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(tenants repositories.TenantRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		tenants: tenants,
		logger:  logger,
	}
}

// HandleCrossOrgStats handles GET /api/v1/admin/cross-org-stats
func (h *AdminHandler) HandleCrossOrgStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	stats, err := h.tenants.CrossTenantStats(ctx, crossOrgStatsLimit)
	if err != nil {
		h.logger.Error("failed to fetch cross-org stats",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Database query failed")
		return
	}
	if stats == nil {
		stats = []*repositories.TenantStats{}
	}

	_ = utils.WriteJSON(w, http.StatusOK, CrossOrgStatsResponse{Tenants: stats})
}
