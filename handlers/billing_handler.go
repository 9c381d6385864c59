package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/pipelineatlas/atlas-api/middleware"
	"github.com/pipelineatlas/atlas-api/repositories"
	"github.com/pipelineatlas/atlas-api/utils"
	"go.uber.org/zap"
)

// TenantIDHeader scopes billing requests to a tenant
const TenantIDHeader = "X-Tenant-Id"

// CheckoutSessionRequest represents a request to start a plan upgrade
type CheckoutSessionRequest struct {
	PlanID string `json:"plan_id" validate:"required"`
}

// CheckoutSessionResponse carries the payment provider redirect URL
type CheckoutSessionResponse struct {
	URL string `json:"url"`
}

// BillingHandler handles billing status and checkout requests
type BillingHandler struct {
	tenants repositories.TenantRepository
	logger  *zap.Logger
}

// NewBillingHandler creates a new BillingHandler
func NewBillingHandler(tenants repositories.TenantRepository, logger *zap.Logger) *BillingHandler {
	return &BillingHandler{
		tenants: tenants,
		logger:  logger,
	}
}

// tenantID extracts the tenant from the X-Tenant-Id header, writing a 401
// when it is missing.
func (h *BillingHandler) tenantID(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := strings.TrimSpace(r.Header.Get(TenantIDHeader))
	if tenantID == "" {
		_ = utils.WriteUnauthorized(w, "missing_tenant", "X-Tenant-Id header is required")
		return "", false
	}
	return tenantID, true
}

// HandleCreateCheckoutSession handles POST /api/v1/billing/create-checkout-session.
// The payment provider integration is mocked; the endpoint returns a
// deterministic checkout URL for the tenant and plan.
func (h *BillingHandler) HandleCreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	var req CheckoutSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), utils.GetValidationFields(err))
		return
	}

	h.logger.Info("creating checkout session",
		zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
		zap.String("tenant_id", tenantID),
		zap.String("plan_id", req.PlanID))

	_ = utils.WriteOK(w, CheckoutSessionResponse{
		URL: fmt.Sprintf("https://checkout.stripe.com/pay/cs_test_mock_%s_%s", tenantID, req.PlanID),
	})
}

// HandleStripeWebhook handles POST /api/v1/billing/webhook. Subscription
// updates will adjust the tenant's plan tier once the provider integration
// is live; today the event is logged and acknowledged.
func (h *BillingHandler) HandleStripeWebhook(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		_ = utils.WriteBadRequest(w, "Webhook processing failed", nil)
		return
	}

	eventType, _ := payload["type"].(string)
	if eventType == "" {
		eventType = "unknown"
	}
	h.logger.Info("received stripe webhook event",
		zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())),
		zap.String("event_type", eventType))

	_ = utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// HandleBillingStatus handles GET /api/v1/billing/status
func (h *BillingHandler) HandleBillingStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tenantID, ok := h.tenantID(w, r)
	if !ok {
		return
	}

	status, err := h.tenants.GetUsage(ctx, tenantID)
	if err != nil {
		h.logger.Error("failed to get billing status",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("tenant_id", tenantID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve billing status")
		return
	}

	_ = utils.WriteJSON(w, http.StatusOK, status)
}
