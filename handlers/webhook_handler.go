package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/pipelineatlas/atlas-api/middleware"
	"github.com/pipelineatlas/atlas-api/models"
	"github.com/pipelineatlas/atlas-api/observability"
	"github.com/pipelineatlas/atlas-api/repositories"
	"github.com/pipelineatlas/atlas-api/utils"
	"github.com/pipelineatlas/atlas-api/webhooks"
	"go.uber.org/zap"
)

// maxWebhookBody caps inbound webhook payloads at 1 MiB
const maxWebhookBody = 1 << 20

// StreamPublisher appends entries to the stream broker. Satisfied by
// usage.Broker; narrowed here so handler tests can fake it.
type StreamPublisher interface {
	Publish(ctx context.Context, stream string, values map[string]interface{}) error
}

// WebhookResponse is the body returned for accepted deliveries
type WebhookResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	EventID string `json:"event_id,omitempty"`
}

// WebhookHandler receives CI platform events, verifies their authenticity,
// persists them and queues a scan request on the stream broker.
type WebhookHandler struct {
	verifier   *webhooks.Verifier
	events     repositories.WebhookEventRepository
	publisher  StreamPublisher
	scanStream string
	metrics    *observability.Metrics
	logger     *zap.Logger
}

// NewWebhookHandler creates a new WebhookHandler. The publisher may be nil
// when the stream broker is disabled; deliveries are then stored without
// queueing a scan.
func NewWebhookHandler(
	verifier *webhooks.Verifier,
	events repositories.WebhookEventRepository,
	publisher StreamPublisher,
	scanStream string,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *WebhookHandler {
	return &WebhookHandler{
		verifier:   verifier,
		events:     events,
		publisher:  publisher,
		scanStream: scanStream,
		metrics:    metrics,
		logger:     logger,
	}
}

// HandleGitHub handles POST /api/v1/webhooks/github
func (h *WebhookHandler) HandleGitHub(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Failed to read request body", nil)
		return
	}

	if err := h.verifier.VerifyGitHub(body, r.Header.Get(webhooks.GitHubSignatureHeader)); err != nil {
		h.logger.Warn("github webhook rejected",
			zap.String("request_id", requestID),
			zap.Error(err))
		h.count(models.PlatformGitHub, "rejected")
		_ = utils.WriteUnauthorized(w, "invalid_signature", "Webhook signature verification failed")
		return
	}

	event, err := webhooks.ParseGitHubEvent(body, r.Header.Get("X-GitHub-Event"))
	if err != nil {
		h.count(models.PlatformGitHub, "malformed")
		_ = utils.WriteBadRequest(w, "Invalid JSON payload", nil)
		return
	}

	h.accept(ctx, w, event, r.Header.Get("X-Tenant-Id"))
}

// HandleGitLab handles POST /api/v1/webhooks/gitlab
func (h *WebhookHandler) HandleGitLab(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	if err := h.verifier.VerifyGitLab(r.Header.Get(webhooks.GitLabTokenHeader)); err != nil {
		h.logger.Warn("gitlab webhook rejected",
			zap.String("request_id", requestID),
			zap.Error(err))
		h.count(models.PlatformGitLab, "rejected")
		_ = utils.WriteUnauthorized(w, "invalid_token", "Webhook token verification failed")
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		_ = utils.WriteBadRequest(w, "Failed to read request body", nil)
		return
	}

	event, err := webhooks.ParseGitLabEvent(body)
	if err != nil {
		h.count(models.PlatformGitLab, "malformed")
		_ = utils.WriteBadRequest(w, "Invalid JSON payload", nil)
		return
	}

	h.accept(ctx, w, event, r.Header.Get("X-Tenant-Id"))
}

// accept persists a verified event, queues a scan request, and responds 202
func (h *WebhookHandler) accept(ctx context.Context, w http.ResponseWriter, event *models.WebhookEvent, tenantID string) {
	requestID := middleware.GetRequestIDFromContext(ctx)

	if err := h.events.Insert(ctx, event); err != nil {
		h.logger.Error("failed to store webhook event",
			zap.String("request_id", requestID),
			zap.Error(err))
		h.count(event.Platform, "error")
		_ = utils.WriteInternalServerError(w, "Failed to store webhook event")
		return
	}

	h.publishScanRequest(ctx, event, tenantID)
	h.count(event.Platform, "accepted")

	_ = utils.WriteJSON(w, http.StatusAccepted, WebhookResponse{
		Status:  "accepted",
		Message: fmt.Sprintf("%s %s event received for %s", event.Platform, event.EventType, event.Repository),
		EventID: event.ID,
	})
}

// publishScanRequest queues a scan for the repository that triggered the
// event. Queue failures do not fail the delivery; the event is already
// persisted and the platform would retry the whole webhook otherwise.
func (h *WebhookHandler) publishScanRequest(ctx context.Context, event *models.WebhookEvent, tenantID string) {
	if h.publisher == nil {
		return
	}
	if tenantID == "" {
		tenantID = models.DefaultTenantID
	}

	payload, err := json.Marshal(map[string]interface{}{
		"tenant_id":  tenantID,
		"event_id":   event.ID,
		"platform":   event.Platform,
		"repository": event.Repository,
		"ref":        event.Ref,
	})
	if err != nil {
		h.logger.Error("failed to encode scan request", zap.Error(err))
		return
	}

	if err := h.publisher.Publish(ctx, h.scanStream, map[string]interface{}{"payload": string(payload)}); err != nil {
		h.logger.Error("failed to queue scan request",
			zap.String("event_id", event.ID),
			zap.Error(err))
		return
	}

	h.logger.Info("scan request queued",
		zap.String("event_id", event.ID),
		zap.String("tenant_id", tenantID),
		zap.String("repository", event.Repository))
}

// HandleListEvents handles GET /api/v1/webhooks/events
func (h *WebhookHandler) HandleListEvents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			_ = utils.WriteBadRequest(w, "Invalid limit parameter", nil)
			return
		}
		limit = parsed
	}

	events, err := h.events.ListRecent(ctx, limit)
	if err != nil {
		h.logger.Error("failed to list webhook events",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve webhook events")
		return
	}
	if events == nil {
		events = []*models.WebhookEvent{}
	}

	_ = utils.WriteOK(w, events)
}

func (h *WebhookHandler) count(platform models.WebhookPlatform, outcome string) {
	if h.metrics != nil {
		h.metrics.WebhooksReceivedTotal.WithLabelValues(string(platform), outcome).Inc()
	}
}
