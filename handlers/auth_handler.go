package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pipelineatlas/atlas-api/auth"
	"github.com/pipelineatlas/atlas-api/middleware"
	"github.com/pipelineatlas/atlas-api/models"
	"github.com/pipelineatlas/atlas-api/utils"
	"go.uber.org/zap"
)

// IssueTokenRequest represents a request to issue a bearer token
type IssueTokenRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	Username   string `json:"username" validate:"required"`
	Role       string `json:"role" validate:"required,oneof=viewer auditor admin"`
	TTLSeconds int64  `json:"ttl_seconds" validate:"omitempty,gte=1,lte=86400"`
}

// IssueTokenResponse carries the signed token and its lifetime
type IssueTokenResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"token_type"`
	ExpiresIn int64  `json:"expires_in"`
}

// RegisterAPIKeyRequest represents a request to register an API key
type RegisterAPIKeyRequest struct {
	Key      string `json:"key" validate:"required,min=16"`
	UserID   string `json:"user_id" validate:"required"`
	Username string `json:"username" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=viewer auditor admin"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// AuthHandler handles token issuance and API key administration
type AuthHandler struct {
	codec  *auth.Codec
	keys   auth.KeyStore
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(codec *auth.Codec, keys auth.KeyStore, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		codec:  codec,
		keys:   keys,
		logger: logger,
	}
}

// HandleIssueToken handles POST /api/v1/auth/token. Admin only; the caller
// mints tokens for CI jobs and dashboard sessions.
func (h *AuthHandler) HandleIssueToken(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestIDFromContext(r.Context())

	var req IssueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), utils.GetValidationFields(err))
		return
	}

	user := &models.User{
		ID:       req.UserID,
		Username: req.Username,
		Role:     models.Role(req.Role),
	}

	ttl := h.codec.TTL()
	if req.TTLSeconds > 0 {
		ttl = time.Duration(req.TTLSeconds) * time.Second
	}

	token, err := h.codec.IssueWithTTL(user, ttl)
	if err != nil {
		h.logger.Error("failed to issue token",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to issue token")
		return
	}

	h.logger.Info("token issued",
		zap.String("request_id", requestID),
		zap.String("subject", req.UserID),
		zap.String("role", req.Role))

	_ = utils.WriteCreated(w, IssueTokenResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresIn: int64(ttl / time.Second),
	})
}

// HandleRegisterAPIKey handles POST /api/v1/auth/keys. Admin only.
func (h *AuthHandler) HandleRegisterAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req RegisterAPIKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), utils.GetValidationFields(err))
		return
	}

	user := &models.User{
		ID:       req.UserID,
		Username: req.Username,
		Role:     models.Role(req.Role),
		Email:    req.Email,
	}
	if err := h.keys.Register(ctx, req.Key, user); err != nil {
		h.logger.Error("failed to register api key",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to register API key")
		return
	}

	_ = utils.WriteCreated(w, map[string]string{"user_id": req.UserID, "role": req.Role})
}

// HandleRemoveAPIKey handles DELETE /api/v1/auth/keys/{key}. Admin only.
func (h *AuthHandler) HandleRemoveAPIKey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	key := chi.URLParam(r, "key")

	if err := h.keys.Remove(ctx, key); err != nil {
		h.logger.Error("failed to remove api key",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to remove API key")
		return
	}

	utils.WriteNoContent(w)
}
