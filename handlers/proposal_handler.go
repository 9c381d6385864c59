package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/pipelineatlas/atlas-api/middleware"
	"github.com/pipelineatlas/atlas-api/models"
	"github.com/pipelineatlas/atlas-api/repositories"
	"github.com/pipelineatlas/atlas-api/utils"
	"go.uber.org/zap"
)

// CreateProposalRequest represents a request to create a refactor proposal
type CreateProposalRequest struct {
	GraphID         string `json:"graph_id" validate:"required"`
	PlanID          string `json:"plan_id" validate:"required"`
	Title           string `json:"title" validate:"required,max=200"`
	Description     string `json:"description"`
	Author          string `json:"author"`
	SuggestionCount int    `json:"suggestion_count" validate:"gte=0"`
	DiffPreview     string `json:"diff_preview"`
}

// UpdateProposalRequest represents a status change and/or review comment
type UpdateProposalRequest struct {
	Status   string `json:"status" validate:"omitempty,oneof=pending approved rejected"`
	Reviewer string `json:"reviewer"`
	Comment  string `json:"comment"`
}

// ProposalHandler handles refactor proposal requests
type ProposalHandler struct {
	proposals repositories.ProposalRepository
	logger    *zap.Logger
}

// NewProposalHandler creates a new ProposalHandler
func NewProposalHandler(proposals repositories.ProposalRepository, logger *zap.Logger) *ProposalHandler {
	return &ProposalHandler{
		proposals: proposals,
		logger:    logger,
	}
}

// HandleCreateProposal handles POST /api/v1/proposals
func (h *ProposalHandler) HandleCreateProposal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req CreateProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), utils.GetValidationFields(err))
		return
	}

	proposal := models.NewProposal(req.GraphID, req.PlanID, req.Title)
	proposal.Description = req.Description
	proposal.Author = req.Author
	proposal.SuggestionCount = req.SuggestionCount
	proposal.DiffPreview = req.DiffPreview

	if err := h.proposals.Create(ctx, proposal); err != nil {
		h.logger.Error("failed to create proposal",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to create proposal")
		return
	}

	h.logger.Info("proposal created",
		zap.String("request_id", requestID),
		zap.String("proposal_id", proposal.ID),
		zap.String("graph_id", proposal.GraphID))

	_ = utils.WriteCreated(w, proposal)
}

// HandleListProposals handles GET /api/v1/proposals with an optional status
// filter.
func (h *ProposalHandler) HandleListProposals(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := models.ProposalStatus(r.URL.Query().Get("status"))
	proposals, err := h.proposals.List(ctx, status)
	if err != nil {
		h.logger.Error("failed to list proposals",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve proposals")
		return
	}
	if proposals == nil {
		proposals = []*models.Proposal{}
	}

	_ = utils.WriteOK(w, proposals)
}

// HandleGetProposal handles GET /api/v1/proposals/{id}
func (h *ProposalHandler) HandleGetProposal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	proposal, err := h.proposals.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			_ = utils.WriteNotFound(w, "Proposal not found")
			return
		}
		h.logger.Error("failed to get proposal",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("proposal_id", id),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve proposal")
		return
	}

	_ = utils.WriteOK(w, proposal)
}

// HandleUpdateProposal handles PATCH /api/v1/proposals/{id}. Status changes
// go through the proposal state machine; invalid transitions are a client
// error.
func (h *ProposalHandler) HandleUpdateProposal(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)
	id := chi.URLParam(r, "id")

	var req UpdateProposalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), utils.GetValidationFields(err))
		return
	}

	proposal, err := h.proposals.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			_ = utils.WriteNotFound(w, "Proposal not found")
			return
		}
		h.logger.Error("failed to get proposal",
			zap.String("request_id", requestID),
			zap.String("proposal_id", id),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve proposal")
		return
	}

	if req.Status != "" {
		if err := proposal.Transition(models.ProposalStatus(req.Status)); err != nil {
			_ = utils.WriteBadRequest(w, err.Error(), nil)
			return
		}
	}
	if req.Comment != "" {
		proposal.AddComment(req.Reviewer, req.Comment)
	}

	if err := h.proposals.Update(ctx, proposal); err != nil {
		h.logger.Error("failed to update proposal",
			zap.String("request_id", requestID),
			zap.String("proposal_id", id),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to update proposal")
		return
	}

	h.logger.Info("proposal updated",
		zap.String("request_id", requestID),
		zap.String("proposal_id", id),
		zap.String("status", string(proposal.Status)))

	_ = utils.WriteOK(w, proposal)
}

// isNotFound matches the repository's not-found errors
func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "not found")
}
