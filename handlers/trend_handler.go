package handlers

import (
	"encoding/json"
	"math"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/pipelineatlas/atlas-api/middleware"
	"github.com/pipelineatlas/atlas-api/models"
	"github.com/pipelineatlas/atlas-api/repositories"
	"github.com/pipelineatlas/atlas-api/utils"
	"go.uber.org/zap"
)

// CreateSnapshotRequest represents a request to record a scan snapshot
type CreateSnapshotRequest struct {
	GraphName       string  `json:"graph_name" validate:"required"`
	GraphID         string  `json:"graph_id"`
	ComplexityScore float64 `json:"complexity_score" validate:"gte=0"`
	FragilityScore  float64 `json:"fragility_score" validate:"gte=0"`
	MaturityScore   float64 `json:"maturity_score" validate:"gte=0"`
	FindingCount    int     `json:"finding_count" validate:"gte=0"`
	NodeCount       int     `json:"node_count" validate:"gte=0"`
	EdgeCount       int     `json:"edge_count" validate:"gte=0"`
}

// TrendsResponse is the body of GET /api/v1/trends/{graphName}
type TrendsResponse struct {
	GraphName      string             `json:"graph_name"`
	TotalSnapshots int                `json:"total_snapshots"`
	Snapshots      []*models.Snapshot `json:"snapshots"`
	Trends         []models.Trend     `json:"trends"`
}

// TrendHandler records scan snapshots and reports score movement over time
type TrendHandler struct {
	snapshots repositories.SnapshotRepository
	logger    *zap.Logger
}

// NewTrendHandler creates a new TrendHandler
func NewTrendHandler(snapshots repositories.SnapshotRepository, logger *zap.Logger) *TrendHandler {
	return &TrendHandler{
		snapshots: snapshots,
		logger:    logger,
	}
}

// HandleCreateSnapshot handles POST /api/v1/snapshots
func (h *TrendHandler) HandleCreateSnapshot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestIDFromContext(ctx)

	var req CreateSnapshotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = utils.WriteBadRequest(w, "Invalid JSON body", nil)
		return
	}
	if err := utils.ValidateStruct(req); err != nil {
		_ = utils.WriteBadRequest(w, err.Error(), utils.GetValidationFields(err))
		return
	}

	snapshot := models.NewSnapshot(req.GraphName)
	snapshot.GraphID = req.GraphID
	snapshot.ComplexityScore = req.ComplexityScore
	snapshot.FragilityScore = req.FragilityScore
	snapshot.MaturityScore = req.MaturityScore
	snapshot.FindingCount = req.FindingCount
	snapshot.NodeCount = req.NodeCount
	snapshot.EdgeCount = req.EdgeCount

	if err := h.snapshots.Insert(ctx, snapshot); err != nil {
		h.logger.Error("failed to store snapshot",
			zap.String("request_id", requestID),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to store snapshot")
		return
	}

	_ = utils.WriteCreated(w, snapshot)
}

// HandleGetTrends handles GET /api/v1/trends/{graphName}. Trends compare the
// two most recent snapshots; fewer than two snapshots yields an empty trend
// list.
func (h *TrendHandler) HandleGetTrends(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	graphName := chi.URLParam(r, "graphName")

	snapshots, err := h.snapshots.ListByGraph(ctx, graphName)
	if err != nil {
		h.logger.Error("failed to list snapshots",
			zap.String("request_id", middleware.GetRequestIDFromContext(ctx)),
			zap.String("graph_name", graphName),
			zap.Error(err))
		_ = utils.WriteInternalServerError(w, "Failed to retrieve snapshots")
		return
	}
	if len(snapshots) == 0 {
		_ = utils.WriteNotFound(w, "No snapshots for graph")
		return
	}

	_ = utils.WriteOK(w, TrendsResponse{
		GraphName:      graphName,
		TotalSnapshots: len(snapshots),
		Snapshots:      snapshots,
		Trends:         ComputeTrends(snapshots),
	})
}

// ComputeTrends derives per-metric movement from the last two snapshots.
// Maturity improves when it rises; complexity and fragility improve when
// they fall.
func ComputeTrends(snapshots []*models.Snapshot) []models.Trend {
	if len(snapshots) < 2 {
		return []models.Trend{}
	}
	prev := snapshots[len(snapshots)-2]
	curr := snapshots[len(snapshots)-1]

	metrics := []struct {
		name         string
		prev, curr   float64
		higherBetter bool
	}{
		{"complexity", prev.ComplexityScore, curr.ComplexityScore, false},
		{"fragility", prev.FragilityScore, curr.FragilityScore, false},
		{"maturity", prev.MaturityScore, curr.MaturityScore, true},
	}

	trends := make([]models.Trend, 0, len(metrics))
	for _, m := range metrics {
		delta := math.Round((m.curr-m.prev)*10) / 10
		trends = append(trends, models.Trend{
			Metric:    m.name,
			Previous:  m.prev,
			Current:   m.curr,
			Delta:     delta,
			Direction: trendDirection(delta, m.higherBetter),
		})
	}
	return trends
}

func trendDirection(delta float64, higherBetter bool) models.TrendDirection {
	if delta == 0 {
		return models.TrendStable
	}
	if (delta > 0) == higherBetter {
		return models.TrendImproved
	}
	return models.TrendRegressed
}
