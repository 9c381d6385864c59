package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pipelineatlas/atlas-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeSnapshotRepo stores snapshots in memory, keyed by graph name
type fakeSnapshotRepo struct {
	byGraph map[string][]*models.Snapshot
	failure error
}

func newFakeSnapshotRepo() *fakeSnapshotRepo {
	return &fakeSnapshotRepo{byGraph: make(map[string][]*models.Snapshot)}
}

func (r *fakeSnapshotRepo) Insert(_ context.Context, snapshot *models.Snapshot) error {
	if r.failure != nil {
		return r.failure
	}
	r.byGraph[snapshot.GraphName] = append(r.byGraph[snapshot.GraphName], snapshot)
	return nil
}

func (r *fakeSnapshotRepo) ListByGraph(_ context.Context, graphName string) ([]*models.Snapshot, error) {
	if r.failure != nil {
		return nil, r.failure
	}
	return r.byGraph[graphName], nil
}

func snapshotAt(graph string, complexity, fragility, maturity float64, at time.Time) *models.Snapshot {
	s := models.NewSnapshot(graph)
	s.ComplexityScore = complexity
	s.FragilityScore = fragility
	s.MaturityScore = maturity
	s.ScannedAt = at
	return s
}

func TestComputeTrends(t *testing.T) {
	now := time.Now().UTC()

	t.Run("single snapshot yields no trends", func(t *testing.T) {
		trends := ComputeTrends([]*models.Snapshot{snapshotAt("g", 50, 30, 60, now)})
		assert.Empty(t, trends)
	})

	t.Run("complexity drop is an improvement", func(t *testing.T) {
		trends := ComputeTrends([]*models.Snapshot{
			snapshotAt("g", 60, 30, 50, now.Add(-time.Hour)),
			snapshotAt("g", 52.5, 30, 50, now),
		})
		require.Len(t, trends, 3)

		assert.Equal(t, "complexity", trends[0].Metric)
		assert.Equal(t, -7.5, trends[0].Delta)
		assert.Equal(t, models.TrendImproved, trends[0].Direction)

		assert.Equal(t, "fragility", trends[1].Metric)
		assert.Equal(t, models.TrendStable, trends[1].Direction)
	})

	t.Run("maturity rise is an improvement", func(t *testing.T) {
		trends := ComputeTrends([]*models.Snapshot{
			snapshotAt("g", 50, 30, 40, now.Add(-time.Hour)),
			snapshotAt("g", 55, 35, 48, now),
		})
		require.Len(t, trends, 3)

		assert.Equal(t, models.TrendRegressed, trends[0].Direction)
		assert.Equal(t, models.TrendRegressed, trends[1].Direction)
		assert.Equal(t, "maturity", trends[2].Metric)
		assert.Equal(t, models.TrendImproved, trends[2].Direction)
	})

	t.Run("only the last two snapshots count", func(t *testing.T) {
		trends := ComputeTrends([]*models.Snapshot{
			snapshotAt("g", 90, 0, 0, now.Add(-2*time.Hour)),
			snapshotAt("g", 50, 0, 0, now.Add(-time.Hour)),
			snapshotAt("g", 50, 0, 0, now),
		})
		assert.Equal(t, models.TrendStable, trends[0].Direction)
	})
}

func newTrendRouter(repo *fakeSnapshotRepo) http.Handler {
	h := NewTrendHandler(repo, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/snapshots", h.HandleCreateSnapshot)
	r.Get("/trends/{graphName}", h.HandleGetTrends)
	return r
}

func TestHandleCreateSnapshot(t *testing.T) {
	t.Run("valid request stores and returns 201", func(t *testing.T) {
		repo := newFakeSnapshotRepo()
		router := newTrendRouter(repo)

		body, _ := json.Marshal(CreateSnapshotRequest{
			GraphName:       "ci-main",
			ComplexityScore: 61.2,
			MaturityScore:   44,
		})
		req := httptest.NewRequest(http.MethodPost, "/snapshots", bytes.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		require.Len(t, repo.byGraph["ci-main"], 1)
		assert.Equal(t, 61.2, repo.byGraph["ci-main"][0].ComplexityScore)
	})

	t.Run("missing graph name is 400", func(t *testing.T) {
		router := newTrendRouter(newFakeSnapshotRepo())

		req := httptest.NewRequest(http.MethodPost, "/snapshots", bytes.NewReader([]byte(`{}`)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestHandleGetTrends(t *testing.T) {
	t.Run("unknown graph is 404", func(t *testing.T) {
		router := newTrendRouter(newFakeSnapshotRepo())

		req := httptest.NewRequest(http.MethodGet, "/trends/ghost", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("returns snapshots and trends", func(t *testing.T) {
		now := time.Now().UTC()
		repo := newFakeSnapshotRepo()
		repo.byGraph["ci-main"] = []*models.Snapshot{
			snapshotAt("ci-main", 60, 20, 40, now.Add(-time.Hour)),
			snapshotAt("ci-main", 50, 20, 45, now),
		}
		router := newTrendRouter(repo)

		req := httptest.NewRequest(http.MethodGet, "/trends/ci-main", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data TrendsResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, 2, resp.Data.TotalSnapshots)
		require.Len(t, resp.Data.Trends, 3)
		assert.Equal(t, models.TrendImproved, resp.Data.Trends[0].Direction)
	})
}
