package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/pipelineatlas/atlas-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeProposalRepo stores proposals in memory
type fakeProposalRepo struct {
	proposals map[string]*models.Proposal
}

func newFakeProposalRepo() *fakeProposalRepo {
	return &fakeProposalRepo{proposals: make(map[string]*models.Proposal)}
}

func (r *fakeProposalRepo) Create(_ context.Context, p *models.Proposal) error {
	r.proposals[p.ID] = p
	return nil
}

func (r *fakeProposalRepo) GetByID(_ context.Context, id string) (*models.Proposal, error) {
	p, ok := r.proposals[id]
	if !ok {
		return nil, fmt.Errorf("proposal not found: %s", id)
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProposalRepo) List(_ context.Context, status models.ProposalStatus) ([]*models.Proposal, error) {
	var out []*models.Proposal
	for _, p := range r.proposals {
		if status == "" || p.Status == status {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeProposalRepo) Update(_ context.Context, p *models.Proposal) error {
	if _, ok := r.proposals[p.ID]; !ok {
		return fmt.Errorf("proposal not found: %s", p.ID)
	}
	r.proposals[p.ID] = p
	return nil
}

func newProposalRouter(repo *fakeProposalRepo) http.Handler {
	h := NewProposalHandler(repo, zap.NewNop())
	r := chi.NewRouter()
	r.Post("/proposals", h.HandleCreateProposal)
	r.Get("/proposals", h.HandleListProposals)
	r.Get("/proposals/{id}", h.HandleGetProposal)
	r.Patch("/proposals/{id}", h.HandleUpdateProposal)
	return r
}

func createProposal(t *testing.T, router http.Handler) string {
	t.Helper()
	body, _ := json.Marshal(CreateProposalRequest{
		GraphID: "g1",
		PlanID:  "plan1",
		Title:   "merge duplicate stages",
	})
	req := httptest.NewRequest(http.MethodPost, "/proposals", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp struct {
		Data models.Proposal `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data.ID
}

func patchProposal(router http.Handler, id string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPatch, "/proposals/"+id, bytes.NewReader([]byte(body)))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProposalLifecycle(t *testing.T) {
	repo := newFakeProposalRepo()
	router := newProposalRouter(repo)

	id := createProposal(t, router)
	assert.Equal(t, models.ProposalDraft, repo.proposals[id].Status)

	t.Run("draft cannot be approved directly", func(t *testing.T) {
		w := patchProposal(router, id, `{"status": "approved"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, models.ProposalDraft, repo.proposals[id].Status)
	})

	t.Run("draft to pending", func(t *testing.T) {
		w := patchProposal(router, id, `{"status": "pending"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, models.ProposalPending, repo.proposals[id].Status)
	})

	t.Run("approve with a review comment", func(t *testing.T) {
		w := patchProposal(router, id, `{"status": "approved", "reviewer": "alex", "comment": "ship it"}`)
		require.Equal(t, http.StatusOK, w.Code)

		stored := repo.proposals[id]
		assert.Equal(t, models.ProposalApproved, stored.Status)
		require.Len(t, stored.Comments, 1)
		assert.Equal(t, "alex", stored.Comments[0].Author)
	})

	t.Run("approved is terminal", func(t *testing.T) {
		w := patchProposal(router, id, `{"status": "rejected"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestProposalEndpoints(t *testing.T) {
	t.Run("get unknown proposal is 404", func(t *testing.T) {
		router := newProposalRouter(newFakeProposalRepo())
		req := httptest.NewRequest(http.MethodGet, "/proposals/ghost", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("patch unknown proposal is 404", func(t *testing.T) {
		router := newProposalRouter(newFakeProposalRepo())
		w := patchProposal(router, "ghost", `{"status": "pending"}`)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("create without required fields is 400", func(t *testing.T) {
		router := newProposalRouter(newFakeProposalRepo())
		req := httptest.NewRequest(http.MethodPost, "/proposals", bytes.NewReader([]byte(`{"title": "x"}`)))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("invalid status value is 400", func(t *testing.T) {
		repo := newFakeProposalRepo()
		router := newProposalRouter(repo)
		id := createProposal(t, router)

		w := patchProposal(router, id, `{"status": "draft"}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("list filters by status", func(t *testing.T) {
		repo := newFakeProposalRepo()
		router := newProposalRouter(repo)
		id := createProposal(t, router)
		createProposal(t, router)
		patchProposal(router, id, `{"status": "pending"}`)

		req := httptest.NewRequest(http.MethodGet, "/proposals?status=pending", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data []*models.Proposal `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data, 1)
		assert.Equal(t, id, resp.Data[0].ID)
	})
}
