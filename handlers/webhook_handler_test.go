package handlers

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pipelineatlas/atlas-api/models"
	"github.com/pipelineatlas/atlas-api/webhooks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeEventRepo stores webhook events in memory
type fakeEventRepo struct {
	events  []*models.WebhookEvent
	failure error
}

func (r *fakeEventRepo) Insert(_ context.Context, event *models.WebhookEvent) error {
	if r.failure != nil {
		return r.failure
	}
	r.events = append(r.events, event)
	return nil
}

func (r *fakeEventRepo) ListRecent(_ context.Context, limit int) ([]*models.WebhookEvent, error) {
	if r.failure != nil {
		return nil, r.failure
	}
	if limit > len(r.events) {
		limit = len(r.events)
	}
	return r.events[:limit], nil
}

// fakePublisher records published stream entries
type fakePublisher struct {
	stream  string
	entries []map[string]interface{}
	failure error
}

func (p *fakePublisher) Publish(_ context.Context, stream string, values map[string]interface{}) error {
	if p.failure != nil {
		return p.failure
	}
	p.stream = stream
	p.entries = append(p.entries, values)
	return nil
}

func signGitHub(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newWebhookHandler(githubSecret, gitlabSecret string, repo *fakeEventRepo, pub *fakePublisher) *WebhookHandler {
	logger := zap.NewNop()
	verifier := webhooks.NewVerifier(githubSecret, gitlabSecret, logger)
	var publisher StreamPublisher
	if pub != nil {
		publisher = pub
	}
	return NewWebhookHandler(verifier, repo, publisher, "atlas.scan.requests", nil, logger)
}

func TestHandleGitHub(t *testing.T) {
	githubBody := []byte(`{
		"ref": "refs/heads/main",
		"repository": {"full_name": "acme/pipeline"},
		"sender": {"login": "octocat"}
	}`)

	t.Run("signed delivery is accepted and queues a scan", func(t *testing.T) {
		repo := &fakeEventRepo{}
		pub := &fakePublisher{}
		h := newWebhookHandler("s3cret", "", repo, pub)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/github", bytes.NewReader(githubBody))
		req.Header.Set("X-GitHub-Event", "push")
		req.Header.Set("X-Hub-Signature-256", signGitHub("s3cret", githubBody))
		req.Header.Set("X-Tenant-Id", "acme")
		w := httptest.NewRecorder()
		h.HandleGitHub(w, req)

		require.Equal(t, http.StatusAccepted, w.Code)

		var resp WebhookResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "accepted", resp.Status)
		assert.NotEmpty(t, resp.EventID)

		require.Len(t, repo.events, 1)
		assert.Equal(t, "acme/pipeline", repo.events[0].Repository)

		require.Len(t, pub.entries, 1)
		assert.Equal(t, "atlas.scan.requests", pub.stream)

		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(pub.entries[0]["payload"].(string)), &payload))
		assert.Equal(t, "acme", payload["tenant_id"])
		assert.Equal(t, "acme/pipeline", payload["repository"])
	})

	t.Run("bad signature is 401 and nothing is stored", func(t *testing.T) {
		repo := &fakeEventRepo{}
		pub := &fakePublisher{}
		h := newWebhookHandler("s3cret", "", repo, pub)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/github", bytes.NewReader(githubBody))
		req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
		w := httptest.NewRecorder()
		h.HandleGitHub(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, repo.events)
		assert.Empty(t, pub.entries)
	})

	t.Run("missing tenant header queues for the default tenant", func(t *testing.T) {
		repo := &fakeEventRepo{}
		pub := &fakePublisher{}
		h := newWebhookHandler("", "", repo, pub)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/github", bytes.NewReader(githubBody))
		req.Header.Set("X-GitHub-Event", "push")
		w := httptest.NewRecorder()
		h.HandleGitHub(w, req)

		require.Equal(t, http.StatusAccepted, w.Code)
		var payload map[string]interface{}
		require.NoError(t, json.Unmarshal([]byte(pub.entries[0]["payload"].(string)), &payload))
		assert.Equal(t, "default", payload["tenant_id"])
	})

	t.Run("invalid json is 400", func(t *testing.T) {
		h := newWebhookHandler("", "", &fakeEventRepo{}, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/github", bytes.NewReader([]byte(`{broken`)))
		w := httptest.NewRecorder()
		h.HandleGitHub(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("publish failure does not fail the delivery", func(t *testing.T) {
		repo := &fakeEventRepo{}
		pub := &fakePublisher{failure: assert.AnError}
		h := newWebhookHandler("", "", repo, pub)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/github", bytes.NewReader(githubBody))
		req.Header.Set("X-GitHub-Event", "push")
		w := httptest.NewRecorder()
		h.HandleGitHub(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		assert.Len(t, repo.events, 1)
	})
}

func TestHandleGitLab(t *testing.T) {
	gitlabBody := []byte(`{
		"object_kind": "push",
		"ref": "refs/heads/main",
		"user_name": "jdoe",
		"project": {"path_with_namespace": "acme/pipeline"}
	}`)

	t.Run("matching token is accepted", func(t *testing.T) {
		repo := &fakeEventRepo{}
		h := newWebhookHandler("", "gl-secret", repo, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gitlab", bytes.NewReader(gitlabBody))
		req.Header.Set("X-Gitlab-Token", "gl-secret")
		w := httptest.NewRecorder()
		h.HandleGitLab(w, req)

		assert.Equal(t, http.StatusAccepted, w.Code)
		require.Len(t, repo.events, 1)
		assert.Equal(t, models.PlatformGitLab, repo.events[0].Platform)
	})

	t.Run("wrong token is 401", func(t *testing.T) {
		repo := &fakeEventRepo{}
		h := newWebhookHandler("", "gl-secret", repo, nil)

		req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/gitlab", bytes.NewReader(gitlabBody))
		req.Header.Set("X-Gitlab-Token", "wrong")
		w := httptest.NewRecorder()
		h.HandleGitLab(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Empty(t, repo.events)
	})
}

func TestHandleListEvents(t *testing.T) {
	t.Run("returns stored events", func(t *testing.T) {
		repo := &fakeEventRepo{events: []*models.WebhookEvent{
			models.NewWebhookEvent(models.PlatformGitHub, "push"),
		}}
		h := newWebhookHandler("", "", repo, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/events?limit=10", nil)
		w := httptest.NewRecorder()
		h.HandleListEvents(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("non-numeric limit is 400", func(t *testing.T) {
		h := newWebhookHandler("", "", &fakeEventRepo{}, nil)

		req := httptest.NewRequest(http.MethodGet, "/api/v1/webhooks/events?limit=abc", nil)
		w := httptest.NewRecorder()
		h.HandleListEvents(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
