package webhooks

import (
	"testing"

	"github.com/pipelineatlas/atlas-api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGitHubEvent(t *testing.T) {
	t.Run("push event", func(t *testing.T) {
		body := []byte(`{
			"ref": "refs/heads/main",
			"repository": {"full_name": "acme/pipeline"},
			"sender": {"login": "octocat"}
		}`)

		event, err := ParseGitHubEvent(body, "push")
		require.NoError(t, err)
		assert.Equal(t, models.PlatformGitHub, event.Platform)
		assert.Equal(t, "push", event.EventType)
		assert.Equal(t, "acme/pipeline", event.Repository)
		assert.Equal(t, "refs/heads/main", event.Ref)
		assert.Equal(t, "octocat", event.Sender)
		assert.NotEmpty(t, event.ID)
		assert.False(t, event.ReceivedAt.IsZero())
	})

	t.Run("pull request carries action", func(t *testing.T) {
		body := []byte(`{"action": "opened", "repository": {"full_name": "acme/pipeline"}}`)

		event, err := ParseGitHubEvent(body, "pull_request")
		require.NoError(t, err)
		assert.Equal(t, "opened", event.Action)
	})

	t.Run("missing event header becomes unknown", func(t *testing.T) {
		event, err := ParseGitHubEvent([]byte(`{}`), "")
		require.NoError(t, err)
		assert.Equal(t, "unknown", event.EventType)
	})

	t.Run("invalid json errors", func(t *testing.T) {
		_, err := ParseGitHubEvent([]byte(`not json`), "push")
		assert.Error(t, err)
	})
}

func TestParseGitLabEvent(t *testing.T) {
	t.Run("push event from object_kind", func(t *testing.T) {
		body := []byte(`{
			"object_kind": "push",
			"ref": "refs/heads/develop",
			"user_name": "jdoe",
			"project": {"path_with_namespace": "acme/pipeline"}
		}`)

		event, err := ParseGitLabEvent(body)
		require.NoError(t, err)
		assert.Equal(t, models.PlatformGitLab, event.Platform)
		assert.Equal(t, "push", event.EventType)
		assert.Equal(t, "acme/pipeline", event.Repository)
		assert.Equal(t, "refs/heads/develop", event.Ref)
		assert.Equal(t, "jdoe", event.Sender)
	})

	t.Run("missing object_kind becomes unknown", func(t *testing.T) {
		event, err := ParseGitLabEvent([]byte(`{}`))
		require.NoError(t, err)
		assert.Equal(t, "unknown", event.EventType)
	})

	t.Run("invalid json errors", func(t *testing.T) {
		_, err := ParseGitLabEvent([]byte(`{`))
		assert.Error(t, err)
	})
}
