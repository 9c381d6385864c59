package webhooks

import (
	"encoding/json"

	"github.com/pipelineatlas/atlas-api/models"
)

type githubPayload struct {
	Ref        string `json:"ref"`
	Action     string `json:"action"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
	Sender struct {
		Login string `json:"login"`
	} `json:"sender"`
}

type gitlabPayload struct {
	ObjectKind string `json:"object_kind"`
	Ref        string `json:"ref"`
	UserName   string `json:"user_name"`
	Project    struct {
		PathWithNamespace string `json:"path_with_namespace"`
	} `json:"project"`
}

// ParseGitHubEvent builds a WebhookEvent from a GitHub delivery. The event
// type comes from the X-GitHub-Event header, not the body.
func ParseGitHubEvent(body []byte, eventType string) (*models.WebhookEvent, error) {
	var payload githubPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	if eventType == "" {
		eventType = "unknown"
	}

	event := models.NewWebhookEvent(models.PlatformGitHub, eventType)
	event.Repository = payload.Repository.FullName
	event.Ref = payload.Ref
	event.Sender = payload.Sender.Login
	event.Action = payload.Action
	return event, nil
}

// ParseGitLabEvent builds a WebhookEvent from a GitLab delivery. GitLab puts
// the event type in the body as object_kind.
func ParseGitLabEvent(body []byte) (*models.WebhookEvent, error) {
	var payload gitlabPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, err
	}
	eventType := payload.ObjectKind
	if eventType == "" {
		eventType = "unknown"
	}

	event := models.NewWebhookEvent(models.PlatformGitLab, eventType)
	event.Repository = payload.Project.PathWithNamespace
	event.Ref = payload.Ref
	event.Sender = payload.UserName
	return event, nil
}
