package models

import (
	"time"

	"github.com/google/uuid"
)

// WebhookPlatform identifies the CI platform that delivered an event
type WebhookPlatform string

const (
	PlatformGitHub WebhookPlatform = "github"
	PlatformGitLab WebhookPlatform = "gitlab"
)

// WebhookEvent represents a verified webhook delivery from a CI platform.
// Events are append-only; retention is an external concern.
type WebhookEvent struct {
	ID         string          `json:"id" db:"id"`
	Platform   WebhookPlatform `json:"platform" db:"platform"`
	EventType  string          `json:"event_type" db:"event_type"`
	Repository string          `json:"repository" db:"repository"`
	Ref        string          `json:"ref" db:"ref"`
	Sender     string          `json:"sender" db:"sender"`
	Action     string          `json:"action" db:"action"`
	ReceivedAt time.Time       `json:"received_at" db:"received_at"`
}

// TableName returns the table name for the WebhookEvent model
func (WebhookEvent) TableName() string {
	return "webhook_events"
}

// NewWebhookEvent creates a new WebhookEvent instance
func NewWebhookEvent(platform WebhookPlatform, eventType string) *WebhookEvent {
	return &WebhookEvent{
		ID:         uuid.NewString(),
		Platform:   platform,
		EventType:  eventType,
		ReceivedAt: time.Now().UTC(),
	}
}
