package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ProposalStatus represents the review state of a refactor proposal
type ProposalStatus string

const (
	ProposalDraft    ProposalStatus = "draft"
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// proposalTransitions lists the allowed status transitions. Approved and
// rejected are terminal.
var proposalTransitions = map[ProposalStatus][]ProposalStatus{
	ProposalDraft:   {ProposalPending},
	ProposalPending: {ProposalApproved, ProposalRejected},
}

// ProposalComment is a reviewer note attached to a proposal
type ProposalComment struct {
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Proposal represents a refactor proposal under review
type Proposal struct {
	ID              string            `json:"id" db:"id"`
	GraphID         string            `json:"graph_id" db:"graph_id"`
	PlanID          string            `json:"plan_id" db:"plan_id"`
	Title           string            `json:"title" db:"title"`
	Description     string            `json:"description" db:"description"`
	Author          string            `json:"author" db:"author"`
	Status          ProposalStatus    `json:"status" db:"status"`
	SuggestionCount int               `json:"suggestion_count" db:"suggestion_count"`
	DiffPreview     string            `json:"diff_preview" db:"diff_preview"`
	Comments        []ProposalComment `json:"comments"`
	CreatedAt       time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at" db:"updated_at"`
}

// TableName returns the table name for the Proposal model
func (Proposal) TableName() string {
	return "proposals"
}

// NewProposal creates a new Proposal in draft status
func NewProposal(graphID, planID, title string) *Proposal {
	now := time.Now().UTC()
	return &Proposal{
		ID:        uuid.NewString(),
		GraphID:   graphID,
		PlanID:    planID,
		Title:     title,
		Status:    ProposalDraft,
		Comments:  []ProposalComment{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Transition moves the proposal to the target status, rejecting moves the
// status machine does not allow.
func (p *Proposal) Transition(target ProposalStatus) error {
	for _, allowed := range proposalTransitions[p.Status] {
		if allowed == target {
			p.Status = target
			p.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("cannot transition from %q to %q", p.Status, target)
}

// AddComment appends a reviewer comment. Empty authors are attributed to the
// system.
func (p *Proposal) AddComment(author, text string) {
	if author == "" {
		author = "system"
	}
	p.Comments = append(p.Comments, ProposalComment{
		Author:    author,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	})
	p.UpdatedAt = time.Now().UTC()
}
