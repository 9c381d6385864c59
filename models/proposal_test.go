package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProposalTransitions(t *testing.T) {
	t.Run("draft to pending to approved", func(t *testing.T) {
		p := NewProposal("g1", "plan1", "extract shared stage")
		assert.Equal(t, ProposalDraft, p.Status)

		require.NoError(t, p.Transition(ProposalPending))
		require.NoError(t, p.Transition(ProposalApproved))
		assert.Equal(t, ProposalApproved, p.Status)
	})

	t.Run("draft cannot be approved directly", func(t *testing.T) {
		p := NewProposal("g1", "plan1", "title")
		assert.Error(t, p.Transition(ProposalApproved))
		assert.Equal(t, ProposalDraft, p.Status)
	})

	t.Run("terminal states allow no moves", func(t *testing.T) {
		p := NewProposal("g1", "plan1", "title")
		require.NoError(t, p.Transition(ProposalPending))
		require.NoError(t, p.Transition(ProposalRejected))

		assert.Error(t, p.Transition(ProposalPending))
		assert.Error(t, p.Transition(ProposalApproved))
	})

	t.Run("cannot move back to draft", func(t *testing.T) {
		p := NewProposal("g1", "plan1", "title")
		require.NoError(t, p.Transition(ProposalPending))
		assert.Error(t, p.Transition(ProposalDraft))
	})
}

func TestProposalAddComment(t *testing.T) {
	p := NewProposal("g1", "plan1", "title")

	p.AddComment("reviewer", "looks good")
	p.AddComment("", "auto-check passed")

	require.Len(t, p.Comments, 2)
	assert.Equal(t, "reviewer", p.Comments[0].Author)
	assert.Equal(t, "system", p.Comments[1].Author)
}
