package main

import (
	"context"

	"scholar/internal/identity"
	"scholar/internal/review"
	id "scholar/pkg/domain"
)

// agentDirectory adapts the identity store to the review service's
// ReviewerDirectory port. It reads the store directly so sentinel errors
// pass through untranslated.
type agentDirectory struct {
	agents identity.Store
}

func (d agentDirectory) Lookup(ctx context.Context, agentID id.AgentID) (review.ReviewerInfo, error) {
	agent, err := d.agents.FindByID(ctx, agentID)
	if err != nil {
		return review.ReviewerInfo{}, err
	}
	return review.ReviewerInfo{
		Pseudonym: agent.Pseudonym,
		Active:    agent.IsActive,
		CanReview: agent.CanReview,
	}, nil
}
