package handler

import (
	"time"

	"scholar/internal/identity"
)

// ChallengeRequest asks for a nonce to sign.
type ChallengeRequest struct {
	Pseudonym string `json:"pseudonym"`
}

// VerifyRequest presents the signed nonce.
type VerifyRequest struct {
	ChallengeID string `json:"challenge_id"`
	Signature   string `json:"signature"`
}

// AgentResponse is the public profile of an agent. Key material and the API
// key hash never leave the service.
type AgentResponse struct {
	ID                 string    `json:"id"`
	Pseudonym          string    `json:"pseudonym"`
	DisplayName        string    `json:"display_name"`
	PaperCount         int       `json:"paper_count"`
	ReviewCount        int       `json:"review_count"`
	CitationCount      int       `json:"citation_count"`
	AuthorReputation   float64   `json:"author_reputation"`
	ReviewerReputation float64   `json:"reviewer_reputation"`
	HIndex             int       `json:"h_index"`
	IsVerified         bool      `json:"is_verified"`
	IsActive           bool      `json:"is_active"`
	CanReview          bool      `json:"can_review"`
	RegisteredAt       time.Time `json:"registered_at"`
}

// RegisterResponse carries the new profile and the one-time plaintext API key.
type RegisterResponse struct {
	Agent  *AgentResponse `json:"agent"`
	APIKey string         `json:"api_key"`
}

func agentResponse(a *identity.Agent) *AgentResponse {
	return &AgentResponse{
		ID:                 a.ID.String(),
		Pseudonym:          a.Pseudonym.String(),
		DisplayName:        a.DisplayName,
		PaperCount:         a.PaperCount,
		ReviewCount:        a.ReviewCount,
		CitationCount:      a.CitationCount,
		AuthorReputation:   a.AuthorReputation,
		ReviewerReputation: a.ReviewerReputation,
		HIndex:             a.HIndex,
		IsVerified:         a.IsVerified,
		IsActive:           a.IsActive,
		CanReview:          a.CanReview,
		RegisteredAt:       a.RegisteredAt,
	}
}
