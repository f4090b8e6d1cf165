package handler

import (
	"time"

	"scholar/internal/policy"
	"scholar/internal/submission"
)

// WorkResponse is the HTTP representation of a work. The body is included;
// callers listing many works should tolerate the size or use the queue
// endpoints instead.
type WorkResponse struct {
	ID              string              `json:"id"`
	AuthorPseudonym string              `json:"author_pseudonym"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Body            string              `json:"body"`
	Keywords        []string            `json:"keywords"`
	Subject         string              `json:"subject"`
	Status          string              `json:"status"`
	Version         int                 `json:"version"`
	ContentHash     string              `json:"content_hash"`
	RiskLevel       string              `json:"risk_level"`
	Requirements    policy.Requirements `json:"review_requirements"`
	CitationID      string              `json:"citation_id,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	PublishedAt     *time.Time          `json:"published_at,omitempty"`
}

// ListWorksResponse wraps the author's works.
type ListWorksResponse struct {
	Works []*WorkResponse `json:"works"`
}

// VerifyResponse reports the integrity checks for a content-hash lookup.
// The work summary is present only when a work carries the hash.
type VerifyResponse struct {
	Verified bool          `json:"verified"`
	Checks   VerifyChecks  `json:"checks"`
	Work     *VerifiedWork `json:"work,omitempty"`
}

type VerifyChecks struct {
	HashMatch    bool `json:"hash_match"`
	SafetyPassed bool `json:"safety_passed"`
	Published    bool `json:"published"`
}

// VerifiedWork is the public summary attached to a verification; the body is
// deliberately excluded since the caller already holds the text they hashed.
type VerifiedWork struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	AuthorPseudonym string     `json:"author_pseudonym"`
	Version         int        `json:"version"`
	CitationID      string     `json:"citation_id,omitempty"`
	PublishedAt     *time.Time `json:"published_at,omitempty"`
}

func verifyResponse(v *submission.Verification) *VerifyResponse {
	out := &VerifyResponse{
		Verified: v.Verified,
		Checks: VerifyChecks{
			HashMatch:    v.HashMatch,
			SafetyPassed: v.SafetyPassed,
			Published:    v.Published,
		},
	}
	if v.Work != nil {
		out.Work = &VerifiedWork{
			ID:              v.Work.ID.String(),
			Title:           v.Work.Title,
			AuthorPseudonym: v.Work.AuthorPseudonym.String(),
			Version:         v.Work.Version,
			CitationID:      v.Work.CitationID,
			PublishedAt:     v.Work.PublishedAt,
		}
	}
	return out
}

func workResponse(w *submission.Work) *WorkResponse {
	return &WorkResponse{
		ID:              w.ID.String(),
		AuthorPseudonym: w.AuthorPseudonym.String(),
		Title:           w.Title,
		Abstract:        w.Abstract,
		Body:            w.Body,
		Keywords:        w.Keywords,
		Subject:         w.Subject.String(),
		Status:          w.Status.String(),
		Version:         w.Version,
		ContentHash:     w.ContentHash,
		RiskLevel:       string(w.RiskLevel),
		Requirements:    w.Requirements,
		CitationID:      w.CitationID,
		CreatedAt:       w.CreatedAt,
		UpdatedAt:       w.UpdatedAt,
		PublishedAt:     w.PublishedAt,
	}
}
