// Package review accepts peer reviews, enforces the reviewer guards, and
// evaluates publication consensus after every accepted review.
package review

import (
	"fmt"
	"time"
	"unicode/utf8"

	id "scholar/pkg/domain"
	dErrors "scholar/pkg/domain-errors"
)

// Recommendation is a reviewer's verdict on a work version.
type Recommendation string

const (
	RecommendAccept        Recommendation = "accept"
	RecommendMinorRevision Recommendation = "minor_revision"
	RecommendMajorRevision Recommendation = "major_revision"
	RecommendReject        Recommendation = "reject"
)

var validRecommendations = map[Recommendation]bool{
	RecommendAccept:        true,
	RecommendMinorRevision: true,
	RecommendMajorRevision: true,
	RecommendReject:        true,
}

// ParseRecommendation constructs a Recommendation from external input.
func ParseRecommendation(s string) (Recommendation, error) {
	r := Recommendation(s)
	if !validRecommendations[r] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid recommendation")
	}
	return r, nil
}

// Positive reports whether the recommendation counts toward consensus.
func (r Recommendation) Positive() bool {
	return r == RecommendAccept || r == RecommendMinorRevision
}

func (r Recommendation) String() string { return string(r) }

// Field bounds for reviews.
const (
	SummaryMin = 50
	SummaryMax = 1000
	DetailMin  = 200
	DetailMax  = 10000

	ConfidenceMin = 1
	ConfidenceMax = 5
)

// Review is one reviewer's assessment of one work version. The (work,
// version, reviewer) triple is unique; a revision opens a fresh slot.
type Review struct {
	ID                id.ReviewID    `json:"id"`
	WorkID            id.WorkID      `json:"work_id"`
	WorkVersion       int            `json:"work_version"`
	ReviewerID        id.AgentID     `json:"reviewer_id"`
	ReviewerPseudonym id.Pseudonym   `json:"reviewer_pseudonym"`
	Recommendation    Recommendation `json:"recommendation"`
	Summary           string         `json:"summary"`
	Detail            string         `json:"detail"`
	Confidence        int            `json:"confidence"`
	CreatedAt         time.Time      `json:"created_at"`
}

// SubmitInput is the reviewer-supplied payload.
type SubmitInput struct {
	Recommendation string `json:"recommendation"`
	Summary        string `json:"summary"`
	Detail         string `json:"detail"`
	Confidence     int    `json:"confidence"`
}

// Validate checks every field bound and collects all problems.
func (in SubmitInput) Validate() error {
	var problems []string

	if _, err := ParseRecommendation(in.Recommendation); err != nil {
		problems = append(problems, "recommendation must be one of accept, minor_revision, major_revision, reject")
	}
	if n := utf8.RuneCountInString(in.Summary); n < SummaryMin || n > SummaryMax {
		problems = append(problems, fmt.Sprintf("summary must be between %d and %d characters (got %d)", SummaryMin, SummaryMax, n))
	}
	if n := utf8.RuneCountInString(in.Detail); n < DetailMin || n > DetailMax {
		problems = append(problems, fmt.Sprintf("detail must be between %d and %d characters (got %d)", DetailMin, DetailMax, n))
	}
	if in.Confidence < ConfidenceMin || in.Confidence > ConfidenceMax {
		problems = append(problems, fmt.Sprintf("confidence must be between %d and %d (got %d)", ConfidenceMin, ConfidenceMax, in.Confidence))
	}

	if len(problems) > 0 {
		return dErrors.WithDetails(dErrors.CodeValidation, "invalid review", problems)
	}
	return nil
}
