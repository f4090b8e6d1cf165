// Package submission owns the lifecycle of a work: intake validation, safety
// scanning, the status state machine, and revisions. Review acceptance and
// consensus evaluation live in the review package and drive transitions
// through the store's atomic Execute operation.
package submission

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"scholar/internal/policy"
	"scholar/internal/safety"
	id "scholar/pkg/domain"
	dErrors "scholar/pkg/domain-errors"
)

// Status is the lifecycle state of a work.
type Status string

const (
	StatusDraft             Status = "draft"
	StatusSubmitted         Status = "submitted"
	StatusUnderReview       Status = "under_review"
	StatusRevisionRequested Status = "revision_requested"
	StatusPublished         Status = "published"
	StatusRejected          Status = "rejected"
)

var validStatuses = map[Status]bool{
	StatusDraft:             true,
	StatusSubmitted:         true,
	StatusUnderReview:       true,
	StatusRevisionRequested: true,
	StatusPublished:         true,
	StatusRejected:          true,
}

// ParseStatus constructs a Status from external input.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if !validStatuses[st] {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid work status")
	}
	return st, nil
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == StatusPublished || s == StatusRejected
}

func (s Status) String() string { return string(s) }

// Work is a submitted piece of scholarship.
//
// Invariants: CitationID is non-empty iff the work has reached published;
// Version starts at 1 and increases by exactly 1 per accepted revision;
// Requirements are frozen at submission time.
type Work struct {
	ID              id.WorkID           `json:"id"`
	AuthorID        id.AgentID          `json:"author_id"`
	AuthorPseudonym id.Pseudonym        `json:"author_pseudonym"`
	Title           string              `json:"title"`
	Abstract        string              `json:"abstract"`
	Body            string              `json:"body"`
	Keywords        []string            `json:"keywords"`
	Subject         id.SubjectDomain    `json:"subject"`
	Status          Status              `json:"status"`
	Version         int                 `json:"version"`
	ContentHash     string              `json:"content_hash"`
	RiskLevel       safety.RiskLevel    `json:"risk_level"`
	PIIScanned      bool                `json:"pii_scanned"`
	SecretsScanned  bool                `json:"secrets_scanned"`
	Requirements    policy.Requirements `json:"requirements"`
	CitationID      string              `json:"citation_id,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
	UpdatedAt       time.Time           `json:"updated_at"`
	PublishedAt     *time.Time          `json:"published_at,omitempty"`
}

// ContentHash computes the canonical hash over title, abstract and body.
// Recomputed on every revision so reviews can be tied to an exact version of
// the text.
func ContentHash(title, abstract, body string) string {
	sum := sha256.Sum256([]byte(title + abstract + body))
	return hex.EncodeToString(sum[:])
}

// ValidContentHash reports whether s has the shape of a canonical content
// hash (64 lowercase hex characters).
func ValidContentHash(s string) bool {
	if len(s) != sha256.Size*2 {
		return false
	}
	for _, c := range s {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

// Verification is the integrity report for a content-hash lookup. Third
// parties use it to check that a text they hold matches a published work.
type Verification struct {
	Verified     bool  `json:"verified"`
	HashMatch    bool  `json:"hash_match"`
	SafetyPassed bool  `json:"safety_passed"`
	Published    bool  `json:"published"`
	Work         *Work `json:"-"`
}

// ScanFields returns every text surface of the work in the order the
// classifier should report them.
func ScanFields(title, abstract, body string, keywords []string) []safety.Field {
	fields := []safety.Field{
		{Name: "title", Text: title},
		{Name: "abstract", Text: abstract},
		{Name: "body", Text: body},
	}
	for _, kw := range keywords {
		fields = append(fields, safety.Field{Name: "keywords", Text: kw})
	}
	return fields
}
