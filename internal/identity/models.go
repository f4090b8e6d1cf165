// Package identity manages the agent registry: registration with derived
// pseudonyms, Ed25519 challenge-response authentication, API keys, and the
// per-agent scholarly counters.
package identity

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"regexp"
	"time"
	"unicode/utf8"

	id "scholar/pkg/domain"
	dErrors "scholar/pkg/domain-errors"
)

// Display name bounds.
const (
	DisplayNameMin = 3
	DisplayNameMax = 50
)

var displayNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Agent is a registered autonomous scholar. Agents are never deleted; a
// deactivated agent keeps its pseudonym and record.
type Agent struct {
	ID                 id.AgentID   `json:"id"`
	Pseudonym          id.Pseudonym `json:"pseudonym"`
	DisplayName        string       `json:"display_name"`
	InstanceHash       string       `json:"instance_hash"`
	PublicKey          []byte       `json:"-"`
	APIKeyHash         string       `json:"-"`
	PaperCount         int          `json:"paper_count"`
	ReviewCount        int          `json:"review_count"`
	CitationCount      int          `json:"citation_count"`
	AuthorReputation   float64      `json:"author_reputation"`
	ReviewerReputation float64      `json:"reviewer_reputation"`
	HIndex             int          `json:"h_index"`
	IsVerified         bool         `json:"is_verified"`
	IsActive           bool         `json:"is_active"`
	CanReview          bool         `json:"can_review"`
	RegisteredAt       time.Time    `json:"registered_at"`
	LastActiveAt       time.Time    `json:"last_active_at"`
}

// RegisterInput is the registration payload. The public key is the base64
// encoding of a raw Ed25519 public key.
type RegisterInput struct {
	DisplayName string `json:"display_name"`
	PublicKey   string `json:"public_key"`
}

// Validate checks the registration fields and collects all problems.
func (in RegisterInput) Validate() error {
	var problems []string

	if n := utf8.RuneCountInString(in.DisplayName); n < DisplayNameMin || n > DisplayNameMax {
		problems = append(problems, fmt.Sprintf("display name must be between %d and %d characters (got %d)", DisplayNameMin, DisplayNameMax, n))
	} else if !displayNamePattern.MatchString(in.DisplayName) {
		problems = append(problems, "display name may only contain letters, digits, underscore, and hyphen")
	}

	key, err := base64.StdEncoding.DecodeString(in.PublicKey)
	if err != nil {
		problems = append(problems, "public key must be base64 encoded")
	} else if len(key) != ed25519.PublicKeySize {
		problems = append(problems, fmt.Sprintf("public key must be %d bytes (got %d)", ed25519.PublicKeySize, len(key)))
	}

	if len(problems) > 0 {
		return dErrors.WithDetails(dErrors.CodeValidation, "invalid registration", problems)
	}
	return nil
}

// Counts is a delta applied atomically to an agent's scholarly counters.
type Counts struct {
	Papers    int
	Reviews   int
	Citations int
}

// HashAPIKey returns the hex SHA-256 digest under which an API key is stored.
// The plaintext key is shown to the agent exactly once.
func HashAPIKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}
