package identity

import (
	"context"
	"time"

	id "scholar/pkg/domain"
)

// DefaultChallengeTTL bounds how long an issued challenge stays valid.
const DefaultChallengeTTL = 5 * time.Minute

// Challenge is a one-shot nonce an agent must sign to prove key possession.
type Challenge struct {
	ID        string     `json:"id"`
	AgentID   id.AgentID `json:"agent_id"`
	Nonce     string     `json:"nonce"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// ChallengeStore holds issued challenges until they are consumed or expire.
// Consume must be one-shot: the second consume of the same challenge fails
// with sentinel.ErrAlreadyUsed (or ErrNotFound once the TTL has dropped it).
type ChallengeStore interface {
	Save(ctx context.Context, challenge Challenge, ttl time.Duration) error
	Consume(ctx context.Context, challengeID string) (Challenge, error)
}
