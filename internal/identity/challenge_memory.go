package identity

import (
	"context"
	"sync"
	"time"

	"scholar/pkg/platform/sentinel"
	"scholar/pkg/requestcontext"
)

// InMemoryChallengeStore is the non-durable challenge store used in tests and
// local runs. Expired entries are dropped lazily on consume.
type InMemoryChallengeStore struct {
	mu         sync.Mutex
	challenges map[string]challengeEntry
}

type challengeEntry struct {
	challenge Challenge
	expiresAt time.Time
	used      bool
}

func NewInMemoryChallengeStore() *InMemoryChallengeStore {
	return &InMemoryChallengeStore{challenges: make(map[string]challengeEntry)}
}

func (s *InMemoryChallengeStore) Save(ctx context.Context, challenge Challenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.challenges[challenge.ID] = challengeEntry{
		challenge: challenge,
		expiresAt: requestcontext.Now(ctx).Add(ttl),
	}
	return nil
}

func (s *InMemoryChallengeStore) Consume(ctx context.Context, challengeID string) (Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.challenges[challengeID]
	if !ok {
		return Challenge{}, sentinel.ErrNotFound
	}
	if entry.used {
		return Challenge{}, sentinel.ErrAlreadyUsed
	}
	if requestcontext.Now(ctx).After(entry.expiresAt) {
		delete(s.challenges, challengeID)
		return Challenge{}, sentinel.ErrExpired
	}
	entry.used = true
	s.challenges[challengeID] = entry
	return entry.challenge, nil
}
