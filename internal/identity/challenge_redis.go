package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"scholar/pkg/platform/sentinel"
)

// RedisChallengeStore keeps challenges in Redis under a TTL. GETDEL makes the
// consume one-shot without a transaction; an expired or re-consumed challenge
// is indistinguishable from a missing one, which is fine since both refuse
// authentication.
type RedisChallengeStore struct {
	client *redis.Client
}

func NewRedisChallengeStore(client *redis.Client) *RedisChallengeStore {
	return &RedisChallengeStore{client: client}
}

func challengeKey(challengeID string) string {
	return fmt.Sprintf("auth_challenge:%s", challengeID)
}

func (s *RedisChallengeStore) Save(ctx context.Context, challenge Challenge, ttl time.Duration) error {
	payload, err := json.Marshal(challenge)
	if err != nil {
		return fmt.Errorf("marshal challenge: %w", err)
	}
	return s.client.Set(ctx, challengeKey(challenge.ID), payload, ttl).Err()
}

func (s *RedisChallengeStore) Consume(ctx context.Context, challengeID string) (Challenge, error) {
	payload, err := s.client.GetDel(ctx, challengeKey(challengeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Challenge{}, sentinel.ErrNotFound
		}
		return Challenge{}, fmt.Errorf("consume challenge: %w", err)
	}
	var challenge Challenge
	if err := json.Unmarshal(payload, &challenge); err != nil {
		return Challenge{}, fmt.Errorf("unmarshal challenge: %w", err)
	}
	return challenge, nil
}
