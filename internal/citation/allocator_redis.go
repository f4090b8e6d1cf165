package citation

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisAllocator allocates sequences with INCR on a per-year key. INCR is
// atomic server-side, so concurrent publishers in different processes still
// receive distinct values.
type RedisAllocator struct {
	client *redis.Client
}

func NewRedisAllocator(client *redis.Client) *RedisAllocator {
	return &RedisAllocator{client: client}
}

func (a *RedisAllocator) Next(ctx context.Context, year int) (int, error) {
	seq, err := a.client.Incr(ctx, fmt.Sprintf("citation_seq:%d", year)).Result()
	if err != nil {
		return 0, fmt.Errorf("allocate citation sequence: %w", err)
	}
	return int(seq), nil
}
