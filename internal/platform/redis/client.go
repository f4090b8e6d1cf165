// Package redis holds the shared Redis connection used by the challenge
// store and citation counters.
package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"scholar/internal/platform/config"
)

// Client wraps go-redis so platform code can attach health checks.
type Client struct {
	*redis.Client
}

// New dials Redis using the URL and pool settings from cfg. An empty URL
// means Redis is not configured and New returns (nil, nil); callers fall
// back to Postgres or in-memory implementations.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Client{Client: client}, nil
}

// Health reports whether the connection still answers PING.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.Client.Close()
}
