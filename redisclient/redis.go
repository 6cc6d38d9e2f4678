// Package redisclient wraps go-redis for the one optional, horizontally-
// shared concern in this module: the distributed rate-limit window
// (ratelimit.RedisWindow). It degrades to local-only behavior when
// Redis is unavailable.
package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/gigcatalog/ingestor/config"
	"github.com/redis/go-redis/v9"
)

type Client struct {
	c *redis.Client
}

// New creates a Redis client from the provided config. Returns an error
// if the Redis URL cannot be parsed.
func New(cfg *config.Config) (*Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	r := redis.NewClient(opt)
	return &Client{c: r}, nil
}

// Raw exposes the underlying *redis.Client for callers that need
// commands this thin wrapper doesn't surface directly (ZADD, EXPIRE, ...).
func (r *Client) Raw() *redis.Client { return r.c }

func (r *Client) Ping() error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return r.c.Ping(ctx).Err()
}

func (r *Client) Close() error {
	return r.c.Close()
}
