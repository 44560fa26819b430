// Package redis holds the live-state mirror: the latest snapshot JSON and
// the current turn deadline per game, written by the manager after each
// transition and read by the transport. Authority stays with the in-memory
// machines; everything here is best-effort cache.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// startupPingTimeout bounds the connectivity check at boot so a missing
// Redis fails fast instead of hanging the server start.
const startupPingTimeout = 5 * time.Second

// Client wraps the Redis client for the game mirror keys.
type Client struct {
	rdb *redis.Client
}

// NewClient connects to the Redis instance backing the live-state mirror.
func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), startupPingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

// NewClientFromPool wraps an existing redis.Client for use in tests.
func NewClientFromPool(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}
