package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Key patterns for the live game mirror.
func stateKey(gameID string) string    { return "game:" + gameID + ":state" }
func deadlineKey(gameID string) string { return "game:" + gameID + ":deadline" }

// liveStateTTL caps how long a mirror entry outlives its last write. The
// snapshot store is authoritative; a stale mirror entry just re-fetches.
const liveStateTTL = 24 * time.Hour

// SetGameState stores the live game state JSON.
func (c *Client) SetGameState(ctx context.Context, gameID string, state json.RawMessage) error {
	return c.rdb.Set(ctx, stateKey(gameID), []byte(state), liveStateTTL).Err()
}

// GetGameState retrieves the live game state JSON, or nil when absent.
func (c *Client) GetGameState(ctx context.Context, gameID string) (json.RawMessage, error) {
	data, err := c.rdb.Get(ctx, stateKey(gameID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get game state: %w", err)
	}
	return json.RawMessage(data), nil
}

// SetTurnDeadline records when the current turn times out, so clients can
// render a countdown that survives reconnects.
func (c *Client) SetTurnDeadline(ctx context.Context, gameID string, deadline time.Time) error {
	return c.rdb.Set(ctx, deadlineKey(gameID), deadline.UnixMilli(), liveStateTTL).Err()
}

// GetTurnDeadline returns the current turn deadline, or nil when no timer
// is armed.
func (c *Client) GetTurnDeadline(ctx context.Context, gameID string) (*time.Time, error) {
	ms, err := c.rdb.Get(ctx, deadlineKey(gameID)).Int64()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get turn deadline: %w", err)
	}
	t := time.UnixMilli(ms)
	return &t, nil
}

// ClearTurnDeadline removes the deadline key when a timer is cancelled.
func (c *Client) ClearTurnDeadline(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, deadlineKey(gameID)).Err()
}

// DeleteGameData removes all mirror keys for a game.
func (c *Client) DeleteGameData(ctx context.Context, gameID string) error {
	return c.rdb.Del(ctx, stateKey(gameID), deadlineKey(gameID)).Err()
}
