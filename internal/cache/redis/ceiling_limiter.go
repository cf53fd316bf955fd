package redis

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

//go:embed scripts/sliding_window.lua
var slidingWindowLua string

// CeilingLimiter implements domain.CeilingLimiter with a sliding window over
// a Redis sorted set, atomic via a Lua script. It provides the shared,
// cross-process request ceiling; the per-process pacer handles serialization
// and spacing on its own.
type CeilingLimiter struct {
	rdb           *redis.Client
	slidingWindow *redis.Script
}

// NewCeilingLimiter creates a CeilingLimiter backed by the given Client.
func NewCeilingLimiter(c *Client) *CeilingLimiter {
	return &CeilingLimiter{
		rdb:           c.Underlying(),
		slidingWindow: redis.NewScript(slidingWindowLua),
	}
}

func ceilingKey(key string) string {
	return "ratelimit:" + key
}

// Allow reports whether one more request fits under the window's ceiling,
// counting it when it does.
func (cl *CeilingLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now().UnixMicro()

	result, err := cl.slidingWindow.Run(
		ctx,
		cl.rdb,
		[]string{ceilingKey(key)},
		now,
		window.Microseconds(),
		limit,
	).Int64Slice()
	if err != nil {
		return false, fmt.Errorf("redis: ceiling allow %s: %w", key, err)
	}
	if len(result) < 2 {
		return false, fmt.Errorf("redis: ceiling allow %s: unexpected result length %d", key, len(result))
	}
	return result[0] == 1, nil
}

// Compile-time interface check.
var _ domain.CeilingLimiter = (*CeilingLimiter)(nil)
