package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/basisbot/internal/domain"
)

// statusTTL bounds staleness: a snapshot that has not been refreshed within
// the TTL disappears rather than being served as current.
const statusTTL = 5 * time.Minute

// StatusCache implements domain.StatusCache by mirroring the latest snapshot
// as a JSON value, so external observers can read bot state without touching
// the process.
type StatusCache struct {
	rdb *redis.Client
	key string
}

// NewStatusCache creates a StatusCache backed by the given Client. instance
// distinguishes multiple bots sharing one Redis.
func NewStatusCache(c *Client, instance string) *StatusCache {
	if instance == "" {
		instance = "default"
	}
	return &StatusCache{rdb: c.Underlying(), key: "status:" + instance}
}

// SetSnapshot overwrites the mirrored snapshot.
func (sc *StatusCache) SetSnapshot(ctx context.Context, snap domain.StatusSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("redis: marshal status: %w", err)
	}
	if err := sc.rdb.Set(ctx, sc.key, data, statusTTL).Err(); err != nil {
		return fmt.Errorf("redis: set status: %w", err)
	}
	return nil
}

// GetSnapshot returns the mirrored snapshot, or domain.ErrNotFound when no
// fresh snapshot exists.
func (sc *StatusCache) GetSnapshot(ctx context.Context) (domain.StatusSnapshot, error) {
	data, err := sc.rdb.Get(ctx, sc.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.StatusSnapshot{}, domain.ErrNotFound
		}
		return domain.StatusSnapshot{}, fmt.Errorf("redis: get status: %w", err)
	}
	var snap domain.StatusSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return domain.StatusSnapshot{}, fmt.Errorf("redis: unmarshal status: %w", err)
	}
	return snap, nil
}

// Compile-time interface check.
var _ domain.StatusCache = (*StatusCache)(nil)
