// Package cache holds the Redis-backed caches. The seat-count endpoint
// is a high-frequency polling target, so its aggregates are served from
// Redis with a short TTL instead of hitting Postgres on every poll.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type SeatCountCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSeatCountCache(client *redis.Client, ttl time.Duration) *SeatCountCache {
	if ttl <= 0 {
		ttl = 60 * time.Second
	}
	return &SeatCountCache{client: client, ttl: ttl}
}

func key(scheduleID uuid.UUID) string {
	return "seatcount:" + scheduleID.String()
}

// Get returns the cached counts, or ok=false on miss. Redis being down
// degrades to a miss; callers fall through to the database.
func (c *SeatCountCache) Get(ctx context.Context, scheduleID uuid.UUID, dest any) bool {
	if c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, key(scheduleID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			slog.Warn("seat count cache read failed", "error", err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		slog.Warn("seat count cache entry corrupt, dropping", "error", err)
		_ = c.client.Del(ctx, key(scheduleID)).Err()
		return false
	}
	return true
}

func (c *SeatCountCache) Set(ctx context.Context, scheduleID uuid.UUID, value any) {
	if c.client == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, key(scheduleID), raw, c.ttl).Err(); err != nil {
		slog.Warn("seat count cache write failed", "error", err)
	}
}

// Invalidate drops the entry after a commit or cancellation changes the
// underlying counts.
func (c *SeatCountCache) Invalidate(ctx context.Context, scheduleID uuid.UUID) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, key(scheduleID)).Err(); err != nil {
		slog.Warn("seat count cache invalidation failed", "error", err)
	}
}
