package selection

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"concert-booking/internal/pkg/clock"
	"concert-booking/internal/pkg/errs"
)

const sessionKeyPrefix = "booking:session:"

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*RedisStore)(nil)
)

// RedisStore persists booking sessions in Redis so a session survives
// the process. Expiry is delegated to the key TTL; SavedAt is still
// stored so a restored record carries its age.
type RedisStore struct {
	client *redis.Client
	clk    clock.Clock
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, clk clock.Clock, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{client: client, clk: clk, ttl: ttl}
}

func (s *RedisStore) Load(ctx context.Context, key string) (Record, bool, error) {
	raw, err := s.client.Get(ctx, sessionKeyPrefix+key).Bytes()
	if err == redis.Nil {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, errs.Wrap(err, "failed to load booking session")
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		// A corrupt record is discarded whole, same as an expired one.
		_ = s.client.Del(ctx, sessionKeyPrefix+key).Err()
		return Record{}, false, nil
	}
	return rec, true, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, rec Record) error {
	if rec.SavedAt.IsZero() {
		rec.SavedAt = s.clk.Now()
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return errs.Wrap(err, "failed to encode booking session")
	}
	if err := s.client.Set(ctx, sessionKeyPrefix+key, raw, s.ttl).Err(); err != nil {
		return errs.Wrap(err, "failed to save booking session")
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, sessionKeyPrefix+key).Err(); err != nil {
		return errs.Wrap(err, "failed to clear booking session")
	}
	return nil
}
