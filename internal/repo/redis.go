package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pkordes/trip-planner/internal/domain"
)

// redisDraftStore keeps each draft as a JSON string value. A positive ttl
// makes abandoned drafts expire; every Save refreshes it.
type redisDraftStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisStore constructs a DraftStore backed by rdb. ttl <= 0 keeps drafts
// forever.
func NewRedisStore(rdb *redis.Client, ttl time.Duration) DraftStore {
	return &redisDraftStore{rdb: rdb, ttl: max(ttl, 0)}
}

func (r *redisDraftStore) Load(ctx context.Context, key string) (domain.Trip, error) {
	raw, err := r.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Trip{}, fmt.Errorf("repo.RedisStore.Load: %w", domain.ErrNotFound)
		}
		return domain.Trip{}, fmt.Errorf("repo.RedisStore.Load: %w", err)
	}
	t, err := decodeTrip(raw)
	if err != nil {
		return domain.Trip{}, fmt.Errorf("repo.RedisStore.Load: %w", err)
	}
	return t, nil
}

func (r *redisDraftStore) Save(ctx context.Context, key string, trip domain.Trip) error {
	raw, err := encodeTrip(trip)
	if err != nil {
		return fmt.Errorf("repo.RedisStore.Save: %w", err)
	}
	if err := r.rdb.Set(ctx, key, raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("repo.RedisStore.Save: %w", err)
	}
	return nil
}

func (r *redisDraftStore) Delete(ctx context.Context, key string) error {
	n, err := r.rdb.Del(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("repo.RedisStore.Delete: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("repo.RedisStore.Delete: %w", domain.ErrNotFound)
	}
	return nil
}
