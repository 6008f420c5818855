package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// keyPrefix namespaces session keys in a shared Redis instance.
const keyPrefix = "showme:session:"

// RedisStore is the opt-in Redis-backed Store for deployments that
// want sessions to survive a restart. Keys carry a TTL that is
// refreshed on every read and write.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore creates a Redis session store. A non-positive ttl
// defaults to 24 hours.
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

// Get implements Store.
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	val, err := r.client.Get(ctx, keyPrefix+id).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}

	// Refresh TTL on read; best effort.
	_ = r.client.Expire(ctx, keyPrefix+id, r.ttl).Err()

	return &s, nil
}

// Put implements Store.
func (r *RedisStore) Put(ctx context.Context, id string, s *Session) error {
	cp := *s
	cp.Identifier = id
	cp.UpdatedAt = time.Now().UTC()

	val, err := json.Marshal(&cp)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := r.client.Set(ctx, keyPrefix+id, val, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis put session: %w", err)
	}
	return nil
}

// Update implements Store using WATCH/MULTI so concurrent updates for
// the same identifier cannot silently lose a write.
func (r *RedisStore) Update(ctx context.Context, id string, fn func(*Session) *Session) error {
	key := keyPrefix + id

	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		var cur *Session
		val, err := tx.Get(ctx, key).Result()
		if err != nil && err != redis.Nil {
			return err
		}
		if err == nil {
			var s Session
			if err := json.Unmarshal([]byte(val), &s); err != nil {
				return fmt.Errorf("unmarshal session: %w", err)
			}
			cur = &s
		}

		next := fn(cur)
		if next == nil {
			return nil
		}
		next.Identifier = id
		next.UpdatedAt = time.Now().UTC()

		newVal, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, newVal, r.ttl)
			return nil
		})
		return err
	}, key)
	if err != nil {
		return fmt.Errorf("redis update session: %w", err)
	}
	return nil
}

// Close implements Store.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
