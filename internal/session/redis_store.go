package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Store for multi-instance deployments where every
// storefront node must see the same role sessions.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a Redis-backed session store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "esygrab:",
	}
}

func (r *RedisStore) key(key string) string {
	return r.prefix + key
}

// Put writes the value with the given TTL. A non-positive TTL deletes the
// key instead of extending it.
func (r *RedisStore) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if key == "" {
		return fmt.Errorf("session: missing key")
	}
	if ttl <= 0 {
		return r.client.Del(ctx, r.key(key)).Err()
	}
	return r.client.Set(ctx, r.key(key), value, ttl).Err()
}

// Get returns the stored value, or nil once Redis has expired the key.
func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, r.key(key)).Bytes()
	if err == redis.Nil {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err
	}
	return val, nil
}

// Delete removes the key.
func (r *RedisStore) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
