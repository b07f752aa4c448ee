package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	appErrors "github.com/noah-isme/sma-feedback-api/pkg/errors"
)

// RedisStore persists records as plain Redis strings without expiry.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a Redis backed store. Keys are namespaced by prefix.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Read retrieves the raw value stored under key.
func (r *RedisStore) Read(ctx context.Context, key string) ([]byte, error) {
	raw, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, appErrors.ErrStoreMiss
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, nil
}

// Write stores value under key with no TTL.
func (r *RedisStore) Write(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Close releases the underlying Redis connection.
func (r *RedisStore) Close() error {
	return r.client.Close()
}
