package credstore

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// RedisBackend stores entries as plain redis strings under a key prefix.
type RedisBackend struct {
	client *redis.Client
	prefix string
}

// NewRedisBackend wraps an existing client. prefix is prepended to every key.
func NewRedisBackend(client *redis.Client, prefix string) *RedisBackend {
	return &RedisBackend{client: client, prefix: prefix}
}

// DialRedisBackend connects to addr and verifies the connection with PING.
func DialRedisBackend(ctx context.Context, addr, prefix string) (*RedisBackend, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return NewRedisBackend(client, prefix), nil
}

// Get implements Backend.
func (r *RedisBackend) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := r.client.Get(ctx, r.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// Set implements Backend.
func (r *RedisBackend) Set(ctx context.Context, key, value string) error {
	return r.client.Set(ctx, r.prefix+key, value, 0).Err()
}

// Delete implements Backend.
func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Close releases the underlying client.
func (r *RedisBackend) Close() error {
	return r.client.Close()
}
