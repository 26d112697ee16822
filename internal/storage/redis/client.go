package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ClientAdapter adapts go-redis client to our interface
type ClientAdapter struct {
	client redis.UniversalClient
}

// NewClientAdapter creates a new client adapter
func NewClientAdapter(client redis.UniversalClient) *ClientAdapter {
	return &ClientAdapter{client: client}
}

// Get returns the value of key; ok is false when the key does not exist
func (c *ClientAdapter) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := c.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set sets key to value with an optional expiration
func (c *ClientAdapter) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// Del deletes keys
func (c *ClientAdapter) Del(ctx context.Context, keys ...string) error {
	return c.client.Del(ctx, keys...).Err()
}

// Close closes the connection
func (c *ClientAdapter) Close() error {
	return c.client.Close()
}
