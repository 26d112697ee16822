package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/liquidnya/eventsource/internal/storage"
)

// Client defines the interface for Redis operations
type Client interface {
	// Get returns the value of key; ok is false when the key does not exist
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	// Set sets key to value with an optional expiration
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Del deletes keys
	Del(ctx context.Context, keys ...string) error
	// Close closes the connection
	Close() error
}

// Store implements CheckpointStore using Redis
type Store struct {
	client Client
	config *storage.CheckpointStoreConfig
}

// NewStore creates a new Redis store
func NewStore(client Client, config *storage.CheckpointStoreConfig) *Store {
	if config == nil {
		config = storage.DefaultConfig()
	}

	return &Store{
		client: client,
		config: config,
	}
}

// Load returns the checkpoint for key
func (s *Store) Load(ctx context.Context, key string) (string, bool, error) {
	id, ok, err := s.client.Get(ctx, s.key(key))
	if err != nil {
		return "", false, fmt.Errorf("failed to load checkpoint: %w", err)
	}
	return id, ok, nil
}

// Save stores the checkpoint for key, refreshing its expiration
func (s *Store) Save(ctx context.Context, key, id string) error {
	if err := s.client.Set(ctx, s.key(key), id, s.config.TTL); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

// Delete removes the checkpoint for key
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key))
}

// Close closes the store
func (s *Store) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

func (s *Store) key(key string) string {
	return s.config.KeyPrefix + key
}

var _ storage.CheckpointStore = (*Store)(nil)
