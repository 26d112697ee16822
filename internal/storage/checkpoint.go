package storage

import (
	"context"
	"time"
)

// CheckpointStore persists the last event id received per stream so a
// restarted client can resume with Last-Event-ID.
type CheckpointStore interface {
	// Load returns the last event id for key; ok is false if none is stored
	Load(ctx context.Context, key string) (id string, ok bool, err error)

	// Save stores the last event id for key
	Save(ctx context.Context, key, id string) error

	// Delete removes the checkpoint for key
	Delete(ctx context.Context, key string) error

	// Close closes the store and releases resources
	Close() error
}

// CheckpointStoreConfig defines common configuration for checkpoint stores
type CheckpointStoreConfig struct {
	// TTL is how long an untouched checkpoint is kept (0 = forever)
	TTL time.Duration
	// MaxEntries is the maximum number of entries to keep (0 = unlimited)
	MaxEntries int
	// KeyPrefix namespaces keys in shared stores
	KeyPrefix string
}

// DefaultConfig returns default configuration
func DefaultConfig() *CheckpointStoreConfig {
	return &CheckpointStoreConfig{
		TTL:        7 * 24 * time.Hour,
		MaxEntries: 10000, // Prevent unbounded memory growth
		KeyPrefix:  "eventsource:last-event-id:",
	}
}
