package memory

import (
	"context"
	"sync"
	"time"

	"github.com/liquidnya/eventsource/internal/storage"
)

// entry represents a stored checkpoint
type entry struct {
	id        string
	updatedAt time.Time
}

// Store implements CheckpointStore using in-memory storage
type Store struct {
	entries map[string]entry
	mu      sync.RWMutex
	config  *storage.CheckpointStoreConfig
	now     func() time.Time
}

// NewStore creates a new memory store
func NewStore(config *storage.CheckpointStoreConfig) *Store {
	if config == nil {
		config = storage.DefaultConfig()
	}

	return &Store{
		entries: make(map[string]entry),
		config:  config,
		now:     time.Now,
	}
}

// Load returns the checkpoint for key
func (s *Store) Load(ctx context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return "", false, nil
	}
	if s.config.TTL > 0 && s.now().Sub(e.updatedAt) > s.config.TTL {
		s.Delete(ctx, key)
		return "", false, nil
	}
	return e.id, true, nil
}

// Save stores the checkpoint for key
func (s *Store) Save(ctx context.Context, key, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[key]; !exists {
		// Check max entries limit
		if s.config.MaxEntries > 0 && len(s.entries) >= s.config.MaxEntries {
			s.evictOldest()
		}
	}

	s.entries[key] = entry{id: id, updatedAt: s.now()}
	return nil
}

// Delete removes the checkpoint for key
func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored checkpoints
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Close closes the store
func (s *Store) Close() error {
	return nil
}

// evictOldest removes the oldest entry. Caller holds s.mu.
func (s *Store) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	first := true

	for key, e := range s.entries {
		if first || e.updatedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = e.updatedAt
			first = false
		}
	}

	if !first {
		delete(s.entries, oldestKey)
	}
}

var _ storage.CheckpointStore = (*Store)(nil)
