package storage

import (
	"context"

	"github.com/liquidnya/eventsource/internal/circuitbreaker"
)

// Guarded wraps a remote store with a circuit breaker. While the circuit is
// open every operation fails with circuitbreaker.ErrCircuitOpen without
// touching the store, so an unreachable store does not stall event delivery.
type Guarded struct {
	store   CheckpointStore
	breaker *circuitbreaker.CircuitBreaker
}

// NewGuarded creates a guarded store
func NewGuarded(store CheckpointStore, breaker *circuitbreaker.CircuitBreaker) *Guarded {
	return &Guarded{store: store, breaker: breaker}
}

// Load returns the checkpoint for key
func (g *Guarded) Load(ctx context.Context, key string) (id string, ok bool, err error) {
	err = g.breaker.Call(ctx, func(ctx context.Context) error {
		var loadErr error
		id, ok, loadErr = g.store.Load(ctx, key)
		return loadErr
	})
	return id, ok, err
}

// Save stores the checkpoint for key
func (g *Guarded) Save(ctx context.Context, key, id string) error {
	return g.breaker.Call(ctx, func(ctx context.Context) error {
		return g.store.Save(ctx, key, id)
	})
}

// Delete removes the checkpoint for key
func (g *Guarded) Delete(ctx context.Context, key string) error {
	return g.breaker.Call(ctx, func(ctx context.Context) error {
		return g.store.Delete(ctx, key)
	})
}

// Close closes the underlying store
func (g *Guarded) Close() error {
	return g.store.Close()
}
