// Package circuitbreaker stops calling a failing dependency for a while so
// its callers fail fast instead of waiting on timeouts.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// State represents the state of the circuit breaker
type State int

const (
	// StateClosed allows calls to pass through
	StateClosed State = iota
	// StateOpen blocks all calls
	StateOpen
	// StateHalfOpen allows limited calls to test if the dependency recovered
	StateHalfOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// ErrCircuitOpen is returned when the circuit is open
var ErrCircuitOpen = errors.New("circuit breaker is open")

// Config holds circuit breaker configuration
type Config struct {
	// MaxFailures is the number of failures in one interval that opens the circuit
	MaxFailures int
	// Timeout is the duration of the open state before trying half-open
	Timeout time.Duration
	// MaxRequests is the number of trial calls allowed in half-open state
	MaxRequests int
	// Interval is the period after which closed-state counts are cleared
	Interval time.Duration
	// OnStateChange is called synchronously, outside the lock, on every transition
	OnStateChange func(from, to State)
}

// DefaultConfig returns a default configuration
func DefaultConfig() Config {
	return Config{
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		MaxRequests: 1,
		Interval:    60 * time.Second,
	}
}

// CircuitBreaker implements the circuit breaker pattern
type CircuitBreaker struct {
	config Config
	now    func() time.Time

	mu              sync.Mutex
	state           State
	failures        int
	requests        int
	halfOpenSuccess int
	lastStateChange time.Time
	intervalStart   time.Time
}

// New creates a new circuit breaker
func New(config Config) *CircuitBreaker {
	defaults := DefaultConfig()
	if config.MaxFailures <= 0 {
		config.MaxFailures = defaults.MaxFailures
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.MaxRequests <= 0 {
		config.MaxRequests = defaults.MaxRequests
	}
	if config.Interval <= 0 {
		config.Interval = defaults.Interval
	}

	cb := &CircuitBreaker{
		config: config,
		now:    time.Now,
		state:  StateClosed,
	}
	cb.lastStateChange = cb.now()
	cb.intervalStart = cb.lastStateChange
	return cb
}

// State returns the current state
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	state, change := cb.advance()
	cb.mu.Unlock()
	cb.notify(change)
	return state
}

// Allow reports whether a call may proceed. In half-open state only
// MaxRequests trial calls are allowed.
func (cb *CircuitBreaker) Allow() bool {
	cb.mu.Lock()
	state, change := cb.advance()
	allowed := false
	switch state {
	case StateClosed:
		allowed = true
	case StateHalfOpen:
		if cb.requests < cb.config.MaxRequests {
			cb.requests++
			allowed = true
		}
	}
	cb.mu.Unlock()
	cb.notify(change)
	return allowed
}

// Success records a successful call
func (cb *CircuitBreaker) Success() {
	cb.mu.Lock()
	var change *transition
	if cb.state == StateHalfOpen {
		cb.halfOpenSuccess++
		if cb.halfOpenSuccess >= cb.config.MaxRequests {
			change = cb.changeState(StateClosed)
		}
	}
	cb.mu.Unlock()
	cb.notify(change)
}

// Failure records a failed call
func (cb *CircuitBreaker) Failure() {
	cb.mu.Lock()
	var change *transition
	switch cb.state {
	case StateClosed:
		cb.resetInterval()
		cb.failures++
		if cb.failures >= cb.config.MaxFailures {
			change = cb.changeState(StateOpen)
		}
	case StateHalfOpen:
		change = cb.changeState(StateOpen)
	}
	cb.mu.Unlock()
	cb.notify(change)
}

// Call runs fn if the circuit allows it and records the outcome. A context
// error is not counted against the dependency.
func (cb *CircuitBreaker) Call(ctx context.Context, fn func(context.Context) error) error {
	if !cb.Allow() {
		return ErrCircuitOpen
	}

	err := fn(ctx)
	switch {
	case err == nil:
		cb.Success()
	case ctx.Err() != nil:
		// caller gave up
	default:
		cb.Failure()
	}
	return err
}

// Reset closes the circuit and clears all counts
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	change := cb.changeState(StateClosed)
	cb.failures = 0
	cb.intervalStart = cb.now()
	cb.mu.Unlock()
	cb.notify(change)
}

type transition struct {
	from, to State
}

// advance moves an expired open circuit to half-open
func (cb *CircuitBreaker) advance() (State, *transition) {
	if cb.state == StateOpen && cb.now().Sub(cb.lastStateChange) >= cb.config.Timeout {
		return StateHalfOpen, cb.changeState(StateHalfOpen)
	}
	return cb.state, nil
}

func (cb *CircuitBreaker) resetInterval() {
	if now := cb.now(); now.Sub(cb.intervalStart) >= cb.config.Interval {
		cb.failures = 0
		cb.intervalStart = now
	}
}

func (cb *CircuitBreaker) changeState(to State) *transition {
	if cb.state == to {
		return nil
	}
	from := cb.state
	cb.state = to
	cb.lastStateChange = cb.now()
	cb.requests = 0
	cb.halfOpenSuccess = 0
	if to == StateClosed {
		cb.failures = 0
		cb.intervalStart = cb.lastStateChange
	}
	return &transition{from: from, to: to}
}

func (cb *CircuitBreaker) notify(change *transition) {
	if change != nil && cb.config.OnStateChange != nil {
		cb.config.OnStateChange(change.from, change.to)
	}
}
