// Package retry schedules stream reconnection.
//
// The default policy is the one Server-Sent Events prescribes: a fixed
// delay of three seconds that the server may replace with a retry field,
// retried indefinitely. Backoff, jitter and an attempt cap are opt-in.
package retry

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"
)

// DefaultDelay is the reconnection time used until the server sends a
// retry field.
const DefaultDelay = 3 * time.Second

// Config holds reconnection configuration
type Config struct {
	// InitialDelay is the delay before the first reconnection attempt
	InitialDelay time.Duration
	// MaxDelay is the maximum delay between attempts
	MaxDelay time.Duration
	// Multiplier is the backoff multiplier; 1 keeps the delay fixed
	Multiplier float64
	// Jitter adds ±25% randomness to delays to avoid thundering herd
	Jitter bool
	// MaxAttempts caps consecutive failed attempts (0 = unlimited)
	MaxAttempts int
}

// DefaultConfig returns the Server-Sent Events reconnection policy
func DefaultConfig() Config {
	return Config{
		InitialDelay: DefaultDelay,
		MaxDelay:     time.Minute,
		Multiplier:   1,
		Jitter:       false,
		MaxAttempts:  0,
	}
}

// Backoff computes delays for one stream. It is not safe for concurrent
// use; the stream's goroutine owns it.
type Backoff struct {
	config  Config
	base    time.Duration
	attempt int
}

// New creates a new backoff with the given configuration
func New(config Config) *Backoff {
	// Validate and set defaults
	if config.InitialDelay <= 0 {
		config.InitialDelay = DefaultDelay
	}
	if config.MaxDelay <= 0 {
		config.MaxDelay = time.Minute
	}
	if config.MaxDelay < config.InitialDelay {
		config.MaxDelay = config.InitialDelay
	}
	if config.Multiplier < 1 {
		config.Multiplier = 1
	}
	if config.MaxAttempts < 0 {
		config.MaxAttempts = 0
	}

	return &Backoff{
		config: config,
		base:   config.InitialDelay,
	}
}

// SetBase replaces the reconnection time, as a retry field does.
func (b *Backoff) SetBase(d time.Duration) {
	if d < 0 {
		return
	}
	b.base = d
}

// Base returns the current reconnection time
func (b *Backoff) Base() time.Duration {
	return b.base
}

// Attempts returns the number of consecutive failures recorded
func (b *Backoff) Attempts() int {
	return b.attempt
}

// Reset clears the failure count after a successful connection
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Next records a failure and returns the delay before the next attempt.
// ok is false once MaxAttempts consecutive failures have been recorded.
func (b *Backoff) Next() (delay time.Duration, ok bool) {
	b.attempt++
	if b.config.MaxAttempts > 0 && b.attempt > b.config.MaxAttempts {
		return 0, false
	}
	return b.calculateDelay(b.attempt - 1), true
}

// calculateDelay calculates the delay for the given attempt
func (b *Backoff) calculateDelay(attempt int) time.Duration {
	// Calculate base delay using exponential backoff
	delay := float64(b.base) * math.Pow(b.config.Multiplier, float64(attempt))

	// Cap at max delay, unless the server asked for longer
	if limit := math.Max(float64(b.config.MaxDelay), float64(b.base)); delay > limit {
		delay = limit
	}

	// Add jitter if enabled
	if b.config.Jitter {
		jitter := delay * 0.25
		delay = delay + (rand.Float64()*2-1)*jitter
	}

	return time.Duration(delay)
}

// Wait sleeps for d or until ctx is done
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Retryable reports whether a connection failure should be retried.
// Transport timeouts wrap context.DeadlineExceeded and are retried like any
// other network failure; callers check their own context for cancellation.
func Retryable(err error) bool {
	var nonRetryable *NonRetryableError
	if errors.As(err, &nonRetryable) {
		return false
	}

	// Retry all other errors by default
	return true
}

// NonRetryableError wraps an error to indicate it should not be retried
type NonRetryableError struct {
	err error
}

// NewNonRetryableError creates a new non-retryable error
func NewNonRetryableError(err error) error {
	return &NonRetryableError{err: err}
}

// Error implements the error interface
func (e *NonRetryableError) Error() string {
	return e.err.Error()
}

// Unwrap returns the underlying error
func (e *NonRetryableError) Unwrap() error {
	return e.err
}
