package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is advanced by hand
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestBreaker(config Config) (*CircuitBreaker, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	cb := New(config)
	cb.now = clock.Now
	cb.lastStateChange = clock.Now()
	cb.intervalStart = clock.Now()
	return cb, clock
}

func TestCircuitBreakerStates(t *testing.T) {
	cb, clock := newTestBreaker(Config{
		MaxFailures: 3,
		Timeout:     time.Second,
		MaxRequests: 1,
		Interval:    time.Minute,
	})

	if cb.State() != StateClosed {
		t.Errorf("Expected initial state to be closed, got %v", cb.State())
	}
	if !cb.Allow() {
		t.Error("Expected to allow call in closed state")
	}

	for i := 0; i < 3; i++ {
		cb.Failure()
	}
	if cb.State() != StateOpen {
		t.Errorf("Expected state to be open after failures, got %v", cb.State())
	}
	if cb.Allow() {
		t.Error("Expected to block call in open state")
	}

	clock.Advance(time.Second)

	if !cb.Allow() {
		t.Error("Expected to allow trial call in half-open state")
	}
	if cb.Allow() {
		t.Error("Expected to block second call in half-open state")
	}

	cb.Success()
	if cb.State() != StateClosed {
		t.Errorf("Expected state to be closed after trial success, got %v", cb.State())
	}
}

func TestCircuitBreakerHalfOpenFailureReopens(t *testing.T) {
	cb, clock := newTestBreaker(Config{MaxFailures: 1, Timeout: time.Second})

	cb.Failure()
	clock.Advance(time.Second)
	if !cb.Allow() {
		t.Fatal("Expected trial call")
	}
	cb.Failure()

	if cb.State() != StateOpen {
		t.Errorf("Expected reopened circuit, got %v", cb.State())
	}
	clock.Advance(500 * time.Millisecond)
	if cb.Allow() {
		t.Error("Expected the open timeout to restart")
	}
}

func TestCircuitBreakerCall(t *testing.T) {
	cb, _ := newTestBreaker(Config{MaxFailures: 2, Timeout: time.Minute})
	ctx := context.Background()
	boom := errors.New("boom")

	if err := cb.Call(ctx, func(context.Context) error { return nil }); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := cb.Call(ctx, func(context.Context) error { return boom }); !errors.Is(err, boom) {
			t.Errorf("Expected call error, got %v", err)
		}
	}

	called := false
	err := cb.Call(ctx, func(context.Context) error {
		called = true
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Expected ErrCircuitOpen, got %v", err)
	}
	if called {
		t.Error("Expected function not to run while open")
	}
}

func TestCircuitBreakerIgnoresCancellation(t *testing.T) {
	cb, _ := newTestBreaker(Config{MaxFailures: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cb.Call(ctx, func(ctx context.Context) error { return ctx.Err() })

	if cb.State() != StateClosed {
		t.Errorf("Expected cancellation not to open the circuit, got %v", cb.State())
	}
}

func TestCircuitBreakerInterval(t *testing.T) {
	cb, clock := newTestBreaker(Config{MaxFailures: 3, Interval: time.Minute})

	cb.Failure()
	cb.Failure()
	clock.Advance(time.Minute)
	cb.Failure()

	if cb.State() != StateClosed {
		t.Errorf("Expected failures from an old interval to be forgotten, got %v", cb.State())
	}
}

func TestCircuitBreakerReset(t *testing.T) {
	cb, _ := newTestBreaker(Config{MaxFailures: 1, Timeout: time.Hour})

	cb.Failure()
	if cb.State() != StateOpen {
		t.Fatalf("Expected open, got %v", cb.State())
	}

	cb.Reset()
	if cb.State() != StateClosed || !cb.Allow() {
		t.Errorf("Expected closed circuit after reset, got %v", cb.State())
	}
}

func TestCircuitBreakerStateCallback(t *testing.T) {
	var transitions []string
	cb, clock := newTestBreaker(Config{
		MaxFailures: 1,
		Timeout:     time.Second,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})

	cb.Failure()
	clock.Advance(time.Second)
	cb.Allow()
	cb.Success()

	want := []string{"closed->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("Expected %v, got %v", want, transitions)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d: expected %s, got %s", i, want[i], transitions[i])
		}
	}
}

func TestCircuitBreakerConcurrency(t *testing.T) {
	cb := New(Config{MaxFailures: 1000, Timeout: time.Minute})

	var wg sync.WaitGroup
	var allowed atomic.Int64
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if cb.Allow() {
					allowed.Add(1)
				}
				if j%2 == 0 {
					cb.Success()
				} else {
					cb.Failure()
				}
			}
		}()
	}
	wg.Wait()

	if allowed.Load() == 0 {
		t.Error("Expected some calls to be allowed")
	}
}

func TestStateString(t *testing.T) {
	tests := map[State]string{
		StateClosed:   "closed",
		StateOpen:     "open",
		StateHalfOpen: "half-open",
		State(9):      "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
