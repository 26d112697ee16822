package httpstream

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/liquidnya/eventsource/internal/circuitbreaker"
	"github.com/liquidnya/eventsource/internal/retry"
	"github.com/liquidnya/eventsource/internal/sse"
	"github.com/liquidnya/eventsource/internal/telemetry"
	"github.com/liquidnya/eventsource/pkg/backend"
	"github.com/liquidnya/eventsource/pkg/errors"
	"github.com/liquidnya/eventsource/pkg/requestid"
)

const checkpointTimeout = 5 * time.Second

// maxRetryDelay caps the reconnection time a retry field may set
const maxRetryDelay = 24 * time.Hour

type listener struct {
	id   uint64
	kind backend.EventKind
	fn   backend.Listener
}

// source is one stream. Its goroutine owns the connection, the backoff and
// the last event id; listeners run on that goroutine.
type source struct {
	backend         *Backend
	url             *url.URL
	withCredentials bool
	logger          *slog.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	started sync.Once
	done    chan struct{}

	state atomic.Uint32

	// dispatching is held while listeners run; runner is the id of the
	// goroutine that runs them.
	dispatching sync.Mutex
	runner      atomic.Uint64

	mu        sync.Mutex
	closed    bool
	listeners []*listener
	nextID    uint64

	lastEventID string
}

func newSource(b *Backend, u *url.URL, withCredentials bool) *source {
	ctx, cancel := context.WithCancel(context.Background())
	s := &source{
		backend:         b,
		url:             u,
		withCredentials: withCredentials,
		logger:          b.logger.With("url", u.Redacted()),
		ctx:             ctx,
		cancel:          cancel,
		done:            make(chan struct{}),
	}
	s.state.Store(uint32(backend.StateConnecting))
	return s
}

// Start launches the connection goroutine
func (s *source) Start() {
	s.started.Do(func() {
		go s.run()
	})
}

// ReadyState returns the connection state
func (s *source) ReadyState() uint16 {
	return uint16(s.state.Load())
}

// Close aborts the connection. A listener running on the stream goroutine
// finishes before Close returns, unless that listener is the caller.
func (s *source) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.state.Store(uint32(backend.StateClosed))
	s.mu.Unlock()

	s.cancel()
	if s.runner.Load() != goroutineID() {
		s.dispatching.Lock()
		s.dispatching.Unlock()
	}
	s.logger.Debug("Closed stream")
}

// Subscribe registers fn for events of kind
func (s *source) Subscribe(kind backend.EventKind, fn backend.Listener) backend.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	s.listeners = append(s.listeners, &listener{id: s.nextID, kind: kind, fn: fn})
	return &subscription{source: s, id: s.nextID}
}

type subscription struct {
	source *source
	id     uint64
	once   sync.Once
}

// Remove unregisters the listener
func (sub *subscription) Remove() {
	sub.once.Do(func() {
		s := sub.source
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, l := range s.listeners {
			if l.id == sub.id {
				s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
				return
			}
		}
	})
}

// setState moves to state unless the source was closed
func (s *source) setState(state uint16) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.state.Store(uint32(state))
	return true
}

func (s *source) dispatch(ev backend.Event) {
	s.dispatching.Lock()
	defer s.dispatching.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	var fns []backend.Listener
	for _, l := range s.listeners {
		if l.kind == ev.Kind {
			fns = append(fns, l.fn)
		}
	}
	s.mu.Unlock()

	if m := s.backend.metrics; m != nil {
		m.EventsReceived.WithLabelValues(string(ev.Kind)).Inc()
	}
	for _, fn := range fns {
		// a listener may close the stream
		if s.isClosed() {
			return
		}
		fn(ev)
	}
}

func (s *source) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *source) run() {
	defer close(s.done)
	s.runner.Store(goroutineID())

	backoff := retry.New(s.backend.config.Reconnect)
	s.loadCheckpoint()

	for attempt := 1; ; attempt++ {
		resp, err := s.connect(attempt)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			// timeouts are retried; only explicit rejections fail the stream
			if !retry.Retryable(err) {
				s.logger.Warn("Stream failed", "error", err)
				s.fail()
				return
			}
			s.logger.Debug("Stream connection failed", "error", err, "attempt", attempt)
			if !s.reconnect(backoff) {
				return
			}
			continue
		}

		if !s.setState(backend.StateOpen) {
			resp.Body.Close()
			return
		}
		backoff.Reset()
		s.logger.Debug("Stream open", "attempt", attempt)
		s.dispatch(backend.Event{Kind: backend.KindOpen})

		err = s.consume(resp, backoff)
		resp.Body.Close()
		if s.ctx.Err() != nil {
			return
		}
		s.logger.Debug("Stream interrupted", "error", err)
		if !s.reconnect(backoff) {
			return
		}
	}
}

// connect performs one request. Failures that must not be retried are
// returned as retry.NonRetryableError.
func (s *source) connect(attempt int) (*http.Response, error) {
	b := s.backend
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.url.String(), nil)
	if err != nil {
		return nil, retry.NewNonRetryableError(
			errors.NewError(errors.ErrorTypeInternal, "failed to create stream request").WithCause(err))
	}

	for key, values := range b.config.Headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if s.lastEventID != "" {
		req.Header.Set("Last-Event-ID", s.lastEventID)
	}
	requestID := requestid.Set(req)

	client := b.client
	if s.withCredentials {
		client = b.credClient
		if b.credentials != nil {
			if err := b.credentials.Apply(req); err != nil {
				s.countAttempt("rejected")
				return nil, retry.NewNonRetryableError(
					errors.NewError(errors.ErrorTypeBackendRejected, "failed to apply credentials").WithCause(err))
			}
		}
	}

	ctx, span := b.telemetry.StartConnectSpan(s.ctx, req, attempt)
	req = req.WithContext(ctx)
	s.logger.Debug("Connecting", "attempt", attempt, "request_id", requestID)

	start := time.Now()
	resp, err := client.Do(req)
	telemetry.EndConnectSpan(span, resp, err)

	if err != nil {
		s.countAttempt("error")
		b.telemetry.RecordConnect(s.ctx, time.Since(start), "error")
		return nil, errors.NewError(errors.ErrorTypeUnavailable, "failed to connect to stream").
			WithCause(err).
			WithDetail("request_id", requestID)
	}

	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		s.countAttempt("rejected")
		b.telemetry.RecordConnect(s.ctx, time.Since(start), "rejected")
		return nil, retry.NewNonRetryableError(
			errors.NewError(errors.ErrorTypeUnavailable, fmt.Sprintf("stream returned status %d", resp.StatusCode)).
				WithDetail("status", resp.StatusCode).
				WithDetail("request_id", requestID))
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != "text/event-stream" {
		resp.Body.Close()
		s.countAttempt("rejected")
		b.telemetry.RecordConnect(s.ctx, time.Since(start), "rejected")
		return nil, retry.NewNonRetryableError(
			errors.NewError(errors.ErrorTypeBadRequest, fmt.Sprintf("invalid content type: %s", resp.Header.Get("Content-Type"))))
	}

	s.countAttempt("ok")
	b.telemetry.RecordConnect(s.ctx, time.Since(start), "ok")
	return resp, nil
}

// consume reads records until the stream ends
func (s *source) consume(resp *http.Response, backoff *retry.Backoff) error {
	m := s.backend.metrics
	if m != nil {
		m.StreamsActive.Inc()
		defer m.StreamsActive.Dec()
	}
	opened := time.Now()
	defer func() {
		s.backend.telemetry.RecordSession(s.ctx, time.Since(opened))
	}()

	reader := sse.NewReader(resp.Body)
	defer reader.Close()

	var counted int64
	for {
		ev, err := reader.ReadEvent()
		if m != nil {
			n := reader.BytesRead()
			m.BytesReceived.Add(float64(n - counted))
			counted = n
		}
		if err != nil {
			return err
		}

		if ev.HasRetry {
			backoff.SetBase(retryDelay(ev.Retry))
		}
		if ev.HasID {
			s.setLastEventID(ev.ID)
		}
		if ev.Data == "" {
			continue
		}

		s.dispatch(backend.Event{
			Kind:        backend.EventKind(ev.Name()),
			LastEventID: s.lastEventID,
			Data:        ev.Data,
		})
	}
}

// retryDelay converts a retry field in milliseconds, capped at maxRetryDelay
func retryDelay(ms int) time.Duration {
	if ms > int(maxRetryDelay/time.Millisecond) {
		return maxRetryDelay
	}
	return time.Duration(ms) * time.Millisecond
}

// reconnect reports the interruption and waits out the reconnection
// delay. It returns false when the stream should stop.
func (s *source) reconnect(backoff *retry.Backoff) bool {
	if !s.setState(backend.StateConnecting) {
		return false
	}
	s.dispatch(backend.Event{Kind: backend.KindError})

	delay, ok := backoff.Next()
	if !ok {
		s.logger.Warn("Giving up on stream", "attempts", backoff.Attempts())
		s.fail()
		return false
	}

	if m := s.backend.metrics; m != nil {
		m.Reconnects.Inc()
	}
	s.logger.Debug("Reconnecting to stream", "delay", delay, "attempt", backoff.Attempts())

	return retry.Wait(s.ctx, delay) == nil
}

// fail closes the stream for good and fires a final error
func (s *source) fail() {
	if !s.setState(backend.StateClosed) {
		return
	}
	s.dispatch(backend.Event{Kind: backend.KindError})
}

func (s *source) countAttempt(result string) {
	if m := s.backend.metrics; m != nil {
		m.ConnectionAttempts.WithLabelValues(result).Inc()
	}
}

func (s *source) checkpointKey() string {
	return s.url.String()
}

func (s *source) loadCheckpoint() {
	store := s.backend.checkpoints
	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, checkpointTimeout)
	defer cancel()

	id, ok, err := store.Load(ctx, s.checkpointKey())
	if err != nil {
		s.checkpointError("load", err)
		return
	}
	if ok {
		s.lastEventID = id
		s.logger.Debug("Resuming stream", "last_event_id", id)
	}
}

func (s *source) setLastEventID(id string) {
	if id == s.lastEventID {
		return
	}
	s.lastEventID = id

	store := s.backend.checkpoints
	if store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(s.ctx, checkpointTimeout)
	defer cancel()

	if id == "" {
		if err := store.Delete(ctx, s.checkpointKey()); err != nil {
			s.checkpointError("delete", err)
		}
		return
	}
	if err := store.Save(ctx, s.checkpointKey(), id); err != nil {
		s.checkpointError("save", err)
	}
}

func (s *source) checkpointError(op string, err error) {
	if s.ctx.Err() != nil {
		return
	}
	if m := s.backend.metrics; m != nil {
		m.CheckpointErrors.WithLabelValues(op).Inc()
	}
	if stderrors.Is(err, circuitbreaker.ErrCircuitOpen) {
		s.logger.Debug("Checkpoint store unavailable", "op", op)
		return
	}
	s.logger.Warn("Checkpoint operation failed", "op", op, "error", err)
}
