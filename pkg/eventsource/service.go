// Package eventsource opens Server-Sent Events streams and delivers their
// open, message and error events to a consumer as typed notifications.
//
// A Service creates one Task per stream. The task owns the platform
// connection and its three listener subscriptions and releases them exactly
// once, on Close or when the task becomes unreachable.
package eventsource

import (
	"log/slog"
	"net/url"

	"github.com/google/uuid"

	"github.com/liquidnya/eventsource/pkg/backend"
	"github.com/liquidnya/eventsource/pkg/errors"
	"github.com/liquidnya/eventsource/pkg/metrics"
)

// Service is a stateless factory for tasks.
type Service struct {
	backend backend.Backend
	logger  *slog.Logger
	metrics *metrics.Metrics
	onFault FaultHandler
}

// NewService creates a service driven by the platform backend linked into
// this build unless WithBackend is given.
func NewService(opts ...Option) *Service {
	s := &Service{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "eventsource")
	if s.backend == nil {
		s.backend = defaultBackend(s.logger, s.metrics)
	}
	if s.onFault == nil {
		s.onFault = s.logFault
	}
	return s
}

// Open opens a stream to rawURL. Connection progress is reported through
// onUpdate, never through the returned error. The callbacks must not retain
// the returned Task, or it is never released without Close. Once Close
// returns no further callback runs, unless Close was called from a callback.
func (s *Service) Open(rawURL string, onMessage MessageFunc, onUpdate UpdateFunc) (*Task, error) {
	if err := validateURL(rawURL); err != nil {
		s.countOpen(err)
		return nil, err
	}

	source, err := s.backend.Create(rawURL)
	if err != nil {
		err = rejected(err)
		s.countOpen(err)
		return nil, err
	}
	return s.newTask(rawURL, source, onMessage, onUpdate), nil
}

// OpenWithCredentials is like Open but sets the platform's credentials flag.
func (s *Service) OpenWithCredentials(rawURL string, withCredentials bool, onMessage MessageFunc, onUpdate UpdateFunc) (*Task, error) {
	if err := validateURL(rawURL); err != nil {
		s.countOpen(err)
		return nil, err
	}

	source, err := s.backend.CreateWithCredentials(rawURL, withCredentials)
	if err != nil {
		err = rejected(err)
		s.countOpen(err)
		return nil, err
	}
	return s.newTask(rawURL, source, onMessage, onUpdate), nil
}

func (s *Service) newTask(rawURL string, source backend.Source, onMessage MessageFunc, onUpdate UpdateFunc) *Task {
	id := uuid.NewString()
	res := &resources{
		source:  source,
		metrics: s.metrics,
	}
	res.alive.Store(true)

	res.handles = [3]backend.Subscription{
		source.Subscribe(backend.KindMessage, func(ev backend.Event) {
			if !res.alive.Load() {
				return
			}
			text, ok := ev.Data.(string)
			if !ok {
				s.fault(id, errors.NewError(errors.ErrorTypeNonTextPayload, "expected text data").
					WithDetail("last_event_id", ev.LastEventID))
				return
			}
			if onMessage != nil {
				onMessage(Message{ID: ev.LastEventID, Data: text})
			}
		}),
		source.Subscribe(backend.KindError, func(backend.Event) {
			s.update(res, onUpdate, UpdateError)
		}),
		source.Subscribe(backend.KindOpen, func(backend.Event) {
			s.update(res, onUpdate, UpdateOpen)
		}),
	}

	if starter, ok := source.(backend.Starter); ok {
		starter.Start()
	}

	if s.metrics != nil {
		s.metrics.TasksOpened.WithLabelValues("ok").Inc()
		s.metrics.TasksActive.Inc()
	}
	s.logger.Debug("Opened event source", "task", id, "url", rawURL)

	return newTask(id, res, s.logger)
}

func (s *Service) update(res *resources, onUpdate UpdateFunc, u Update) {
	if !res.alive.Load() {
		return
	}
	if s.metrics != nil {
		s.metrics.UpdatesTotal.WithLabelValues(u.String()).Inc()
	}
	if onUpdate != nil {
		onUpdate(u)
	}
}

func (s *Service) fault(taskID string, err error) {
	if s.metrics != nil {
		s.metrics.TaskFaults.WithLabelValues(string(errors.TypeOf(err))).Inc()
	}
	s.onFault(taskID, err)
}

func (s *Service) logFault(taskID string, err error) {
	s.logger.Warn("Dropped event", "task", taskID, "error", err)
}

func (s *Service) countOpen(err error) {
	if s.metrics != nil {
		s.metrics.TasksOpened.WithLabelValues(string(errors.TypeOf(err))).Inc()
	}
}

func validateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.NewError(errors.ErrorTypeInvalidURL, "failed to parse url").
			WithCause(err).
			WithDetail("url", rawURL)
	}
	if !u.IsAbs() {
		return errors.NewError(errors.ErrorTypeInvalidURL, "url is not absolute").
			WithDetail("url", rawURL)
	}
	return nil
}

// rejected normalizes a backend creation failure into BackendRejected.
func rejected(err error) error {
	if errors.TypeOf(err) == errors.ErrorTypeBackendRejected {
		return err
	}
	return errors.NewError(errors.ErrorTypeBackendRejected, "couldn't acquire event source").WithCause(err)
}
