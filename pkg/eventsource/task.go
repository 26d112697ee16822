package eventsource

import (
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/liquidnya/eventsource/pkg/backend"
	"github.com/liquidnya/eventsource/pkg/metrics"
)

// Task owns one stream connection and its three listener subscriptions.
// Call Close when done; a task that becomes unreachable without Close is
// released by the runtime. Callbacks that hold the Task keep it reachable,
// so such a task is only released by Close; use a weak.Pointer when a
// callback needs the task.
type Task struct {
	id      string
	res     *resources
	logger  *slog.Logger
	cleanup runtime.Cleanup
}

// resources is everything a task releases. Listener closures hold only this,
// never the Task, so an abandoned task can still be collected.
type resources struct {
	source  backend.Source
	handles [3]backend.Subscription
	alive   atomic.Bool
	once    sync.Once
	metrics *metrics.Metrics
}

func (r *resources) release() {
	r.once.Do(func() {
		r.alive.Store(false)
		r.source.Close()
		for _, h := range r.handles {
			if h != nil {
				h.Remove()
			}
		}
		if r.metrics != nil {
			r.metrics.TasksActive.Dec()
		}
	})
}

func newTask(id string, res *resources, logger *slog.Logger) *Task {
	t := &Task{
		id:     id,
		res:    res,
		logger: logger,
	}
	t.cleanup = runtime.AddCleanup(t, (*resources).release, res)
	return t
}

// ID returns the task's unique identifier.
func (t *Task) ID() string {
	return t.id
}

// ReadyState returns the live connection status. It panics with a
// ProtocolViolation error if the platform reports a code outside 0..2.
func (t *Task) ReadyState() ReadyState {
	state, err := ParseReadyState(t.res.source.ReadyState())
	if err != nil {
		panic(err)
	}
	return state
}

// IsActive reports whether the connection is not closed.
func (t *Task) IsActive() bool {
	return t.ReadyState() != Closed
}

// Close closes the connection and removes the listeners. Events already
// queued by the platform are dropped. Close is idempotent.
func (t *Task) Close() error {
	t.cleanup.Stop()
	if t.res.alive.Load() {
		t.logger.Debug("Closing event source", "task", t.id)
	}
	t.res.release()
	return nil
}
