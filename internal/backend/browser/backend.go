//go:build js && wasm

package browser

import (
	"fmt"
	"log/slog"
	"sync"
	"syscall/js"

	"github.com/liquidnya/eventsource/pkg/backend"
	"github.com/liquidnya/eventsource/pkg/errors"
)

// Backend creates EventSource objects in the JS host
type Backend struct {
	logger *slog.Logger
}

// New creates a browser backend
func New(logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{logger: logger.With("component", "browser")}
}

// Create calls new EventSource(url)
func (b *Backend) Create(url string) (backend.Source, error) {
	return b.create(url)
}

// CreateWithCredentials calls new EventSource(url, {withCredentials})
func (b *Backend) CreateWithCredentials(url string, withCredentials bool) (backend.Source, error) {
	init := js.Global().Get("Object").New()
	init.Set("withCredentials", withCredentials)
	return b.create(url, init)
}

func (b *Backend) create(url string, args ...any) (src backend.Source, err error) {
	ctor := js.Global().Get("EventSource")
	if ctor.Type() != js.TypeFunction {
		return nil, errors.NewError(errors.ErrorTypeBackendRejected, "EventSource is not available")
	}

	// the constructor throws for malformed URLs and blocked origins
	defer func() {
		if r := recover(); r != nil {
			e := errors.NewError(errors.ErrorTypeBackendRejected, "EventSource constructor threw")
			if cause, ok := r.(error); ok {
				e = e.WithCause(cause)
			} else {
				e = e.WithDetail("exception", fmt.Sprint(r))
			}
			b.logger.Debug("EventSource rejected", "url", url, "error", e)
			src, err = nil, e
		}
	}()

	value := ctor.New(append([]any{url}, args...)...)
	return &source{value: value}, nil
}

type source struct {
	value js.Value
}

// ReadyState reads EventSource.readyState
func (s *source) ReadyState() uint16 {
	return uint16(s.value.Get("readyState").Int())
}

// Close calls EventSource.close, which is idempotent
func (s *source) Close() {
	s.value.Call("close")
}

// Subscribe adds an event listener for kind
func (s *source) Subscribe(kind backend.EventKind, fn backend.Listener) backend.Subscription {
	callback := js.FuncOf(func(this js.Value, args []js.Value) any {
		ev := backend.Event{Kind: kind}
		if len(args) > 0 {
			ev = toEvent(kind, args[0])
		}
		fn(ev)
		return nil
	})
	s.value.Call("addEventListener", string(kind), callback)

	return &subscription{target: s.value, kind: kind, callback: callback}
}

// toEvent converts a DOM Event. Only MessageEvents carry data.
func toEvent(kind backend.EventKind, v js.Value) backend.Event {
	ev := backend.Event{Kind: kind}
	if v.Type() != js.TypeObject {
		return ev
	}

	if id := v.Get("lastEventId"); id.Type() == js.TypeString {
		ev.LastEventID = id.String()
	}
	switch data := v.Get("data"); data.Type() {
	case js.TypeUndefined:
	case js.TypeString:
		ev.Data = data.String()
	default:
		ev.Data = data
	}
	return ev
}

type subscription struct {
	target   js.Value
	kind     backend.EventKind
	callback js.Func
	once     sync.Once
}

// Remove removes the listener and releases the callback
func (sub *subscription) Remove() {
	sub.once.Do(func() {
		sub.target.Call("removeEventListener", string(sub.kind), sub.callback)
		sub.callback.Release()
	})
}
