package eventsource

import (
	"sync"

	"github.com/liquidnya/eventsource/pkg/backend"
	"github.com/liquidnya/eventsource/pkg/errors"
)

// fakeBackend records every platform call.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []createCall
	sources []*fakeSource
	err     error
}

type createCall struct {
	url             string
	credentials     bool
	withCredentials bool
}

func (b *fakeBackend) Create(url string) (backend.Source, error) {
	return b.create(createCall{url: url})
}

func (b *fakeBackend) CreateWithCredentials(url string, withCredentials bool) (backend.Source, error) {
	return b.create(createCall{url: url, credentials: true, withCredentials: withCredentials})
}

func (b *fakeBackend) create(call createCall) (backend.Source, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
	if b.err != nil {
		return nil, b.err
	}
	src := &fakeSource{
		state:     backend.StateConnecting,
		listeners: make(map[int]fakeListener),
	}
	b.sources = append(b.sources, src)
	return src, nil
}

func (b *fakeBackend) callCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.calls)
}

type fakeListener struct {
	kind backend.EventKind
	fn   backend.Listener
}

// fakeSource dispatches synchronously on the caller's goroutine, like a
// single-threaded event loop.
type fakeSource struct {
	mu         sync.Mutex
	state      uint16
	closeCalls int
	listeners  map[int]fakeListener
	nextID     int
	subscribed int
	removed    int

	starts            int
	subscribedAtStart int
}

func (s *fakeSource) ReadyState() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *fakeSource) setState(code uint16) {
	s.mu.Lock()
	s.state = code
	s.mu.Unlock()
}

func (s *fakeSource) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closeCalls++
	s.state = backend.StateClosed
}

func (s *fakeSource) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.starts++
	s.subscribedAtStart = s.subscribed
}

func (s *fakeSource) Subscribe(kind backend.EventKind, fn backend.Listener) backend.Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.subscribed++
	s.listeners[id] = fakeListener{kind: kind, fn: fn}
	return &fakeSubscription{source: s, id: id}
}

// listenersFor returns the registered listener functions for kind.
func (s *fakeSource) listenersFor(kind backend.EventKind) []backend.Listener {
	s.mu.Lock()
	defer s.mu.Unlock()
	var fns []backend.Listener
	for id := 0; id < s.nextID; id++ {
		if l, ok := s.listeners[id]; ok && l.kind == kind {
			fns = append(fns, l.fn)
		}
	}
	return fns
}

func (s *fakeSource) emit(ev backend.Event) {
	for _, fn := range s.listenersFor(ev.Kind) {
		fn(ev)
	}
}

func (s *fakeSource) open() {
	s.setState(backend.StateOpen)
	s.emit(backend.Event{Kind: backend.KindOpen})
}

func (s *fakeSource) message(id string, data any) {
	s.emit(backend.Event{Kind: backend.KindMessage, LastEventID: id, Data: data})
}

func (s *fakeSource) fail(state uint16) {
	s.setState(state)
	s.emit(backend.Event{Kind: backend.KindError})
}

func (s *fakeSource) counts() (subscribed, active, removed, closed int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.subscribed, len(s.listeners), s.removed, s.closeCalls
}

type fakeSubscription struct {
	source *fakeSource
	id     int
}

func (f *fakeSubscription) Remove() {
	f.source.mu.Lock()
	defer f.source.mu.Unlock()
	if _, ok := f.source.listeners[f.id]; !ok {
		return
	}
	delete(f.source.listeners, f.id)
	f.source.removed++
}

var errFakeRejected = errors.NewError(errors.ErrorTypeBackendRejected, "disallowed origin")
