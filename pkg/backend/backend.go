// Package backend defines the capability set a streaming platform must
// provide to drive an event-source task.
//
// Exactly one adapter is linked into any build: the native HTTP adapter
// everywhere except js/wasm, where the browser EventSource adapter is used.
package backend

// EventKind names an event dispatched by a Source.
type EventKind string

const (
	KindOpen    EventKind = "open"
	KindMessage EventKind = "message"
	KindError   EventKind = "error"
)

// Ready state codes reported by Source.ReadyState. They are fixed by the
// EventSource protocol.
const (
	StateConnecting uint16 = 0
	StateOpen       uint16 = 1
	StateClosed     uint16 = 2
)

// Event is delivered to listeners. Data and LastEventID are only set for
// message events; Data is a string for text payloads and an adapter-specific
// value otherwise.
type Event struct {
	Kind        EventKind
	LastEventID string
	Data        any
}

// Listener receives events for one kind.
type Listener func(Event)

// Subscription is a removable listener registration. Remove must be safe to
// call more than once.
type Subscription interface {
	Remove()
}

// Source is one streaming connection handle.
type Source interface {
	// ReadyState returns the platform's current ready state code.
	ReadyState() uint16
	// Close closes the connection. It is idempotent.
	Close()
	// Subscribe registers a listener for kind.
	Subscribe(kind EventKind, listener Listener) Subscription
}

// Starter is implemented by sources that connect from their own goroutine.
// Such a source does nothing until Start is called, so listeners subscribed
// before Start see every event. Start must be safe to call more than once.
type Starter interface {
	Start()
}

// Backend creates sources. A failure to create is reported as a
// BackendRejected error.
type Backend interface {
	Create(url string) (Source, error)
	CreateWithCredentials(url string, withCredentials bool) (Source, error)
}
