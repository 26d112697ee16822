package eventsource

// Update is sent to the consumer on out-of-band connection events.
type Update int

const (
	// UpdateError is sent when the platform fires an error event. It does not
	// say whether the platform is retrying; query Task.ReadyState for that.
	UpdateError Update = iota
	// UpdateOpen is sent every time the connection is (re-)established.
	UpdateOpen
)

// String returns the string representation of an Update.
func (u Update) String() string {
	switch u {
	case UpdateError:
		return "error"
	case UpdateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Message is one received message event.
type Message struct {
	ID   string // last event id, empty if the stream never set one
	Data string
}

// MessageFunc receives messages in arrival order.
type MessageFunc func(Message)

// UpdateFunc receives connection updates.
type UpdateFunc func(Update)

// FaultHandler receives per-event faults of a task, such as a message with
// a non-text payload. The task stays usable.
type FaultHandler func(taskID string, err error)
