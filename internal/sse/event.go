// Package sse reads and writes the text/event-stream wire format.
package sse

// Event represents one dispatched Server-Sent Event
type Event struct {
	ID       string // Event ID for reconnection
	HasID    bool   // whether an id field was present; an empty id resets the last event id
	Type     string // Event type, empty means "message"
	Data     string // Event data (can be multiline)
	Retry    int    // Reconnection time in milliseconds
	HasRetry bool   // whether a valid retry field was present
	Comment  string // Comment line
}

// Name returns the event type to dispatch under.
func (e *Event) Name() string {
	if e.Type == "" {
		return "message"
	}
	return e.Type
}
