package app

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/liquidnya/eventsource/pkg/eventsource"
)

// Sink writes received messages as JSON lines
type Sink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

type line struct {
	Task string `json:"task"`
	ID   string `json:"id,omitempty"`
	Data string `json:"data"`
}

// NewSink creates a sink writing to w
func NewSink(w io.Writer) *Sink {
	return &Sink{enc: json.NewEncoder(w)}
}

// Write writes one message. Concurrent tasks may share a sink.
func (s *Sink) Write(taskID string, m eventsource.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(line{Task: taskID, ID: m.ID, Data: m.Data})
}
