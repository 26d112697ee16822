package sse

import (
	"bufio"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/liquidnya/eventsource/pkg/errors"
)

// Writer writes SSE records to a stream
type Writer struct {
	flusher http.Flusher
	buf     *bufio.Writer
	closed  bool
}

// NewWriter creates a new SSE writer. If w is an http.Flusher it is flushed
// after every record.
func NewWriter(w io.Writer) *Writer {
	flusher, _ := w.(http.Flusher)
	return &Writer{
		flusher: flusher,
		buf:     bufio.NewWriter(w),
	}
}

// WriteEvent writes an SSE event
func (w *Writer) WriteEvent(event *Event) error {
	if w.closed {
		return errors.NewError(errors.ErrorTypeInternal, "SSE writer is closed")
	}

	if event.ID != "" || event.HasID {
		if _, err := fmt.Fprintf(w.buf, "id: %s\n", event.ID); err != nil {
			return errors.NewError(errors.ErrorTypeInternal, "failed to write SSE event ID").WithCause(err)
		}
	}

	if event.Type != "" {
		if _, err := fmt.Fprintf(w.buf, "event: %s\n", event.Type); err != nil {
			return errors.NewError(errors.ErrorTypeInternal, "failed to write SSE event type").WithCause(err)
		}
	}

	if event.Retry > 0 || event.HasRetry {
		if _, err := fmt.Fprintf(w.buf, "retry: %d\n", event.Retry); err != nil {
			return errors.NewError(errors.ErrorTypeInternal, "failed to write SSE retry").WithCause(err)
		}
	}

	if event.Data != "" {
		for _, line := range strings.Split(event.Data, "\n") {
			if _, err := fmt.Fprintf(w.buf, "data: %s\n", line); err != nil {
				return errors.NewError(errors.ErrorTypeInternal, "failed to write SSE data").WithCause(err)
			}
		}
	}

	if event.Comment != "" {
		if _, err := fmt.Fprintf(w.buf, ": %s\n", event.Comment); err != nil {
			return errors.NewError(errors.ErrorTypeInternal, "failed to write SSE comment").WithCause(err)
		}
	}

	// End event with blank line
	if _, err := w.buf.WriteString("\n"); err != nil {
		return errors.NewError(errors.ErrorTypeInternal, "failed to write SSE event terminator").WithCause(err)
	}

	return w.Flush()
}

// WriteComment writes a comment (useful for keepalive)
func (w *Writer) WriteComment(comment string) error {
	if w.closed {
		return errors.NewError(errors.ErrorTypeInternal, "SSE writer is closed")
	}

	if _, err := fmt.Fprintf(w.buf, ": %s\n", comment); err != nil {
		return errors.NewError(errors.ErrorTypeInternal, "failed to write SSE comment").WithCause(err)
	}

	return w.Flush()
}

// Flush flushes any buffered data
func (w *Writer) Flush() error {
	if err := w.buf.Flush(); err != nil {
		return errors.NewError(errors.ErrorTypeInternal, "failed to flush SSE buffer").WithCause(err)
	}

	if w.flusher != nil {
		w.flusher.Flush()
	}

	return nil
}

// Close closes the writer
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}

	w.closed = true
	return w.Flush()
}
