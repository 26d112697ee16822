package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/liquidnya/eventsource/pkg/errors"
)

// MaxLineLength bounds the bytes buffered for one line
const MaxLineLength = 1 << 20

// Reader reads SSE records from a stream
type Reader struct {
	r       *bufio.Reader
	started bool
	closed  bool
	n       int64
}

// NewReader creates a new SSE reader
func NewReader(r io.Reader) *Reader {
	return &Reader{
		r: bufio.NewReader(r),
	}
}

// BytesRead returns the number of bytes consumed so far
func (r *Reader) BytesRead() int64 {
	return r.n
}

// ReadEvent reads the next SSE record. Records are returned even when they
// carry no data so that id and retry updates are not lost; callers decide
// whether to dispatch. io.EOF is returned when the stream ends, discarding
// any incomplete record.
func (r *Reader) ReadEvent() (*Event, error) {
	if r.closed {
		return nil, errors.NewError(errors.ErrorTypeInternal, "SSE reader is closed")
	}

	event := &Event{}
	var dataLines []string
	var seen bool

	for {
		line, err := r.readLine()
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, errors.NewError(errors.ErrorTypeUnavailable, "failed to read SSE data").WithCause(err)
		}

		// Empty line signals end of event
		if line == "" {
			if !seen {
				continue
			}
			event.Data = strings.Join(dataLines, "\n")
			return event, nil
		}
		seen = true

		// Comment
		if line[0] == ':' {
			event.Comment = strings.TrimPrefix(line[1:], " ")
			continue
		}

		field, value := parseField(line)
		switch field {
		case "id":
			if !strings.ContainsRune(value, '\x00') {
				event.ID = value
				event.HasID = true
			}
		case "event":
			event.Type = value
		case "data":
			dataLines = append(dataLines, value)
		case "retry":
			if retry, ok := parseRetry(value); ok {
				event.Retry = retry
				event.HasRetry = true
			}
		default:
			// Unknown field, ignore
		}
	}
}

// readLine returns the next line without its terminator. CRLF, LF and a
// lone CR all terminate a line.
func (r *Reader) readLine() (string, error) {
	var sb strings.Builder
	for {
		if sb.Len() >= MaxLineLength {
			return "", errors.NewError(errors.ErrorTypeUnavailable, "SSE line too long").
				WithDetail("limit", MaxLineLength)
		}
		b, err := r.r.ReadByte()
		if err != nil {
			return "", err
		}
		r.n++
		switch b {
		case '\n':
			return r.strip(sb.String()), nil
		case '\r':
			if next, err := r.r.Peek(1); err == nil && next[0] == '\n' {
				r.r.ReadByte()
				r.n++
			}
			return r.strip(sb.String()), nil
		default:
			sb.WriteByte(b)
		}
	}
}

// strip removes a leading UTF-8 byte order mark from the first line
func (r *Reader) strip(line string) string {
	if !r.started {
		r.started = true
		return strings.TrimPrefix(line, "\uFEFF")
	}
	return line
}

// Close closes the reader
func (r *Reader) Close() error {
	r.closed = true
	return nil
}

func parseField(line string) (field, value string) {
	colonIndex := strings.IndexByte(line, ':')
	if colonIndex == -1 {
		// no value
		return line, ""
	}

	field = line[:colonIndex]
	value = line[colonIndex+1:]

	// Remove optional space after colon
	if len(value) > 0 && value[0] == ' ' {
		value = value[1:]
	}

	return field, value
}

func parseRetry(value string) (int, bool) {
	if value == "" {
		return 0, false
	}
	for i := 0; i < len(value); i++ {
		if value[i] < '0' || value[i] > '9' {
			return 0, false
		}
	}
	retry, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return retry, true
}
