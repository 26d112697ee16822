package eventsource

import (
	"fmt"

	"github.com/liquidnya/eventsource/pkg/backend"
	"github.com/liquidnya/eventsource/pkg/errors"
)

// ReadyState is the connection status of a task.
type ReadyState uint16

const (
	Connecting ReadyState = ReadyState(backend.StateConnecting)
	Open       ReadyState = ReadyState(backend.StateOpen)
	Closed     ReadyState = ReadyState(backend.StateClosed)
)

// String returns the string representation of a ReadyState.
func (s ReadyState) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("ReadyState(%d)", uint16(s))
	}
}

// ParseReadyState maps a platform ready state code. Codes outside 0..2
// yield a ProtocolViolation error.
func ParseReadyState(code uint16) (ReadyState, error) {
	switch code {
	case backend.StateConnecting:
		return Connecting, nil
	case backend.StateOpen:
		return Open, nil
	case backend.StateClosed:
		return Closed, nil
	}
	return 0, errors.NewError(errors.ErrorTypeProtocolViolation,
		fmt.Sprintf("unexpected value of EventSource.readyState: %d", code)).
		WithDetail("code", code)
}
