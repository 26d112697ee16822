package eventsource

import (
	stderrors "errors"
	"testing"

	"github.com/liquidnya/eventsource/pkg/errors"
)

func TestParseReadyState(t *testing.T) {
	tests := []struct {
		code    uint16
		want    ReadyState
		wantErr bool
	}{
		{code: 0, want: Connecting},
		{code: 1, want: Open},
		{code: 2, want: Closed},
		{code: 3, wantErr: true},
		{code: 4, wantErr: true},
		{code: 65535, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(ReadyState(tt.code).String(), func(t *testing.T) {
			got, err := ParseReadyState(tt.code)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseReadyState(%d) expected error", tt.code)
				}
				if !stderrors.Is(err, errors.ErrProtocolViolation) {
					t.Errorf("Expected protocol violation, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseReadyState(%d) unexpected error: %v", tt.code, err)
			}
			if got != tt.want {
				t.Errorf("ParseReadyState(%d) = %v, want %v", tt.code, got, tt.want)
			}
		})
	}
}

func TestReadyStateString(t *testing.T) {
	tests := map[ReadyState]string{
		Connecting:    "connecting",
		Open:          "open",
		Closed:        "closed",
		ReadyState(9): "ReadyState(9)",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}

func TestUpdateString(t *testing.T) {
	if UpdateOpen.String() != "open" {
		t.Errorf("UpdateOpen.String() = %q", UpdateOpen.String())
	}
	if UpdateError.String() != "error" {
		t.Errorf("UpdateError.String() = %q", UpdateError.String())
	}
	if Update(42).String() != "unknown" {
		t.Errorf("Update(42).String() = %q", Update(42).String())
	}
}
