package health

import (
	"context"
	"errors"
	"fmt"

	"github.com/liquidnya/eventsource/internal/storage"
	"github.com/liquidnya/eventsource/pkg/eventsource"
)

const probeKey = "health-probe"

// StreamCheck reports the current task: open is healthy, connecting is
// degraded, closed or missing is unhealthy.
func StreamCheck(current func() *eventsource.Task) Check {
	return func(ctx context.Context) error {
		task := current()
		if task == nil {
			return errors.New("no stream")
		}
		switch state := task.ReadyState(); state {
		case eventsource.Open:
			return nil
		case eventsource.Connecting:
			return fmt.Errorf("%w: stream connecting", ErrDegraded)
		default:
			return fmt.Errorf("stream %s", state)
		}
	}
}

// CheckpointCheck reads a probe key to verify the store responds
func CheckpointCheck(store storage.CheckpointStore) Check {
	return func(ctx context.Context) error {
		if _, _, err := store.Load(ctx, probeKey); err != nil {
			return fmt.Errorf("checkpoint store: %w", err)
		}
		return nil
	}
}
