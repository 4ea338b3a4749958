package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/slok/taskflow/internal/model"
)

// DefaultStreamInterval is the default time between batch frames.
const DefaultStreamInterval = 100 * time.Millisecond

// Stream runs a project subscription. It emits a connected frame right away and
// then, every interval, a batch frame with the events taken from the queue when
// there is any. The events are taken according to the queue delivery mode.
//
// Stream returns nil when the context is done, the emit error if emitting fails
// and model.ErrClosed if the queue is closed. Events taken in a failed emit are
// lost in drain mode.
func (q *Queue) Stream(ctx context.Context, projectID string, interval time.Duration, emit func(model.Frame) error) error {
	if projectID == "" {
		return fmt.Errorf("project id is required: %w", model.ErrNotValid)
	}
	if interval <= 0 {
		interval = DefaultStreamInterval
	}

	next := func() []json.RawMessage { return q.Drain(projectID) }
	if q.mode == DeliveryModeFanout {
		// Subscribe before announcing the connection so nothing published after
		// the connected frame is missed.
		c := q.Subscribe(projectID)
		defer c.Close()
		next = c.Next
	}

	if err := emit(model.Frame{Type: model.FrameTypeConnected}); err != nil {
		return fmt.Errorf("could not emit connected frame: %w", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if q.Closed() {
				return model.ErrClosed
			}

			events := next()
			if len(events) == 0 {
				continue
			}
			if err := emit(model.Frame{Type: model.FrameTypeBatch, Events: events}); err != nil {
				return fmt.Errorf("could not emit batch frame: %w", err)
			}
		}
	}
}
