package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/slok/taskflow/internal/model"
)

// LocalPublisher publishes events into an in-process queue.
type LocalPublisher struct {
	Queue *Queue
}

// Publish publishes an event.
func (l LocalPublisher) Publish(_ context.Context, projectID string, event json.RawMessage) error {
	return l.Queue.Publish(projectID, event)
}

// LocalSource subscribes to an in-process queue.
type LocalSource struct {
	Queue    *Queue
	Interval time.Duration
}

// Stream runs a project subscription on the queue.
func (l LocalSource) Stream(ctx context.Context, projectID string, emit func(model.Frame) error) error {
	return l.Queue.Stream(ctx, projectID, l.Interval, emit)
}
