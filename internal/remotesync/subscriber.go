// Package remotesync applies the events published by the other clients of a
// project to the local store.
package remotesync

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
)

// State is the connection state of a subscriber. A subscriber goes through
// CONNECTING, STREAMING and CLOSED while running, IDLE is only the state of a
// subscriber whose Run has not started yet.
type State string

const (
	StateIdle       State = "IDLE"
	StateConnecting State = "CONNECTING"
	StateStreaming  State = "STREAMING"
	StateClosed     State = "CLOSED"
)

// Source is a project subscription stream.
type Source interface {
	Stream(ctx context.Context, projectID string, emit func(model.Frame) error) error
}

// TaskReplica is the history-silent write surface the events are replayed on.
type TaskReplica interface {
	UpdateTask(id string, patch model.TaskPatch) bool
	DeleteTask(id string, at time.Time) bool
	AddComment(taskID string, comment model.Comment) bool
}

// SubscriberConfig is the configuration for the subscriber.
type SubscriberConfig struct {
	ProjectID string
	Source    Source
	Replica   TaskReplica
	// OnState is optional, called on every state transition.
	OnState func(State)
	// TimeNow is used as the deletion time of replayed deletions.
	TimeNow func() time.Time
	Logger  log.Logger
}

func (c *SubscriberConfig) defaults() error {
	if c.ProjectID == "" {
		return fmt.Errorf("project id is required")
	}
	if c.Source == nil {
		return fmt.Errorf("source is required")
	}
	if c.Replica == nil {
		return fmt.Errorf("replica is required")
	}
	if c.OnState == nil {
		c.OnState = func(State) {}
	}
	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "remotesync.Subscriber", "project": c.ProjectID})
	return nil
}

// Subscriber keeps the local store in sync with the remote changes of a project.
// It doesn't reconnect, once closed a new subscriber is required.
type Subscriber struct {
	projectID string
	source    Source
	replica   TaskReplica
	onState   func(State)
	timeNow   func() time.Time
	logger    log.Logger

	mu    sync.Mutex
	state State
}

// NewSubscriber returns a new subscriber.
func NewSubscriber(cfg SubscriberConfig) (*Subscriber, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Subscriber{
		projectID: cfg.ProjectID,
		source:    cfg.Source,
		replica:   cfg.Replica,
		onState:   cfg.OnState,
		timeNow:   cfg.TimeNow,
		logger:    cfg.Logger,
		state:     StateIdle,
	}, nil
}

// State returns the current state of the subscriber.
func (s *Subscriber) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Run subscribes to the project and replays the received events until the
// context is done (nil is returned) or the stream fails.
func (s *Subscriber) Run(ctx context.Context) error {
	s.setState(StateConnecting)
	defer s.setState(StateClosed)

	err := s.source.Stream(ctx, s.projectID, s.handleFrame)
	if ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("subscription stream failed: %w", err)
	}
	return nil
}

func (s *Subscriber) handleFrame(f model.Frame) error {
	switch f.Type {
	case model.FrameTypeConnected:
		s.setState(StateStreaming)
	case model.FrameTypeBatch:
		s.Replay(f.Events)
	default:
		s.logger.Debugf("Ignoring unknown frame type %q", f.Type)
	}
	return nil
}

// Replay applies the events in order to the replica. Events that can't be decoded
// are skipped. Returns the number of events that changed the store.
func (s *Subscriber) Replay(events []json.RawMessage) int {
	applied := 0
	for _, e := range events {
		m, err := model.DecodeMutation(e)
		if err != nil {
			s.logger.Warningf("Skipping remote event: %s", err)
			continue
		}

		if s.apply(m) {
			applied++
		}
	}
	return applied
}

func (s *Subscriber) apply(m model.Mutation) bool {
	switch m.Type {
	case model.MutationKindCommentAdded:
		return s.replica.AddComment(m.Comment.TaskID, *m.Comment)
	case model.MutationKindTaskDeleted:
		return s.replica.DeleteTask(m.TaskID, s.timeNow())
	case model.MutationKindTaskUpdated:
		return s.replica.UpdateTask(m.Task.TaskID(), *m.Task)
	}
	return false
}

func (s *Subscriber) setState(st State) {
	s.mu.Lock()
	if s.state == st {
		s.mu.Unlock()
		return
	}
	s.state = st
	s.mu.Unlock()

	s.logger.Debugf("Subscriber state %s", st)
	s.onState(st)
}
