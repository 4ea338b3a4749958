// Package relay implements the server side event relay between the clients of a
// project.
//
// Clients publish opaque JSON events scoped to a project, the relay queues them
// until the subscribers of the project take them. Two delivery modes exist:
//
//   - Drain: a subscriber takes every pending event of the project, removing it.
//     Concurrent subscribers of the same project split the events between them.
//   - Fanout: every subscriber has its own cursor and receives every event
//     published after it subscribed exactly once.
package relay

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
)

// DeliveryMode is how the queued events are delivered to the subscribers.
type DeliveryMode string

const (
	DeliveryModeDrain  DeliveryMode = "drain"
	DeliveryModeFanout DeliveryMode = "fanout"
)

// ParseDeliveryMode parses a delivery mode.
func ParseDeliveryMode(s string) (DeliveryMode, error) {
	switch m := DeliveryMode(s); m {
	case DeliveryModeDrain, DeliveryModeFanout:
		return m, nil
	}
	return "", fmt.Errorf("invalid delivery mode %q (must be: drain, fanout): %w", s, model.ErrNotValid)
}

// QueueConfig is the configuration for the queue.
type QueueConfig struct {
	Mode DeliveryMode
	// MaxPending is the max number of events retained per project, once
	// reached the oldest ones are dropped.
	MaxPending int
	Logger     log.Logger
}

func (c *QueueConfig) defaults() error {
	if c.Mode == "" {
		c.Mode = DeliveryModeDrain
	}
	if _, err := ParseDeliveryMode(string(c.Mode)); err != nil {
		return err
	}
	if c.MaxPending <= 0 {
		c.MaxPending = 10000
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "relay.Queue"})
	return nil
}

// Queue is the event relay queue. It's safe for concurrent use.
type Queue struct {
	mode       DeliveryMode
	maxPending int
	logger     log.Logger

	mu       sync.Mutex
	projects map[string]*projectLog
	closed   bool
}

// projectLog is the retained event log of a project. Positions are absolute, the
// first retained event is at offset.
type projectLog struct {
	events  []json.RawMessage
	offset  int64
	cursors map[*Cursor]struct{}
}

func (p *projectLog) head() int64 { return p.offset + int64(len(p.events)) }

// NewQueue returns a new queue.
func NewQueue(cfg QueueConfig) (*Queue, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Queue{
		mode:       cfg.Mode,
		maxPending: cfg.MaxPending,
		logger:     cfg.Logger,
		projects:   map[string]*projectLog{},
	}, nil
}

// Mode returns the delivery mode of the queue.
func (q *Queue) Mode() DeliveryMode { return q.mode }

// Publish appends an event to the project queue.
func (q *Queue) Publish(projectID string, event json.RawMessage) error {
	if projectID == "" {
		return fmt.Errorf("project id is required: %w", model.ErrNotValid)
	}
	if !model.ValidEvent(event) {
		return fmt.Errorf("event must be a JSON object: %w", model.ErrNotValid)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return model.ErrClosed
	}

	p := q.project(projectID)
	p.events = append(p.events, append(json.RawMessage{}, event...))
	if over := len(p.events) - q.maxPending; over > 0 {
		q.logger.Warningf("Project %s queue is full, dropping %d events", projectID, over)
		p.events = p.events[over:]
		p.offset += int64(over)
	}

	q.logger.Debugf("Event queued for project %s (%d pending)", projectID, len(p.events))
	return nil
}

// Drain removes and returns every pending event of the project in publish order.
// The events of other projects are untouched.
func (q *Queue) Drain(projectID string) []json.RawMessage {
	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.projects[projectID]
	if !ok || len(p.events) == 0 {
		return nil
	}

	events := p.events
	p.offset = p.head()
	p.events = nil
	q.gc(projectID, p)

	return events
}

// Subscribe returns a new cursor on the project. The cursor starts at the first
// retained event of the project.
func (q *Queue) Subscribe(projectID string) *Cursor {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return &Cursor{q: q, projectID: projectID, closed: true}
	}

	p := q.project(projectID)
	c := &Cursor{q: q, projectID: projectID, pos: p.offset}
	p.cursors[c] = struct{}{}

	q.logger.Debugf("Cursor subscribed to project %s", projectID)
	return c
}

// Close stops accepting events and closes every cursor.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	for _, p := range q.projects {
		for c := range p.cursors {
			c.closed = true
		}
	}
	q.projects = map[string]*projectLog{}
}

// Closed returns true if the queue has been closed.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.closed
}

// ProjectStats are the stats of a project queue.
type ProjectStats struct {
	Pending     int `json:"pending"`
	Subscribers int `json:"subscribers"`
}

// Stats are the stats of the queue.
type Stats struct {
	Mode     DeliveryMode            `json:"mode"`
	Projects map[string]ProjectStats `json:"projects"`
}

// Stats returns the current stats of the queue.
func (q *Queue) Stats() Stats {
	q.mu.Lock()
	defer q.mu.Unlock()

	s := Stats{Mode: q.mode, Projects: map[string]ProjectStats{}}
	for id, p := range q.projects {
		s.Projects[id] = ProjectStats{Pending: len(p.events), Subscribers: len(p.cursors)}
	}
	return s
}

// project returns the log of a project creating it if missing.
// Must be called with the lock held.
func (q *Queue) project(projectID string) *projectLog {
	p, ok := q.projects[projectID]
	if !ok {
		p = &projectLog{cursors: map[*Cursor]struct{}{}}
		q.projects[projectID] = p
	}
	return p
}

// compact drops the events every cursor of the project has already read. Without
// cursors the events are retained for future subscribers.
// Must be called with the lock held.
func (q *Queue) compact(projectID string, p *projectLog) {
	if len(p.cursors) == 0 {
		return
	}

	low := p.head()
	for c := range p.cursors {
		if c.pos < low {
			low = c.pos
		}
	}
	if n := int(low - p.offset); n > 0 {
		p.events = p.events[n:]
		p.offset = low
	}
	q.gc(projectID, p)
}

// gc removes the project log once it has nothing to keep.
// Must be called with the lock held.
func (q *Queue) gc(projectID string, p *projectLog) {
	if len(p.events) == 0 && len(p.cursors) == 0 {
		delete(q.projects, projectID)
	}
}

// Cursor is the read position of a single subscriber on a project.
type Cursor struct {
	q         *Queue
	projectID string
	pos       int64
	closed    bool
}

// Next returns the events published since the previous call. Events dropped by
// a drain or by the retention limit are skipped.
func (c *Cursor) Next() []json.RawMessage {
	c.q.mu.Lock()
	defer c.q.mu.Unlock()

	if c.closed {
		return nil
	}

	p, ok := c.q.projects[c.projectID]
	if !ok {
		return nil
	}
	if c.pos < p.offset {
		c.pos = p.offset
	}

	start := int(c.pos - p.offset)
	if start >= len(p.events) {
		return nil
	}

	events := make([]json.RawMessage, len(p.events)-start)
	copy(events, p.events[start:])
	c.pos = p.head()
	c.q.compact(c.projectID, p)

	return events
}

// Close unsubscribes the cursor.
func (c *Cursor) Close() {
	c.q.mu.Lock()
	defer c.q.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	p, ok := c.q.projects[c.projectID]
	if !ok {
		return
	}
	delete(p.cursors, c)
	c.q.compact(c.projectID, p)
	c.q.gc(c.projectID, p)
}
