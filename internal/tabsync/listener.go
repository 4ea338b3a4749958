package tabsync

import (
	"context"
	"fmt"

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
)

// TaskReplica is the history-silent write surface the listener merges into.
type TaskReplica interface {
	ApplyTasks(fn func(current model.TaskMap) model.TaskMap)
}

// ListenerConfig is the configuration for the cross tab merge listener.
type ListenerConfig struct {
	// Key is the persisted store key, other keys are ignored.
	Key     string
	Replica TaskReplica
	Logger  log.Logger
}

func (c *ListenerConfig) defaults() error {
	if c.Key == "" {
		c.Key = model.StoreBlobKey
	}
	if c.Replica == nil {
		return fmt.Errorf("replica is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "tabsync.Listener"})
	return nil
}

// Listener merges the task store changes made by other tabs into the local store.
type Listener struct {
	key     string
	replica TaskReplica
	logger  log.Logger
}

// NewListener returns a new cross tab merge listener.
func NewListener(cfg ListenerConfig) (*Listener, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Listener{
		key:     cfg.Key,
		replica: cfg.Replica,
		logger:  cfg.Logger,
	}, nil
}

// Handle merges a single change. Returns true if the change was merged into
// the store.
func (l *Listener) Handle(change StorageChange) bool {
	if change.Key != l.key || len(change.NewValue) == 0 {
		return false
	}

	incoming, err := ParseBlob(change.NewValue)
	if err != nil {
		l.logger.Warningf("Ignoring malformed store change from tab %s: %s", change.WriterID, err)
		return false
	}
	if len(incoming) == 0 {
		return false
	}

	l.replica.ApplyTasks(func(current model.TaskMap) model.TaskMap {
		return MergeTasks(current, incoming)
	})

	l.logger.Debugf("Merged %d tasks from tab %s", len(incoming), change.WriterID)
	return true
}

// Run handles the changes until the context is done or the channel is closed.
func (l *Listener) Run(ctx context.Context, changes <-chan StorageChange) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case change, ok := <-changes:
			if !ok {
				return nil
			}
			l.Handle(change)
		}
	}
}
