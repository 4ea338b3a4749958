// Package tabsync shares the persisted task store between the tabs of an origin.
//
// An origin is a set of tabs using the same blob repository. Every write made by
// a tab is notified to the rest of the tabs as a StorageChange, never to the tab
// that made it. Writes from tabs living in other processes are discovered by
// polling the repository.
package tabsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
	"github.com/slok/taskflow/internal/storage"
)

// StorageChange is the notification of a key change made by another tab.
type StorageChange struct {
	Key      string
	OldValue []byte
	NewValue []byte
	WriterID string
}

// OriginConfig is the configuration for the origin.
type OriginConfig struct {
	Repository   storage.BlobRepository
	PollInterval time.Duration
	// ChangeBuffer is the size of the change queue of each tab.
	ChangeBuffer int
	Logger       log.Logger
}

func (c *OriginConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 250 * time.Millisecond
	}
	if c.ChangeBuffer <= 0 {
		c.ChangeBuffer = 64
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "tabsync.Origin"})
	return nil
}

// Origin tracks the blob repository changes and fans them out to its tabs.
type Origin struct {
	repo     storage.BlobRepository
	interval time.Duration
	buffer   int
	logger   log.Logger

	mu        sync.Mutex
	tabs      map[string]*Tab
	values    map[string][]byte
	revisions map[string]int64
	revision  int64
}

// NewOrigin returns a new origin. The current repository contents are loaded as
// the baseline, they are not notified to the tabs.
func NewOrigin(ctx context.Context, cfg OriginConfig) (*Origin, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	o := &Origin{
		repo:      cfg.Repository,
		interval:  cfg.PollInterval,
		buffer:    cfg.ChangeBuffer,
		logger:    cfg.Logger,
		tabs:      map[string]*Tab{},
		values:    map[string][]byte{},
		revisions: map[string]int64{},
	}

	blobs, err := o.repo.ListBlobsSince(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("could not load blobs: %w", err)
	}
	for _, b := range blobs {
		o.values[b.Key] = b.Value
		o.revisions[b.Key] = b.Revision
		if b.Revision > o.revision {
			o.revision = b.Revision
		}
	}

	return o, nil
}

// OpenTab registers a new tab on the origin. An empty id generates a new one.
func (o *Origin) OpenTab(id string) (*Tab, error) {
	if id == "" {
		id = model.NewID()
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.tabs[id]; ok {
		return nil, fmt.Errorf("tab %s: %w", id, model.ErrAlreadyExists)
	}

	t := &Tab{
		id:      id,
		origin:  o,
		changes: make(chan StorageChange, o.buffer),
	}
	o.tabs[id] = t

	o.logger.Debugf("Tab %s opened", id)
	return t, nil
}

// Run polls the repository until the context is done.
func (o *Origin) Run(ctx context.Context) error {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := o.Sync(ctx); err != nil && !errors.Is(err, context.Canceled) {
				o.logger.Errorf("could not sync origin: %s", err)
			}
		}
	}
}

// Sync fetches the repository changes since the last sync and notifies them.
func (o *Origin) Sync(ctx context.Context) error {
	o.mu.Lock()
	since := o.revision
	o.mu.Unlock()

	blobs, err := o.repo.ListBlobsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("could not list blobs: %w", err)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	for _, b := range blobs {
		o.observe(b)
		if b.Revision > o.revision {
			o.revision = b.Revision
		}
	}
	return nil
}

// observe notifies a blob change if it's newer than the known one.
// Must be called with the lock held.
func (o *Origin) observe(b model.Blob) {
	if b.Revision <= o.revisions[b.Key] {
		return
	}

	change := StorageChange{
		Key:      b.Key,
		OldValue: o.values[b.Key],
		NewValue: b.Value,
		WriterID: b.WriterID,
	}
	o.values[b.Key] = b.Value
	o.revisions[b.Key] = b.Revision

	for id, t := range o.tabs {
		if id == b.WriterID {
			continue
		}

		select {
		case t.changes <- copyChange(change):
		default:
			o.logger.Warningf("Tab %s change queue is full, dropping %s change", id, b.Key)
		}
	}
}

func (o *Origin) closeTab(t *Tab) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if _, ok := o.tabs[t.id]; !ok {
		return
	}
	delete(o.tabs, t.id)
	close(t.changes)

	o.logger.Debugf("Tab %s closed", t.id)
}

func copyChange(c StorageChange) StorageChange {
	if c.OldValue != nil {
		c.OldValue = append([]byte{}, c.OldValue...)
	}
	if c.NewValue != nil {
		c.NewValue = append([]byte{}, c.NewValue...)
	}
	return c
}

// Tab is a single client of an origin.
type Tab struct {
	id      string
	origin  *Origin
	changes chan StorageChange
}

// ID returns the tab id.
func (t *Tab) ID() string { return t.id }

// Changes returns the changes made by the other tabs. The channel is closed
// when the tab is closed.
func (t *Tab) Changes() <-chan StorageChange { return t.changes }

// Write stores the value of a key and notifies the rest of the tabs. Writing the
// value the key already has is a no-op.
func (t *Tab) Write(ctx context.Context, key string, value []byte) error {
	t.origin.mu.Lock()
	current, ok := t.origin.values[key]
	t.origin.mu.Unlock()
	if ok && bytes.Equal(current, value) {
		return nil
	}

	b, err := t.origin.repo.PutBlob(ctx, model.Blob{Key: key, Value: value, WriterID: t.id})
	if err != nil {
		return fmt.Errorf("could not put blob: %w", err)
	}

	t.origin.mu.Lock()
	defer t.origin.mu.Unlock()
	t.origin.observe(b)

	return nil
}

// Read returns the current value of a key, model.ErrNotFound if missing.
func (t *Tab) Read(ctx context.Context, key string) ([]byte, error) {
	b, err := t.origin.repo.GetBlob(ctx, key)
	if err != nil {
		return nil, err
	}
	return b.Value, nil
}

// Close unregisters the tab from the origin.
func (t *Tab) Close() error {
	t.origin.closeTab(t)
	return nil
}
