// Package tabstore opens a task store persisted through a tab of a SQLite backed
// origin.
package tabstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
	"github.com/slok/taskflow/internal/storage/sqlite"
	"github.com/slok/taskflow/internal/store"
	"github.com/slok/taskflow/internal/tabsync"
)

// Config is the configuration to open a tab store.
type Config struct {
	DBPath string
	// TabID is optional, generated if missing.
	TabID        string
	PollInterval time.Duration
	HistoryLimit int
	Logger       log.Logger
}

func (c *Config) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	return nil
}

// TabStore is a task store persisted through a tab of the local origin.
type TabStore struct {
	repo   *sqlite.Repository
	origin *tabsync.Origin
	tab    *tabsync.Tab
	store  *store.Store
	logger log.Logger
}

// Open opens a tab on the SQLite origin and hydrates a new store with the
// persisted tasks.
func Open(ctx context.Context, cfg Config) (ts *TabStore, err error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	repo, err := sqlite.NewRepository(ctx, sqlite.RepositoryConfig{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create repository: %w", err)
	}
	defer func() {
		if err != nil {
			_ = repo.Close()
		}
	}()

	origin, err := tabsync.NewOrigin(ctx, tabsync.OriginConfig{
		Repository:   repo,
		PollInterval: cfg.PollInterval,
		Logger:       cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create origin: %w", err)
	}

	tab, err := origin.OpenTab(cfg.TabID)
	if err != nil {
		return nil, fmt.Errorf("could not open tab: %w", err)
	}
	logger := cfg.Logger.WithValues(log.Kv{"tab-id": tab.ID()})

	st, err := store.NewStore(store.StoreConfig{
		Persister:    tab,
		HistoryLimit: cfg.HistoryLimit,
		Logger:       logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create store: %w", err)
	}

	ts = &TabStore{
		repo:   repo,
		origin: origin,
		tab:    tab,
		store:  st,
		logger: logger,
	}
	if err := ts.hydrate(ctx); err != nil {
		return nil, err
	}

	return ts, nil
}

// Origin returns the origin the tab belongs to.
func (t *TabStore) Origin() *tabsync.Origin { return t.origin }

// Tab returns the tab used to persist the store.
func (t *TabStore) Tab() *tabsync.Tab { return t.tab }

// Store returns the task store.
func (t *TabStore) Store() *store.Store { return t.store }

// Refresh catches up with the writes made by other processes and replaces the
// store tasks with the persisted ones. It's meant for short lived clients that
// don't run the origin and the cross tab listener, the pending tab changes are
// discarded.
func (t *TabStore) Refresh(ctx context.Context) error {
	if err := t.origin.Sync(ctx); err != nil {
		return fmt.Errorf("could not sync origin: %w", err)
	}

drain:
	for {
		select {
		case _, ok := <-t.tab.Changes():
			if !ok {
				break drain
			}
		default:
			break drain
		}
	}

	return t.hydrate(ctx)
}

// Close closes the tab and the repository.
func (t *TabStore) Close() error {
	_ = t.tab.Close()
	return t.repo.Close()
}

func (t *TabStore) hydrate(ctx context.Context) error {
	data, err := t.tab.Read(ctx, model.StoreBlobKey)
	switch {
	case errors.Is(err, model.ErrNotFound):
		t.logger.Debugf("No persisted store, starting empty")
		return nil
	case err != nil:
		return fmt.Errorf("could not read persisted store: %w", err)
	}

	tasks, err := model.DecodeStoreBlob(data)
	if err != nil {
		t.logger.Warningf("Ignoring malformed persisted store: %s", err)
		return nil
	}
	t.store.Hydrate(tasks)

	return nil
}
