// Package store holds the in-process task board state.
//
// The store exposes two write surfaces. The *Store methods are the local author
// mutations, they record the prior task mapping in the history log so they can be
// undone. The *Replica methods are used by the replication paths (remote sync and
// cross-tab merge) and never touch the history log. Both share the same mutation
// helpers so the resulting states are the same.
package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slok/taskflow/internal/history"
	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
)

// Persister persists the serialized task store after every commit.
type Persister interface {
	Write(ctx context.Context, key string, value []byte) error
}

// ChangeListener is called with a copy of the task mapping after every commit.
// Listeners run with the store locked, they must not call back into the store.
type ChangeListener func(tasks model.TaskMap)

// StoreConfig is the configuration for the store.
type StoreConfig struct {
	// Persister is optional, if missing the store is only kept in memory.
	Persister Persister
	// PersistKey is the key used to persist the store.
	PersistKey string
	// HistoryLimit is the max number of undo steps, 0 is unbounded.
	HistoryLimit int
	// PersistTimeout is the max time a persist write can take.
	PersistTimeout time.Duration
	Logger         log.Logger
}

func (c *StoreConfig) defaults() error {
	if c.PersistKey == "" {
		c.PersistKey = model.StoreBlobKey
	}
	if c.HistoryLimit < 0 {
		return fmt.Errorf("history limit can't be negative")
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = 5 * time.Second
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "store.Store"})
	return nil
}

// Store is the authoritative in-process task and project state.
//
// Every mutation runs to completion under the store lock, readers never observe
// a partially applied mutation.
type Store struct {
	tasks     model.TaskMap
	projects  model.ProjectMap
	history   *history.Log
	persister Persister
	key       string
	timeout   time.Duration
	listeners []ChangeListener
	mu        sync.RWMutex
	logger    log.Logger
}

// NewStore returns a new empty store.
func NewStore(cfg StoreConfig) (*Store, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Store{
		tasks:     model.TaskMap{},
		projects:  model.ProjectMap{},
		history:   history.NewLog(cfg.HistoryLimit),
		persister: cfg.Persister,
		key:       cfg.PersistKey,
		timeout:   cfg.PersistTimeout,
		logger:    cfg.Logger,
	}, nil
}

// Hydrate replaces the task mapping with the persisted one. It's meant to be
// called once at startup: it doesn't record history nor persists back.
func (s *Store) Hydrate(tasks model.TaskMap) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tasks = tasks.Clone()
	s.logger.Debugf("Store hydrated with %d tasks", len(s.tasks))
}

// OnChange registers a listener called after every commit.
func (s *Store) OnChange(l ChangeListener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.listeners = append(s.listeners, l)
}

// AddTask adds a task to the store. Adding a task with an existing ID
// overwrites the existing task.
func (s *Store) AddTask(task model.Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[task.ID]; ok {
		s.logger.Warningf("Task %s already exists, overwriting it", task.ID)
	}

	s.history.Record(s.tasks)
	s.commit(withTask(s.tasks, task))
	return true
}

// UpdateTask shallow merges the patch into the task. Returns false if the task
// doesn't exist.
func (s *Store) UpdateTask(id string, patch model.TaskPatch) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := updateTask(s.tasks, id, patch)
	if !ok {
		return false
	}

	s.history.Record(s.tasks)
	s.commit(next)
	return true
}

// DeleteTask soft deletes a task. Returns false if the task doesn't exist.
func (s *Store) DeleteTask(id string, at time.Time) bool {
	deletedAt := at.UnixMilli()
	return s.UpdateTask(id, model.TaskPatch{DeletedAt: &deletedAt})
}

// AddComment appends a comment to the task comments. Returns false if the task
// doesn't exist.
func (s *Store) AddComment(taskID string, comment model.Comment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := addComment(s.tasks, taskID, comment)
	if !ok {
		return false
	}

	s.history.Record(s.tasks)
	s.commit(next)
	return true
}

// DeleteComment removes a comment from the task. Returns false if the task or
// the comment don't exist.
func (s *Store) DeleteComment(taskID, commentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := deleteComment(s.tasks, taskID, commentID)
	if !ok {
		return false
	}

	s.history.Record(s.tasks)
	s.commit(next)
	return true
}

// AddProject creates a new project. Projects are not part of the undo history.
func (s *Store) AddProject(name string) model.Project {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := model.Project{ID: model.NewID(), Name: name}
	projects := s.projects.Clone()
	projects[p.ID] = p
	s.projects = projects

	s.logger.Debugf("Project %s created", p.ID)
	return p
}

// Undo restores the task mapping previous to the last local mutation.
// Returns false if there is nothing to undo.
func (s *Store) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.history.Undo(s.tasks)
	if !ok {
		return false
	}

	s.commit(prev)
	return true
}

// Redo restores the last undone task mapping. Returns false if there is nothing to redo.
func (s *Store) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, ok := s.history.Redo(s.tasks)
	if !ok {
		return false
	}

	s.commit(next)
	return true
}

// Replica returns the history-silent write surface of the store.
func (s *Store) Replica() *Replica { return &Replica{s: s} }

// Tasks returns a copy of the whole task mapping, tombstones included.
func (s *Store) Tasks() model.TaskMap {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tasks.Clone()
}

// Task returns a copy of a task.
func (s *Store) Task(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return model.Task{}, false
	}
	return t.Clone(), true
}

// ActiveTasks returns the non deleted tasks of a project.
func (s *Store) ActiveTasks(projectID string) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tasks.Active(projectID)
}

// Projects returns a copy of the project mapping.
func (s *Store) Projects() model.ProjectMap {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.projects.Clone()
}

// CanUndo returns true if there is a local mutation to undo.
func (s *Store) CanUndo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.history.CanUndo()
}

// CanRedo returns true if there is an undone mutation to redo.
func (s *Store) CanRedo() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.history.CanRedo()
}

// HistoryLen returns the number of undo and redo steps.
func (s *Store) HistoryLen() (past, future int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.history.Len()
}

// commit adopts the new task mapping, persists it and notifies listeners.
// Must be called with the lock held.
func (s *Store) commit(tasks model.TaskMap) {
	s.tasks = tasks
	s.persist()

	if len(s.listeners) == 0 {
		return
	}
	snapshot := s.tasks.Clone()
	for _, l := range s.listeners {
		l(snapshot)
	}
}

func (s *Store) persist() {
	if s.persister == nil {
		return
	}

	data, err := model.EncodeStoreBlob(s.tasks)
	if err != nil {
		s.logger.Errorf("could not encode store: %s", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.persister.Write(ctx, s.key, data); err != nil {
		s.logger.Errorf("could not persist store: %s", err)
	}
}
