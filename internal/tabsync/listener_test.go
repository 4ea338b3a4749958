package tabsync_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
	"github.com/slok/taskflow/internal/store"
	"github.com/slok/taskflow/internal/tabsync"
)

func mustBlob(t *testing.T, tasks model.TaskMap) []byte {
	t.Helper()
	data, err := model.EncodeStoreBlob(tasks)
	require.NoError(t, err)
	return data
}

func TestListenerHandle(t *testing.T) {
	local := model.TaskMap{
		"t1": {ID: "t1", ProjectID: "p1", Title: "Local", Status: model.TaskStatusTodo, Comments: []model.Comment{{ID: "c1", TaskID: "t1"}}},
	}

	tests := map[string]struct {
		change   func(t *testing.T) tabsync.StorageChange
		expMerge bool
		exp      model.TaskMap
	}{
		"A change of another key should be ignored.": {
			change: func(t *testing.T) tabsync.StorageChange {
				return tabsync.StorageChange{Key: "other", NewValue: mustBlob(t, model.TaskMap{"t2": {ID: "t2"}})}
			},
			exp: local,
		},

		"A removed key should be ignored.": {
			change: func(t *testing.T) tabsync.StorageChange {
				return tabsync.StorageChange{Key: model.StoreBlobKey, OldValue: []byte(`{}`)}
			},
			exp: local,
		},

		"A malformed value should be ignored.": {
			change: func(t *testing.T) tabsync.StorageChange {
				return tabsync.StorageChange{Key: model.StoreBlobKey, NewValue: []byte(`{"state":`)}
			},
			exp: local,
		},

		"A value without tasks should be ignored.": {
			change: func(t *testing.T) tabsync.StorageChange {
				return tabsync.StorageChange{Key: model.StoreBlobKey, NewValue: []byte(`{"state":{},"version":0}`)}
			},
			exp: local,
		},

		"A value with an empty task mapping should be ignored.": {
			change: func(t *testing.T) tabsync.StorageChange {
				return tabsync.StorageChange{Key: model.StoreBlobKey, NewValue: mustBlob(t, model.TaskMap{})}
			},
			exp: local,
		},

		"A valid value should be merged.": {
			change: func(t *testing.T) tabsync.StorageChange {
				return tabsync.StorageChange{Key: model.StoreBlobKey, NewValue: mustBlob(t, model.TaskMap{
					"t1": {ID: "t1", ProjectID: "p1", Title: "Remote", Status: model.TaskStatusDone, Comments: []model.Comment{}},
					"t2": {ID: "t2", ProjectID: "p1", Title: "New", Status: model.TaskStatusTodo},
				})}
			},
			expMerge: true,
			exp: model.TaskMap{
				"t1": {ID: "t1", ProjectID: "p1", Title: "Remote", Status: model.TaskStatusDone, Comments: []model.Comment{{ID: "c1", TaskID: "t1"}}},
				"t2": {ID: "t2", ProjectID: "p1", Title: "New", Status: model.TaskStatusTodo},
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			s, err := store.NewStore(store.StoreConfig{})
			require.NoError(err)
			s.Hydrate(local)

			l, err := tabsync.NewListener(tabsync.ListenerConfig{Replica: s.Replica(), Logger: log.Noop})
			require.NoError(err)

			merged := l.Handle(test.change(t))

			assert.Equal(test.expMerge, merged)
			assert.Equal(test.exp, s.Tasks())

			// Merges are never undoable.
			assert.False(s.CanUndo())
		})
	}
}

func TestNewListenerRequiresReplica(t *testing.T) {
	_, err := tabsync.NewListener(tabsync.ListenerConfig{})
	assert.Error(t, err)
}

func TestListenerUndoDoesNotRevertMerge(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	s, err := store.NewStore(store.StoreConfig{})
	require.NoError(err)
	l, err := tabsync.NewListener(tabsync.ListenerConfig{Replica: s.Replica()})
	require.NoError(err)

	s.AddTask(model.Task{ID: "t1", ProjectID: "p1", Title: "Local", Status: model.TaskStatusTodo})
	require.True(s.Undo())
	assert.Empty(s.Tasks())

	// With no local steps left the merged state survives undo.
	l.Handle(tabsync.StorageChange{Key: model.StoreBlobKey, NewValue: mustBlob(t, model.TaskMap{
		"t2": {ID: "t2", ProjectID: "p1", Title: "Remote", Status: model.TaskStatusTodo},
	})})
	assert.False(s.Undo())
	assert.Contains(s.Tasks(), "t2")
}

func TestListenerRun(t *testing.T) {
	require := require.New(t)

	s, err := store.NewStore(store.StoreConfig{})
	require.NoError(err)
	l, err := tabsync.NewListener(tabsync.ListenerConfig{Replica: s.Replica()})
	require.NoError(err)

	changes := make(chan tabsync.StorageChange, 1)
	done := make(chan error)
	go func() { done <- l.Run(context.Background(), changes) }()

	changes <- tabsync.StorageChange{Key: model.StoreBlobKey, NewValue: mustBlob(t, model.TaskMap{"t1": {ID: "t1"}})}
	close(changes)

	select {
	case err := <-done:
		require.NoError(err)
	case <-time.After(5 * time.Second):
		t.Fatal("listener didn't stop after the channel was closed")
	}
	require.Contains(s.Tasks(), "t1")
}
