package lib_test

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/taskflow/internal/api"
	"github.com/slok/taskflow/internal/classify"
	"github.com/slok/taskflow/internal/relay"
	"github.com/slok/taskflow/pkg/lib"
)

// newTestClient creates a client with a temp SQLite DB for test isolation.
func newTestClient(t *testing.T, cfg lib.Config) *lib.Client {
	t.Helper()

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(t.TempDir(), "test.db")
	}

	client, err := lib.New(context.Background(), cfg)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = client.Close()
	})

	return client
}

func TestAddTask(t *testing.T) {
	tests := map[string]struct {
		projectID string
		opts      lib.AddTaskOpts
		expStatus lib.TaskStatus
		expIs     error
	}{
		"Adding a task without status should add it to TODO.": {
			projectID: "p1",
			opts:      lib.AddTaskOpts{Title: "Write docs"},
			expStatus: lib.TaskStatusTodo,
		},

		"Adding a task with status should use it.": {
			projectID: "p1",
			opts:      lib.AddTaskOpts{Title: "Write docs", Status: lib.TaskStatusInProgress},
			expStatus: lib.TaskStatusInProgress,
		},

		"Adding a task with suggestion should use the suggested status.": {
			projectID: "p1",
			opts:      lib.AddTaskOpts{Title: "Deploy v2 to production", Suggest: true},
			expStatus: lib.TaskStatusDone,
		},

		"Adding a task without title should fail.": {
			projectID: "p1",
			opts:      lib.AddTaskOpts{Title: "  "},
			expIs:     lib.ErrNotValid,
		},

		"Adding a task with an unknown status should fail.": {
			projectID: "p1",
			opts:      lib.AddTaskOpts{Title: "Write docs", Status: "BLOCKED"},
			expIs:     lib.ErrNotValid,
		},

		"Adding a task without project should fail.": {
			opts:  lib.AddTaskOpts{Title: "Write docs"},
			expIs: lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)
			ctx := context.Background()

			client := newTestClient(t, lib.Config{})

			task, err := client.AddTask(ctx, test.projectID, test.opts)
			if test.expIs != nil {
				assert.ErrorIs(err, test.expIs)
				return
			}
			require.NoError(err)
			assert.NotEmpty(task.ID)
			assert.Equal(test.projectID, task.ProjectID)
			assert.Equal(test.expStatus, task.Status)

			b, err := client.Board(ctx, test.projectID)
			require.NoError(err)
			require.Len(b.Tasks, 1)
			assert.Equal(*task, b.Tasks[0])
		})
	}
}

func TestTaskLifecycle(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	client := newTestClient(t, lib.Config{Author: "alice"})

	t1, err := client.AddTask(ctx, "p1", lib.AddTaskOpts{Title: "Fix bug"})
	require.NoError(err)
	t2, err := client.AddTask(ctx, "p1", lib.AddTaskOpts{Title: "Ship"})
	require.NoError(err)

	moved, err := client.MoveTask(ctx, "p1", t1.ID, lib.TaskStatusDone)
	require.NoError(err)
	assert.Equal(lib.TaskStatusDone, moved.Status)

	renamed, err := client.RenameTask(ctx, "p1", t1.ID, "Fix the login bug")
	require.NoError(err)
	assert.Equal("Fix the login bug", renamed.Title)

	dep, err := client.AddDependency(ctx, "p1", t2.ID, t1.ID)
	require.NoError(err)
	assert.Equal([]string{t1.ID}, dep.Dependencies)

	c, err := client.AddComment(ctx, "p1", t2.ID, "Waiting for the fix")
	require.NoError(err)
	assert.Equal("alice", c.Author)
	assert.Equal(t2.ID, c.TaskID)

	require.NoError(client.DeleteComment(ctx, "p1", t2.ID, c.ID))
	assert.ErrorIs(client.DeleteComment(ctx, "p1", t2.ID, c.ID), lib.ErrNotFound)

	require.NoError(client.DeleteTask(ctx, "p1", t1.ID))

	b, err := client.Board(ctx, "p1")
	require.NoError(err)
	require.Len(b.Tasks, 1)
	assert.Equal(t2.ID, b.Tasks[0].ID)
	assert.Empty(b.Tasks[0].Comments)

	// Deleted tasks can't be changed anymore.
	_, err = client.MoveTask(ctx, "p1", t1.ID, lib.TaskStatusTodo)
	assert.ErrorIs(err, lib.ErrNotFound)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()

	tests := map[string]struct {
		run   func(c *lib.Client, taskID string) error
		expIs error
	}{
		"Moving a missing task should fail.": {
			run: func(c *lib.Client, _ string) error {
				_, err := c.MoveTask(ctx, "p1", "missing", lib.TaskStatusDone)
				return err
			},
			expIs: lib.ErrNotFound,
		},

		"Moving a task of another project should fail.": {
			run: func(c *lib.Client, taskID string) error {
				_, err := c.MoveTask(ctx, "p2", taskID, lib.TaskStatusDone)
				return err
			},
			expIs: lib.ErrNotFound,
		},

		"Moving a task to an unknown status should fail.": {
			run: func(c *lib.Client, taskID string) error {
				_, err := c.MoveTask(ctx, "p1", taskID, "BLOCKED")
				return err
			},
			expIs: lib.ErrNotValid,
		},

		"A task depending on itself should fail.": {
			run: func(c *lib.Client, taskID string) error {
				_, err := c.AddDependency(ctx, "p1", taskID, taskID)
				return err
			},
			expIs: lib.ErrNotValid,
		},

		"Commenting without content should fail.": {
			run: func(c *lib.Client, taskID string) error {
				_, err := c.AddComment(ctx, "p1", taskID, " ")
				return err
			},
			expIs: lib.ErrNotValid,
		},

		"Deleting a missing task should fail.": {
			run: func(c *lib.Client, _ string) error {
				return c.DeleteTask(ctx, "p1", "missing")
			},
			expIs: lib.ErrNotFound,
		},

		"Suggesting an empty title should fail.": {
			run: func(c *lib.Client, _ string) error {
				_, err := c.Suggest(ctx, "")
				return err
			},
			expIs: lib.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, lib.Config{})
			task, err := client.AddTask(ctx, "p1", lib.AddTaskOpts{Title: "Fix bug"})
			require.NoError(t, err)

			err = test.run(client, task.ID)
			assert.ErrorIs(t, err, test.expIs)
		})
	}
}

func TestClientsShareTheDatabase(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	dbPath := filepath.Join(t.TempDir(), "shared.db")
	c1 := newTestClient(t, lib.Config{DBPath: dbPath})
	c2 := newTestClient(t, lib.Config{DBPath: dbPath})

	task, err := c1.AddTask(ctx, "p1", lib.AddTaskOpts{Title: "Fix bug"})
	require.NoError(err)

	_, err = c2.MoveTask(ctx, "p1", task.ID, lib.TaskStatusInProgress)
	require.NoError(err)

	b, err := c1.Board(ctx, "p1")
	require.NoError(err)
	require.Len(b.Tasks, 1)
	assert.Equal(lib.TaskStatusInProgress, b.Tasks[0].Status)
}

func TestSuggest(t *testing.T) {
	tests := map[string]struct {
		title     string
		expStatus lib.TaskStatus
	}{
		"Finished work should be done.":   {title: "Deploy v2 to production", expStatus: lib.TaskStatusDone},
		"Ongoing work should be started.": {title: "Fix crash on login", expStatus: lib.TaskStatusInProgress},
		"Anything else should be todo.":   {title: "Write onboarding docs", expStatus: lib.TaskStatusTodo},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			client := newTestClient(t, lib.Config{})

			sug, err := client.Suggest(context.Background(), test.title)
			require.NoError(t, err)
			assert.Equal(t, test.expStatus, sug.Status)
			assert.NotEmpty(t, sug.Reason)
		})
	}
}

func TestSeed(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	client := newTestClient(t, lib.Config{})

	res, err := client.Seed(ctx, nil)
	require.NoError(err)
	assert.True(res.Seeded)
	assert.Equal("demo", res.Board.Project.ID)

	res, err = client.Seed(ctx, nil)
	require.NoError(err)
	assert.False(res.Seeded)

	b, err := client.Board(ctx, "demo")
	require.NoError(err)
	assert.Equal("Demo project", b.Project.Name)
	assert.Len(b.Tasks, 10)
}

func TestSeedFile(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	file := filepath.Join(t.TempDir(), "board.yaml")
	require.NoError(os.WriteFile(file, []byte(`
project:
  id: p1
  name: Project 1
tasks:
  - id: t1
    title: Fix bug
    status: in-progress
`), 0644))

	client := newTestClient(t, lib.Config{})

	res, err := client.Seed(ctx, &lib.SeedOpts{Path: file})
	require.NoError(err)
	assert.True(res.Seeded)

	b, err := client.Board(ctx, "p1")
	require.NoError(err)
	require.Len(b.Tasks, 1)
	assert.Equal("t1", b.Tasks[0].ID)
	assert.Equal(lib.TaskStatusInProgress, b.Tasks[0].Status)
}

func TestChangesArePublishedToTheRelay(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)
	ctx := context.Background()

	q, err := relay.NewQueue(relay.QueueConfig{})
	require.NoError(err)
	router, err := api.NewRouter(api.RouterConfig{
		Queue:      q,
		Classifier: classify.NewRuleClassifier(),
	})
	require.NoError(err)
	srv := httptest.NewServer(router)
	defer srv.Close()

	client := newTestClient(t, lib.Config{ServerURL: srv.URL})

	task, err := client.AddTask(ctx, "p1", lib.AddTaskOpts{Title: "Fix bug"})
	require.NoError(err)
	require.NoError(client.DeleteTask(ctx, "p1", task.ID))

	events := q.Drain("p1")
	require.Len(events, 2)

	var got []string
	for _, e := range events {
		var ev struct {
			Type string `json:"type"`
		}
		require.NoError(json.Unmarshal(e, &ev))
		got = append(got, ev.Type)
	}
	assert.Equal([]string{"task-updated", "task-deleted"}, got)
}
