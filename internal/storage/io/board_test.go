package io_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/taskflow/internal/model"
	storageio "github.com/slok/taskflow/internal/storage/io"
)

func TestBoardYAMLRepositoryGetBoard(t *testing.T) {
	tests := map[string]struct {
		fs       fstest.MapFS
		path     string
		expBoard model.Board
		expErr   bool
	}{
		"Valid board should load successfully.": {
			fs: fstest.MapFS{
				"board.yaml": &fstest.MapFile{Data: []byte(`
project:
  id: p1
  name: Website
tasks:
  - id: t1
    title: Design landing page
    status: todo
    assigned_to: [alice]
  - id: t2
    title: Deploy v2
    status: in-progress
    dependencies: [t1]
    configuration:
      priority: high
`)},
			},
			path: "board.yaml",
			expBoard: model.Board{
				Project: model.Project{ID: "p1", Name: "Website"},
				Tasks: []model.Task{
					{
						ID:            "t1",
						ProjectID:     "p1",
						Title:         "Design landing page",
						Status:        model.TaskStatusTodo,
						AssignedTo:    []string{"alice"},
						Configuration: map[string]any{},
						Dependencies:  []string{},
						Comments:      []model.Comment{},
					},
					{
						ID:            "t2",
						ProjectID:     "p1",
						Title:         "Deploy v2",
						Status:        model.TaskStatusInProgress,
						AssignedTo:    []string{},
						Configuration: map[string]any{"priority": "high"},
						Dependencies:  []string{"t1"},
						Comments:      []model.Comment{},
					},
				},
			},
		},

		"Missing status should default to todo.": {
			fs: fstest.MapFS{
				"board.yaml": &fstest.MapFile{Data: []byte(`
project: {id: p1, name: Website}
tasks:
  - {id: t1, title: Write docs}
`)},
			},
			path: "board.yaml",
			expBoard: model.Board{
				Project: model.Project{ID: "p1", Name: "Website"},
				Tasks: []model.Task{{
					ID:            "t1",
					ProjectID:     "p1",
					Title:         "Write docs",
					Status:        model.TaskStatusTodo,
					AssignedTo:    []string{},
					Configuration: map[string]any{},
					Dependencies:  []string{},
					Comments:      []model.Comment{},
				}},
			},
		},

		"Missing file should fail.": {
			fs:     fstest.MapFS{},
			path:   "board.yaml",
			expErr: true,
		},

		"Invalid YAML should fail.": {
			fs: fstest.MapFS{
				"board.yaml": &fstest.MapFile{Data: []byte(`project: [`)},
			},
			path:   "board.yaml",
			expErr: true,
		},

		"Missing project id should fail.": {
			fs: fstest.MapFS{
				"board.yaml": &fstest.MapFile{Data: []byte(`project: {name: Website}`)},
			},
			path:   "board.yaml",
			expErr: true,
		},

		"Invalid task status should fail.": {
			fs: fstest.MapFS{
				"board.yaml": &fstest.MapFile{Data: []byte(`
project: {id: p1, name: Website}
tasks:
  - {id: t1, title: Write docs, status: blocked}
`)},
			},
			path:   "board.yaml",
			expErr: true,
		},

		"Task without title should fail.": {
			fs: fstest.MapFS{
				"board.yaml": &fstest.MapFile{Data: []byte(`
project: {id: p1, name: Website}
tasks:
  - {id: t1}
`)},
			},
			path:   "board.yaml",
			expErr: true,
		},

		"Duplicated task ids should fail.": {
			fs: fstest.MapFS{
				"board.yaml": &fstest.MapFile{Data: []byte(`
project: {id: p1, name: Website}
tasks:
  - {id: t1, title: A}
  - {id: t1, title: B}
`)},
			},
			path:   "board.yaml",
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			repo := storageio.NewBoardYAMLRepository(test.fs)
			board, err := repo.GetBoard(context.Background(), test.path)

			if test.expErr {
				assert.Error(err)
			} else {
				require.NoError(err)
				assert.Equal(test.expBoard, board)
			}
		})
	}
}
