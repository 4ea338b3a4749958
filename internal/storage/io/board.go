package io

import (
	"context"
	"fmt"
	"io/fs"

	"gopkg.in/yaml.v3"

	"github.com/slok/taskflow/internal/model"
)

// BoardYAMLRepository loads seed boards from YAML files.
type BoardYAMLRepository struct {
	fs fs.FS
}

// NewBoardYAMLRepository creates a new YAML board repository.
func NewBoardYAMLRepository(filesystem fs.FS) *BoardYAMLRepository {
	return &BoardYAMLRepository{fs: filesystem}
}

// GetBoard loads a board from a YAML file and returns a validated domain model.
func (r *BoardYAMLRepository) GetBoard(ctx context.Context, path string) (model.Board, error) {
	data, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return model.Board{}, fmt.Errorf("reading board file: %w", err)
	}

	if ctx.Err() != nil {
		return model.Board{}, ctx.Err()
	}

	var b BoardConfig
	if err := yaml.Unmarshal(data, &b); err != nil {
		return model.Board{}, fmt.Errorf("parsing YAML: %w", err)
	}

	board, err := b.toModel()
	if err != nil {
		return model.Board{}, fmt.Errorf("invalid board: %w", err)
	}

	return board, nil
}

// BoardConfig represents the YAML structure of a seed board.
type BoardConfig struct {
	Project ProjectConfig `yaml:"project"`
	Tasks   []TaskConfig  `yaml:"tasks"`
}

// ProjectConfig represents the YAML structure of a project.
type ProjectConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// TaskConfig represents the YAML structure of a task.
type TaskConfig struct {
	ID            string         `yaml:"id"`
	Title         string         `yaml:"title"`
	Status        string         `yaml:"status"`
	AssignedTo    []string       `yaml:"assigned_to"`
	Dependencies  []string       `yaml:"dependencies"`
	Configuration map[string]any `yaml:"configuration"`
}

func (c BoardConfig) toModel() (model.Board, error) {
	if c.Project.ID == "" {
		return model.Board{}, fmt.Errorf("project id is required")
	}
	if c.Project.Name == "" {
		return model.Board{}, fmt.Errorf("project name is required")
	}

	board := model.Board{
		Project: model.Project{ID: c.Project.ID, Name: c.Project.Name},
		Tasks:   make([]model.Task, 0, len(c.Tasks)),
	}

	seen := map[string]bool{}
	for i, tc := range c.Tasks {
		status := model.TaskStatusTodo
		if tc.Status != "" {
			s, err := model.ParseTaskStatus(tc.Status)
			if err != nil {
				return model.Board{}, fmt.Errorf("task %d: %w", i, err)
			}
			status = s
		}

		t := model.Task{
			ID:            tc.ID,
			ProjectID:     c.Project.ID,
			Title:         tc.Title,
			Status:        status,
			AssignedTo:    orEmpty(tc.AssignedTo),
			Configuration: tc.Configuration,
			Dependencies:  orEmpty(tc.Dependencies),
			Comments:      []model.Comment{},
		}
		if t.Configuration == nil {
			t.Configuration = map[string]any{}
		}
		if err := t.Validate(); err != nil {
			return model.Board{}, fmt.Errorf("task %d: %w", i, err)
		}
		if seen[t.ID] {
			return model.Board{}, fmt.Errorf("task %d: duplicated id %q: %w", i, t.ID, model.ErrAlreadyExists)
		}
		seen[t.ID] = true

		board.Tasks = append(board.Tasks, t)
	}

	return board, nil
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
