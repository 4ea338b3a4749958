package model

import (
	"fmt"
	"sort"
	"strings"
)

// TaskStatus represents the board column of a task.
type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "TODO"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
)

// TaskStatuses are the board columns in display order.
var TaskStatuses = []TaskStatus{TaskStatusTodo, TaskStatusInProgress, TaskStatusDone}

// Valid returns true if the status is a known one.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusTodo, TaskStatusInProgress, TaskStatusDone:
		return true
	}
	return false
}

// ParseTaskStatus parses a status in a relaxed way.
// Supported formats: "TODO", "todo", "in-progress", "in_progress", "done".
func ParseTaskStatus(s string) (TaskStatus, error) {
	norm := strings.ToUpper(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	norm = strings.ReplaceAll(norm, " ", "_")

	status := TaskStatus(norm)
	if !status.Valid() {
		return "", fmt.Errorf("invalid task status %q (must be: todo, in-progress, done): %w", s, ErrNotValid)
	}
	return status, nil
}

// Comment is an immutable note attached to a task.
type Comment struct {
	ID        string `json:"id"`
	TaskID    string `json:"taskId"`
	Author    string `json:"author"`
	Content   string `json:"content"`
	Timestamp int64  `json:"timestamp"`
}

// Task is a single card of a project board.
//
// DeletedAt marks a soft deleted task (tombstone), tombstones stay in the task
// mapping forever so history snapshots keep resolving the same ids.
type Task struct {
	ID            string         `json:"id"`
	ProjectID     string         `json:"projectId"`
	Title         string         `json:"title"`
	Status        TaskStatus     `json:"status"`
	AssignedTo    []string       `json:"assignedTo"`
	Configuration map[string]any `json:"configuration"`
	Dependencies  []string       `json:"dependencies"`
	Comments      []Comment      `json:"comments"`
	DeletedAt     *int64         `json:"deletedAt,omitempty"`
}

// Validate validates the task fields required to be added to a board.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required: %w", ErrNotValid)
	}
	if t.ProjectID == "" {
		return fmt.Errorf("task project id is required: %w", ErrNotValid)
	}
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title is required: %w", ErrNotValid)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("task status %q: %w", t.Status, ErrNotValid)
	}
	return nil
}

// Deleted returns true if the task is a tombstone.
func (t Task) Deleted() bool { return t.DeletedAt != nil }

// Clone returns a deep copy of the task, the copy doesn't share any memory with the original.
func (t Task) Clone() Task {
	c := t
	if t.AssignedTo != nil {
		c.AssignedTo = append([]string{}, t.AssignedTo...)
	}
	if t.Dependencies != nil {
		c.Dependencies = append([]string{}, t.Dependencies...)
	}
	if t.Comments != nil {
		c.Comments = append([]Comment{}, t.Comments...)
	}
	if t.Configuration != nil {
		c.Configuration = cloneConfiguration(t.Configuration)
	}
	if t.DeletedAt != nil {
		d := *t.DeletedAt
		c.DeletedAt = &d
	}
	return c
}

// HasComment returns true if the task has a comment with the ID.
func (t Task) HasComment(id string) bool {
	for _, c := range t.Comments {
		if c.ID == id {
			return true
		}
	}
	return false
}

// TaskMap is the task mapping of a store indexed by task ID.
type TaskMap map[string]Task

// Clone returns a deep copy of the whole mapping.
func (m TaskMap) Clone() TaskMap {
	if m == nil {
		return TaskMap{}
	}

	c := make(TaskMap, len(m))
	for id, t := range m {
		c[id] = t.Clone()
	}
	return c
}

// Active returns the non deleted tasks of a project sorted by ID.
func (m TaskMap) Active(projectID string) []Task {
	tasks := []Task{}
	for _, t := range m {
		if t.ProjectID != projectID || t.Deleted() {
			continue
		}
		tasks = append(tasks, t.Clone())
	}

	sort.SliceStable(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	return tasks
}

func cloneConfiguration(cfg map[string]any) map[string]any {
	c := make(map[string]any, len(cfg))
	for k, v := range cfg {
		c[k] = cloneValue(v)
	}
	return c
}

func cloneValue(v any) any {
	switch vv := v.(type) {
	case map[string]any:
		return cloneConfiguration(vv)
	case []any:
		c := make([]any, len(vv))
		for i, e := range vv {
			c[i] = cloneValue(e)
		}
		return c
	default:
		return v
	}
}
