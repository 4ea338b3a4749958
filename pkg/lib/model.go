package lib

import (
	"errors"

	"github.com/slok/taskflow/internal/model"
)

// Sentinel errors returned by the SDK. Use [errors.Is] to check them.
var (
	// ErrNotFound is returned when a task, comment or project doesn't exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a resource already exists.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotValid is returned when the input is not valid (empty titles, unknown
	// statuses, self dependencies...).
	ErrNotValid = errors.New("not valid")
)

// TaskStatus is the board column of a task.
type TaskStatus string

const (
	// TaskStatusTodo is the status of the tasks not started yet.
	TaskStatusTodo TaskStatus = "TODO"
	// TaskStatusInProgress is the status of the tasks being worked on.
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	// TaskStatusDone is the status of the finished tasks.
	TaskStatusDone TaskStatus = "DONE"
)

// Project groups the tasks of a board.
type Project struct {
	ID   string
	Name string
}

// Comment is a note attached to a task.
type Comment struct {
	ID     string
	TaskID string
	Author string
	// Content is the comment text.
	Content string
	// Timestamp is the creation time in Unix milliseconds.
	Timestamp int64
}

// Task is a single card of a board.
//
// This is a read-only snapshot of the task at the time of the API call.
type Task struct {
	ID            string
	ProjectID     string
	Title         string
	Status        TaskStatus
	AssignedTo    []string
	Configuration map[string]any
	// Dependencies are the IDs of the tasks this task depends on.
	Dependencies []string
	// Comments are in creation order.
	Comments []Comment
}

// Board is a project with its active tasks.
type Board struct {
	Project Project
	Tasks   []Task
}

// Suggestion is the initial status suggested for a task title.
type Suggestion struct {
	Status TaskStatus
	// Reason explains the suggestion in a human readable way.
	Reason string
}

// AddTaskOpts are the options to add a task.
type AddTaskOpts struct {
	// Title is required.
	Title string
	// Status is the initial status, TODO if empty. Ignored when Suggest is set.
	Status TaskStatus
	// Suggest uses the status suggested for the title.
	Suggest bool
}

// SeedOpts are the options to seed a board.
type SeedOpts struct {
	// Path is the YAML board file, the demo board if empty.
	Path string
}

// SeedResult is the outcome of a seed.
type SeedResult struct {
	// Board is the loaded board file.
	Board Board
	// Seeded is false when the project already had tasks and nothing was written.
	Seeded bool
}

func fromInternalComment(c model.Comment) Comment {
	return Comment{
		ID:        c.ID,
		TaskID:    c.TaskID,
		Author:    c.Author,
		Content:   c.Content,
		Timestamp: c.Timestamp,
	}
}

func fromInternalTask(t model.Task) Task {
	t = t.Clone()

	comments := make([]Comment, 0, len(t.Comments))
	for _, c := range t.Comments {
		comments = append(comments, fromInternalComment(c))
	}

	return Task{
		ID:            t.ID,
		ProjectID:     t.ProjectID,
		Title:         t.Title,
		Status:        TaskStatus(t.Status),
		AssignedTo:    t.AssignedTo,
		Configuration: t.Configuration,
		Dependencies:  t.Dependencies,
		Comments:      comments,
	}
}

func fromInternalBoard(p model.Project, ts []model.Task) Board {
	tasks := make([]Task, 0, len(ts))
	for _, t := range ts {
		tasks = append(tasks, fromInternalTask(t))
	}

	return Board{
		Project: Project{ID: p.ID, Name: p.Name},
		Tasks:   tasks,
	}
}

func fromInternalSuggestion(s model.Suggestion) Suggestion {
	return Suggestion{
		Status: TaskStatus(s.Status),
		Reason: s.Reason,
	}
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrAlreadyExists):
		return joinErrors(err, ErrAlreadyExists)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

// mappedError keeps the original message and chain while matching the public
// sentinel.
type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool { return target == e.sentinel }

func (e *mappedError) Unwrap() error { return e.original }
