package board

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/slok/taskflow/internal/model"
)

// ErrUnknownCommand is returned when a command line can't be dispatched.
var ErrUnknownCommand = errors.New("unknown command")

// Help is the usage of the session commands.
const Help = `Commands:
  list                              show the board
  add [-s <status|auto>] <title>    add a task (default status TODO)
  suggest <title>                   suggest the initial status of a title
  move <task-id> <status>           change the status of a task
  update <task-id> <title>          rename a task
  dep <task-id> <depends-on-id>     add a dependency
  comment <task-id> <text>          comment a task
  uncomment <task-id> <comment-id>  remove a comment
  delete <task-id>                  delete a task
  undo                              revert the last local change
  redo                              reapply the last reverted change
  project                           show the current project
  help                              show this help`

// Result is the outcome of a session command.
type Result struct {
	Message    string
	Board      bool
	Project    model.Project
	Tasks      []model.Task
	Suggestion *model.Suggestion
}

// Exec runs a single session command line.
func (s *Service) Exec(ctx context.Context, line string) (Result, error) {
	args := strings.Fields(line)
	if len(args) == 0 {
		return Result{}, nil
	}

	cmd, args := args[0], args[1:]
	switch cmd {
	case "help":
		return Result{Message: Help}, nil

	case "list", "ls":
		return s.boardResult(""), nil

	case "project":
		p := s.Project()
		return Result{Message: fmt.Sprintf("%s (%s)", p.Name, p.ID)}, nil

	case "add":
		return s.execAdd(ctx, args)

	case "suggest":
		if len(args) == 0 {
			return Result{}, fmt.Errorf("usage: suggest <title>: %w", model.ErrNotValid)
		}
		sug, err := s.Suggest(ctx, strings.Join(args, " "))
		if err != nil {
			return Result{}, err
		}
		return Result{Suggestion: &sug}, nil

	case "move", "mv":
		if len(args) != 2 {
			return Result{}, fmt.Errorf("usage: move <task-id> <status>: %w", model.ErrNotValid)
		}
		status, err := model.ParseTaskStatus(args[1])
		if err != nil {
			return Result{}, err
		}
		t, err := s.MoveTask(ctx, args[0], status)
		if err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("Task %s moved to %s", t.ID, t.Status)}, nil

	case "update":
		if len(args) < 2 {
			return Result{}, fmt.Errorf("usage: update <task-id> <title>: %w", model.ErrNotValid)
		}
		t, err := s.RenameTask(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("Task %s renamed to %q", t.ID, t.Title)}, nil

	case "dep":
		if len(args) != 2 {
			return Result{}, fmt.Errorf("usage: dep <task-id> <depends-on-id>: %w", model.ErrNotValid)
		}
		t, err := s.AddDependency(ctx, args[0], args[1])
		if err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("Task %s depends on %s", t.ID, strings.Join(t.Dependencies, ", "))}, nil

	case "comment":
		if len(args) < 2 {
			return Result{}, fmt.Errorf("usage: comment <task-id> <text>: %w", model.ErrNotValid)
		}
		c, err := s.AddComment(ctx, args[0], strings.Join(args[1:], " "))
		if err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("Comment %s added to task %s", c.ID, c.TaskID)}, nil

	case "uncomment":
		if len(args) != 2 {
			return Result{}, fmt.Errorf("usage: uncomment <task-id> <comment-id>: %w", model.ErrNotValid)
		}
		if err := s.DeleteComment(ctx, args[0], args[1]); err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("Comment %s removed", args[1])}, nil

	case "delete", "rm":
		if len(args) != 1 {
			return Result{}, fmt.Errorf("usage: delete <task-id>: %w", model.ErrNotValid)
		}
		if err := s.DeleteTask(ctx, args[0]); err != nil {
			return Result{}, err
		}
		return Result{Message: fmt.Sprintf("Task %s deleted", args[0])}, nil

	case "undo":
		if !s.Undo(ctx) {
			return Result{Message: "Nothing to undo"}, nil
		}
		return s.boardResult("Undone"), nil

	case "redo":
		if !s.Redo(ctx) {
			return Result{Message: "Nothing to redo"}, nil
		}
		return s.boardResult("Redone"), nil
	}

	return Result{}, fmt.Errorf("%q: %w", cmd, ErrUnknownCommand)
}

func (s *Service) execAdd(ctx context.Context, args []string) (Result, error) {
	status := model.TaskStatusTodo
	auto := false
	if len(args) > 0 && args[0] == "-s" {
		if len(args) < 2 {
			return Result{}, fmt.Errorf("usage: add -s <status|auto> <title>: %w", model.ErrNotValid)
		}
		if args[1] == "auto" {
			auto = true
		} else {
			st, err := model.ParseTaskStatus(args[1])
			if err != nil {
				return Result{}, err
			}
			status = st
		}
		args = args[2:]
	}

	if len(args) == 0 {
		return Result{}, fmt.Errorf("usage: add [-s <status|auto>] <title>: %w", model.ErrNotValid)
	}
	title := strings.Join(args, " ")

	if auto {
		t, sug, err := s.AddSuggestedTask(ctx, title)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Message:    fmt.Sprintf("Task %s added to %s", t.ID, t.Status),
			Suggestion: &sug,
		}, nil
	}

	t, err := s.AddTask(ctx, title, status)
	if err != nil {
		return Result{}, err
	}
	return Result{Message: fmt.Sprintf("Task %s added to %s", t.ID, t.Status)}, nil
}

func (s *Service) boardResult(msg string) Result {
	return Result{
		Message: msg,
		Board:   true,
		Project: s.Project(),
		Tasks:   s.Tasks(),
	}
}
