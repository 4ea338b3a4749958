package lib

import (
	"context"
	"fmt"

	"github.com/slok/taskflow/internal/app/board"
	"github.com/slok/taskflow/internal/app/seed"
	"github.com/slok/taskflow/internal/app/suggest"
	"github.com/slok/taskflow/internal/model"
	storageio "github.com/slok/taskflow/internal/storage/io"
)

// Board returns the project with its active tasks, deleted tasks are not
// returned. Unknown projects return an empty board.
func (c *Client) Board(ctx context.Context, projectID string) (*Board, error) {
	var b Board
	err := c.withBoard(ctx, projectID, func(svc *board.Service) error {
		b = fromInternalBoard(svc.Project(), svc.Tasks())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// AddTask creates a new task in a project.
func (c *Client) AddTask(ctx context.Context, projectID string, opts AddTaskOpts) (*Task, error) {
	var task model.Task
	err := c.withBoard(ctx, projectID, func(svc *board.Service) (err error) {
		if opts.Suggest {
			task, _, err = svc.AddSuggestedTask(ctx, opts.Title)
			return err
		}

		status := model.TaskStatusTodo
		if opts.Status != "" {
			status = model.TaskStatus(opts.Status)
		}
		task, err = svc.AddTask(ctx, opts.Title, status)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := fromInternalTask(task)
	return &res, nil
}

// MoveTask changes the status of a task.
func (c *Client) MoveTask(ctx context.Context, projectID, taskID string, status TaskStatus) (*Task, error) {
	var task model.Task
	err := c.withBoard(ctx, projectID, func(svc *board.Service) (err error) {
		task, err = svc.MoveTask(ctx, taskID, model.TaskStatus(status))
		return err
	})
	if err != nil {
		return nil, err
	}

	res := fromInternalTask(task)
	return &res, nil
}

// RenameTask changes the title of a task.
func (c *Client) RenameTask(ctx context.Context, projectID, taskID, title string) (*Task, error) {
	var task model.Task
	err := c.withBoard(ctx, projectID, func(svc *board.Service) (err error) {
		task, err = svc.RenameTask(ctx, taskID, title)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := fromInternalTask(task)
	return &res, nil
}

// AddDependency makes a task depend on another task of the same project.
func (c *Client) AddDependency(ctx context.Context, projectID, taskID, dependsOn string) (*Task, error) {
	var task model.Task
	err := c.withBoard(ctx, projectID, func(svc *board.Service) (err error) {
		task, err = svc.AddDependency(ctx, taskID, dependsOn)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := fromInternalTask(task)
	return &res, nil
}

// AddComment appends a comment to a task, authored by [Config].Author.
func (c *Client) AddComment(ctx context.Context, projectID, taskID, content string) (*Comment, error) {
	var comment model.Comment
	err := c.withBoard(ctx, projectID, func(svc *board.Service) (err error) {
		comment, err = svc.AddComment(ctx, taskID, content)
		return err
	})
	if err != nil {
		return nil, err
	}

	res := fromInternalComment(comment)
	return &res, nil
}

// DeleteComment removes a comment from a task.
func (c *Client) DeleteComment(ctx context.Context, projectID, taskID, commentID string) error {
	return c.withBoard(ctx, projectID, func(svc *board.Service) error {
		return svc.DeleteComment(ctx, taskID, commentID)
	})
}

// DeleteTask soft deletes a task, it's no longer returned by [Client.Board].
func (c *Client) DeleteTask(ctx context.Context, projectID, taskID string) error {
	return c.withBoard(ctx, projectID, func(svc *board.Service) error {
		return svc.DeleteTask(ctx, taskID)
	})
}

// Suggest returns the initial status suggested for a task title.
func (c *Client) Suggest(ctx context.Context, title string) (*Suggestion, error) {
	svc, err := suggest.NewService(suggest.ServiceConfig{
		Classifier: c.classifier,
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	sug, err := svc.Run(ctx, suggest.Request{Title: title})
	if err != nil {
		return nil, mapError(err)
	}

	res := fromInternalSuggestion(*sug)
	return &res, nil
}

// Seed seeds a board file into the store, only if its project has no tasks yet.
// Pass nil opts to seed the demo board.
func (c *Client) Seed(ctx context.Context, opts *SeedOpts) (*SeedResult, error) {
	path := ""
	if opts != nil {
		path = opts.Path
	}

	boardFS, boardPath, err := seed.BoardSource(path)
	if err != nil {
		return nil, mapError(err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ts.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("could not refresh store: %w", err)
	}

	svc, err := seed.NewService(seed.ServiceConfig{
		Repository: storageio.NewBoardYAMLRepository(boardFS),
		Store:      c.ts.Store(),
		Logger:     c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, seed.Request{Path: boardPath})
	if err != nil {
		return nil, mapError(err)
	}

	return &SeedResult{
		Board:  fromInternalBoard(res.Board.Project, res.Board.Tasks),
		Seeded: res.Seeded,
	}, nil
}
