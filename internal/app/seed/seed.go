package seed

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
	"github.com/slok/taskflow/internal/store"
)

// DemoBoardPath is the path of the demo board inside DemoBoardFS.
const DemoBoardPath = "demo.yaml"

// DemoBoardFS holds the demo board used when no board file is given.
//
//go:embed demo.yaml
var DemoBoardFS embed.FS

// BoardSource returns the filesystem and the path inside it of a board file on
// disk, or the demo board when the path is empty.
func BoardSource(path string) (fs.FS, string, error) {
	if path == "" {
		return DemoBoardFS, DemoBoardPath, nil
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("invalid board path: %w", err)
	}
	return os.DirFS(filepath.Dir(abs)), filepath.Base(abs), nil
}

// BoardRepository loads seed boards.
type BoardRepository interface {
	GetBoard(ctx context.Context, path string) (model.Board, error)
}

// ServiceConfig is the configuration for the seed service.
type ServiceConfig struct {
	Repository BoardRepository
	Store      *store.Store
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Store == nil {
		return fmt.Errorf("store is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "seed.Service"})

	return nil
}

// Service seeds boards into a store.
type Service struct {
	repo   BoardRepository
	store  *store.Store
	logger log.Logger
}

// NewService creates a new seed service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		store:  cfg.Store,
		logger: cfg.Logger,
	}, nil
}

// Request represents the seed request parameters.
type Request struct {
	// Path is the board file path on the service repository.
	Path string
}

// Result is the outcome of a seed.
type Result struct {
	Board model.Board
	// Seeded is false when the project already had tasks and nothing was written.
	Seeded bool
}

// Run loads a board and adds its tasks to the store, only if the store doesn't
// have any task of the board project yet (deleted ones included). Seeding is not
// an undoable change.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Path == "" {
		return nil, fmt.Errorf("board path is required: %w", model.ErrNotValid)
	}

	b, err := s.repo.GetBoard(ctx, req.Path)
	if err != nil {
		return nil, fmt.Errorf("could not load board: %w", err)
	}

	projects := s.store.Projects()
	projects[b.Project.ID] = b.Project
	replica := s.store.Replica()
	replica.SetProjects(projects)

	seeded := false
	replica.ApplyTasks(func(current model.TaskMap) model.TaskMap {
		for _, t := range current {
			if t.ProjectID == b.Project.ID {
				return current
			}
		}

		for _, t := range b.Tasks {
			current[t.ID] = t.Clone()
		}
		seeded = true
		return current
	})

	if !seeded {
		s.logger.Infof("Project %s already has tasks, skipping seed", b.Project.ID)
		return &Result{Board: b}, nil
	}

	s.logger.Infof("Project %s seeded with %d tasks", b.Project.ID, len(b.Tasks))
	return &Result{Board: b, Seeded: true}, nil
}
