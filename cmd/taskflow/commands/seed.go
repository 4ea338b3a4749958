package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/taskflow/internal/app/seed"
	"github.com/slok/taskflow/internal/log"
	storageio "github.com/slok/taskflow/internal/storage/io"
	"github.com/slok/taskflow/internal/store"
	"github.com/slok/taskflow/internal/tabstore"
)

// SeedCommand writes a seed board into the persisted store.
type SeedCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	file string
}

// NewSeedCommand returns the seed command.
func NewSeedCommand(rootCmd *RootCommand, app *kingpin.Application) *SeedCommand {
	c := &SeedCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("seed", "Seed a board into the persisted store, only if its project has no tasks yet.")
	c.Cmd.Flag("file", "YAML board file, the demo board if missing.").StringVar(&c.file)

	return c
}

func (c SeedCommand) Name() string { return c.Cmd.FullCommand() }

func (c SeedCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	ts, err := tabstore.Open(ctx, tabstore.Config{
		DBPath: c.rootCmd.DBPath,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not open store: %w", err)
	}
	defer ts.Close()

	res, err := seedBoard(ctx, ts.Store(), c.file, logger)
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("Project %s seeded with %d tasks", res.Board.Project.ID, len(res.Board.Tasks))
	if !res.Seeded {
		msg = fmt.Sprintf("Project %s already has tasks, nothing seeded", res.Board.Project.ID)
	}
	return newPrinter(formatTable, c.rootCmd.Stdout).PrintMessage(msg)
}

// seedBoard seeds a board file, or the demo board when the path is empty, into
// the store.
func seedBoard(ctx context.Context, st *store.Store, path string, logger log.Logger) (*seed.Result, error) {
	boardFS, boardPath, err := seed.BoardSource(path)
	if err != nil {
		return nil, err
	}

	svc, err := seed.NewService(seed.ServiceConfig{
		Repository: storageio.NewBoardYAMLRepository(boardFS),
		Store:      st,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, seed.Request{Path: boardPath})
	if err != nil {
		return nil, fmt.Errorf("could not seed board: %w", err)
	}
	return res, nil
}
