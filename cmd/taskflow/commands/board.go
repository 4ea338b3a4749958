package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/taskflow/internal/conventions"
	"github.com/slok/taskflow/internal/model"
	"github.com/slok/taskflow/internal/tabstore"
)

// BoardCommand prints the persisted board of a project.
type BoardCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	projectID string
	format    string
}

// NewBoardCommand returns the board command.
func NewBoardCommand(rootCmd *RootCommand, app *kingpin.Application) *BoardCommand {
	c := &BoardCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("board", "Print the persisted board of a project.")
	c.Cmd.Flag("project", "Project ID.").Default(conventions.DefaultProjectID).StringVar(&c.projectID)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c BoardCommand) Name() string { return c.Cmd.FullCommand() }

func (c BoardCommand) Run(ctx context.Context) error {
	ts, err := tabstore.Open(ctx, tabstore.Config{
		DBPath: c.rootCmd.DBPath,
		Logger: c.rootCmd.Logger,
	})
	if err != nil {
		return fmt.Errorf("could not open store: %w", err)
	}
	defer ts.Close()

	// Projects are not persisted, the ID is used as name.
	project := model.Project{ID: c.projectID, Name: c.projectID}
	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintBoard(project, ts.Store().ActiveTasks(c.projectID)); err != nil {
		return fmt.Errorf("could not print board: %w", err)
	}

	return nil
}
