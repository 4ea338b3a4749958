package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/taskflow/internal/app/suggest"
)

// SuggestCommand suggests the initial status of a task title.
type SuggestCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	title  []string
	format string
	llm    llmFlags
}

// NewSuggestCommand returns the suggest command.
func NewSuggestCommand(rootCmd *RootCommand, app *kingpin.Application) *SuggestCommand {
	c := &SuggestCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("suggest", "Suggest the initial status of a task title.")
	c.Cmd.Arg("title", "Task title.").Required().StringsVar(&c.title)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)
	c.llm.register(c.Cmd)

	return c
}

func (c SuggestCommand) Name() string { return c.Cmd.FullCommand() }

func (c SuggestCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	classifier, err := c.llm.classifier(logger)
	if err != nil {
		return err
	}

	svc, err := suggest.NewService(suggest.ServiceConfig{
		Classifier: classifier,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	title := strings.Join(c.title, " ")
	sug, err := svc.Run(ctx, suggest.Request{Title: title})
	if err != nil {
		return fmt.Errorf("could not suggest status: %w", err)
	}

	if err := newPrinter(c.format, c.rootCmd.Stdout).PrintSuggestion(title, *sug); err != nil {
		return fmt.Errorf("could not print suggestion: %w", err)
	}

	return nil
}
