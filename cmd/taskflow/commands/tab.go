package commands

import (
	"bufio"
	"context"
	"fmt"
	"reflect"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"

	"github.com/slok/taskflow/internal/app/board"
	"github.com/slok/taskflow/internal/conventions"
	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
	"github.com/slok/taskflow/internal/printer"
	"github.com/slok/taskflow/internal/relay/relayhttp"
	"github.com/slok/taskflow/internal/remotesync"
	"github.com/slok/taskflow/internal/tabsync"
	"github.com/slok/taskflow/internal/tabstore"
)

const replPrompt = "taskflow> "

// TabCommand opens an interactive board session, the terminal equivalent of a
// browser tab.
type TabCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	projectID    string
	serverURL    string
	offline      bool
	tabID        string
	author       string
	seed         bool
	seedFile     string
	pollInterval time.Duration
	format       string
	llm          llmFlags
}

// NewTabCommand returns the tab command.
func NewTabCommand(rootCmd *RootCommand, app *kingpin.Application) *TabCommand {
	c := &TabCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("tab", "Open an interactive board session synced with the other tabs and clients.")
	c.Cmd.Flag("project", "Project ID.").Default(conventions.DefaultProjectID).StringVar(&c.projectID)
	c.Cmd.Flag("server", "Relay server URL.").Default(conventions.DefaultServerURL).StringVar(&c.serverURL)
	c.Cmd.Flag("offline", "Don't connect to the relay server, only sync with the local tabs.").BoolVar(&c.offline)
	c.Cmd.Flag("tab-id", "Tab ID, generated if missing.").StringVar(&c.tabID)
	c.Cmd.Flag("author", "Author of the comments.").Default("anonymous").StringVar(&c.author)
	c.Cmd.Flag("seed", "Seed the demo board if the project has no tasks.").BoolVar(&c.seed)
	c.Cmd.Flag("seed-file", "Seed a YAML board file if its project has no tasks.").StringVar(&c.seedFile)
	c.Cmd.Flag("poll-interval", "Interval to check the changes made by tabs of other processes.").Default("250ms").DurationVar(&c.pollInterval)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)
	c.llm.register(c.Cmd)

	return c
}

func (c TabCommand) Name() string { return c.Cmd.FullCommand() }

func (c TabCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger.WithValues(log.Kv{"project-id": c.projectID})

	ts, err := tabstore.Open(ctx, tabstore.Config{
		DBPath:       c.rootCmd.DBPath,
		TabID:        c.tabID,
		PollInterval: c.pollInterval,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("could not open store: %w", err)
	}
	defer ts.Close()

	if c.seed || c.seedFile != "" {
		res, err := seedBoard(ctx, ts.Store(), c.seedFile, logger)
		if err != nil {
			return err
		}
		if res.Board.Project.ID != c.projectID {
			logger.Warningf("Seeded project %s is not the opened project", res.Board.Project.ID)
		}
	}

	classifier, err := c.llm.classifier(logger)
	if err != nil {
		return err
	}

	boardCfg := board.ServiceConfig{
		Store:      ts.Store(),
		ProjectID:  c.projectID,
		Classifier: classifier,
		Author:     c.author,
		Logger:     logger,
	}

	var client *relayhttp.Client
	if !c.offline {
		client, err = relayhttp.NewClient(relayhttp.ClientConfig{
			ServerURL: c.serverURL,
			Logger:    logger,
		})
		if err != nil {
			return fmt.Errorf("could not create relay client: %w", err)
		}
		boardCfg.Publisher = client
	}

	svc, err := board.NewService(boardCfg)
	if err != nil {
		return fmt.Errorf("could not create board service: %w", err)
	}

	// Commits coming from other tabs or clients reprint the board, a pending
	// notification is enough.
	changed := make(chan struct{}, 1)
	ts.Store().OnChange(func(model.TaskMap) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})

	listener, err := tabsync.NewListener(tabsync.ListenerConfig{
		Replica: ts.Store().Replica(),
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("could not create cross tab listener: %w", err)
	}

	var g run.Group

	// Changes made by the tabs of other processes.
	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(
			func() error { return ts.Origin().Run(ctx) },
			func(_ error) { cancel() },
		)
	}

	// Cross tab merges.
	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(
			func() error { return listener.Run(ctx, ts.Tab().Changes()) },
			func(_ error) { cancel() },
		)
	}

	// Remote clients. A failed subscription leaves the tab working offline.
	if client != nil {
		sub, err := remotesync.NewSubscriber(remotesync.SubscriberConfig{
			ProjectID: c.projectID,
			Source:    client,
			Replica:   ts.Store().Replica(),
			OnState:   func(s remotesync.State) { logger.Debugf("Remote sync %s", s) },
			Logger:    logger,
		})
		if err != nil {
			return fmt.Errorf("could not create subscriber: %w", err)
		}

		ctx, cancel := context.WithCancel(ctx)
		g.Add(
			func() error {
				if err := sub.Run(ctx); err != nil {
					logger.Errorf("Remote sync stopped, working offline: %s", err)
				}
				<-ctx.Done()
				return nil
			},
			func(_ error) { cancel() },
		)
	}

	// Interactive session, ends the tab on EOF.
	{
		ctx, cancel := context.WithCancel(ctx)
		g.Add(
			func() error {
				return c.repl(ctx, svc, newPrinter(c.format, c.rootCmd.Stdout), changed)
			},
			func(_ error) { cancel() },
		)
	}

	logger.Infof("Tab %s opened on project %s", ts.Tab().ID(), c.projectID)
	return g.Run()
}

// repl runs the session commands read from stdin. Every notification on changed
// reprints the board if the project tasks differ from the last ones shown.
func (c TabCommand) repl(ctx context.Context, svc *board.Service, p printer.Printer, changed <-chan struct{}) error {
	prompt := IsTerminal(c.rootCmd.Stdin)

	// Reading stdin can't be cancelled, the reader is left behind when the
	// context ends.
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(c.rootCmd.Stdin)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	shown := svc.Tasks()
	if err := p.PrintBoard(svc.Project(), shown); err != nil {
		return fmt.Errorf("could not print board: %w", err)
	}

	showPrompt := prompt
	for {
		if showPrompt {
			fmt.Fprint(c.rootCmd.Stdout, replPrompt)
		}
		showPrompt = prompt

		select {
		case <-ctx.Done():
			return nil

		case <-changed:
			tasks := svc.Tasks()
			if reflect.DeepEqual(tasks, shown) {
				showPrompt = false
				continue
			}
			shown = tasks
			if prompt {
				fmt.Fprintln(c.rootCmd.Stdout)
			}
			if err := p.PrintBoard(svc.Project(), tasks); err != nil {
				return fmt.Errorf("could not print board: %w", err)
			}

		case line, ok := <-lines:
			if !ok {
				return nil
			}
			if line == "exit" || line == "quit" {
				return nil
			}

			res, err := svc.Exec(ctx, line)
			shown = svc.Tasks()
			if err != nil {
				fmt.Fprintf(c.rootCmd.Stderr, "Error: %s\n", err)
				continue
			}
			if err := printResult(p, res); err != nil {
				return fmt.Errorf("could not print result: %w", err)
			}
		}
	}
}

func printResult(p printer.Printer, res board.Result) error {
	if res.Suggestion != nil {
		if err := p.PrintSuggestion("", *res.Suggestion); err != nil {
			return err
		}
	}
	if res.Message != "" {
		if err := p.PrintMessage(res.Message); err != nil {
			return err
		}
	}
	if res.Board {
		return p.PrintBoard(res.Project, res.Tasks)
	}
	return nil
}
