package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/slok/taskflow/cmd/taskflow/commands"
	"github.com/slok/taskflow/internal/log"
	loglogrus "github.com/slok/taskflow/internal/log/logrus"
)

// Version is the application version (set via ldflags).
var Version = "dev"

// outputCommands print boards or suggestions on stdout, logs would get in the way
// of piping them unless debugging.
var outputCommands = map[string]bool{
	"board":   true,
	"suggest": true,
}

// Run runs the taskflow CLI with the given arguments and standard streams.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	app := kingpin.New("taskflow", "Multi client task board with real time sync and undo history.")
	app.DefaultEnvars()
	root := commands.NewRootCommand(app)

	registry := map[string]commands.Command{}
	for _, cmd := range []commands.Command{
		commands.NewServeCommand(root, app),
		commands.NewTabCommand(root, app),
		commands.NewBoardCommand(root, app),
		commands.NewSeedCommand(root, app),
		commands.NewSuggestCommand(root, app),
	} {
		registry[cmd.Name()] = cmd
	}

	selected, err := app.Parse(args[1:])
	if err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	root.Stdin, root.Stdout, root.Stderr = stdin, stdout, stderr
	if outputCommands[selected] && !root.Debug {
		root.NoLog = true
	}
	root.Logger = newLogger(*root)

	var g run.Group

	// Stop on SIGINT/SIGTERM, the tab sessions and the relay server run until then.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stopSignals()
	g.Add(
		func() error {
			<-sigCtx.Done()
			root.Logger.Debugf("Termination signal received")
			return nil
		},
		func(_ error) { stopSignals() },
	)

	cmdCtx, cancelCmd := context.WithCancel(ctx)
	defer cancelCmd()
	g.Add(
		func() error {
			if err := registry[selected].Run(cmdCtx); err != nil {
				return fmt.Errorf("%q command failed: %w", selected, err)
			}
			return nil
		},
		func(_ error) { cancelCmd() },
	)

	return g.Run()
}

// newLogger logs to stderr so stdout is left for the boards.
func newLogger(root commands.RootCommand) log.Logger {
	if root.NoLog {
		return log.Noop
	}

	l := logrus.New()
	l.Out = root.Stderr
	if root.Debug {
		l.SetLevel(logrus.DebugLevel)
	}

	switch root.LoggerType {
	case commands.LoggerTypeJSON:
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		colors := !root.NoColor && commands.IsTerminal(root.Stderr)
		l.SetFormatter(&logrus.TextFormatter{ForceColors: colors, DisableColors: !colors})
	}

	logger := loglogrus.NewLogrus(logrus.NewEntry(l)).WithValues(log.Kv{
		"app":     "taskflow",
		"version": Version,
	})
	logger.Debugf("Debug level is enabled")

	return logger
}

func main() {
	if err := Run(context.Background(), os.Args, os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
