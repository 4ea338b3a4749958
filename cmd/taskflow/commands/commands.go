package commands

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kingpin/v2"
	"github.com/mattn/go-isatty"
	"k8s.io/client-go/util/homedir"

	"github.com/slok/taskflow/internal/classify"
	"github.com/slok/taskflow/internal/conventions"
	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/printer"
)

const (
	// LoggerTypeDefault logs text, colored on terminals.
	LoggerTypeDefault = "default"
	// LoggerTypeJSON logs a JSON object per line.
	LoggerTypeJSON = "json"

	formatTable = "table"
	formatJSON  = "json"
)

// Command is a taskflow subcommand, registered on main by its full name.
type Command interface {
	Name() string
	Run(ctx context.Context) error
}

// RootCommand holds the global flags and the shared streams and logger that
// main sets before running the selected subcommand.
type RootCommand struct {
	Debug      bool
	NoLog      bool
	NoColor    bool
	LoggerType string
	// DBPath is the database shared by every tab of the machine.
	DBPath string

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger log.Logger
}

// NewRootCommand registers the global flags on the app.
func NewRootCommand(app *kingpin.Application) *RootCommand {
	c := &RootCommand{}

	app.Flag("debug", "Log debug messages, also on the board printing commands.").BoolVar(&c.Debug)
	app.Flag("no-log", "Don't log anything.").BoolVar(&c.NoLog)
	app.Flag("no-color", "Don't color the text logs.").BoolVar(&c.NoColor)
	app.Flag("logger", "Log format.").Default(LoggerTypeDefault).EnumVar(&c.LoggerType, LoggerTypeDefault, LoggerTypeJSON)
	app.Flag("db-path", "Path to the SQLite database shared by the tabs.").Default(conventions.DBPath(homedir.HomeDir())).StringVar(&c.DBPath)

	return c
}

// llmFlags are the flags of the commands that classify task titles.
type llmFlags struct {
	endpoint string
	model    string
}

func (f *llmFlags) register(cmd *kingpin.CmdClause) {
	cmd.Flag("llm-endpoint", "Ollama compatible endpoint used to suggest task statuses, rules only if missing (e.g: http://localhost:11434).").StringVar(&f.endpoint)
	cmd.Flag("llm-model", "Model used to suggest task statuses.").Default("llama3.2").StringVar(&f.model)
}

// classifier returns the LLM classifier with the rules fallback, or only the
// rules when there is no endpoint.
func (f *llmFlags) classifier(logger log.Logger) (classify.Classifier, error) {
	cfg := classify.FallbackClassifierConfig{Logger: logger}

	if f.endpoint != "" {
		llm, err := classify.NewLLMClassifier(classify.LLMClassifierConfig{
			Endpoint: f.endpoint,
			Model:    f.model,
			Logger:   logger,
		})
		if err != nil {
			return nil, fmt.Errorf("could not create LLM classifier: %w", err)
		}
		cfg.Primary = llm
	}

	c, err := classify.NewFallbackClassifier(cfg)
	if err != nil {
		return nil, fmt.Errorf("could not create classifier: %w", err)
	}
	return c, nil
}

func newPrinter(format string, w io.Writer) printer.Printer {
	switch format {
	case formatJSON:
		return printer.NewJSONPrinter(w)
	default:
		return printer.NewTablePrinter(w)
	}
}

// IsTerminal tells if a stream is attached to a terminal, used to show the session
// prompt and the log colors.
func IsTerminal(stream any) bool {
	if f, ok := stream.(*os.File); ok {
		fd := f.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
	}
	return false
}
