package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/taskflow/internal/api"
	"github.com/slok/taskflow/internal/conventions"
	"github.com/slok/taskflow/internal/relay"
)

// ServeCommand runs the event relay and suggestion API server.
type ServeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	listenAddress string
	delivery      string
	pollInterval  time.Duration
	maxPending    int
	llm           llmFlags
}

// NewServeCommand returns the serve command.
func NewServeCommand(rootCmd *RootCommand, app *kingpin.Application) *ServeCommand {
	c := &ServeCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("serve", "Run the event relay and task status suggestion API.")
	c.Cmd.Flag("listen", "Address the HTTP server listens on.").Default(conventions.DefaultListenAddress).StringVar(&c.listenAddress)
	c.Cmd.Flag("delivery", "Event delivery to the subscribers of a project (drain: subscribers share the events, fanout: every subscriber gets every event).").Default(string(relay.DeliveryModeDrain)).EnumVar(&c.delivery, string(relay.DeliveryModeDrain), string(relay.DeliveryModeFanout))
	c.Cmd.Flag("poll-interval", "Interval between subscription batches.").Default(relay.DefaultStreamInterval.String()).DurationVar(&c.pollInterval)
	c.Cmd.Flag("max-pending", "Max events retained per project, the oldest are dropped.").Default("10000").IntVar(&c.maxPending)
	c.llm.register(c.Cmd)

	return c
}

func (c ServeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ServeCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	mode, err := relay.ParseDeliveryMode(c.delivery)
	if err != nil {
		return err
	}

	queue, err := relay.NewQueue(relay.QueueConfig{
		Mode:       mode,
		MaxPending: c.maxPending,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create relay queue: %w", err)
	}
	defer queue.Close()

	classifier, err := c.llm.classifier(logger)
	if err != nil {
		return err
	}

	router, err := api.NewRouter(api.RouterConfig{
		Queue:          queue,
		Classifier:     classifier,
		StreamInterval: c.pollInterval,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("could not create router: %w", err)
	}

	server, err := api.NewServer(api.ServerConfig{
		ListenAddress: c.listenAddress,
		Handler:       router,
		Logger:        logger,
	})
	if err != nil {
		return fmt.Errorf("could not create server: %w", err)
	}

	logger.Infof("Relay delivery mode %q, batches every %s", mode, c.pollInterval)
	return server.Run(ctx)
}
