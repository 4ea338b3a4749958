package lib

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/slok/taskflow/internal/app/board"
	"github.com/slok/taskflow/internal/classify"
	"github.com/slok/taskflow/internal/conventions"
	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/relay/relayhttp"
	"github.com/slok/taskflow/internal/tabstore"
)

// Config configures the SDK client.
//
// All fields are optional. An empty Config{} uses ~/.taskflow/taskflow.db, the
// rule based suggestions and doesn't publish the changes to remote clients.
type Config struct {
	// DBPath is the SQLite database path shared with the taskflow tabs.
	// Default: ~/.taskflow/taskflow.db.
	DBPath string

	// ServerURL is the relay server the changes are published to. When empty
	// the changes are only seen by the tabs of the machine.
	ServerURL string

	// Author is set on the comments created by the client.
	// Default: "anonymous".
	Author string

	// LLMEndpoint is an Ollama compatible endpoint used to suggest the initial
	// task statuses. When empty only the keyword rules are used.
	LLMEndpoint string

	// LLMModel is the model used by the suggestions.
	// Default: "llama3.2".
	LLMModel string

	// Logger receives the SDK logs.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

func (c *Config) defaults() error {
	if c.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("could not get user home dir: %w", err)
		}
		c.DBPath = conventions.DBPath(home)
	}

	if c.Author == "" {
		c.Author = "anonymous"
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the main SDK entry point to manage boards programmatically.
//
// Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	ts         *tabstore.TabStore
	publisher  board.Publisher
	classifier classify.Classifier
	author     string
	logger     log.Logger

	// mu serializes the operations, each one refreshes the store first.
	mu sync.Mutex
}

// New creates a new SDK client backed by a SQLite database.
//
// The caller must call [Client.Close] when done to release the database
// connection.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	classifierCfg := classify.FallbackClassifierConfig{Logger: cfg.Logger}
	if cfg.LLMEndpoint != "" {
		llm, err := classify.NewLLMClassifier(classify.LLMClassifierConfig{
			Endpoint: cfg.LLMEndpoint,
			Model:    cfg.LLMModel,
			Logger:   cfg.Logger,
		})
		if err != nil {
			return nil, mapError(fmt.Errorf("could not create llm classifier: %w", err))
		}
		classifierCfg.Primary = llm
	}
	classifier, err := classify.NewFallbackClassifier(classifierCfg)
	if err != nil {
		return nil, fmt.Errorf("could not create classifier: %w", err)
	}

	var publisher board.Publisher
	if cfg.ServerURL != "" {
		client, err := relayhttp.NewClient(relayhttp.ClientConfig{
			ServerURL: cfg.ServerURL,
			Logger:    cfg.Logger,
		})
		if err != nil {
			return nil, mapError(fmt.Errorf("could not create relay client: %w", err))
		}
		publisher = client
	}

	ts, err := tabstore.Open(ctx, tabstore.Config{
		DBPath: cfg.DBPath,
		Logger: cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not open store: %w", err)
	}

	return &Client{
		ts:         ts,
		publisher:  publisher,
		classifier: classifier,
		author:     cfg.Author,
		logger:     cfg.Logger,
	}, nil
}

// Close releases the resources held by the client, including the database
// connection. After Close returns, the client must not be used.
func (c *Client) Close() error {
	return c.ts.Close()
}

// withBoard runs fn with a board service of the project on top of the latest
// persisted tasks.
func (c *Client) withBoard(ctx context.Context, projectID string, fn func(svc *board.Service) error) error {
	if projectID == "" {
		return fmt.Errorf("project id is required: %w", ErrNotValid)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.ts.Refresh(ctx); err != nil {
		return fmt.Errorf("could not refresh store: %w", err)
	}

	svc, err := board.NewService(board.ServiceConfig{
		Store:      c.ts.Store(),
		ProjectID:  projectID,
		Publisher:  c.publisher,
		Classifier: c.classifier,
		Author:     c.author,
		Logger:     c.logger,
	})
	if err != nil {
		return mapError(fmt.Errorf("could not create board service: %w", err))
	}

	return mapError(fn(svc))
}
