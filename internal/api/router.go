// Package api is the HTTP surface of the relay server.
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
	"github.com/slok/taskflow/internal/relay"
)

// Classifier suggests the initial status of a task from its title.
type Classifier interface {
	Classify(ctx context.Context, title string) (model.Suggestion, error)
}

// RouterConfig is the configuration for the API router.
type RouterConfig struct {
	Queue      *relay.Queue
	Classifier Classifier
	// StreamInterval is the time between subscription batch frames.
	StreamInterval time.Duration
	Logger         log.Logger
}

func (c *RouterConfig) defaults() error {
	if c.Queue == nil {
		return fmt.Errorf("queue is required")
	}
	if c.Classifier == nil {
		return fmt.Errorf("classifier is required")
	}
	if c.StreamInterval <= 0 {
		c.StreamInterval = relay.DefaultStreamInterval
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "api.Router"})
	return nil
}

// NewRouter creates the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) (*chi.Mux, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	r := chi.NewRouter()

	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(cfg.Logger))
	r.Use(Recovery(cfg.Logger))

	healthH := NewHealthHandler(cfg.Queue)
	eventsH := NewEventsHandler(cfg.Queue, cfg.StreamInterval, cfg.Logger)
	suggestH := NewSuggestHandler(cfg.Classifier, cfg.Logger)

	r.Get("/health", healthH.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/events/broadcast", eventsH.Broadcast)
		r.Get("/events", eventsH.Subscribe)
		r.Post("/ai-suggest", suggestH.Suggest)
	})

	return r, nil
}
