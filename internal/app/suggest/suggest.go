package suggest

import (
	"context"
	"fmt"
	"strings"

	"github.com/slok/taskflow/internal/classify"
	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
)

// ServiceConfig is the configuration for the suggest service.
type ServiceConfig struct {
	Classifier classify.Classifier
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Classifier == nil {
		return fmt.Errorf("classifier is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "suggest.Service"})

	return nil
}

// Service suggests the initial status of task titles.
type Service struct {
	classifier classify.Classifier
	logger     log.Logger
}

// NewService creates a new suggest service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		classifier: cfg.Classifier,
		logger:     cfg.Logger,
	}, nil
}

// Request represents the suggest request parameters.
type Request struct {
	Title string
}

// Run classifies the title.
func (s *Service) Run(ctx context.Context, req Request) (*model.Suggestion, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("title is required: %w", model.ErrNotValid)
	}

	sug, err := s.classifier.Classify(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("could not classify title: %w", err)
	}

	s.logger.Debugf("Title %q classified as %s", title, sug.Status)
	return &sug, nil
}
