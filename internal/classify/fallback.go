package classify

import (
	"context"
	"fmt"
	"strings"

	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
)

// FallbackClassifierConfig is the configuration for the fallback classifier.
type FallbackClassifierConfig struct {
	// Primary is optional, without it the fallback is always used.
	Primary Classifier
	// Fallback defaults to the rule classifier.
	Fallback Classifier
	Logger   log.Logger
}

func (c *FallbackClassifierConfig) defaults() error {
	if c.Fallback == nil {
		c.Fallback = NewRuleClassifier()
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "classify.FallbackClassifier"})
	return nil
}

// FallbackClassifier uses a primary classifier and falls back to a secondary one
// when the primary fails.
type FallbackClassifier struct {
	primary  Classifier
	fallback Classifier
	logger   log.Logger
}

// NewFallbackClassifier returns a new fallback classifier.
func NewFallbackClassifier(cfg FallbackClassifierConfig) (*FallbackClassifier, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &FallbackClassifier{
		primary:  cfg.Primary,
		fallback: cfg.Fallback,
		logger:   cfg.Logger,
	}, nil
}

// Classify classifies with the primary classifier, empty titles and primary
// failures are classified by the fallback.
func (f *FallbackClassifier) Classify(ctx context.Context, title string) (model.Suggestion, error) {
	if f.primary != nil && strings.TrimSpace(title) != "" {
		s, err := f.primary.Classify(ctx, title)
		if err == nil && s.Status.Valid() {
			return s, nil
		}
		if err == nil {
			err = fmt.Errorf("%w: unknown status %q", ErrInvalidOutput, s.Status)
		}
		f.logger.Warningf("Primary classifier failed, falling back: %s", err)
	}

	return f.fallback.Classify(ctx, title)
}
