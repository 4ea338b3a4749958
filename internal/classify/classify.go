// Package classify suggests the initial board column of a task from its title.
package classify

import (
	"context"
	"strings"

	"github.com/slok/taskflow/internal/model"
)

// Classifier suggests the status of a task title.
type Classifier interface {
	Classify(ctx context.Context, title string) (model.Suggestion, error)
}

type rule struct {
	keywords []string
	status   model.TaskStatus
	reason   string
}

// Rules are checked in order, the first match wins.
var rules = []rule{
	{
		keywords: []string{"deploy", "release", "ship", "done", "finished"},
		status:   model.TaskStatusDone,
		reason:   "sounds like a completed action",
	},
	{
		keywords: []string{"fix", "bug", "debug", "investigate", "refactor", "working on", "in progress"},
		status:   model.TaskStatusInProgress,
		reason:   "active development or debugging",
	},
}

// RuleClassifier is a deterministic keyword based classifier, it never fails.
type RuleClassifier struct{}

// NewRuleClassifier returns a new rule based classifier.
func NewRuleClassifier() RuleClassifier { return RuleClassifier{} }

// Classify classifies the title by its keywords, titles without keywords are TODO.
func (RuleClassifier) Classify(_ context.Context, title string) (model.Suggestion, error) {
	lower := strings.ToLower(strings.TrimSpace(title))
	for _, r := range rules {
		for _, k := range r.keywords {
			if strings.Contains(lower, k) {
				return model.Suggestion{Status: r.status, Reason: r.reason}, nil
			}
		}
	}

	return model.Suggestion{Status: model.TaskStatusTodo, Reason: "New task"}, nil
}
