package board

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/slok/taskflow/internal/classify"
	"github.com/slok/taskflow/internal/log"
	"github.com/slok/taskflow/internal/model"
	"github.com/slok/taskflow/internal/store"
)

// Publisher sends a mutation event to the other viewers of a project.
type Publisher interface {
	Publish(ctx context.Context, projectID string, event json.RawMessage) error
}

// ServiceConfig is the configuration for the board service.
type ServiceConfig struct {
	Store     *store.Store
	ProjectID string
	// ProjectName is used when the project is not known by the store yet.
	ProjectName string
	// Publisher is optional, if missing the mutations are only local.
	Publisher  Publisher
	Classifier classify.Classifier
	// Author is the name set on the comments created by this session.
	Author  string
	TimeNow func() time.Time
	Logger  log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}

	if c.ProjectID == "" {
		return fmt.Errorf("project id is required")
	}

	if c.ProjectName == "" {
		c.ProjectName = c.ProjectID
	}

	if c.Classifier == nil {
		c.Classifier = classify.NewRuleClassifier()
	}

	if c.Author == "" {
		c.Author = "anonymous"
	}

	if c.TimeNow == nil {
		c.TimeNow = time.Now
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "board.Service", "project-id": c.ProjectID})

	return nil
}

// Service is a board session of a single project. Every local mutation is applied
// to the store first and then published to the other viewers of the project.
type Service struct {
	store      *store.Store
	projectID  string
	publisher  Publisher
	classifier classify.Classifier
	author     string
	timeNow    func() time.Time
	logger     log.Logger
}

// NewService creates a new board service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	projects := cfg.Store.Projects()
	if _, ok := projects[cfg.ProjectID]; !ok {
		projects[cfg.ProjectID] = model.Project{ID: cfg.ProjectID, Name: cfg.ProjectName}
		cfg.Store.Replica().SetProjects(projects)
	}

	return &Service{
		store:      cfg.Store,
		projectID:  cfg.ProjectID,
		publisher:  cfg.Publisher,
		classifier: cfg.Classifier,
		author:     cfg.Author,
		timeNow:    cfg.TimeNow,
		logger:     cfg.Logger,
	}, nil
}

// Project returns the project of the session.
func (s *Service) Project() model.Project {
	p, ok := s.store.Projects()[s.projectID]
	if !ok {
		return model.Project{ID: s.projectID, Name: s.projectID}
	}
	return p
}

// Tasks returns the active tasks of the project.
func (s *Service) Tasks() []model.Task {
	return s.store.ActiveTasks(s.projectID)
}

// AddTask creates a new task in the project.
func (s *Service) AddTask(ctx context.Context, title string, status model.TaskStatus) (model.Task, error) {
	t := model.Task{
		ID:            model.NewID(),
		ProjectID:     s.projectID,
		Title:         strings.TrimSpace(title),
		Status:        status,
		AssignedTo:    []string{},
		Configuration: map[string]any{},
		Dependencies:  []string{},
		Comments:      []model.Comment{},
	}
	if err := t.Validate(); err != nil {
		return model.Task{}, fmt.Errorf("invalid task: %w", err)
	}

	s.store.AddTask(t)
	s.logger.Debugf("Task %s added", t.ID)
	s.publish(ctx, model.NewTaskUpdatedMutation(t))

	return t, nil
}

// AddSuggestedTask creates a new task with the initial status suggested for its title.
func (s *Service) AddSuggestedTask(ctx context.Context, title string) (model.Task, model.Suggestion, error) {
	sug, err := s.Suggest(ctx, title)
	if err != nil {
		return model.Task{}, model.Suggestion{}, err
	}

	t, err := s.AddTask(ctx, title, sug.Status)
	if err != nil {
		return model.Task{}, model.Suggestion{}, err
	}

	return t, sug, nil
}

// Suggest returns the initial status suggested for a task title.
func (s *Service) Suggest(ctx context.Context, title string) (model.Suggestion, error) {
	sug, err := s.classifier.Classify(ctx, title)
	if err != nil {
		return model.Suggestion{}, fmt.Errorf("could not classify title: %w", err)
	}
	return sug, nil
}

// UpdateTask applies a patch to a task of the project.
func (s *Service) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (model.Task, error) {
	if _, err := s.activeTask(id); err != nil {
		return model.Task{}, err
	}

	if patch.Status != nil && !patch.Status.Valid() {
		return model.Task{}, fmt.Errorf("task status %q: %w", *patch.Status, model.ErrNotValid)
	}
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return model.Task{}, fmt.Errorf("task title is required: %w", model.ErrNotValid)
	}

	if !s.store.UpdateTask(id, patch) {
		return model.Task{}, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	t, _ := s.store.Task(id)
	s.publish(ctx, model.NewTaskUpdatedMutation(t))

	return t, nil
}

// MoveTask changes the status of a task.
func (s *Service) MoveTask(ctx context.Context, id string, status model.TaskStatus) (model.Task, error) {
	return s.UpdateTask(ctx, id, model.TaskPatch{Status: &status})
}

// RenameTask changes the title of a task.
func (s *Service) RenameTask(ctx context.Context, id, title string) (model.Task, error) {
	title = strings.TrimSpace(title)
	return s.UpdateTask(ctx, id, model.TaskPatch{Title: &title})
}

// AddDependency makes a task depend on another one. Adding an existing dependency
// doesn't change anything.
func (s *Service) AddDependency(ctx context.Context, id, dependsOn string) (model.Task, error) {
	if id == dependsOn {
		return model.Task{}, fmt.Errorf("a task can't depend on itself: %w", model.ErrNotValid)
	}

	t, err := s.activeTask(id)
	if err != nil {
		return model.Task{}, err
	}

	if _, err := s.activeTask(dependsOn); err != nil {
		return model.Task{}, fmt.Errorf("dependency: %w", err)
	}

	for _, dep := range t.Dependencies {
		if dep == dependsOn {
			return t, nil
		}
	}

	deps := append(t.Dependencies, dependsOn)
	return s.UpdateTask(ctx, id, model.TaskPatch{Dependencies: &deps})
}

// AddComment appends a new comment to a task.
func (s *Service) AddComment(ctx context.Context, taskID, content string) (model.Comment, error) {
	if _, err := s.activeTask(taskID); err != nil {
		return model.Comment{}, err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return model.Comment{}, fmt.Errorf("comment content is required: %w", model.ErrNotValid)
	}

	c := model.Comment{
		ID:        model.NewID(),
		TaskID:    taskID,
		Author:    s.author,
		Content:   content,
		Timestamp: s.timeNow().UnixMilli(),
	}
	if !s.store.AddComment(taskID, c) {
		return model.Comment{}, fmt.Errorf("task %s: %w", taskID, model.ErrNotFound)
	}

	s.publish(ctx, model.NewCommentAddedMutation(c))
	return c, nil
}

// DeleteComment removes a comment from a task. There is no comment removal event,
// the other viewers receive the whole updated task.
func (s *Service) DeleteComment(ctx context.Context, taskID, commentID string) error {
	if _, err := s.activeTask(taskID); err != nil {
		return err
	}

	if !s.store.DeleteComment(taskID, commentID) {
		return fmt.Errorf("comment %s: %w", commentID, model.ErrNotFound)
	}

	t, _ := s.store.Task(taskID)
	s.publish(ctx, model.NewTaskUpdatedMutation(t))
	return nil
}

// DeleteTask soft deletes a task.
func (s *Service) DeleteTask(ctx context.Context, id string) error {
	if _, err := s.activeTask(id); err != nil {
		return err
	}

	if !s.store.DeleteTask(id, s.timeNow()) {
		return fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}

	s.publish(ctx, model.NewTaskDeletedMutation(id))
	return nil
}

// Undo reverts the last local mutation. Returns false if there was nothing to undo.
func (s *Service) Undo(ctx context.Context) bool {
	before := s.store.Tasks()
	if !s.store.Undo() {
		return false
	}
	s.publishDiff(ctx, before, s.store.Tasks())
	return true
}

// Redo reapplies the last undone mutation. Returns false if there was nothing to redo.
func (s *Service) Redo(ctx context.Context) bool {
	before := s.store.Tasks()
	if !s.store.Redo() {
		return false
	}
	s.publishDiff(ctx, before, s.store.Tasks())
	return true
}

func (s *Service) activeTask(id string) (model.Task, error) {
	t, ok := s.store.Task(id)
	if !ok || t.ProjectID != s.projectID || t.Deleted() {
		return model.Task{}, fmt.Errorf("task %s: %w", id, model.ErrNotFound)
	}
	return t, nil
}

// publishDiff publishes the tasks of the project that changed between two mappings.
// A task missing from the new mapping can only be expressed as a deletion.
func (s *Service) publishDiff(ctx context.Context, before, after model.TaskMap) {
	ids := make([]string, 0, len(before)+len(after))
	seen := map[string]bool{}
	for id := range before {
		ids = append(ids, id)
		seen[id] = true
	}
	for id := range after {
		if !seen[id] {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		prev, hadPrev := before[id]
		next, hasNext := after[id]
		switch {
		case hasNext && next.ProjectID != s.projectID:
		case !hasNext && prev.ProjectID != s.projectID:
		case !hasNext:
			s.publish(ctx, model.NewTaskDeletedMutation(id))
		case !hadPrev || !reflect.DeepEqual(prev, next):
			s.publish(ctx, model.NewTaskUpdatedMutation(next))
		}
	}
}

// publish is best effort, a failed publish never rolls back the local state.
func (s *Service) publish(ctx context.Context, m model.Mutation) {
	if s.publisher == nil {
		return
	}

	event, err := model.EncodeMutation(m)
	if err != nil {
		s.logger.Errorf("could not encode %s event: %s", m.Type, err)
		return
	}

	if err := s.publisher.Publish(ctx, s.projectID, event); err != nil {
		s.logger.Warningf("could not publish %s event: %s", m.Type, err)
	}
}
