package model

import (
	"encoding/json"
	"fmt"
)

// MutationKind is the kind of a mutation relayed between clients.
type MutationKind string

const (
	MutationKindCommentAdded MutationKind = "comment-added"
	MutationKindTaskDeleted  MutationKind = "task-deleted"
	MutationKindTaskUpdated  MutationKind = "task-updated"
)

// Mutation is the typed form of the events published to the relay by the clients.
// The relay itself treats events as opaque JSON objects.
type Mutation struct {
	Type    MutationKind `json:"type"`
	Comment *Comment     `json:"comment,omitempty"`
	TaskID  string       `json:"taskId,omitempty"`
	Task    *TaskPatch   `json:"task,omitempty"`
}

// Validate checks the mutation carries the payload its kind needs to be replayed.
func (m Mutation) Validate() error {
	switch m.Type {
	case MutationKindCommentAdded:
		if m.Comment == nil || m.Comment.TaskID == "" {
			return fmt.Errorf("comment-added requires a comment with task id: %w", ErrNotValid)
		}
	case MutationKindTaskDeleted:
		if m.TaskID == "" {
			return fmt.Errorf("task-deleted requires a task id: %w", ErrNotValid)
		}
	case MutationKindTaskUpdated:
		if m.Task == nil || m.Task.TaskID() == "" {
			return fmt.Errorf("task-updated requires a task with id: %w", ErrNotValid)
		}
	default:
		return fmt.Errorf("unknown mutation kind %q: %w", m.Type, ErrNotValid)
	}
	return nil
}

// NewTaskUpdatedMutation returns a task-updated mutation carrying the full task.
func NewTaskUpdatedMutation(t Task) Mutation {
	p := NewTaskPatch(t)
	return Mutation{Type: MutationKindTaskUpdated, Task: &p}
}

// NewTaskDeletedMutation returns a task-deleted mutation.
func NewTaskDeletedMutation(taskID string) Mutation {
	return Mutation{Type: MutationKindTaskDeleted, TaskID: taskID}
}

// NewCommentAddedMutation returns a comment-added mutation.
func NewCommentAddedMutation(c Comment) Mutation {
	return Mutation{Type: MutationKindCommentAdded, Comment: &c}
}

// EncodeMutation encodes a mutation into a relay event.
func EncodeMutation(m Mutation) (json.RawMessage, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("could not marshal mutation: %w", err)
	}
	return data, nil
}

// DecodeMutation decodes a relay event into a mutation.
func DecodeMutation(event json.RawMessage) (Mutation, error) {
	var m Mutation
	if err := json.Unmarshal(event, &m); err != nil {
		return Mutation{}, fmt.Errorf("could not unmarshal mutation: %w", err)
	}
	if err := m.Validate(); err != nil {
		return Mutation{}, err
	}
	return m, nil
}

// FrameType is the type of a subscription stream frame.
type FrameType string

const (
	FrameTypeConnected FrameType = "connected"
	FrameTypeBatch     FrameType = "batch"
)

// Frame is a single message of a project subscription stream.
type Frame struct {
	Type   FrameType         `json:"type"`
	Events []json.RawMessage `json:"events,omitempty"`
}

// ValidEvent returns true if the raw event is a JSON object the relay can carry.
func ValidEvent(event json.RawMessage) bool {
	if len(event) == 0 {
		return false
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(event, &obj); err != nil {
		return false
	}
	return obj != nil
}
