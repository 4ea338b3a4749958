package store

import (
	"time"

	"github.com/slok/taskflow/internal/model"
)

// Replica is the write surface used to apply externally sourced changes (other
// tabs, other clients). Its writes are never recorded in the history log, only
// the local author mutations are undoable.
type Replica struct {
	s *Store
}

// SetTasks replaces the whole task mapping.
func (r *Replica) SetTasks(tasks model.TaskMap) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.commit(tasks.Clone())
}

// ApplyTasks replaces the task mapping with the result of fn applied to a copy of
// the current one. The read and the write are atomic.
func (r *Replica) ApplyTasks(fn func(current model.TaskMap) model.TaskMap) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.commit(fn(r.s.tasks.Clone()))
}

// SetProjects replaces the whole project mapping.
func (r *Replica) SetProjects(projects model.ProjectMap) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.projects = projects.Clone()
}

// UpdateTask shallow merges the patch into the task. Returns false if the task
// doesn't exist.
func (r *Replica) UpdateTask(id string, patch model.TaskPatch) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	next, ok := updateTask(r.s.tasks, id, patch)
	if !ok {
		return false
	}

	r.s.commit(next)
	return true
}

// DeleteTask soft deletes a task. An already deleted task keeps its tombstone.
// Returns false if nothing changed.
func (r *Replica) DeleteTask(id string, at time.Time) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tasks[id]
	if !ok {
		return false
	}
	if t.Deleted() {
		return false
	}

	deletedAt := at.UnixMilli()
	next, _ := updateTask(r.s.tasks, id, model.TaskPatch{DeletedAt: &deletedAt})
	r.s.commit(next)
	return true
}

// AddComment appends a comment to the task comments, a comment already on the
// task is ignored. Returns false if nothing changed.
func (r *Replica) AddComment(taskID string, comment model.Comment) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if t, ok := r.s.tasks[taskID]; ok && t.HasComment(comment.ID) {
		return false
	}

	next, ok := addComment(r.s.tasks, taskID, comment)
	if !ok {
		return false
	}

	r.s.commit(next)
	return true
}

// Tasks returns a copy of the whole task mapping.
func (r *Replica) Tasks() model.TaskMap { return r.s.Tasks() }
