// Package history implements a linear undo/redo log over full task mapping snapshots.
package history

import (
	"github.com/slok/taskflow/internal/model"
)

// Log is a two stack undo/redo log. Past is ordered oldest first and future
// soonest-to-redo first.
//
// The log copies snapshots on the way in and on the way out, a stored snapshot
// never shares memory with a live task mapping.
//
// Log is not safe for concurrent use, its owner (the store) serializes access.
type Log struct {
	past   []model.TaskMap
	future []model.TaskMap
	limit  int
}

// NewLog returns a new log. A limit of 0 keeps all the past snapshots, otherwise
// the oldest ones are dropped once the limit is reached.
func NewLog(limit int) *Log {
	if limit < 0 {
		limit = 0
	}
	return &Log{limit: limit}
}

// Record pushes the snapshot taken before a mutation and invalidates the redo
// history, this is a linear timeline, not a branching one.
func (l *Log) Record(snapshot model.TaskMap) {
	l.past = append(l.past, snapshot.Clone())
	if l.limit > 0 && len(l.past) > l.limit {
		l.past = l.past[len(l.past)-l.limit:]
	}
	l.future = nil
}

// Undo returns the snapshot the store must adopt, current is the live snapshot
// that will be redone. Returns false if there is nothing to undo.
func (l *Log) Undo(current model.TaskMap) (model.TaskMap, bool) {
	if len(l.past) == 0 {
		return nil, false
	}

	last := len(l.past) - 1
	previous := l.past[last]
	l.past[last] = nil
	l.past = l.past[:last]
	l.future = append([]model.TaskMap{current.Clone()}, l.future...)

	return previous.Clone(), true
}

// Redo returns the snapshot the store must adopt, current is the live snapshot
// that will be undone again. Returns false if there is nothing to redo.
func (l *Log) Redo(current model.TaskMap) (model.TaskMap, bool) {
	if len(l.future) == 0 {
		return nil, false
	}

	next := l.future[0]
	l.future[0] = nil
	l.future = l.future[1:]
	l.past = append(l.past, current.Clone())

	return next.Clone(), true
}

// CanUndo returns true if there is a snapshot to undo to.
func (l *Log) CanUndo() bool { return len(l.past) > 0 }

// CanRedo returns true if there is a snapshot to redo to.
func (l *Log) CanRedo() bool { return len(l.future) > 0 }

// Len returns the size of the past and future stacks.
func (l *Log) Len() (past, future int) { return len(l.past), len(l.future) }
