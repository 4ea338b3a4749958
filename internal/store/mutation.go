package store

import "github.com/slok/taskflow/internal/model"

// The helpers below never modify the received mapping, they return a new one
// that shares the untouched tasks with it.

func withTask(tasks model.TaskMap, task model.Task) model.TaskMap {
	next := make(model.TaskMap, len(tasks)+1)
	for id, t := range tasks {
		next[id] = t
	}
	next[task.ID] = task.Clone()
	return next
}

func updateTask(tasks model.TaskMap, id string, patch model.TaskPatch) (model.TaskMap, bool) {
	t, ok := tasks[id]
	if !ok {
		return nil, false
	}
	return withTask(tasks, patch.Apply(t)), true
}

func addComment(tasks model.TaskMap, taskID string, comment model.Comment) (model.TaskMap, bool) {
	t, ok := tasks[taskID]
	if !ok {
		return nil, false
	}

	t = t.Clone()
	t.Comments = append(t.Comments, comment)
	return withTask(tasks, t), true
}

func deleteComment(tasks model.TaskMap, taskID, commentID string) (model.TaskMap, bool) {
	t, ok := tasks[taskID]
	if !ok || len(t.Comments) == 0 || !t.HasComment(commentID) {
		return nil, false
	}

	t = t.Clone()
	comments := make([]model.Comment, 0, len(t.Comments)-1)
	for _, c := range t.Comments {
		if c.ID != commentID {
			comments = append(comments, c)
		}
	}
	t.Comments = comments
	return withTask(tasks, t), true
}
