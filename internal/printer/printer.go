package printer

import "github.com/slok/taskflow/internal/model"

// Printer knows how to print board information in different formats.
type Printer interface {
	PrintBoard(project model.Project, tasks []model.Task) error
	PrintSuggestion(title string, sug model.Suggestion) error
	PrintMessage(msg string) error
}

// byStatus returns the tasks in board column order, keeping the received order
// inside each column.
func byStatus(tasks []model.Task) map[model.TaskStatus][]model.Task {
	cols := map[model.TaskStatus][]model.Task{}
	for _, t := range tasks {
		cols[t.Status] = append(cols[t.Status], t)
	}
	return cols
}
