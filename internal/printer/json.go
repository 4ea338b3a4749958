package printer

import (
	"encoding/json"
	"io"

	"github.com/slok/taskflow/internal/model"
)

// JSONPrinter prints board information in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

// boardOutput represents a project board, the columns are keyed by status.
type boardOutput struct {
	Project model.Project                   `json:"project"`
	Columns map[model.TaskStatus][]taskItem `json:"columns"`
}

// taskItem represents a task in the board output.
type taskItem struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	AssignedTo   []string        `json:"assigned_to"`
	Dependencies []string        `json:"dependencies"`
	Comments     []model.Comment `json:"comments"`
}

// suggestionOutput represents a title status suggestion.
type suggestionOutput struct {
	Title  string `json:"title,omitempty"`
	Status string `json:"status"`
	Reason string `json:"reason"`
}

// messageOutput represents a simple message output.
type messageOutput struct {
	Message string `json:"message"`
}

// PrintBoard prints the project tasks grouped by status in JSON format.
func (j *JSONPrinter) PrintBoard(project model.Project, tasks []model.Task) error {
	output := boardOutput{
		Project: project,
		Columns: map[model.TaskStatus][]taskItem{},
	}
	for _, status := range model.TaskStatuses {
		output.Columns[status] = []taskItem{}
	}

	cols := byStatus(tasks)
	for status, ts := range cols {
		for _, t := range ts {
			output.Columns[status] = append(output.Columns[status], taskItem{
				ID:           t.ID,
				Title:        t.Title,
				AssignedTo:   nonNil(t.AssignedTo),
				Dependencies: nonNil(t.Dependencies),
				Comments:     append([]model.Comment{}, t.Comments...),
			})
		}
	}

	return j.encode(output)
}

// PrintSuggestion prints the status suggested for a title in JSON format.
func (j *JSONPrinter) PrintSuggestion(title string, sug model.Suggestion) error {
	return j.encode(suggestionOutput{Title: title, Status: string(sug.Status), Reason: sug.Reason})
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
