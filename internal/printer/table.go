package printer

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/slok/taskflow/internal/model"
)

// TablePrinter prints board information in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintBoard prints the project tasks grouped by status column.
func (t *TablePrinter) PrintBoard(project model.Project, tasks []model.Task) error {
	fmt.Fprintf(t.writer, "Project: %s (%s)\n", project.Name, project.ID)
	if len(tasks) == 0 {
		fmt.Fprintln(t.writer, "No tasks")
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	// Print header.
	fmt.Fprintln(tw, "STATUS\tID\tTITLE\tASSIGNED\tDEPENDS ON\tCOMMENTS\tLAST COMMENT")

	// Print rows.
	cols := byStatus(tasks)
	for _, status := range model.TaskStatuses {
		for _, task := range cols[status] {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
				task.Status,
				task.ID,
				task.Title,
				orDash(strings.Join(task.AssignedTo, ",")),
				orDash(strings.Join(task.Dependencies, ",")),
				len(task.Comments),
				lastComment(task),
			)
		}
	}

	return nil
}

// PrintSuggestion prints the status suggested for a title.
func (t *TablePrinter) PrintSuggestion(title string, sug model.Suggestion) error {
	if title != "" {
		fmt.Fprintf(t.writer, "Title:   %s\n", title)
	}
	fmt.Fprintf(t.writer, "Status:  %s\n", sug.Status)
	fmt.Fprintf(t.writer, "Reason:  %s\n", sug.Reason)
	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func lastComment(task model.Task) string {
	if len(task.Comments) == 0 {
		return "-"
	}
	c := task.Comments[len(task.Comments)-1]
	return fmt.Sprintf("%s, %s", c.Author, TimeAgo(time.UnixMilli(c.Timestamp)))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
