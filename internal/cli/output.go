package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"tododay/internal/todo"
)

var (
	dayStyle  = lipgloss.NewStyle().Bold(true)
	idStyle   = lipgloss.NewStyle().Faint(true)
	doneStyle = lipgloss.NewStyle().Faint(true).Strikethrough(true)
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	mutedText = lipgloss.NewStyle().Faint(true)
)

// OutputFormatter prints command results as text or JSON.
type OutputFormatter struct {
	Format string
	Writer io.Writer
}

// Response is the JSON envelope every command prints with --format json.
type Response struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type todoJSON struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	CreatedAt int64  `json:"created_at"`
	Done      bool   `json:"done"`
}

type groupJSON struct {
	Day   string     `json:"day"`
	Todos []todoJSON `json:"todos"`
}

func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
}

func (f *OutputFormatter) writeJSON(resp Response) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

func (f *OutputFormatter) message(format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	if f.Format == "json" {
		return f.writeJSON(Response{Status: "ok", Message: msg})
	}
	_, err := fmt.Fprintln(f.Writer, okStyle.Render(msg))
	return err
}

func (f *OutputFormatter) groups(groups todo.Groups) error {
	if f.Format == "json" {
		out := make([]groupJSON, 0, len(groups))
		for _, g := range groups {
			out = append(out, groupJSON{Day: g.Day, Todos: toJSON(g.Todos)})
		}
		return f.writeJSON(Response{Status: "ok", Data: out})
	}
	if len(groups) == 0 {
		_, err := fmt.Fprintln(f.Writer, mutedText.Render("No todos."))
		return err
	}
	var b strings.Builder
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(dayStyle.Render(g.Day))
		b.WriteString("\n")
		for _, t := range g.Todos {
			b.WriteString(renderLine(t))
		}
	}
	_, err := io.WriteString(f.Writer, b.String())
	return err
}

func (f *OutputFormatter) flat(todos []todo.Todo) error {
	if f.Format == "json" {
		return f.writeJSON(Response{Status: "ok", Data: toJSON(todos)})
	}
	if len(todos) == 0 {
		_, err := fmt.Fprintln(f.Writer, mutedText.Render("No todos."))
		return err
	}
	var b strings.Builder
	for _, t := range todos {
		b.WriteString(renderLine(t))
	}
	_, err := io.WriteString(f.Writer, b.String())
	return err
}

func renderLine(t todo.Todo) string {
	box := "[ ]"
	title := t.Title
	if t.Done {
		box = "[x]"
		title = doneStyle.Render(title)
	}
	return fmt.Sprintf("  %s %s %s\n", box, idStyle.Render(fmt.Sprintf("#%d", t.ID)), title)
}

func toJSON(todos []todo.Todo) []todoJSON {
	out := make([]todoJSON, 0, len(todos))
	for _, t := range todos {
		out = append(out, todoJSON{ID: t.ID, Title: t.Title, CreatedAt: t.CreatedAt, Done: t.Done})
	}
	return out
}
