// Package export writes a plain-text report of todos grouped by day.
package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"syscall"
	"time"

	"tododay/internal/todo"
)

const (
	fileTimeLayout   = "20060102_1504"
	headerTimeLayout = "2006-01-02 15:04"
	signature        = "Exported from tododay"
)

var rule = strings.Repeat("=", 51)

// FileExporter writes reports into Dir, one file per export.
type FileExporter struct {
	Dir string
	Now func() time.Time
}

func New(dir string) *FileExporter {
	return &FileExporter{Dir: dir, Now: time.Now}
}

// FileName is the report name for an export made at now.
func FileName(now time.Time) string {
	return "todos_" + now.Format(fileTimeLayout) + ".txt"
}

// Export writes the report and returns its path.
func (e *FileExporter) Export(ctx context.Context, groups todo.Groups) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := time.Now()
	if e.Now != nil {
		now = e.Now()
	}
	if e.Dir == "" {
		return "", errors.New("export directory is not set")
	}
	if err := os.MkdirAll(e.Dir, 0o755); err != nil {
		return "", describe("create export directory", err)
	}
	path := filepath.Join(e.Dir, FileName(now))
	if err := os.WriteFile(path, []byte(Render(groups, now)), 0o644); err != nil {
		return "", describe("write report", err)
	}
	return path, nil
}

// describe names the two failures users can act on in the message
// itself, since callers classify export errors by their text.
func describe(op string, err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%s: permission denied: %w", op, err)
	case errors.Is(err, syscall.ENOSPC):
		return fmt.Errorf("%s: no space left on device: %w", op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// Render formats groups as the report text generated at now.
func Render(groups todo.Groups, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generated: %s\n", now.Format(headerTimeLayout))
	b.WriteString(rule + "\n\n")

	for _, g := range groups {
		b.WriteString(g.Day + "\n")
		items := slices.Clone(g.Todos)
		todo.SortNewestFirst(items)
		for _, t := range items {
			mark := "⬜"
			if t.Done {
				mark = "✅"
			}
			fmt.Fprintf(&b, " %s %s\n", mark, t.Title)
		}
		b.WriteString("\n")
	}

	b.WriteString("\n" + rule + "\n")
	b.WriteString(signature + "\n")
	return b.String()
}
