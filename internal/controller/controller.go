// Package controller owns the reactive todo state: it derives the
// filtered and day-grouped views from the repository's live list and
// turns user intents into repository writes.
//
// All state changes happen on one goroutine, the run loop. Commands are
// queued and applied in the order they were issued; callers never wait
// for storage. After each command the loop folds in the snapshot the
// store published for it, so the next command sees its effect.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"tododay/internal/repository"
	"tododay/internal/storage"
	"tododay/internal/stream"
	"tododay/internal/todo"
)

// ErrClosed is returned by Wait once the controller has been closed.
var ErrClosed = errors.New("controller is closed")

const defaultQueueSize = 64

// Exporter writes a report of grouped todos and returns where it went.
type Exporter interface {
	Export(ctx context.Context, groups todo.Groups) (string, error)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Option func(*Controller)

func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

func WithClock(clock Clock) Option {
	return func(c *Controller) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLocation sets the timezone used for day grouping. Default time.Local.
func WithLocation(loc *time.Location) Option {
	return func(c *Controller) {
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithQueueSize bounds the number of commands waiting for the run loop.
func WithQueueSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.queueSize = n
		}
	}
}

type command struct {
	name string
	run  func(ctx context.Context)
}

type Controller struct {
	repo      repository.Repository
	exporter  Exporter
	log       *slog.Logger
	clock     Clock
	loc       *time.Location
	queueSize int

	ctx       context.Context
	cancel    context.CancelFunc
	commands  chan command
	wg        sync.WaitGroup
	closeOnce sync.Once

	// Owned by the run loop.
	todos     []todo.Todo
	exportSeq int

	all         *stream.Value[[]todo.Todo]
	filtered    *stream.Value[[]todo.Todo]
	grouped     *stream.Value[todo.Groups]
	query       *stream.Value[string]
	editing     *stream.Value[*todo.Todo]
	deleted     *stream.Value[*todo.Todo]
	initialized *stream.Value[bool]
	exportState *stream.Value[ExportState]
}

// New subscribes to the repository and starts the run loop. A failed
// subscription is returned as an error; the controller is unusable
// without its list. exporter may be nil, in which case exports fail.
func New(ctx context.Context, repo repository.Repository, exporter Exporter, opts ...Option) (*Controller, error) {
	c := &Controller{
		repo:        repo,
		exporter:    exporter,
		log:         slog.Default(),
		clock:       systemClock{},
		loc:         time.Local,
		queueSize:   defaultQueueSize,
		all:         stream.NewValue([]todo.Todo{}),
		filtered:    stream.NewValue([]todo.Todo{}),
		grouped:     stream.NewValue(todo.Groups{}),
		query:       stream.NewValue(""),
		editing:     stream.NewValue[*todo.Todo](nil),
		deleted:     stream.NewValue[*todo.Todo](nil),
		initialized: stream.NewValue(false),
		exportState: stream.NewValue[ExportState](ExportIdle{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.ctx, c.cancel = context.WithCancel(ctx)
	snapshots, err := repo.ObserveAll(c.ctx)
	if err != nil {
		c.cancel()
		return nil, fmt.Errorf("observe todos: %w", err)
	}
	c.commands = make(chan command, c.queueSize)

	c.wg.Add(1)
	go c.run(snapshots)
	return c, nil
}

// Close stops the run loop, abandons queued commands and closes every
// stream. Nothing is emitted after Close returns.
func (c *Controller) Close() {
	c.closeOnce.Do(func() {
		c.cancel()
		c.wg.Wait()
		c.all.Close()
		c.filtered.Close()
		c.grouped.Close()
		c.query.Close()
		c.editing.Close()
		c.deleted.Close()
		c.initialized.Close()
		c.exportState.Close()
	})
}

// run is the only goroutine that touches controller state. Commands are
// held back until the first snapshot arrives so lookups never run against
// an empty, not yet loaded list.
func (c *Controller) run(snapshots <-chan []todo.Todo) {
	defer c.wg.Done()
	var commands <-chan command
	for {
		select {
		case <-c.ctx.Done():
			return
		case list, ok := <-snapshots:
			if !ok {
				c.log.Warn("todo stream closed")
				snapshots = nil
				commands = c.commands
				continue
			}
			c.apply(list)
			commands = c.commands
		case cmd := <-commands:
			cmd.run(c.ctx)
			snapshots = c.drain(snapshots)
		}
	}
}

// drain applies a snapshot that is already waiting, without blocking.
func (c *Controller) drain(snapshots <-chan []todo.Todo) <-chan []todo.Todo {
	select {
	case list, ok := <-snapshots:
		if !ok {
			c.log.Warn("todo stream closed")
			return nil
		}
		c.apply(list)
	default:
	}
	return snapshots
}

func (c *Controller) apply(list []todo.Todo) {
	c.todos = list
	c.all.Set(slices.Clone(list))
	c.refresh()
	if !c.initialized.Get() {
		c.initialized.Set(true)
		c.log.Debug("todos loaded", "count", len(list))
	}
}

// refresh recomputes the derived views from the current list and query.
func (c *Controller) refresh() {
	filtered := todo.Filter(c.todos, c.query.Get())
	c.filtered.Set(filtered)
	c.grouped.Set(todo.GroupByDay(filtered, c.loc))
}

func (c *Controller) enqueue(name string, fn func(ctx context.Context)) bool {
	if c.ctx.Err() != nil {
		c.log.Debug("controller closed, dropping command", "command", name)
		return false
	}
	select {
	case c.commands <- command{name: name, run: fn}:
		return true
	case <-c.ctx.Done():
		c.log.Debug("controller closed, dropping command", "command", name)
		return false
	}
}

// Wait blocks until every command issued before it has been applied and
// the views reflect it.
func (c *Controller) Wait(ctx context.Context) error {
	done := make(chan struct{})
	if !c.enqueue("wait", func(context.Context) { close(done) }) {
		return ErrClosed
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrClosed
	}
}

func (c *Controller) All() stream.Observable[[]todo.Todo]      { return c.all }
func (c *Controller) Filtered() stream.Observable[[]todo.Todo] { return c.filtered }
func (c *Controller) Grouped() stream.Observable[todo.Groups]  { return c.grouped }
func (c *Controller) SearchQuery() stream.Observable[string]   { return c.query }
func (c *Controller) Editing() stream.Observable[*todo.Todo]   { return c.editing }
func (c *Controller) Initialized() stream.Observable[bool]     { return c.initialized }

// RecentlyDeleted holds the one todo RestoreTodo would bring back.
func (c *Controller) RecentlyDeleted() stream.Observable[*todo.Todo] { return c.deleted }

func (c *Controller) ExportState() stream.Observable[ExportState] { return c.exportState }

// AddTodo stores a new open todo titled title. Blank titles are ignored.
func (c *Controller) AddTodo(title string) {
	title = strings.TrimSpace(title)
	if title == "" {
		c.log.Debug("ignoring blank todo")
		return
	}
	t := todo.New(title, c.clock.Now())
	c.enqueue("add", func(ctx context.Context) {
		if err := c.repo.Add(ctx, t); err != nil {
			c.log.Error("add todo failed", "title", t.Title, "error", err)
		}
	})
}

// DeleteTodo removes the todo and keeps it as the single undoable deletion,
// replacing whatever was kept before.
func (c *Controller) DeleteTodo(id int64) {
	c.enqueue("delete", func(ctx context.Context) {
		t, ok := todo.Find(c.todos, id)
		if !ok {
			c.log.Warn("delete: todo not found", "id", id)
			return
		}
		if err := c.repo.Delete(ctx, t); err != nil {
			c.log.Error("delete todo failed", "id", id, "error", err)
			return
		}
		c.deleted.Set(&t)
	})
}

// RestoreTodo re-inserts the last deleted todo as a new record. The store
// may give it a new id.
func (c *Controller) RestoreTodo() {
	c.enqueue("restore", func(ctx context.Context) {
		kept := c.deleted.Get()
		if kept == nil {
			c.log.Debug("restore: nothing to restore")
			return
		}
		fresh := *kept
		fresh.ID = 0
		if err := c.repo.Add(ctx, fresh); err != nil {
			c.log.Error("restore todo failed", "title", fresh.Title, "error", err)
			return
		}
		c.deleted.Set(nil)
	})
}

// Toggle flips the completion flag of the todo with id.
func (c *Controller) Toggle(id int64) {
	c.enqueue("toggle", func(ctx context.Context) {
		t, ok := todo.Find(c.todos, id)
		if !ok {
			c.log.Warn("toggle: todo not found", "id", id)
			return
		}
		t.Done = !t.Done
		if err := c.repo.Update(ctx, t); err != nil {
			c.log.Error("toggle todo failed", "id", id, "error", err)
		}
	})
}

// StartEditing makes the todo with id the pending edit, discarding any
// earlier pending edit. An unknown id clears the slot.
func (c *Controller) StartEditing(id int64) {
	c.enqueue("start editing", func(context.Context) {
		t, ok := todo.Find(c.todos, id)
		if !ok {
			c.log.Warn("start editing: todo not found", "id", id)
			c.editing.Set(nil)
			return
		}
		c.editing.Set(&t)
	})
}

// UpdateTodo renames the pending edit and ends editing. Only the title
// changes. It does nothing when no edit is pending or newTitle is blank.
func (c *Controller) UpdateTodo(newTitle string) {
	title := strings.TrimSpace(newTitle)
	c.enqueue("update", func(ctx context.Context) {
		pending := c.editing.Get()
		if pending == nil {
			c.log.Debug("update: no pending edit")
			return
		}
		if title == "" {
			c.log.Debug("update: ignoring blank title", "id", pending.ID)
			return
		}
		// Rename the todo as it is now; changes made since StartEditing stay.
		updated, ok := todo.Find(c.todos, pending.ID)
		if !ok {
			c.log.Warn("update: todo was deleted while editing", "id", pending.ID)
			c.editing.Set(nil)
			return
		}
		updated.Title = title
		if err := c.repo.Update(ctx, updated); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				c.log.Warn("update: todo was deleted while editing", "id", updated.ID)
				c.editing.Set(nil)
				return
			}
			c.log.Error("update todo failed", "id", updated.ID, "error", err)
			return
		}
		c.editing.Set(nil)
	})
}

func (c *Controller) CancelEditing() {
	c.enqueue("cancel editing", func(context.Context) {
		c.editing.Set(nil)
	})
}

// UpdateSearchQuery replaces the filter verbatim. The empty string shows
// everything.
func (c *Controller) UpdateSearchQuery(query string) {
	c.enqueue("search", func(context.Context) {
		c.query.Set(query)
		c.refresh()
	})
}

// ExportTodos writes every todo, ignoring the search filter, through the
// exporter. Progress and the outcome are reported on ExportState.
func (c *Controller) ExportTodos() {
	c.enqueue("export", func(ctx context.Context) {
		c.exportSeq++
		seq := c.exportSeq
		c.exportState.Set(ExportLoading{})

		groups := todo.GroupByDay(c.todos, c.loc)
		if len(groups) == 0 {
			c.exportState.Set(ExportError{Message: EmptyExportMessage})
			return
		}
		if c.exporter == nil {
			c.exportState.Set(ExportError{Message: NoExporterMessage})
			return
		}

		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			var result ExportState
			path, err := c.exporter.Export(ctx, groups)
			if err != nil {
				c.log.Error("export failed", "error", err)
				result = ExportError{Message: exportErrorMessage(err)}
			} else {
				c.log.Info("todos exported", "path", path, "count", groups.Len())
				result = ExportSuccess{Path: path}
			}
			c.enqueue("export result", func(context.Context) {
				if seq != c.exportSeq {
					c.log.Debug("dropping superseded export result", "seq", seq)
					return
				}
				c.exportState.Set(result)
			})
		}()
	})
}

// ClearExportState returns the export state to idle. A result still in
// flight is discarded.
func (c *Controller) ClearExportState() {
	c.enqueue("clear export", func(context.Context) {
		c.exportSeq++
		c.exportState.Set(ExportIdle{})
	})
}
