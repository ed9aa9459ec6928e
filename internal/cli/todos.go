package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"tododay/internal/todo"
)

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a todo",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return fmt.Errorf("title cannot be empty")
			}
			return withApp(cmd, rootOpts, func(a *app) error {
				before := len(a.ctrl.All().Get())
				a.ctrl.AddTodo(title)
				if err := a.ctrl.Wait(cmd.Context()); err != nil {
					return err
				}
				if len(a.ctrl.All().Get()) <= before {
					return fmt.Errorf("todo was not saved")
				}
				return newFormatter(cmd, rootOpts).message("Added %q", title)
			})
		},
	}
}

type listOptions struct {
	search string
	flat   bool
}

// NewListCommand creates the ls command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := listOptions{}
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List todos grouped by day",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, rootOpts, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.search, "search", "s", "", "only todos whose title contains this text")
	cmd.Flags().BoolVar(&opts.flat, "flat", false, "one list, newest first, without day headers")
	return cmd
}

func runList(cmd *cobra.Command, rootOpts *RootOptions, opts listOptions) error {
	return withApp(cmd, rootOpts, func(a *app) error {
		todos := a.ctrl.All().Get()
		if opts.search != "" {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			ch, err := a.repo.Search(ctx, opts.search)
			if err != nil {
				return fmt.Errorf("search: %w", err)
			}
			found, ok := <-ch
			if !ok {
				return ctx.Err()
			}
			todos = found
		}
		f := newFormatter(cmd, rootOpts)
		if opts.flat {
			return f.flat(todos)
		}
		return f.groups(todo.GroupByDay(todos, time.Local))
	})
}

// NewDoneCommand creates the done command.
func NewDoneCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle whether a todo is done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, rootOpts, func(a *app) error {
				if _, err := a.lookup(id); err != nil {
					return err
				}
				a.ctrl.Toggle(id)
				if err := a.ctrl.Wait(cmd.Context()); err != nil {
					return err
				}
				t, err := a.lookup(id)
				if err != nil {
					return err
				}
				state := "open"
				if t.Done {
					state = "done"
				}
				return newFormatter(cmd, rootOpts).message("#%d %q is %s", t.ID, t.Title, state)
			})
		},
	}
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a todo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, rootOpts, func(a *app) error {
				t, err := a.lookup(id)
				if err != nil {
					return err
				}
				a.ctrl.DeleteTodo(id)
				if err := a.ctrl.Wait(cmd.Context()); err != nil {
					return err
				}
				if _, err := a.lookup(id); err == nil {
					return fmt.Errorf("todo %d was not deleted", id)
				}
				return newFormatter(cmd, rootOpts).message("Deleted #%d %q", t.ID, t.Title)
			})
		},
	}
}

// NewEditCommand creates the edit command.
func NewEditCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "edit <id> <title...>",
		Short: "Rename a todo",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return fmt.Errorf("title cannot be empty")
			}
			return withApp(cmd, rootOpts, func(a *app) error {
				if _, err := a.lookup(id); err != nil {
					return err
				}
				a.ctrl.StartEditing(id)
				a.ctrl.UpdateTodo(title)
				if err := a.ctrl.Wait(cmd.Context()); err != nil {
					return err
				}
				t, err := a.lookup(id)
				if err != nil {
					return err
				}
				if t.Title != title {
					return fmt.Errorf("todo %d was not renamed", id)
				}
				return newFormatter(cmd, rootOpts).message("Renamed #%d to %q", t.ID, t.Title)
			})
		},
	}
}

func withApp(cmd *cobra.Command, rootOpts *RootOptions, fn func(a *app) error) error {
	a, err := openApp(cmd.Context(), rootOpts, appOptions{stderr: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a)
}

func (a *app) lookup(id int64) (todo.Todo, error) {
	t, ok := todo.Find(a.ctrl.All().Get(), id)
	if !ok {
		return todo.Todo{}, fmt.Errorf("todo %d not found", id)
	}
	return t, nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
