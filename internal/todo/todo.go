// Package todo holds the todo record and the pure view derivations
// (search filtering and day grouping) computed from a list of them.
package todo

import (
	"slices"
	"sort"
	"strings"
	"time"
)

// DayLayout is the key format of a day group.
const DayLayout = "2006-01-02"

// Todo is a single task. CreatedAt is epoch milliseconds.
type Todo struct {
	ID        int64
	Title     string
	CreatedAt int64
	Done      bool
}

// New returns an open todo created at now. The store assigns the ID.
func New(title string, now time.Time) Todo {
	return Todo{
		Title:     title,
		CreatedAt: now.UnixMilli(),
	}
}

// Time returns CreatedAt as a local time.
func (t Todo) Time() time.Time {
	return time.UnixMilli(t.CreatedAt)
}

// DayKey formats a creation timestamp as the calendar day it falls on in loc.
func DayKey(createdAt int64, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(createdAt).In(loc).Format(DayLayout)
}

type Group struct {
	Day   string
	Todos []Todo
}

// Groups is ordered most recent day first.
type Groups []Group

func (g Groups) Keys() []string {
	keys := make([]string, 0, len(g))
	for _, grp := range g {
		keys = append(keys, grp.Day)
	}
	return keys
}

func (g Groups) Flatten() []Todo {
	out := make([]Todo, 0, g.Len())
	for _, grp := range g {
		out = append(out, grp.Todos...)
	}
	return out
}

// Len is the number of todos across all groups.
func (g Groups) Len() int {
	n := 0
	for _, grp := range g {
		n += len(grp.Todos)
	}
	return n
}

// GroupByDay partitions todos by the local calendar day of CreatedAt.
// Days are ordered descending; within a day todos are ordered by
// CreatedAt descending, then ID ascending.
func GroupByDay(todos []Todo, loc *time.Location) Groups {
	byDay := make(map[string][]Todo)
	for _, t := range todos {
		key := DayKey(t.CreatedAt, loc)
		byDay[key] = append(byDay[key], t)
	}

	keys := make([]string, 0, len(byDay))
	for k := range byDay {
		keys = append(keys, k)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	groups := make(Groups, 0, len(keys))
	for _, k := range keys {
		items := byDay[k]
		SortNewestFirst(items)
		groups = append(groups, Group{Day: k, Todos: items})
	}
	return groups
}

// SortNewestFirst sorts in place by CreatedAt descending, ID ascending.
func SortNewestFirst(todos []Todo) {
	sort.SliceStable(todos, func(i, j int) bool {
		if todos[i].CreatedAt != todos[j].CreatedAt {
			return todos[i].CreatedAt > todos[j].CreatedAt
		}
		return todos[i].ID < todos[j].ID
	})
}

// Filter returns the todos whose title contains query, ignoring case.
// An empty query returns a copy of the full list.
func Filter(todos []Todo, query string) []Todo {
	if query == "" {
		return slices.Clone(todos)
	}
	needle := strings.ToLower(query)
	out := make([]Todo, 0, len(todos))
	for _, t := range todos {
		if strings.Contains(strings.ToLower(t.Title), needle) {
			out = append(out, t)
		}
	}
	return out
}

// MatchIndex returns the byte range [start, end) of the first
// case-insensitive occurrence of query in title, or -1, -1.
func MatchIndex(title, query string) (int, int) {
	if query == "" {
		return -1, -1
	}
	lower := strings.ToLower(title)
	// Lowercasing can change byte widths for a few scripts; offsets are
	// only valid against title when the widths agree.
	if len(lower) != len(title) {
		return -1, -1
	}
	i := strings.Index(lower, strings.ToLower(query))
	if i < 0 {
		return -1, -1
	}
	return i, i + len(strings.ToLower(query))
}

// Find returns the todo with id.
func Find(todos []Todo, id int64) (Todo, bool) {
	for _, t := range todos {
		if t.ID == id {
			return t, true
		}
	}
	return Todo{}, false
}
