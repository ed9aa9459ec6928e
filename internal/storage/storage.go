// Package storage is the SQLite record store for todos. Every successful
// write publishes a fresh, complete snapshot to live subscriptions.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	_ "modernc.org/sqlite"

	"tododay/internal/stream"
	"tododay/internal/todo"
)

var (
	ErrNotFound = errors.New("todo not found")
	ErrClosed   = errors.New("store is closed")
)

const listColumns = `id, title, created_at, is_done`

type Store struct {
	db     *sql.DB
	closed atomic.Bool

	// writeMu orders write+refresh pairs so snapshots are published in
	// commit order.
	writeMu  sync.Mutex
	snapshot *stream.Value[[]todo.Todo]
}

func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, errors.New("db path is empty")
	}
	if !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", sqliteDSN(dbPath))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	initial, err := s.List(context.Background())
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("load todos: %w", err)
	}
	s.snapshot = stream.NewValue(initial)
	return s, nil
}

// Close closes the database and every live subscription.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.snapshot.Close()
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS todos (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	is_done INTEGER NOT NULL DEFAULT 0
);`
	if _, err := s.db.Exec(ddl); err != nil {
		return err
	}
	if err := s.ensureTodoColumns(); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_todos_created_at ON todos(created_at);`)
	return err
}

// ensureTodoColumns adds columns introduced after the first schema.
func (s *Store) ensureTodoColumns() error {
	required := map[string]string{
		"is_done": "ALTER TABLE todos ADD COLUMN is_done INTEGER NOT NULL DEFAULT 0;",
	}
	existing := map[string]struct{}{}
	rows, err := s.db.Query(`PRAGMA table_info(todos);`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return err
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for col, alter := range required {
		if _, ok := existing[col]; ok {
			continue
		}
		if _, err := s.db.Exec(alter); err != nil {
			return err
		}
	}
	return nil
}

// List returns every todo, newest first.
func (s *Store) List(ctx context.Context) ([]todo.Todo, error) {
	return s.query(ctx, `SELECT `+listColumns+` FROM todos ORDER BY created_at DESC, id ASC;`)
}

// Search returns todos whose title contains query, newest first. Matching
// is case-insensitive for ASCII letters only, as with SQLite LIKE.
func (s *Store) Search(ctx context.Context, query string) ([]todo.Todo, error) {
	return s.query(ctx,
		`SELECT `+listColumns+` FROM todos WHERE title LIKE ? ESCAPE '\' ORDER BY created_at DESC, id ASC;`,
		"%"+escapeLike(query)+"%")
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]todo.Todo, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	todos := []todo.Todo{}
	for rows.Next() {
		var t todo.Todo
		var done int
		if err := rows.Scan(&t.ID, &t.Title, &t.CreatedAt, &done); err != nil {
			return nil, err
		}
		t.Done = done == 1
		todos = append(todos, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return todos, nil
}

// Insert stores t as a new row and returns its id. t.ID is ignored.
func (s *Store) Insert(ctx context.Context, t todo.Todo) (int64, error) {
	var id int64
	err := s.write(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO todos (title, created_at, is_done) VALUES (?, ?, ?);`,
			t.Title, t.CreatedAt, boolToInt(t.Done))
		if err != nil {
			return fmt.Errorf("insert todo: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// Update replaces every mutable field of the row with t.ID.
func (s *Store) Update(ctx context.Context, t todo.Todo) error {
	return s.write(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			`UPDATE todos SET title = ?, is_done = ? WHERE id = ?;`,
			t.Title, boolToInt(t.Done), t.ID)
		if err != nil {
			return fmt.Errorf("update todo %d: %w", t.ID, err)
		}
		return expectOneRow(res, t.ID)
	})
}

func (s *Store) Delete(ctx context.Context, id int64) error {
	return s.write(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?;`, id)
		if err != nil {
			return fmt.Errorf("delete todo %d: %w", id, err)
		}
		return expectOneRow(res, id)
	})
}

// write runs fn and, if it succeeds, publishes the refreshed list before
// returning, so a subscriber's channel already holds the new snapshot when
// the caller resumes.
func (s *Store) write(ctx context.Context, fn func() error) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if s.closed.Load() {
		return ErrClosed
	}
	if err := fn(); err != nil {
		return err
	}
	// The write is committed; publish even if the caller gave up.
	todos, err := s.List(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("refresh todos: %w", err)
	}
	s.snapshot.Set(todos)
	return nil
}

// Subscribe streams the full list, newest first: the current list at once,
// then a new list after every write. The channel closes with ctx or Close.
func (s *Store) Subscribe(ctx context.Context) (<-chan []todo.Todo, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	return s.snapshot.Subscribe(ctx), nil
}

// SubscribeSearch is Subscribe restricted to titles containing query.
func (s *Store) SubscribeSearch(ctx context.Context, query string) (<-chan []todo.Todo, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	changes := s.snapshot.Subscribe(ctx)
	first, err := s.Search(ctx, query)
	if err != nil {
		cancel()
		return nil, err
	}

	out := make(chan []todo.Todo, 1)
	out <- first
	go func() {
		defer cancel()
		defer close(out)
		for range changes {
			todos, err := s.Search(ctx, query)
			if err != nil {
				if ctx.Err() == nil {
					slog.Warn("search refresh failed", "query", query, "error", err)
				}
				continue
			}
			select {
			case out <- todos:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}
	return nil
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func sqliteDSN(path string) string {
	if strings.HasPrefix(path, "file:") {
		return path
	}
	abs, err := filepath.Abs(path)
	if err == nil {
		path = abs
	}
	u := url.URL{
		Scheme: "file",
		Path:   path,
	}
	q := u.Query()
	q.Set("mode", "rwc")
	q.Set("_pragma", "busy_timeout(5000)")
	u.RawQuery = q.Encode()
	return u.String()
}
