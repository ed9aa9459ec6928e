package storage

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tododay/internal/todo"
)

func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "todo.db")
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func next(t *testing.T, ch <-chan []todo.Todo) []todo.Todo {
	t.Helper()
	select {
	case todos, ok := <-ch:
		require.True(t, ok, "subscription closed")
		return todos
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
	}
	return nil
}

func titles(todos []todo.Todo) []string {
	out := make([]string, 0, len(todos))
	for _, t := range todos {
		out = append(out, t.Title)
	}
	return out
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}

func TestOpen_CreatesParentDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "todo.db")
	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()
	assert.FileExists(t, path)
}

func TestStore_InsertListOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	_, err := s.Insert(ctx, todo.Todo{Title: "old", CreatedAt: 1000})
	require.NoError(t, err)
	_, err = s.Insert(ctx, todo.Todo{Title: "new", CreatedAt: 3000})
	require.NoError(t, err)
	_, err = s.Insert(ctx, todo.Todo{Title: "tie-first", CreatedAt: 2000})
	require.NoError(t, err)
	_, err = s.Insert(ctx, todo.Todo{Title: "tie-second", CreatedAt: 2000})
	require.NoError(t, err)

	todos, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new", "tie-first", "tie-second", "old"}, titles(todos))
}

func TestStore_IDsAreNotReused(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first, err := s.Insert(ctx, todo.Todo{Title: "a", CreatedAt: 1})
	require.NoError(t, err)
	require.NoError(t, s.Delete(ctx, first))

	second, err := s.Insert(ctx, todo.Todo{Title: "b", CreatedAt: 2})
	require.NoError(t, err)
	assert.Greater(t, second, first)
}

func TestStore_UpdateReplacesFields(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, todo.Todo{Title: "draft", CreatedAt: 42})
	require.NoError(t, err)

	require.NoError(t, s.Update(ctx, todo.Todo{ID: id, Title: "final", CreatedAt: 99, Done: true}))

	todos, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, todo.Todo{ID: id, Title: "final", CreatedAt: 42, Done: true}, todos[0])
}

func TestStore_MissingRow(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Update(ctx, todo.Todo{ID: 7, Title: "x"}), ErrNotFound)
	assert.ErrorIs(t, s.Delete(ctx, 7), ErrNotFound)
}

func TestStore_SubscribeEmitsAfterEveryWrite(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Subscribe(ctx)
	require.NoError(t, err)
	assert.Empty(t, next(t, ch))

	id, err := s.Insert(ctx, todo.Todo{Title: "Buy milk", CreatedAt: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{"Buy milk"}, titles(next(t, ch)))

	require.NoError(t, s.Update(ctx, todo.Todo{ID: id, Title: "Buy milk", Done: true}))
	updated := next(t, ch)
	require.Len(t, updated, 1)
	assert.True(t, updated[0].Done)

	require.NoError(t, s.Delete(ctx, id))
	assert.Empty(t, next(t, ch))
}

func TestStore_SnapshotBufferedBeforeWriteReturns(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ch, err := s.Subscribe(ctx)
	require.NoError(t, err)
	<-ch

	_, err = s.Insert(ctx, todo.Todo{Title: "now", CreatedAt: 1})
	require.NoError(t, err)

	select {
	case todos := <-ch:
		assert.Equal(t, []string{"now"}, titles(todos))
	default:
		t.Fatal("snapshot was not buffered when Insert returned")
	}
}

func TestStore_FailedWriteDoesNotEmit(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	ch, err := s.Subscribe(ctx)
	require.NoError(t, err)
	<-ch

	require.Error(t, s.Delete(ctx, 123))

	select {
	case todos := <-ch:
		t.Fatalf("unexpected snapshot %v", todos)
	default:
	}
}

func TestStore_SubscribeSearch(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := s.Insert(ctx, todo.Todo{Title: "Buy milk", CreatedAt: 1})
	require.NoError(t, err)
	_, err = s.Insert(ctx, todo.Todo{Title: "100% juice", CreatedAt: 2})
	require.NoError(t, err)

	ch, err := s.SubscribeSearch(ctx, "MILK")
	require.NoError(t, err)
	assert.Equal(t, []string{"Buy milk"}, titles(next(t, ch)))

	_, err = s.Insert(ctx, todo.Todo{Title: "Milkshake", CreatedAt: 3})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		select {
		case todos := <-ch:
			return len(todos) == 2 && todos[0].Title == "Milkshake"
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)

	pct, err := s.Search(ctx, "%")
	require.NoError(t, err)
	assert.Equal(t, []string{"100% juice"}, titles(pct))
}

func TestStore_CloseEndsSubscriptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "todo.db")
	s, err := Open(path)
	require.NoError(t, err)

	ch, err := s.Subscribe(context.Background())
	require.NoError(t, err)
	<-ch

	require.NoError(t, s.Close())
	_, ok := <-ch
	assert.False(t, ok)

	_, err = s.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.Insert(context.Background(), todo.Todo{Title: "late"})
	assert.ErrorIs(t, err, ErrClosed)
	assert.NoError(t, s.Close())
}

func TestStore_MigratesLegacyTable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "legacy.db")
	db, err := sql.Open("sqlite", sqliteDSN(path))
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE todos (id INTEGER PRIMARY KEY AUTOINCREMENT, title TEXT NOT NULL, created_at INTEGER NOT NULL);`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO todos (title, created_at) VALUES ('kept', 5);`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	todos, err := s.List(context.Background())
	require.NoError(t, err)
	require.Len(t, todos, 1)
	assert.Equal(t, "kept", todos[0].Title)
	assert.False(t, todos[0].Done)
}
