package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tododay/internal/storage"
	"tododay/internal/todo"
)

var _ Repository = (*Repo)(nil)

func TestRepo_PassesThroughToStore(t *testing.T) {
	st, err := storage.Open(filepath.Join(t.TempDir(), "todo.db"))
	require.NoError(t, err)
	defer st.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	repo := New(st)

	all, err := repo.ObserveAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, <-all)

	require.NoError(t, repo.Add(ctx, todo.Todo{Title: "Call mom", CreatedAt: 1}))
	var added []todo.Todo
	select {
	case added = <-all:
	case <-time.After(2 * time.Second):
		t.Fatal("no snapshot after Add")
	}
	require.Len(t, added, 1)

	found, err := repo.Search(ctx, "mom")
	require.NoError(t, err)
	assert.Len(t, <-found, 1)

	item := added[0]
	item.Done = true
	require.NoError(t, repo.Update(ctx, item))
	require.NoError(t, repo.Delete(ctx, item))
	assert.ErrorIs(t, repo.Delete(ctx, item), storage.ErrNotFound)
}
