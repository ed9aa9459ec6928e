// Package repository adapts the record store to the vocabulary the
// controller speaks. It adds no behaviour of its own.
package repository

import (
	"context"

	"tododay/internal/todo"
)

// Source is the record store. storage.Store implements it.
type Source interface {
	Subscribe(ctx context.Context) (<-chan []todo.Todo, error)
	SubscribeSearch(ctx context.Context, query string) (<-chan []todo.Todo, error)
	Insert(ctx context.Context, t todo.Todo) (int64, error)
	Update(ctx context.Context, t todo.Todo) error
	Delete(ctx context.Context, id int64) error
}

type Repository interface {
	// ObserveAll streams the full list, newest first, re-emitting after
	// every change.
	ObserveAll(ctx context.Context) (<-chan []todo.Todo, error)
	// Search streams the todos whose title contains query.
	Search(ctx context.Context, query string) (<-chan []todo.Todo, error)
	Add(ctx context.Context, t todo.Todo) error
	Update(ctx context.Context, t todo.Todo) error
	Delete(ctx context.Context, t todo.Todo) error
}

type Repo struct {
	src Source
}

func New(src Source) *Repo {
	return &Repo{src: src}
}

func (r *Repo) ObserveAll(ctx context.Context) (<-chan []todo.Todo, error) {
	return r.src.Subscribe(ctx)
}

func (r *Repo) Search(ctx context.Context, query string) (<-chan []todo.Todo, error) {
	return r.src.SubscribeSearch(ctx, query)
}

func (r *Repo) Add(ctx context.Context, t todo.Todo) error {
	_, err := r.src.Insert(ctx, t)
	return err
}

func (r *Repo) Update(ctx context.Context, t todo.Todo) error {
	return r.src.Update(ctx, t)
}

func (r *Repo) Delete(ctx context.Context, t todo.Todo) error {
	return r.src.Delete(ctx, t.ID)
}
