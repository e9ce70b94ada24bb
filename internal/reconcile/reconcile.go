// Package reconcile applies fetched records to the local store and
// classifies each as new or already known.
//
// Classification comes from the existence check made before the write,
// never from the write result.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
)

// Store is the slice of the local store a reconciler needs for one entity.
type Store[T any] interface {
	Exists(ctx context.Context, id string) (bool, error)
	Upsert(ctx context.Context, item T) error
}

// StoreFuncs adapts a pair of functions to Store.
type StoreFuncs[T any] struct {
	ExistsFunc func(ctx context.Context, id string) (bool, error)
	UpsertFunc func(ctx context.Context, item T) error
}

func (s StoreFuncs[T]) Exists(ctx context.Context, id string) (bool, error) {
	return s.ExistsFunc(ctx, id)
}

func (s StoreFuncs[T]) Upsert(ctx context.Context, item T) error {
	return s.UpsertFunc(ctx, item)
}

// Item is a record with its resolved identity. Label names the record in
// logs and user-facing events.
type Item[T any] struct {
	ID    string
	Label string
	Value T
}

// Result lists the items a pass wrote, split by prior existence.
type Result[T any] struct {
	New      []Item[T]
	Existing []Item[T]
}

// Applied is the number of items written.
func (r Result[T]) Applied() int {
	return len(r.New) + len(r.Existing)
}

// Reconcile checks each item's prior existence, then upserts it whether or
// not it existed. A store error stops the pass; items already written stay
// written and are returned with the error.
func Reconcile[T any](ctx context.Context, store Store[T], items []Item[T]) (Result[T], error) {
	var res Result[T]
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		existed, err := store.Exists(ctx, it.ID)
		if err != nil {
			return res, fmt.Errorf("reconcile %s: %w", it.Label, err)
		}
		if err := store.Upsert(ctx, it.Value); err != nil {
			return res, fmt.Errorf("reconcile %s: %w", it.Label, err)
		}
		if existed {
			res.Existing = append(res.Existing, it)
		} else {
			res.New = append(res.New, it)
			slog.Debug("reconcile new", "id", it.ID, "label", it.Label)
		}
	}
	return res, nil
}

// Inserter writes an item only when absent.
type Inserter[T any] interface {
	Exists(ctx context.Context, id string) (bool, error)
	Insert(ctx context.Context, item T) error
}

// InsertMissing is the append-only variant: items that already exist are
// left untouched and reported as Existing.
func InsertMissing[T any](ctx context.Context, store Inserter[T], items []Item[T]) (Result[T], error) {
	var res Result[T]
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		existed, err := store.Exists(ctx, it.ID)
		if err != nil {
			return res, fmt.Errorf("insert %s: %w", it.Label, err)
		}
		if existed {
			res.Existing = append(res.Existing, it)
			continue
		}
		if err := store.Insert(ctx, it.Value); err != nil {
			return res, fmt.Errorf("insert %s: %w", it.Label, err)
		}
		res.New = append(res.New, it)
	}
	return res, nil
}

// Dedupe keeps the first item for each ID.
func Dedupe[T any](items []Item[T]) []Item[T] {
	seen := make(map[string]struct{}, len(items))
	out := items[:0]
	for _, it := range items {
		if _, ok := seen[it.ID]; ok {
			continue
		}
		seen[it.ID] = struct{}{}
		out = append(out, it)
	}
	return out
}
