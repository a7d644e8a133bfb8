// Package repository stores typed whole-collection snapshots in a key-value
// namespace. Every read loads the full collection; every write replaces it.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/thunderdz19/sero-est/internal/store"
)

// Collection is a JSON array of T stored under one key.
type Collection[T any] struct {
	kv   store.KV
	key  string
	seed func() []T
}

// NewCollection binds a collection to key. seed, when non-nil, supplies the
// initial contents written by EnsureSeeded and returned by All while the key
// is absent.
func NewCollection[T any](kv store.KV, key string, seed func() []T) *Collection[T] {
	return &Collection[T]{kv: kv, key: key, seed: seed}
}

// Key returns the storage key.
func (c *Collection[T]) Key() string { return c.key }

// All returns every element in stored order.
func (c *Collection[T]) All(ctx context.Context) ([]T, error) {
	raw, err := c.kv.Get(ctx, c.key)
	if errors.Is(err, store.ErrNotFound) {
		return c.initial(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.key, err)
	}
	var items []T
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode %s: %w", c.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// Save replaces the whole collection.
func (c *Collection[T]) Save(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.kv.Put(ctx, c.key, raw); err != nil {
		return fmt.Errorf("save %s: %w", c.key, err)
	}
	return nil
}

// Append adds one element at the end.
func (c *Collection[T]) Append(ctx context.Context, item T) error {
	items, err := c.All(ctx)
	if err != nil {
		return err
	}
	return c.Save(ctx, append(items, item))
}

// EnsureSeeded writes the seed when the key is absent and reports whether it did.
func (c *Collection[T]) EnsureSeeded(ctx context.Context) (bool, error) {
	_, err := c.kv.Get(ctx, c.key)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return false, fmt.Errorf("probe %s: %w", c.key, err)
	}
	if err := c.Save(ctx, c.initial()); err != nil {
		return false, err
	}
	return true, nil
}

func (c *Collection[T]) initial() []T {
	if c.seed == nil {
		return []T{}
	}
	return c.seed()
}
