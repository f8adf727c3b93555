package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
)

// Decode unmarshals a state's data. A state carrying an error yields that
// error even when older data is still cached.
func Decode[T any](s State) (T, error) {
	var v T
	if s.Err != nil {
		return v, s.Err
	}
	if !s.Loaded() {
		return v, ErrNotLoaded
	}
	if err := json.Unmarshal(s.Data, &v); err != nil {
		return v, fmt.Errorf("decode %s: %w", s.Key, err)
	}
	return v, nil
}

// Resource is a typed view of one cache key.
type Resource[T any] struct {
	cache *Cache
	key   string
}

// NewResource binds a typed view to key.
func NewResource[T any](c *Cache, key string) Resource[T] {
	return Resource[T]{cache: c, key: key}
}

// Key returns the resource key.
func (r Resource[T]) Key() string {
	return r.key
}

// Get returns the cached value, loading it when needed.
func (r Resource[T]) Get(ctx context.Context) (T, error) {
	return Decode[T](r.cache.Get(ctx, r.key))
}

// State returns the raw cached state, loading it when needed.
func (r Resource[T]) State(ctx context.Context) State {
	return r.cache.Get(ctx, r.key)
}

// Revalidate reloads the value from the backend.
func (r Resource[T]) Revalidate(ctx context.Context) (T, error) {
	return Decode[T](r.cache.Revalidate(ctx, r.key))
}

// Invalidate marks the resource stale.
func (r Resource[T]) Invalidate() {
	r.cache.Invalidate(r.key)
}
