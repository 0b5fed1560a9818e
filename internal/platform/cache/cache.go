// Package cache provides small key-value caches with per-entry expiry used to
// memoize computed rankings between recomputations.
package cache

import (
	"context"
	"time"
)

// Store is implemented by every backend in this package.
type Store[V any] interface {
	Get(ctx context.Context, key string) (V, bool, error)
	Set(ctx context.Context, key string, value V, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// Noop never stores anything. Useful for tests and for disabling memoization.
type Noop[V any] struct{}

func (Noop[V]) Get(context.Context, string) (V, bool, error) {
	var zero V
	return zero, false, nil
}

func (Noop[V]) Set(context.Context, string, V, time.Duration) error { return nil }

func (Noop[V]) Delete(context.Context, ...string) error { return nil }

func (Noop[V]) DeletePrefix(context.Context, string) error { return nil }
