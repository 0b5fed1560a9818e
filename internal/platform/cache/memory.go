package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

type memoryEntry[V any] struct {
	value   V
	expires time.Time
}

// Memory is an in-process cache bounded by capacity. When full, expired
// entries are dropped first, then the entry closest to expiry. Without
// WithClone, values holding slices or maps share them with every reader.
type Memory[V any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]memoryEntry[V]
	now      func() time.Time
	clone    func(V) V
}

type MemoryOption[V any] func(*Memory[V])

// WithClock overrides time.Now, for tests.
func WithClock[V any](now func() time.Time) MemoryOption[V] {
	return func(m *Memory[V]) {
		if now != nil {
			m.now = now
		}
	}
}

// WithClone copies values on the way in and out so callers never share
// memory with the cached entry.
func WithClone[V any](clone func(V) V) MemoryOption[V] {
	return func(m *Memory[V]) { m.clone = clone }
}

func NewMemory[V any](capacity int, opts ...MemoryOption[V]) *Memory[V] {
	if capacity <= 0 {
		capacity = 1
	}
	m := &Memory[V]{
		capacity: capacity,
		entries:  make(map[string]memoryEntry[V], capacity),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Memory[V]) Get(_ context.Context, key string) (V, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		var zero V
		return zero, false, nil
	}
	if !m.now().Before(entry.expires) {
		delete(m.entries, key)
		var zero V
		return zero, false, nil
	}
	return m.copyValue(entry.value), true, nil
}

func (m *Memory[V]) Set(_ context.Context, key string, value V, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.capacity {
		m.evictLocked(now)
	}
	m.entries[key] = memoryEntry[V]{value: m.copyValue(value), expires: now.Add(ttl)}
	return nil
}

func (m *Memory[V]) copyValue(v V) V {
	if m.clone == nil {
		return v
	}
	return m.clone(v)
}

func (m *Memory[V]) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.entries, key)
	}
	return nil
}

func (m *Memory[V]) DeletePrefix(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.entries {
		if strings.HasPrefix(key, prefix) {
			delete(m.entries, key)
		}
	}
	return nil
}

// Len reports the number of stored entries, including expired ones not yet collected.
func (m *Memory[V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *Memory[V]) evictLocked(now time.Time) {
	victim := ""
	var victimExpiry time.Time
	for key, entry := range m.entries {
		if !now.Before(entry.expires) {
			delete(m.entries, key)
			continue
		}
		if victim == "" || entry.expires.Before(victimExpiry) {
			victim = key
			victimExpiry = entry.expires
		}
	}
	if len(m.entries) < m.capacity {
		return
	}
	if victim != "" {
		delete(m.entries, victim)
	}
}
