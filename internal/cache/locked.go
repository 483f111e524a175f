package cache

import "sync"

// Locked guards a Cache with one exclusive lock held for the whole of each
// operation. Get reorders entries, so reads take the write lock too.
type Locked[K comparable, V any] struct {
	mu sync.Mutex
	c  *Cache[K, V]
}

// NewLocked builds a cache like New and wraps it.
func NewLocked[K comparable, V any](capacity int, opts ...Option[K, V]) (*Locked[K, V], error) {
	c, err := New(capacity, opts...)
	if err != nil {
		return nil, err
	}
	return &Locked[K, V]{c: c}, nil
}

// Get is Cache.Get under the lock.
func (l *Locked[K, V]) Get(key K) (V, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Get(key)
}

// Put is Cache.Put under the lock. An eviction callback runs with the lock
// held and must not call back into l.
func (l *Locked[K, V]) Put(key K, value V) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.Put(key, value)
}

// Delete removes key and reports whether it was present.
func (l *Locked[K, V]) Delete(key K) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Delete(key)
}

// Clear drops every entry.
func (l *Locked[K, V]) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.c.Clear()
}

// Snapshot returns a copy of the entries, most recently used first.
func (l *Locked[K, V]) Snapshot() []Entry[K, V] {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Snapshot()
}

// Keys returns the keys, most recently used first.
func (l *Locked[K, V]) Keys() []K {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Keys()
}

// Len returns the number of entries.
func (l *Locked[K, V]) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.c.Len()
}

// Do runs fn with the lock held so several operations observe one state.
// fn must not retain c.
func (l *Locked[K, V]) Do(fn func(c *Cache[K, V])) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.c)
}

// Cap needs no lock; capacity never changes.
func (l *Locked[K, V]) Cap() int {
	return l.c.Cap()
}
