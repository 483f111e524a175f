package cache

import (
	"math"

	"lrusim/internal/apperr"
)

// MaxCapacity is the largest capacity the int32 slot handles can address.
// One extra slot is needed while a put overshoots capacity before eviction.
const MaxCapacity = math.MaxInt32 - 1

// preallocLimit bounds the arena allocated up front; larger caches grow on demand.
const preallocLimit = 4096

// ErrInvalidConfiguration is returned by New when capacity is not a positive
// integer addressable by the arena.
var ErrInvalidConfiguration = apperr.New(apperr.CodeInvalidConfiguration, "capacity must be a positive integer")

// Entry is one cached key-value pair as observed by callers.
type Entry[K comparable, V any] struct {
	Key   K `json:"key"`
	Value V `json:"value"`
}

// Option configures a Cache at construction.
type Option[K comparable, V any] func(*Cache[K, V])

// WithEvictCallback registers fn to run after an entry is evicted for
// capacity. fn runs inside Put and must not call back into the cache.
func WithEvictCallback[K comparable, V any](fn func(key K, value V)) Option[K, V] {
	return func(c *Cache[K, V]) {
		c.onEvict = fn
	}
}

// Cache is a fixed-capacity LRU cache.
//
// The index maps a key to its arena slot; the recency order links those
// slots from most- to least-recently used. Every indexed key owns exactly one
// linked slot and every linked slot is indexed.
//
// Cache is not safe for concurrent use. Wrap it with NewLocked when shared.
type Cache[K comparable, V any] struct {
	capacity int
	index    map[K]int32
	order    recency[K, V]
	onEvict  func(K, V)
}

// New constructs an empty cache holding at most capacity entries.
func New[K comparable, V any](capacity int, opts ...Option[K, V]) (*Cache[K, V], error) {
	if capacity < 1 || capacity > MaxCapacity {
		return nil, ErrInvalidConfiguration.WithDetails("got %d", capacity)
	}

	hint := min(capacity, preallocLimit)
	c := &Cache[K, V]{
		capacity: capacity,
		index:    make(map[K]int32, hint),
		order:    newRecency[K, V](hint + 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Get returns the value stored for key and marks it most recently used.
// A miss returns the zero value and false and changes nothing.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	i, ok := c.index[key]
	if !ok {
		var zero V
		return zero, false
	}
	c.order.moveToFront(i)
	return c.order.slots[i].value, true
}

// Put stores value under key as the most recently used entry.
//
// Updating an existing key replaces its value in place. Inserting a new key
// into a full cache evicts the least recently used entry; at most one entry
// is evicted per call.
func (c *Cache[K, V]) Put(key K, value V) {
	if i, ok := c.index[key]; ok {
		c.order.slots[i].value = value
		c.order.moveToFront(i)
		return
	}

	i := c.order.alloc(key, value)
	c.index[key] = i
	c.order.pushFront(i)

	if len(c.index) > c.capacity {
		c.evict()
	}
}

// Delete removes key if present and reports whether it was.
func (c *Cache[K, V]) Delete(key K) bool {
	i, ok := c.index[key]
	if !ok {
		return false
	}
	c.order.unlink(i)
	delete(c.index, key)
	c.order.release(i)
	return true
}

// Clear drops every entry. Capacity is unchanged.
func (c *Cache[K, V]) Clear() {
	clear(c.index)
	c.order.reset()
}

// Snapshot returns all entries from most- to least-recently used without
// touching recency.
func (c *Cache[K, V]) Snapshot() []Entry[K, V] {
	out := make([]Entry[K, V], 0, c.order.n)
	for i := c.order.head; i != none; i = c.order.slots[i].next {
		s := &c.order.slots[i]
		out = append(out, Entry[K, V]{Key: s.key, Value: s.value})
	}
	return out
}

// Keys returns keys in MRU -> LRU order.
func (c *Cache[K, V]) Keys() []K {
	out := make([]K, 0, c.order.n)
	for i := c.order.head; i != none; i = c.order.slots[i].next {
		out = append(out, c.order.slots[i].key)
	}
	return out
}

// Len returns the number of stored entries.
func (c *Cache[K, V]) Len() int {
	return len(c.index)
}

// Cap returns the fixed capacity.
func (c *Cache[K, V]) Cap() int {
	return c.capacity
}

// evict removes the tail of the recency order from both structures.
func (c *Cache[K, V]) evict() {
	i := c.order.tail
	if i == none {
		return
	}
	key, value := c.order.slots[i].key, c.order.slots[i].value
	c.order.unlink(i)
	delete(c.index, key)
	c.order.release(i)

	if c.onEvict != nil {
		c.onEvict(key, value)
	}
}
