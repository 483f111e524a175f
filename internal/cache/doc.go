// Package cache implements a fixed-capacity, in-memory LRU cache.
//
// Goals for this package:
//   - Make the core data structures explicit (map index + doubly linked recency order)
//   - Provide O(1) Get/Put and O(1) eviction of the least-recently-used entry
//   - Keep entries in an arena addressed by int32 handles instead of pointer-linked nodes
//   - Leave locking to the caller; Locked offers one mutex per cache when sharing is needed
package cache
