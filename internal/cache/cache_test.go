package cache

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lrusim/internal/apperr"
)

// checkInvariants walks the recency order and cross-checks it with the index.
func checkInvariants[K comparable, V any](t *testing.T, c *Cache[K, V]) {
	t.Helper()

	seen := make(map[K]bool, len(c.index))
	prev := none
	count := 0
	for i := c.order.head; i != none; i = c.order.slots[i].next {
		s := c.order.slots[i]
		require.Equal(t, prev, s.prev, "broken prev link at slot %d", i)
		require.False(t, seen[s.key], "duplicate key %v in order", s.key)
		seen[s.key] = true

		idx, ok := c.index[s.key]
		require.True(t, ok, "key %v linked but not indexed", s.key)
		require.Equal(t, i, idx, "index points elsewhere for key %v", s.key)

		prev = i
		count++
		require.LessOrEqual(t, count, len(c.order.slots), "cycle in recency order")
	}
	require.Equal(t, prev, c.order.tail, "tail mismatch")
	require.Equal(t, len(c.index), count)
	require.Equal(t, c.order.n, count)
	require.LessOrEqual(t, count, c.capacity)
}

func mustNew[K comparable, V any](t *testing.T, capacity int, opts ...Option[K, V]) *Cache[K, V] {
	t.Helper()
	c, err := New[K, V](capacity, opts...)
	require.NoError(t, err)
	return c
}

func TestNew(t *testing.T) {
	t.Run("empty with capacity", func(t *testing.T) {
		c := mustNew[int, string](t, 10)
		assert.Equal(t, 10, c.Cap())
		assert.Equal(t, 0, c.Len())
		assert.Empty(t, c.Snapshot())
	})

	for _, capacity := range []int{0, -1, -10, MaxCapacity + 1} {
		t.Run(fmt.Sprintf("rejects capacity %d", capacity), func(t *testing.T) {
			c, err := New[int, string](capacity)
			require.Error(t, err)
			assert.Nil(t, c)
			assert.ErrorIs(t, err, ErrInvalidConfiguration)
			assert.True(t, apperr.IsInvalidConfiguration(err))
		})
	}
}

func TestScenarioCapacityTwo(t *testing.T) {
	c := mustNew[int, string](t, 2)

	c.Put(1, "A")
	c.Put(2, "B")
	assert.Equal(t, []Entry[int, string]{{2, "B"}, {1, "A"}}, c.Snapshot())

	v, ok := c.Get(1)
	require.True(t, ok)
	assert.Equal(t, "A", v)
	assert.Equal(t, []Entry[int, string]{{1, "A"}, {2, "B"}}, c.Snapshot())

	// 2 is now least recently used.
	c.Put(3, "C")
	assert.Equal(t, []Entry[int, string]{{3, "C"}, {1, "A"}}, c.Snapshot())

	before := c.Snapshot()
	v, ok = c.Get(2)
	assert.False(t, ok)
	assert.Empty(t, v)
	assert.Equal(t, before, c.Snapshot())
	checkInvariants(t, c)
}

func TestScenarioCapacityOne(t *testing.T) {
	c := mustNew[int, string](t, 1)

	c.Put(1, "X")
	c.Put(2, "Y")

	assert.Equal(t, []Entry[int, string]{{2, "Y"}}, c.Snapshot())
	_, ok := c.Get(1)
	assert.False(t, ok)
	checkInvariants(t, c)
}

func TestPut_UpdateKeepsSingleEntry(t *testing.T) {
	c := mustNew[string, int](t, 3)

	c.Put("k", 1)
	c.Put("other", 2)
	c.Put("k", 2)

	assert.Equal(t, []Entry[string, int]{{"k", 2}, {"other", 2}}, c.Snapshot())
	assert.Equal(t, 2, c.Len())
	checkInvariants(t, c)
}

func TestPut_UpdateDoesNotEvict(t *testing.T) {
	var evicted []string
	c := mustNew(t, 2, WithEvictCallback(func(k string, _ int) {
		evicted = append(evicted, k)
	}))

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("a", 3)
	c.Put("b", 4)

	assert.Empty(t, evicted)
	assert.Equal(t, []string{"b", "a"}, c.Keys())
}

func TestPut_EvictsLeastRecentlyUsed(t *testing.T) {
	var evicted []Entry[string, int]
	c := mustNew(t, 3, WithEvictCallback(func(k string, v int) {
		evicted = append(evicted, Entry[string, int]{k, v})
	}))

	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)
	c.Get("a")
	c.Put("b", 20)

	// c is back-most: a was got, b was re-put.
	c.Put("d", 4)
	assert.Equal(t, []Entry[string, int]{{"c", 3}}, evicted)
	assert.Equal(t, []string{"d", "b", "a"}, c.Keys())

	c.Put("e", 5)
	assert.Equal(t, []Entry[string, int]{{"c", 3}, {"a", 1}}, evicted)
	checkInvariants(t, c)
}

func TestGet_RepeatedHitIsIdempotent(t *testing.T) {
	c := mustNew[int, string](t, 3)
	c.Put(1, "one")
	c.Put(2, "two")
	c.Put(3, "three")

	first, ok := c.Get(2)
	require.True(t, ok)
	afterFirst := c.Snapshot()

	second, ok := c.Get(2)
	require.True(t, ok)

	assert.Equal(t, first, second)
	assert.Equal(t, afterFirst, c.Snapshot())
}

func TestGet_ZeroValueIsNotAbsence(t *testing.T) {
	c := mustNew[string, int](t, 2)
	c.Put("minus-one", -1)
	c.Put("zero", 0)

	v, ok := c.Get("minus-one")
	assert.True(t, ok)
	assert.Equal(t, -1, v)

	v, ok = c.Get("zero")
	assert.True(t, ok)
	assert.Equal(t, 0, v)
}

func TestDelete(t *testing.T) {
	c := mustNew[string, int](t, 3)
	c.Put("a", 1)
	c.Put("b", 2)
	c.Put("c", 3)

	assert.True(t, c.Delete("b"))
	assert.False(t, c.Delete("b"))
	assert.Equal(t, []string{"c", "a"}, c.Keys())
	checkInvariants(t, c)

	// Freed slot is reused, arena does not grow.
	slots := len(c.order.slots)
	c.Put("d", 4)
	assert.Equal(t, slots, len(c.order.slots))
	assert.Equal(t, []string{"d", "c", "a"}, c.Keys())
	checkInvariants(t, c)
}

func TestClear(t *testing.T) {
	c := mustNew[string, int](t, 2)
	c.Put("a", 1)
	c.Put("b", 2)

	c.Clear()

	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Snapshot())
	assert.Equal(t, 2, c.Cap())

	c.Put("c", 3)
	assert.Equal(t, []string{"c"}, c.Keys())
	checkInvariants(t, c)
}

func TestArenaStaysBounded(t *testing.T) {
	c := mustNew[int, int](t, 4)
	for i := range 1000 {
		c.Put(i, i)
	}
	assert.LessOrEqual(t, len(c.order.slots), 5)
	assert.Equal(t, []int{999, 998, 997, 996}, c.Keys())
	checkInvariants(t, c)
}

// TestMatchesReferenceLRU replays random traffic against hashicorp's LRU and
// compares recency order after every step.
func TestMatchesReferenceLRU(t *testing.T) {
	for _, capacity := range []int{1, 2, 3, 7, 16} {
		t.Run(fmt.Sprintf("capacity %d", capacity), func(t *testing.T) {
			rng := rand.New(rand.NewSource(int64(capacity)))

			c := mustNew[int, int](t, capacity)
			ref, err := lru.New[int, int](capacity)
			require.NoError(t, err)

			for step := range 2000 {
				key := rng.Intn(capacity * 3)
				switch rng.Intn(3) {
				case 0:
					got, gotOK := c.Get(key)
					want, wantOK := ref.Get(key)
					require.Equal(t, wantOK, gotOK, "step %d get %d", step, key)
					require.Equal(t, want, got, "step %d get %d", step, key)
				default:
					c.Put(key, step)
					ref.Add(key, step)
				}

				// Reference lists oldest first.
				want := ref.Keys()
				slices.Reverse(want)
				require.Equal(t, want, c.Keys(), "step %d", step)
				require.LessOrEqual(t, c.Len(), capacity)
			}
			checkInvariants(t, c)
		})
	}
}

// TestPutFrontAndBound covers the capacity bound and that the last touched
// key is always at the front.
func TestPutFrontAndBound(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := mustNew[int, int](t, 5)

	for step := range 500 {
		key := rng.Intn(12)
		if rng.Intn(2) == 0 {
			c.Put(key, step)
		} else if _, ok := c.Get(key); !ok {
			continue
		}
		keys := c.Keys()
		require.NotEmpty(t, keys)
		require.Equal(t, key, keys[0], "step %d", step)
		require.LessOrEqual(t, c.Len(), c.Cap())
	}
}
