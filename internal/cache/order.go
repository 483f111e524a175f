package cache

// none marks the absence of a neighbour or an empty list end.
const none int32 = -1

// slot is one arena cell. A live slot is linked into the recency order; a
// released slot sits on the free list with its key and value zeroed.
type slot[K comparable, V any] struct {
	key   K
	value V
	prev  int32
	next  int32
}

// recency is an intrusive doubly linked list over arena slots.
// head = most recently used, tail = least recently used.
type recency[K comparable, V any] struct {
	slots []slot[K, V]
	free  []int32
	head  int32
	tail  int32
	n     int
}

func newRecency[K comparable, V any](hint int) recency[K, V] {
	return recency[K, V]{
		slots: make([]slot[K, V], 0, hint),
		head:  none,
		tail:  none,
	}
}

// alloc returns an unlinked slot holding key and value, reusing released
// slots before growing the arena.
func (r *recency[K, V]) alloc(key K, value V) int32 {
	if n := len(r.free); n > 0 {
		i := r.free[n-1]
		r.free = r.free[:n-1]
		r.slots[i] = slot[K, V]{key: key, value: value, prev: none, next: none}
		return i
	}
	r.slots = append(r.slots, slot[K, V]{key: key, value: value, prev: none, next: none})
	return int32(len(r.slots) - 1)
}

// release zeroes an unlinked slot so the arena does not pin old values.
func (r *recency[K, V]) release(i int32) {
	r.slots[i] = slot[K, V]{prev: none, next: none}
	r.free = append(r.free, i)
}

func (r *recency[K, V]) pushFront(i int32) {
	s := &r.slots[i]
	s.prev = none
	s.next = r.head
	if r.head != none {
		r.slots[r.head].prev = i
	} else {
		r.tail = i
	}
	r.head = i
	r.n++
}

func (r *recency[K, V]) unlink(i int32) {
	s := &r.slots[i]
	if s.prev != none {
		r.slots[s.prev].next = s.next
	} else {
		r.head = s.next
	}
	if s.next != none {
		r.slots[s.next].prev = s.prev
	} else {
		r.tail = s.prev
	}
	s.prev, s.next = none, none
	r.n--
}

func (r *recency[K, V]) moveToFront(i int32) {
	if r.head == i {
		return
	}
	r.unlink(i)
	r.pushFront(i)
}

func (r *recency[K, V]) reset() {
	clear(r.slots)
	r.slots = r.slots[:0]
	r.free = r.free[:0]
	r.head, r.tail = none, none
	r.n = 0
}
