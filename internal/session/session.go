package session

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"lrusim/internal/cache"
)

// EmptyDisplay is rendered when a session's cache holds nothing.
const EmptyDisplay = "Cache is empty."

// View is the state a host renders after an operation.
type View struct {
	Entries []cache.Entry[string, string] `json:"entries"`
	Display string                        `json:"display"`
}

// Render joins entries MRU -> LRU as "k1:v1 → k2:v2".
func Render(entries []cache.Entry[string, string]) string {
	if len(entries) == 0 {
		return EmptyDisplay
	}
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = e.Key + ":" + e.Value
	}
	return strings.Join(parts, " → ")
}

func newView(entries []cache.Entry[string, string]) View {
	return View{Entries: entries, Display: Render(entries)}
}

// Session owns one cache for one host session.
type Session struct {
	ID        uuid.UUID
	CreatedAt time.Time

	cache    *cache.Locked[string, string]
	lastUsed atomic.Int64 // unix nanos
	now      func() time.Time

	subMu  sync.Mutex
	subs   map[chan View]struct{}
	closed bool
}

// Capacity returns the fixed capacity of the session's cache.
func (s *Session) Capacity() int {
	return s.cache.Cap()
}

// Put stores key/value and returns the resulting view.
func (s *Session) Put(key, value string) View {
	var v View
	s.cache.Do(func(c *cache.Cache[string, string]) {
		c.Put(key, value)
		v = newView(c.Snapshot())
		// Publishing under the cache lock keeps views in operation order.
		s.publish(v)
	})
	s.touch()
	return v
}

// Get looks key up. A hit refreshes its recency, so subscribers are notified
// either way with the current view.
func (s *Session) Get(key string) (string, bool, View) {
	var (
		value string
		found bool
		v     View
	)
	s.cache.Do(func(c *cache.Cache[string, string]) {
		value, found = c.Get(key)
		v = newView(c.Snapshot())
		s.publish(v)
	})
	s.touch()
	return value, found, v
}

// Snapshot returns the current view without changing recency.
func (s *Session) Snapshot() View {
	s.touch()
	return newView(s.cache.Snapshot())
}

// Subscribe returns a channel that receives the latest view after every
// operation, and a func to stop receiving. A slow reader only ever misses
// intermediate views, never the latest one.
func (s *Session) Subscribe() (<-chan View, func()) {
	ch := make(chan View, 1)

	s.subMu.Lock()
	if s.closed {
		s.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			defer s.subMu.Unlock()
			if _, ok := s.subs[ch]; ok {
				delete(s.subs, ch)
				close(ch)
			}
		})
	}
}

func (s *Session) publish(v View) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for ch := range s.subs {
		select {
		case ch <- v:
		default:
			// Replace the stale pending view.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- v:
			default:
			}
		}
	}
}

// close ends every subscription. Called once the session is discarded.
func (s *Session) close() {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for ch := range s.subs {
		close(ch)
	}
	clear(s.subs)
}

func (s *Session) touch() {
	s.lastUsed.Store(s.now().UnixNano())
}

func (s *Session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastUsed.Load()))
}
