// Package session owns the caches driven by interactive hosts.
//
// Each host session gets its own cache, created once with a fixed capacity
// and addressed by id. The Manager is the single owner; nothing is global.
package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"lrusim/internal/apperr"
	"lrusim/internal/cache"
)

var (
	ErrSessionNotFound = apperr.New(apperr.CodeNotFound, "session not found")
	ErrTooManySessions = apperr.New(apperr.CodeLimitExceeded, "session limit reached")
	ErrClosed          = apperr.New(apperr.CodeClosed, "session manager is closed")
)

// Options controls session limits and idle reaping.
//
//   - MaxSessions <= 0 means unlimited
//   - ReapInterval <= 0 disables background reaping
type Options struct {
	MaxSessions  int
	IdleTimeout  time.Duration
	ReapInterval time.Duration
}

// Manager creates, looks up and discards sessions.
//
// Manager owns its reaper goroutine. Call Close to stop it.
type Manager struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	closed   bool

	opts   Options
	logger *slog.Logger
	now    func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewManager constructs a manager and starts reaping if enabled.
func NewManager(opts Options, logger *slog.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		sessions: make(map[uuid.UUID]*Session),
		opts:     opts,
		logger:   logger,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}

	if opts.ReapInterval > 0 && opts.IdleTimeout > 0 {
		m.wg.Add(1)
		go m.reapLoop()
	}
	return m
}

// Initialize creates a session whose cache holds at most capacity entries.
// A non-positive capacity fails with cache.ErrInvalidConfiguration and no
// session is created.
func (m *Manager) Initialize(capacity int) (*Session, error) {
	id := uuid.New()
	log := m.logger.With("session_id", id.String())

	c, err := cache.NewLocked[string, string](capacity,
		cache.WithEvictCallback(func(key, value string) {
			log.Debug("entry evicted", "key", key, "value", value)
		}),
	)
	if err != nil {
		return nil, err
	}

	now := m.now()
	s := &Session{
		ID:        id,
		CreatedAt: now,
		cache:     c,
		now:       m.now,
		subs:      make(map[chan View]struct{}),
	}
	s.lastUsed.Store(now.UnixNano())

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, ErrClosed
	}
	if m.opts.MaxSessions > 0 && len(m.sessions) >= m.opts.MaxSessions {
		return nil, ErrTooManySessions.WithDetails("max %d", m.opts.MaxSessions)
	}
	m.sessions[id] = s

	log.Info("session initialized", "capacity", capacity)
	return s, nil
}

// Session returns the session with the given id.
func (m *Manager) Session(id string) (*Session, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrSessionNotFound.WithDetails("malformed id %q", id)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[uid]
	if !ok {
		return nil, ErrSessionNotFound.WithDetails("id %s", id)
	}
	return s, nil
}

// Discard ends a session and its subscriptions.
func (m *Manager) Discard(id string) error {
	uid, err := uuid.Parse(id)
	if err != nil {
		return ErrSessionNotFound.WithDetails("malformed id %q", id)
	}

	m.mu.Lock()
	s, ok := m.sessions[uid]
	if !ok {
		m.mu.Unlock()
		return ErrSessionNotFound.WithDetails("id %s", id)
	}
	delete(m.sessions, uid)
	m.mu.Unlock()

	s.close()
	m.logger.Info("session discarded", "session_id", id)
	return nil
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the reaper and discards every session.
//
// Close is safe to call multiple times.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	sessions := m.sessions
	m.sessions = make(map[uuid.UUID]*Session)
	m.mu.Unlock()

	// Cancel outside the lock; the reaper takes m.mu.
	m.cancel()
	m.wg.Wait()

	for _, s := range sessions {
		s.close()
	}
	return nil
}
