package session

import "time"

// reapLoop periodically discards sessions nobody has touched for
// IdleTimeout. A ticker-driven full scan keeps ownership simple: one
// goroutine, stopped by Close.
func (m *Manager) reapLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(m.opts.ReapInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			if n := m.reapIdle(m.now()); n > 0 {
				m.logger.Info("idle sessions reaped", "count", n)
			}
		}
	}
}

// reapIdle removes sessions idle longer than IdleTimeout as of now.
func (m *Manager) reapIdle(now time.Time) int {
	m.mu.Lock()
	var idle []*Session
	for id, s := range m.sessions {
		if s.idleSince(now) > m.opts.IdleTimeout {
			delete(m.sessions, id)
			idle = append(idle, s)
		}
	}
	m.mu.Unlock()

	for _, s := range idle {
		s.close()
		m.logger.Debug("session reaped", "session_id", s.ID.String())
	}
	return len(idle)
}
