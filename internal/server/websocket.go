package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"lrusim/internal/apperr"
	"lrusim/internal/session"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var errHubClosed = apperr.New(apperr.CodeClosed, "websocket hub is closed")

// snapshotMessage is pushed to clients after every operation on a session.
type snapshotMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	session.View
}

// Hub tracks WebSocket connections watching sessions.
type Hub struct {
	manager  *session.Manager
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[*wsConn]struct{}
	closed bool
	wg     sync.WaitGroup
}

// wsConn is one client watching one session.
type wsConn struct {
	hub       *Hub
	sessionID string
	ws        *websocket.Conn
	updates   <-chan session.View
	cancel    func()
	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates a hub. Origins are not checked; the simulator is meant for
// local use.
func NewHub(manager *session.Manager, logger *slog.Logger) *Hub {
	return &Hub{
		manager: manager,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		conns: make(map[*wsConn]struct{}),
	}
}

// ServeWS upgrades the request and streams the session's snapshots, starting
// with the current one.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	s, err := h.manager.Session(id)
	if err != nil {
		writeError(w, err)
		return
	}

	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		writeError(w, errHubClosed)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Warn("websocket upgrade failed", "session_id", id, "error", err)
		return
	}

	updates, cancel := s.Subscribe()
	c := &wsConn{
		hub:       h,
		sessionID: id,
		ws:        ws,
		updates:   updates,
		cancel:    cancel,
		done:      make(chan struct{}),
	}

	// Registration and wg.Add happen under mu so Close never waits on a
	// group that is still growing.
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		cancel()
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = ws.Close()
		return
	}
	h.conns[c] = struct{}{}
	h.wg.Add(2)
	h.mu.Unlock()

	go c.writePump(s.Snapshot())
	go c.readPump()

	h.logger.Info("websocket connected", "session_id", id)
}

// Close disconnects every client and waits for their pumps to exit. Later
// upgrade requests are refused with 503.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	conns := make([]*wsConn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		c.shutdown()
	}
	h.wg.Wait()
}

func (h *Hub) unregister(c *wsConn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
}

// shutdown stops both pumps. Safe to call from either pump or the hub.
func (c *wsConn) shutdown() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
		_ = c.ws.Close()
		c.hub.unregister(c)
	})
}

func (c *wsConn) writePump(initial session.View) {
	defer c.hub.wg.Done()
	defer c.shutdown()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	if err := c.send(initial); err != nil {
		return
	}

	for {
		select {
		case <-c.done:
			return
		case v, ok := <-c.updates:
			if !ok {
				// Session discarded or reaped.
				_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
				_ = c.ws.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "session ended"))
				return
			}
			if err := c.send(v); err != nil {
				c.hub.logger.Debug("websocket write failed", "session_id", c.sessionID, "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *wsConn) send(v session.View) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(snapshotMessage{
		Type:      "snapshot",
		SessionID: c.sessionID,
		View:      v,
	})
}

// readPump only drains control frames; clients drive the cache over HTTP.
func (c *wsConn) readPump() {
	defer c.hub.wg.Done()
	defer c.shutdown()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Debug("websocket closed", "session_id", c.sessionID, "error", err)
			}
			return
		}
	}
}
