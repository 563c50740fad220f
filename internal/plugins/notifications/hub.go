package notifications

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

// Publisher delivers events to live subscribers. The service depends on
// this rather than on Hub so tests can record broadcasts.
type Publisher interface {
	Broadcast(event Event)
}

// conn is one admin browser tab. gorilla/websocket allows a single
// concurrent writer, so writes go through mu.
type conn struct {
	ws     *websocket.Conn
	userID string
	mu     sync.Mutex
}

func (c *conn) write(fn func() error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return fn()
}

// Hub tracks connected admins and fans notifications out to them.
type Hub struct {
	mu       sync.RWMutex
	conns    map[*conn]struct{}
	upgrader websocket.Upgrader
}

// NewHub creates a Hub that accepts upgrades from allowedOrigins only. An
// empty list accepts same-origin requests only.
func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[o] = true
		}
	}

	return &Hub{
		conns: make(map[*conn]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowed[origin] {
					return true
				}
				return origin == "http://"+r.Host || origin == "https://"+r.Host
			},
		},
	}
}

// Serve upgrades the request and blocks until the client goes away. The
// caller has already authenticated and authorized the user.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID string) error {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return err
	}

	c := &conn{ws: ws, userID: userID}
	h.add(c)
	defer h.remove(c)

	ws.SetReadLimit(512)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Admins never send anything meaningful; reading just drives pongs and
	// notices the close.
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			return nil
		}
	}
}

func (h *Hub) add(c *conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	n := len(h.conns)
	h.mu.Unlock()

	slog.Debug("notification feed connected", slog.String("user_id", c.userID), slog.Int("connections", n))
}

func (h *Hub) remove(c *conn) {
	h.mu.Lock()
	_, ok := h.conns[c]
	delete(h.conns, c)
	h.mu.Unlock()

	if ok {
		_ = c.ws.Close()
		slog.Debug("notification feed disconnected", slog.String("user_id", c.userID))
	}
}

// snapshot copies the connection set so writes happen without holding mu.
func (h *Hub) snapshot() []*conn {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*conn, 0, len(h.conns))
	for c := range h.conns {
		out = append(out, c)
	}
	return out
}

// Len reports the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// Broadcast sends event to every connection. Connections that fail the
// write are dropped.
func (h *Hub) Broadcast(event Event) {
	for _, c := range h.snapshot() {
		if err := c.write(func() error { return c.ws.WriteJSON(event) }); err != nil {
			slog.Warn("notification broadcast failed", slog.String("user_id", c.userID), slog.Any("error", err))
			h.remove(c)
		}
	}
}

// Run pings every connection until ctx is cancelled, then closes them all.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for _, c := range h.snapshot() {
				_ = c.write(func() error {
					return c.ws.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				})
				h.remove(c)
			}
			return
		case <-ticker.C:
			for _, c := range h.snapshot() {
				if err := c.write(func() error { return c.ws.WriteMessage(websocket.PingMessage, nil) }); err != nil {
					h.remove(c)
				}
			}
		}
	}
}
