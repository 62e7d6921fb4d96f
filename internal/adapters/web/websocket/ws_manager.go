package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/lcalzada-xor/dgramsniff/internal/core/domain"
)

const (
	writeWait = 5 * time.Second
	// sendBuffer is how many messages a client may fall behind before it is
	// dropped.
	sendBuffer = 16
)

type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// client owns one connection. Only its writer goroutine writes to conn.
type client struct {
	conn   *gws.Conn
	send   chan []byte
	reason string
}

// WSManager pushes reports and channel changes to connected clients. It is
// a ReportSink. Broadcasts never wait on a client: each has its own buffered
// queue and writer goroutine, and a client whose queue is full is dropped.
type WSManager struct {
	Clients map[*gws.Conn]*client
	mu      sync.Mutex

	upgrader gws.Upgrader
	allowed  map[string]bool
}

// NewWSManager creates a manager. Browser connections are accepted from the
// same host or from one of origins.
func NewWSManager(origins ...string) *WSManager {
	m := &WSManager{
		Clients: make(map[*gws.Conn]*client),
		allowed: make(map[string]bool, len(origins)),
	}
	for _, o := range origins {
		m.allowed[o] = true
	}
	m.upgrader = gws.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     m.checkOrigin,
	}
	return m
}

func (m *WSManager) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// Allow non-browser clients (no Origin header)
	if origin == "" {
		return true
	}
	if m.allowed[origin] {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}

	slog.Warn("WebSocket: Rejected origin", "origin", origin)
	return false
}

func (m *WSManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Debug("Upgrade error", "error", err)
		return
	}

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	m.mu.Lock()
	m.Clients[conn] = c
	m.mu.Unlock()

	slog.Info("WebSocket connected", "remote", r.RemoteAddr)

	go c.writePump()

	// Clean up on disconnect
	go func() {
		defer func() {
			m.mu.Lock()
			m.removeLocked(c, "")
			m.mu.Unlock()
			conn.Close()
			slog.Info("WebSocket disconnected", "remote", r.RemoteAddr)
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}
	}()
}

// writePump delivers queued messages until send is closed, then says goodbye.
func (c *client) writePump() {
	defer c.conn.Close()
	for data := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(gws.TextMessage, data); err != nil {
			// The reader sees the closed conn and unregisters the client
			return
		}
	}
	if c.reason != "" {
		c.conn.WriteControl(gws.CloseMessage,
			gws.FormatCloseMessage(gws.CloseGoingAway, c.reason),
			time.Now().Add(time.Second))
	}
}

// removeLocked unregisters c and stops its writer. m.mu must be held.
func (m *WSManager) removeLocked(c *client, reason string) {
	if m.Clients[c.conn] != c {
		return
	}
	delete(m.Clients, c.conn)
	c.reason = reason
	close(c.send)
}

// ClientCount returns the number of connected clients.
func (m *WSManager) ClientCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Clients)
}

// Publish broadcasts a report.
func (m *WSManager) Publish(_ context.Context, r domain.Report) error {
	m.broadcastMessage(WSMessage{Type: "report", Payload: r})
	return nil
}

// BroadcastChannel announces a channel change.
func (m *WSManager) BroadcastChannel(ev domain.ChannelChanged) {
	m.broadcastMessage(WSMessage{Type: "channel", Payload: ev})
}

// Close disconnects every client.
func (m *WSManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Clients {
		m.removeLocked(c, "shutting down")
	}
}

func (m *WSManager) broadcastMessage(msg WSMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("JSON marshal error", "error", err)
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.Clients {
		select {
		case c.send <- data:
		default:
			slog.Warn("WebSocket client too slow, disconnecting", "remote", c.conn.RemoteAddr().String())
			m.removeLocked(c, "too slow")
		}
	}
}
