// Package hub provides the WebSocket fan-out for live event broadcasts.
// Every state change in the request queue or tournament produces an event
// that is delivered best-effort to all connected clients. Delivery is
// at-most-once: a briefly disconnected client simply misses events until
// its next full-status fetch.
package hub

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/mainstage/backend/internal/models"
)

const (
	sendBufferSize = 16
	writeTimeout   = 5 * time.Second
)

// client wraps one live connection with a dedicated writer goroutine so a
// slow peer never blocks the broadcast loop.
type client struct {
	id     uuid.UUID
	hub    *Hub
	conn   *websocket.Conn
	sendCh chan []byte
	done   chan struct{}
	once   sync.Once
}

func newClient(h *Hub, conn *websocket.Conn) *client {
	c := &client{
		id:     uuid.New(),
		hub:    h,
		conn:   conn,
		sendCh: make(chan []byte, sendBufferSize),
		done:   make(chan struct{}),
	}
	go c.run()
	return c
}

func (c *client) run() {
	for {
		select {
		case msg, ok := <-c.sendCh:
			if !ok {
				return
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.stop()
				if c.hub.remove(c.id) {
					slog.Warn("hub: write failed, dropping client", slog.String("client_id", c.id.String()), slog.Any("error", err))
				}
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *client) stop() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// Hub owns the set of live subscriber connections.
type Hub struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*client
}

// Stats reports connection counts for status endpoints.
type Stats struct {
	Clients int `json:"clients"`
}

// New creates an empty Hub.
func New() *Hub {
	return &Hub{clients: make(map[uuid.UUID]*client)}
}

// Register adds a connection to the live set and returns its subscriber id.
func (h *Hub) Register(conn *websocket.Conn) uuid.UUID {
	c := newClient(h, conn)

	h.mu.Lock()
	h.clients[c.id] = c
	total := len(h.clients)
	h.mu.Unlock()

	slog.Info("hub: client connected", slog.String("client_id", c.id.String()), slog.Int("total_clients", total))
	return c.id
}

// remove takes a client out of the live set. Returns false if it was
// already gone.
func (h *Hub) remove(id uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; !ok {
		return false
	}
	delete(h.clients, id)
	return true
}

// Unregister removes a connection from the live set and closes it.
func (h *Hub) Unregister(id uuid.UUID) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	total := len(h.clients)
	h.mu.Unlock()

	if ok {
		c.stop()
		slog.Info("hub: client disconnected", slog.String("client_id", id.String()), slog.Int("total_clients", total))
	}
}

// Broadcast serializes the event once and attempts delivery to every live
// connection. A client whose send buffer is full is dropped rather than
// blocking delivery to the others.
func (h *Hub) Broadcast(event models.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("hub: failed to marshal event", slog.String("type", string(event.Type)), slog.Any("error", err))
		return
	}

	h.mu.Lock()
	var slow []*client
	for _, c := range h.clients {
		select {
		case c.sendCh <- data:
		default:
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		delete(h.clients, c.id)
	}
	sent := len(h.clients)
	h.mu.Unlock()

	for _, c := range slow {
		c.stop()
		slog.Warn("hub: dropping slow client", slog.String("client_id", c.id.String()))
	}

	slog.Debug("hub: broadcast", slog.String("type", string(event.Type)), slog.Int("clients", sent), slog.Int("dropped", len(slow)))
}

// Stats returns the current connection count.
func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()
	return Stats{Clients: len(h.clients)}
}

// CloseAll disconnects every client, used on shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*client, 0, len(h.clients))
	for id, c := range h.clients {
		clients = append(clients, c)
		delete(h.clients, id)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.stop()
	}
}
