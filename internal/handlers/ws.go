package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/mainstage/backend/internal/hub"
)

// WSHandler upgrades connections and hands them to the broadcast hub.
type WSHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

func NewWSHandler(h *hub.Hub, allowedOrigins []string) *WSHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WSHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Non-browser clients (bots, overlays) send no Origin.
				return origin == "" || allowed[origin]
			},
		},
	}
}

// Serve upgrades the request and blocks on the read loop until the peer
// disconnects. Inbound frames are discarded; the socket is broadcast-only.
func (h *WSHandler) Serve(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	id := h.hub.Register(conn)
	defer h.hub.Unregister(id)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
