package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ayusman/accuread/internal/app"
)

const writeWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// DecisionsHandler streams live capture decisions to WebSocket clients, one
// JSON message per processed frame.
type DecisionsHandler struct {
	app     *app.App
	clients map[*websocket.Conn]bool
	mu      sync.RWMutex
}

// NewDecisionsHandler creates a DecisionsHandler fed by a.
func NewDecisionsHandler(a *app.App) *DecisionsHandler {
	return &DecisionsHandler{
		app:     a,
		clients: make(map[*websocket.Conn]bool),
	}
}

// Clients returns the number of connected clients.
func (h *DecisionsHandler) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *DecisionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade error", "error", err)
		return
	}
	defer conn.Close()

	h.mu.Lock()
	h.clients[conn] = true
	h.mu.Unlock()

	events, unsubscribe := h.app.Subscribe()
	defer func() {
		unsubscribe()
		h.mu.Lock()
		delete(h.clients, conn)
		h.mu.Unlock()
	}()

	// The client never sends anything we act on; reading only detects close.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(ev); err != nil {
				slog.Debug("websocket write failed", "error", err)
				return
			}
		}
	}
}
