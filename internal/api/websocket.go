package api

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

// Event types pushed to connected dashboard clients.
const (
	EventProgress    = "upload:progress"
	EventDataChanged = "data:changed"
	EventPong        = "pong"
)

// Event is one message on the progress stream.
type Event struct {
	Type      string `json:"type"`
	Progress  int    `json:"progress,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// Hub broadcasts upload progress and refresh signals to every connected
// dashboard client. Clients only ever send pings; the stream is one-way.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.Mutex
	conns    map[*websocket.Conn]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// The daemon binds to loopback; the dashboard dev server
				// connects cross-origin.
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 4 * 1024,
		},
		conns: make(map[*websocket.Conn]bool),
	}
}

// HandleWebSocket upgrades the connection and keeps it registered until the
// client goes away.
func (h *Hub) HandleWebSocket(c echo.Context) error {
	ws, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	h.mu.Lock()
	h.conns[ws] = true
	h.mu.Unlock()
	defer func() {
		h.mu.Lock()
		delete(h.conns, ws)
		h.mu.Unlock()
	}()

	slog.Debug("progress stream client connected")

	for {
		var msg map[string]interface{}
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				slog.Debug("progress stream connection error", "error", err)
			}
			return nil
		}
		if msg["type"] == "ping" {
			h.send(ws, Event{Type: EventPong, Timestamp: time.Now().UnixMilli()})
		}
	}
}

// BroadcastProgress pushes the whole-batch percentage to every client.
func (h *Hub) BroadcastProgress(percent int) {
	h.broadcast(Event{Type: EventProgress, Progress: percent, Timestamp: time.Now().UnixMilli()})
}

// BroadcastDataChanged signals dependent views to refetch after a batch with
// at least one success.
func (h *Hub) BroadcastDataChanged() {
	h.broadcast(Event{Type: EventDataChanged, Timestamp: time.Now().UnixMilli()})
}

func (h *Hub) broadcast(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ws := range h.conns {
		if err := ws.WriteJSON(ev); err != nil {
			ws.Close()
			delete(h.conns, ws)
		}
	}
}

func (h *Hub) send(ws *websocket.Conn, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := ws.WriteJSON(ev); err != nil {
		ws.Close()
		delete(h.conns, ws)
	}
}
