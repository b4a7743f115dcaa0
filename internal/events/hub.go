// Package events pushes live queue updates to subscribed clients over
// WebSocket, one subscriber group per practitioner.
package events

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
)

// QueueEvent is the frame broadcast whenever a practitioner's queue changes.
type QueueEvent struct {
	Type     string `json:"type"` // "checkin" or "transition"
	GurujiID string `json:"gurujiId"`
	EntryID  string `json:"entryId"`
	Position int    `json:"position"`
	Status   string `json:"status"`
}

// Publisher is the side the application layer sees.
type Publisher interface {
	Publish(event QueueEvent)
}

// Hub tracks WebSocket subscribers keyed by practitioner ID.
type Hub struct {
	mu          sync.Mutex
	subscribers map[string][]*websocket.Conn
	upgrader    websocket.Upgrader
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string][]*websocket.Conn),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Subscribe upgrades the request and keeps the connection registered until
// the client disconnects.
func (h *Hub) Subscribe(w http.ResponseWriter, r *http.Request, gurujiID string) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	h.mu.Lock()
	h.subscribers[gurujiID] = append(h.subscribers[gurujiID], conn)
	h.mu.Unlock()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.mu.Lock()
	conns := h.subscribers[gurujiID]
	remaining := make([]*websocket.Conn, 0, len(conns))
	for _, c := range conns {
		if c != conn {
			remaining = append(remaining, c)
		}
	}
	h.subscribers[gurujiID] = remaining
	h.mu.Unlock()

	conn.Close()
}

// Publish sends the event to every subscriber of the practitioner. Dead
// connections are dropped.
func (h *Hub) Publish(event QueueEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("queue_event_encode", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	conns := h.subscribers[event.GurujiID]
	alive := conns[:0]
	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err == nil {
			alive = append(alive, conn)
		} else {
			conn.Close()
		}
	}
	h.subscribers[event.GurujiID] = alive
}

// SubscriberCount reports active connections for a practitioner.
func (h *Hub) SubscriberCount(gurujiID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers[gurujiID])
}
