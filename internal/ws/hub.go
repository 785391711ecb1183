// Package ws pushes workflow events to connected admin dashboards.
package ws

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/lmoretti/birchside/internal/workflow"
)

// Hub fans workflow events out to connected clients. It satisfies
// workflow.EventSink; Publish never blocks the calling workflow.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	log        *zap.Logger
}

func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		log:        log,
	}
}

// Run owns the client set. Call it once, in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
		case message := <-h.broadcast:
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; drop it rather than stall the hub.
					delete(h.clients, client)
					close(client.send)
				}
			}
		}
	}
}

// Publish queues an event for broadcast, dropping it if the hub is
// saturated.
func (h *Hub) Publish(evt workflow.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.log.Warn("marshalling event failed", zap.String("type", evt.Type), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.log.Warn("event feed saturated, dropping event", zap.String("type", evt.Type))
	}
}
