// Package websocket pushes availability changes to connected dashboards so they
// rebuild their index instead of trusting a stale one.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"hoteldesk/internal/app/policies"
	"hoteldesk/internal/domain/booking"
	"hoteldesk/internal/domain/room"
	"hoteldesk/internal/domain/shared/events"
)

const (
	TypeAvailabilityChanged = "availability.changed"
	TypeRoomStatusChanged   = "room.status_changed"
)

// Message is the envelope written to every client.
type Message struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

type AvailabilityPayload struct {
	Property      string `json:"property"`
	RoomNumber    string `json:"room_number"`
	RoomID        string `json:"room_id,omitempty"`
	ReservationID string `json:"reservation_id"`
	Deleted       bool   `json:"deleted,omitempty"`
}

type RoomStatusPayload struct {
	RoomID     string `json:"room_id"`
	Property   string `json:"property"`
	RoomNumber string `json:"room_number"`
	From       string `json:"from"`
	To         string `json:"to"`
}

// Client is one connection's outbound queue.
type Client struct {
	send chan []byte
}

func newClient() *Client {
	return &Client{send: make(chan []byte, 64)}
}

// Hub fans messages out to every registered client. A client whose queue is
// full is dropped rather than allowed to stall the others.
type Hub struct {
	Logger *slog.Logger

	mu         sync.RWMutex
	clients    map[*Client]struct{}
	broadcast  chan []byte
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Logger:     logger,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Run serves registrations and broadcasts until ctx is cancelled, then closes
// every client queue.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			return
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			total := len(h.clients)
			h.mu.Unlock()
			h.debug("websocket client connected", "total", total)
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.debug("websocket client disconnected", "total", total)
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					close(c.send)
					delete(h.clients, c)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Register attaches c. Once the hub stopped, c's queue is closed instead.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		close(c.send)
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Clients reports the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast queues data for every client; it never blocks the caller.
func (h *Hub) Broadcast(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		if h.Logger != nil {
			h.Logger.Warn("websocket broadcast dropped: queue full")
		}
	}
}

// Notify translates domain events into dashboard messages.
func (h *Hub) Notify(ctx context.Context, ev events.DomainEvent) {
	msg, ok := messageFor(ev)
	if !ok {
		return
	}
	data, err := json.Marshal(msg)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("websocket message not encoded", "event", ev.EventName(), "error", err)
		}
		return
	}
	h.Broadcast(data)
}

func messageFor(ev events.DomainEvent) (Message, bool) {
	switch e := ev.(type) {
	case booking.ReservationChanged:
		return Message{Type: TypeAvailabilityChanged, Timestamp: e.At, Payload: AvailabilityPayload{
			Property:      e.Room.PropertyKey,
			RoomNumber:    e.Room.RoomNumber,
			RoomID:        e.RoomID,
			ReservationID: string(e.ReservationID),
			Deleted:       e.Deleted,
		}}, true
	case room.StatusChanged:
		return Message{Type: TypeRoomStatusChanged, Timestamp: e.At, Payload: RoomStatusPayload{
			RoomID:     e.RoomID,
			Property:   e.Room.PropertyKey,
			RoomNumber: e.Room.RoomNumber,
			From:       string(e.From),
			To:         string(e.To),
		}}, true
	default:
		return Message{}, false
	}
}

func (h *Hub) debug(msg string, args ...any) {
	if h.Logger != nil {
		h.Logger.Debug(msg, args...)
	}
}

var _ policies.Notifier = (*Hub)(nil)
