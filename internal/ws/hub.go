package ws

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event represents a WebSocket message to be broadcast
type Event struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Event types pushed to clients.
const (
	EventOrderCreated        = "order-created"
	EventOrderStatusUpdated  = "order-status-updated"
	EventOrderPaymentUpdated = "order-payment-updated"
	EventChatMessage         = "chat-message"
	EventNotification        = "notification"
)

func OrderRoom(id uuid.UUID) string { return "order-" + id.String() }
func UserRoom(id uuid.UUID) string  { return "user-" + id.String() }
func ChatRoom(id uuid.UUID) string  { return "chat-" + id.String() }

// roomEvent routes an event to one room
type roomEvent struct {
	Room  string
	Event Event
}

type subscription struct {
	client *Client
	room   string
}

type directEvent struct {
	client *Client
	event  Event
}

// Hub maintains the set of active clients and broadcasts messages to the
// rooms they joined. All room state is owned by the Run goroutine.
type Hub struct {
	rooms map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
	join       chan subscription
	leave      chan subscription

	broadcast chan *roomEvent
	direct    chan directEvent
	done      chan struct{}

	logger *zap.Logger

	// mu guards rooms for readers outside Run (tests, RoomSize).
	mu sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		rooms:      make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan subscription),
		leave:      make(chan subscription),
		broadcast:  make(chan *roomEvent, 256),
		direct:     make(chan directEvent, 64),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run starts the hub's main loop and returns when ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			return nil

		case client := <-h.register:
			h.logger.Debug("ws client registered", zap.Stringer("user_id", client.userID))

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClient(client)
			h.mu.Unlock()

		case sub := <-h.join:
			h.mu.Lock()
			if h.rooms[sub.room] == nil {
				h.rooms[sub.room] = make(map[*Client]bool)
			}
			h.rooms[sub.room][sub.client] = true
			sub.client.rooms[sub.room] = true
			h.mu.Unlock()

		case sub := <-h.leave:
			h.mu.Lock()
			h.leaveRoom(sub.client, sub.room)
			h.mu.Unlock()

		case d := <-h.direct:
			message, err := json.Marshal(d.event)
			if err != nil {
				continue
			}
			h.mu.Lock()
			if !d.client.closed {
				select {
				case d.client.send <- message:
				default:
					h.removeClient(d.client)
				}
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			message, err := json.Marshal(event.Event)
			if err != nil {
				h.logger.Warn("ws event encode failed", zap.Error(err))
				continue
			}

			h.mu.Lock()
			for client := range h.rooms[event.Room] {
				select {
				case client.send <- message:
				default:
					// send buffer full; drop the client
					h.removeClient(client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// removeClient must be called with mu held.
func (h *Hub) removeClient(client *Client) {
	if client.closed {
		return
	}
	for room := range client.rooms {
		h.leaveRoom(client, room)
	}
	client.closed = true
	close(client.send)
}

// leaveRoom must be called with mu held.
func (h *Hub) leaveRoom(client *Client, room string) {
	delete(client.rooms, room)
	if clients, ok := h.rooms[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, clients := range h.rooms {
		for client := range clients {
			h.removeClient(client)
		}
	}
}

// BroadcastToRoom sends an event to every client in room. It never blocks
// once the hub has stopped.
func (h *Hub) BroadcastToRoom(room string, event Event) {
	select {
	case h.broadcast <- &roomEvent{Room: room, Event: event}:
	case <-h.done:
	}
}

// RoomSize returns the number of clients in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

func (h *Hub) sendDirect(client *Client, event Event) {
	select {
	case h.direct <- directEvent{client: client, event: event}:
	case <-h.done:
	}
}

func (h *Hub) subscribe(client *Client, room string) {
	select {
	case h.join <- subscription{client: client, room: room}:
	case <-h.done:
	}
}

func (h *Hub) unsubscribe(client *Client, room string) {
	select {
	case h.leave <- subscription{client: client, room: room}:
	case <-h.done:
	}
}

func (h *Hub) disconnect(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) connect(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
	}
}
