package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/relux-laundry/api/internal/auth"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // authenticated via JWT
	},
}

// Authorizer decides whether the caller may join room.
type Authorizer func(ctx context.Context, claims *auth.Claims, room string) bool

// clientMessage is sent by the browser to manage room membership.
type clientMessage struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

// Client represents a single WebSocket connection
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	claims *auth.Claims
	userID uuid.UUID
	send   chan []byte

	// owned by the hub goroutine
	rooms  map[string]bool
	closed bool
}

func newClient(hub *Hub, conn *websocket.Conn, claims *auth.Claims) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		claims: claims,
		userID: claims.UserID,
		send:   make(chan []byte, 256),
		rooms:  make(map[string]bool),
	}
}

// ReadPump handles join/leave requests until the connection closes.
func (c *Client) ReadPump(ctx context.Context, authorize Authorizer) {
	defer func() {
		c.hub.disconnect(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("websocket read error", zap.Error(err))
			}
			return
		}
		c.handleMessage(ctx, authorize, data)
	}
}

func (c *Client) handleMessage(ctx context.Context, authorize Authorizer, data []byte) {
	var msg clientMessage
	if err := json.Unmarshal(data, &msg); err != nil || msg.Room == "" {
		c.reply("error", map[string]string{"message": "invalid message"})
		return
	}

	switch msg.Action {
	case "join":
		if !authorize(ctx, c.claims, msg.Room) {
			c.reply("error", map[string]string{"message": "not allowed to join room", "room": msg.Room})
			return
		}
		c.hub.subscribe(c, msg.Room)
		c.reply("joined", map[string]string{"room": msg.Room})
	case "leave":
		c.hub.unsubscribe(c, msg.Room)
		c.reply("left", map[string]string{"room": msg.Room})
	default:
		c.reply("error", map[string]string{"message": "unknown action"})
	}
}

// reply queues a message to this client only. It goes through the hub so
// it never races with close(send).
func (c *Client) reply(eventType string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	c.hub.sendDirect(c, Event{Type: eventType, Payload: body})
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS handles WebSocket requests from clients
// Endpoint: GET /api/v1/ws?token=JWT
func ServeWS(hub *Hub, tokens auth.Tokens, authorize Authorizer, w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	claims, err := tokens.ValidateToken(tokenStr)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		hub.logger.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	client := newClient(hub, conn, claims)
	hub.connect(client)
	// every connection receives its own user events
	hub.subscribe(client, UserRoom(claims.UserID))

	go client.WritePump()
	go client.ReadPump(context.WithoutCancel(r.Context()), authorize)
}
