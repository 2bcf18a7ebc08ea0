// Package relay delivers real-time events to WebSocket rooms, either on
// this instance only or across every instance through Redis pub/sub.
package relay

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/relux-laundry/api/internal/ws"
)

// Broadcaster delivers an event to the clients of one room.
// Satisfied by *ws.Hub.
type Broadcaster interface {
	BroadcastToRoom(room string, event ws.Event)
}

// Local publishes straight to the in-process hub.
type Local struct {
	hub Broadcaster
}

// NewLocal creates a Local relay.
func NewLocal(hub Broadcaster) *Local {
	return &Local{hub: hub}
}

// Publish encodes payload and hands it to the hub.
func (l *Local) Publish(ctx context.Context, room, eventType string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", eventType, err)
	}
	l.deliver(room, ws.Event{Type: eventType, Payload: body})
	return nil
}

func (l *Local) deliver(room string, event ws.Event) {
	l.hub.BroadcastToRoom(room, event)
}
