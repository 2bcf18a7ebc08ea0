package service

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/ws"
)

// NotificationStore persists in-app notifications.
// Satisfied by *database.Queries.
type NotificationStore interface {
	CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error)
}

// Notifier delivers post-commit side effects: stored in-app notifications
// and real-time events. Failures are logged and never returned. A nil
// *Notifier drops everything.
type Notifier struct {
	store     NotificationStore
	publisher Publisher
	settings  SettingsProvider
	logger    *zap.Logger
}

// NewNotifier creates a new Notifier.
func NewNotifier(store NotificationStore, publisher Publisher, settings SettingsProvider, logger *zap.Logger) *Notifier {
	return &Notifier{store: store, publisher: publisher, settings: settings, logger: logger}
}

// Message is one in-app notification.
type Message struct {
	UserID     *uuid.UUID
	CustomerID *uuid.UUID
	Type       string
	Title      string
	Body       string
	Metadata   map[string]any
}

// Notify stores msg for its recipient and pushes it to the recipient's room.
// Nothing is stored when in-app notifications are disabled.
func (n *Notifier) Notify(ctx context.Context, msg Message) {
	if n == nil || msg.UserID == nil {
		return
	}
	if n.settings.Current().Notification.DisableInApp {
		return
	}

	meta, err := json.Marshal(msg.Metadata)
	if err != nil || msg.Metadata == nil {
		meta = []byte("{}")
	}

	stored, err := n.store.CreateNotification(ctx, database.CreateNotificationParams{
		UserID:     msg.UserID,
		CustomerID: msg.CustomerID,
		Type:       msg.Type,
		Channel:    "in_app",
		Title:      msg.Title,
		Body:       msg.Body,
		Metadata:   meta,
	})
	if err != nil {
		n.logger.Warn("notification insert failed",
			zap.String("type", msg.Type),
			zap.Stringer("user_id", msg.UserID),
			zap.Error(err),
		)
		return
	}
	n.Publish(ctx, ws.UserRoom(*msg.UserID), ws.EventNotification, stored)
}

// Publish pushes an event to room.
func (n *Notifier) Publish(ctx context.Context, room, eventType string, payload any) {
	if n == nil || n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, room, eventType, payload); err != nil {
		n.logger.Warn("event publish failed",
			zap.String("room", room),
			zap.String("event", eventType),
			zap.Error(err),
		)
	}
}
