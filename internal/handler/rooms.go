package handler

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/relux-laundry/api/internal/auth"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	"github.com/relux-laundry/api/internal/ws"
)

// RoomStore looks up the owners of subscribable rooms.
// Satisfied by *database.Queries.
type RoomStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetChatThread(ctx context.Context, id uuid.UUID) (database.ChatThread, error)
}

// RoomAuthorizer decides which rooms a socket may join. Staff may join any
// order or chat room; customers only those of their own orders and threads.
// A user room is open to its owner alone.
func RoomAuthorizer(store RoomStore) ws.Authorizer {
	return func(ctx context.Context, claims *auth.Claims, room string) bool {
		kind, rawID, ok := strings.Cut(room, "-")
		if !ok {
			return false
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return false
		}

		switch kind {
		case "user":
			return id == claims.UserID
		case "order":
			if enum.IsStaffRole(claims.Role) {
				return true
			}
			order, err := store.GetOrder(ctx, id)
			return err == nil && claims.CustomerID != nil && order.CustomerID == *claims.CustomerID
		case "chat":
			if enum.IsStaffRole(claims.Role) {
				return true
			}
			thread, err := store.GetChatThread(ctx, id)
			return err == nil && claims.CustomerID != nil && thread.CustomerID == *claims.CustomerID
		}
		return false
	}
}
