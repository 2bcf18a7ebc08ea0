package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	"github.com/relux-laundry/api/internal/ws"
)

// ChatStore defines the DB methods needed for support chat.
// Satisfied by *database.Queries.
type ChatStore interface {
	CreateChatThread(ctx context.Context, arg database.CreateChatThreadParams) (database.ChatThread, error)
	GetChatThread(ctx context.Context, id uuid.UUID) (database.ChatThread, error)
	GetChatThreadByOrder(ctx context.Context, orderID uuid.UUID) (database.ChatThread, error)
	CloseChatThread(ctx context.Context, id uuid.UUID) (database.ChatThread, error)
	TouchChatThread(ctx context.Context, id uuid.UUID) error
	CreateChatMessage(ctx context.Context, arg database.CreateChatMessageParams) (database.ChatMessage, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
}

// NewChatStore creates a ChatStore from a DBTX (pool or tx).
type NewChatStore func(db database.DBTX) ChatStore

// ChatService manages support threads between customers and staff.
type ChatService struct {
	pool     TxBeginner
	newStore NewChatStore
	store    ChatStore
	notifier *Notifier
}

// NewChatService creates a new ChatService.
func NewChatService(pool TxBeginner, newStore NewChatStore, store ChatStore, notifier *Notifier) *ChatService {
	return &ChatService{pool: pool, newStore: newStore, store: store, notifier: notifier}
}

// CreateThreadRequest opens a thread for a customer, optionally tied to an order.
type CreateThreadRequest struct {
	CustomerID uuid.UUID
	OrderID    *uuid.UUID
	Subject    string
	CreatedBy  string
}

// CreateThread opens a thread. An order has at most one thread; asking
// again returns the existing one.
func (s *ChatService) CreateThread(ctx context.Context, req CreateThreadRequest) (*database.ChatThread, error) {
	if req.OrderID != nil {
		t, err := s.store.GetChatThreadByOrder(ctx, *req.OrderID)
		if err == nil {
			return &t, nil
		}
		if apperr.KindOf(err) != apperr.KindNotFound {
			return nil, fmt.Errorf("get chat thread by order: %w", err)
		}
	}

	t, err := s.store.CreateChatThread(ctx, database.CreateChatThreadParams{
		OrderID:    req.OrderID,
		CustomerID: req.CustomerID,
		Subject:    strPtr(strings.TrimSpace(req.Subject)),
		CreatedBy:  req.CreatedBy,
	})
	if err != nil {
		if database.IsUniqueViolation(err, "chat_threads_order_id_key") {
			t, err = s.store.GetChatThreadByOrder(ctx, *req.OrderID)
			if err == nil {
				return &t, nil
			}
		}
		return nil, fmt.Errorf("create chat thread: %w", err)
	}
	return &t, nil
}

// PostMessageRequest is one message from a customer or a staff member.
type PostMessageRequest struct {
	ThreadID         uuid.UUID
	SenderType       string
	SenderCustomerID *uuid.UUID
	SenderUserID     *uuid.UUID
	Body             string
}

// PostMessage appends a message to an open thread and pushes it to the
// thread's room. Staff replies also notify the customer.
func (s *ChatService) PostMessage(ctx context.Context, req PostMessageRequest) (*database.ChatMessage, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, ErrEmptyMessage
	}

	var (
		msg    database.ChatMessage
		thread database.ChatThread
	)
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)

		var err error
		thread, err = store.GetChatThread(ctx, req.ThreadID)
		if err != nil {
			return notFound(err, ErrThreadNotFound, "get chat thread")
		}
		if thread.Status == enum.ChatThreadClosed {
			return ErrThreadClosed
		}

		msg, err = store.CreateChatMessage(ctx, database.CreateChatMessageParams{
			ThreadID:         req.ThreadID,
			SenderType:       req.SenderType,
			SenderCustomerID: req.SenderCustomerID,
			SenderUserID:     req.SenderUserID,
			Body:             body,
		})
		if err != nil {
			return fmt.Errorf("create chat message: %w", err)
		}
		if err := store.TouchChatThread(ctx, req.ThreadID); err != nil {
			return fmt.Errorf("touch chat thread: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(ctx, ws.ChatRoom(thread.ID), ws.EventChatMessage, msg)
	if req.SenderType == enum.SenderStaff {
		s.notifyCustomer(ctx, thread, msg)
	}
	return &msg, nil
}

func (s *ChatService) notifyCustomer(ctx context.Context, thread database.ChatThread, msg database.ChatMessage) {
	c, err := s.store.GetCustomer(ctx, thread.CustomerID)
	if err != nil || c.UserID == nil {
		return
	}
	s.notifier.Notify(ctx, Message{
		UserID:     c.UserID,
		CustomerID: &c.ID,
		Type:       enum.NotificationChatMessage,
		Title:      "New message",
		Body:       msg.Body,
		Metadata:   map[string]any{"thread_id": thread.ID, "message_id": msg.ID},
	})
}

// Close marks a thread closed. Closed threads accept no new messages.
func (s *ChatService) Close(ctx context.Context, id uuid.UUID) (*database.ChatThread, error) {
	t, err := s.store.CloseChatThread(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrThreadNotFound, "close chat thread")
	}
	return &t, nil
}
