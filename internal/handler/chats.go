package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	mw "github.com/relux-laundry/api/internal/middleware"
	"github.com/relux-laundry/api/internal/service"
)

// Chats runs support threads.
// Satisfied by *service.ChatService.
type Chats interface {
	CreateThread(ctx context.Context, req service.CreateThreadRequest) (*database.ChatThread, error)
	PostMessage(ctx context.Context, req service.PostMessageRequest) (*database.ChatMessage, error)
	Close(ctx context.Context, id uuid.UUID) (*database.ChatThread, error)
}

// ChatStore defines the read-side database methods for chat.
// Satisfied by *database.Queries; narrow interface for testability.
type ChatStore interface {
	GetChatThread(ctx context.Context, id uuid.UUID) (database.ChatThread, error)
	ListChatThreads(ctx context.Context, f database.ChatThreadFilter, limit, offset int32) ([]database.ChatThread, error)
	CountChatThreads(ctx context.Context, f database.ChatThreadFilter) (int64, error)
	ListChatMessages(ctx context.Context, threadID uuid.UUID, limit, offset int32) ([]database.ChatMessage, error)
	CountChatMessages(ctx context.Context, threadID uuid.UUID) (int64, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// ChatHandler handles support chat endpoints.
type ChatHandler struct {
	chats Chats
	store ChatStore
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chats Chats, store ChatStore) *ChatHandler {
	return &ChatHandler{chats: chats, store: store}
}

// RegisterRoutes registers chat endpoints on the given Chi router.
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/messages", h.Messages)
		r.Post("/messages", h.Post)
		r.With(mw.RequireRole(staffRoles...)).Put("/close", h.Close)
	})
}

type createThreadRequest struct {
	CustomerID *uuid.UUID `json:"customer_id"`
	OrderID    *uuid.UUID `json:"order_id"`
	Subject    string     `json:"subject"`
}

type postMessageRequest struct {
	Body string `json:"body"`
}

// List returns threads. Customers see only their own.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	f := database.ChatThreadFilter{Status: queryStr(r, "status")}
	if isStaff(r) {
		id, err := queryID(r, "customer_id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		f.CustomerID = id
	} else {
		id, err := customerOf(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		f.CustomerID = &id
	}

	p := parsePage(r, DefaultLimit)
	limit, offset := p.args()
	threads, err := h.store.ListChatThreads(r.Context(), f, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountChatThreads(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, "Chats fetched successfully", threads, p, total)
}

// Create opens a thread, or returns the existing one for an order.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createThreadRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	staff := isStaff(r)
	var customerID uuid.UUID
	switch {
	case staff && req.CustomerID != nil:
		customerID = *req.CustomerID
	case !staff:
		id, err := customerOf(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		customerID = id
	}

	if req.OrderID != nil {
		order, err := h.store.GetOrder(r.Context(), *req.OrderID)
		if err != nil {
			writeError(w, r, mapNotFound(err, service.ErrOrderNotFound))
			return
		}
		if !staff && order.CustomerID != customerID {
			writeError(w, r, errForbidden)
			return
		}
		customerID = order.CustomerID
	}
	if customerID == uuid.Nil {
		writeError(w, r, apperr.Validation("customer_id or order_id is required"))
		return
	}

	createdBy := enum.SenderCustomer
	if staff {
		createdBy = enum.SenderStaff
	}
	thread, err := h.chats.CreateThread(r.Context(), service.CreateThreadRequest{
		CustomerID: customerID,
		OrderID:    req.OrderID,
		Subject:    req.Subject,
		CreatedBy:  createdBy,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Chat thread ready", thread)
}

// Get returns a thread.
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	thread, ok := h.visibleThread(w, r)
	if !ok {
		return
	}
	writeData(w, http.StatusOK, "Chat fetched successfully", thread)
}

// Messages returns a thread's messages, oldest first.
func (h *ChatHandler) Messages(w http.ResponseWriter, r *http.Request) {
	thread, ok := h.visibleThread(w, r)
	if !ok {
		return
	}
	p := parsePage(r, ChatLimit)
	limit, offset := p.args()
	msgs, err := h.store.ListChatMessages(r.Context(), thread.ID, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountChatMessages(r.Context(), thread.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, "Messages fetched successfully", msgs, p, total)
}

// Post appends a message from the caller.
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	thread, ok := h.visibleThread(w, r)
	if !ok {
		return
	}
	var req postMessageRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	msgReq := service.PostMessageRequest{ThreadID: thread.ID, Body: req.Body}
	if isStaff(r) {
		msgReq.SenderType = enum.SenderStaff
		msgReq.SenderUserID = actorOf(r)
	} else {
		msgReq.SenderType = enum.SenderCustomer
		msgReq.SenderCustomerID = &thread.CustomerID
	}
	msg, err := h.chats.PostMessage(r.Context(), msgReq)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Message sent", msg)
}

// Close closes a thread.
func (h *ChatHandler) Close(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	thread, err := h.chats.Close(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Chat thread closed", thread)
}

func (h *ChatHandler) visibleThread(w http.ResponseWriter, r *http.Request) (database.ChatThread, bool) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return database.ChatThread{}, false
	}
	thread, err := h.store.GetChatThread(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, service.ErrThreadNotFound))
		return database.ChatThread{}, false
	}
	if !isStaff(r) {
		c := claimsOf(r)
		if c.CustomerID == nil || *c.CustomerID != thread.CustomerID {
			writeError(w, r, errForbidden)
			return database.ChatThread{}, false
		}
	}
	return thread, true
}
