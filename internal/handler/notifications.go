package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
)

// NotificationStore defines the database methods for a user's inbox.
// Satisfied by *database.Queries; narrow interface for testability.
type NotificationStore interface {
	ListNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool, limit, offset int32) ([]database.Notification, error)
	CountNotifications(ctx context.Context, userID uuid.UUID, unreadOnly bool) (int64, error)
	MarkNotificationRead(ctx context.Context, id, userID uuid.UUID) (database.Notification, error)
	MarkAllNotificationsRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// NotificationHandler serves the caller's notifications.
type NotificationHandler struct {
	store NotificationStore
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(store NotificationStore) *NotificationHandler {
	return &NotificationHandler{store: store}
}

var errNotificationNotFound = apperr.NotFound("Notification not found")

// RegisterRoutes registers notification endpoints on the given Chi router.
func (h *NotificationHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/unread-count", h.UnreadCount)
	r.Put("/read-all", h.ReadAll)
	r.Put("/{id}/read", h.Read)
}

// List returns the caller's notifications, newest first.
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := claimsOf(r).UserID
	unread := r.URL.Query().Get("unread") == "true"
	p := parsePage(r, LedgerLimit)
	limit, offset := p.args()
	rows, err := h.store.ListNotifications(r.Context(), userID, unread, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountNotifications(r.Context(), userID, unread)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, "Notifications fetched successfully", rows, p, total)
}

// UnreadCount returns how many notifications the caller has not read.
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.CountNotifications(r.Context(), claimsOf(r).UserID, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Unread count fetched successfully", map[string]int64{"count": n})
}

// Read marks one of the caller's notifications read.
func (h *NotificationHandler) Read(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.store.MarkNotificationRead(r.Context(), id, claimsOf(r).UserID)
	if err != nil {
		writeError(w, r, mapNotFound(err, errNotificationNotFound))
		return
	}
	writeData(w, http.StatusOK, "Notification marked as read", n)
}

// ReadAll marks every notification of the caller read.
func (h *NotificationHandler) ReadAll(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.MarkAllNotificationsRead(r.Context(), claimsOf(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "All notifications marked as read", map[string]int64{"updated": n})
}
