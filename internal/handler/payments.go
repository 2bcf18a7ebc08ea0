package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	mw "github.com/relux-laundry/api/internal/middleware"
)

// PaymentStore defines the database methods used by payment handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PaymentStore interface {
	GetPayment(ctx context.Context, id uuid.UUID) (database.Payment, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (database.Payment, error)
	ListPayments(ctx context.Context, f database.PaymentFilter, limit, offset int32) ([]database.Payment, error)
	CountPayments(ctx context.Context, f database.PaymentFilter) (int64, error)
}

// PaymentHandler exposes recorded payments. Payments are recorded through
// POST /orders/{id}/payments.
type PaymentHandler struct {
	store PaymentStore
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(store PaymentStore) *PaymentHandler {
	return &PaymentHandler{store: store}
}

var errPaymentNotFound = apperr.NotFound("Payment not found")

// RegisterRoutes registers payment endpoints on the given Chi router.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.With(mw.RequireRole(managerRoles...)).Get("/", h.List)
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(staffRoles...))
		r.Get("/order/{orderId}", h.ByOrder)
		r.Get("/{id}", h.Get)
	})
}

// List returns payments filtered by status and method.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	p := parsePage(r, DefaultLimit)
	f := database.PaymentFilter{
		Status: queryStr(r, "status"),
		Method: queryStr(r, "method"),
	}
	limit, offset := p.args()
	payments, err := h.store.ListPayments(r.Context(), f, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountPayments(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, "Payments fetched successfully", payments, p, total)
}

// Get returns a single payment.
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := h.store.GetPayment(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, errPaymentNotFound))
		return
	}
	writeData(w, http.StatusOK, "Payment fetched successfully", payment)
}

// ByOrder returns the payment recorded for an order.
func (h *PaymentHandler) ByOrder(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "orderId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payment, err := h.store.GetPaymentByOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, errPaymentNotFound))
		return
	}
	writeData(w, http.StatusOK, "Payment fetched successfully", payment)
}
