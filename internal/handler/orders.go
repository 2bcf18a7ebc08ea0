package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	mw "github.com/relux-laundry/api/internal/middleware"
	"github.com/relux-laundry/api/internal/service"
)

// Orders is the order lifecycle.
// Satisfied by *service.OrderService.
type Orders interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.OrderDetail, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status string, actorID uuid.UUID, notes string) (*database.Order, error)
	Cancel(ctx context.Context, orderID uuid.UUID, reason string, actorID uuid.UUID) (*database.Order, error)
	AssignStaff(ctx context.Context, orderID, staffID uuid.UUID) (*database.Order, error)
	UpdatePayment(ctx context.Context, orderID uuid.UUID, status, method, transactionID string) (*database.Order, error)
	RecordPayment(ctx context.Context, req service.RecordPaymentRequest) (*service.PaymentResult, error)
	Reprice(ctx context.Context, orderID uuid.UUID) (*database.Order, error)
}

// OrderStore defines the read-side database methods used by order handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, f database.OrderFilter, limit, offset int32) ([]database.Order, error)
	CountOrders(ctx context.Context, f database.OrderFilter) (int64, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	ListOrderStatusEvents(ctx context.Context, orderID uuid.UUID) ([]database.OrderStatusEvent, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	orders  Orders
	store   OrderStore
	auditor *service.Auditor
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orders Orders, store OrderStore, auditor *service.Auditor) *OrderHandler {
	return &OrderHandler{orders: orders, store: store, auditor: auditor}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Get("/history", h.History)
		r.Put("/cancel", h.Cancel)

		r.With(mw.RequireRole(staffRoles...)).Put("/status", h.UpdateStatus)
		r.With(mw.RequireRole(staffRoles...)).Put("/payment", h.UpdatePayment)
		r.With(mw.RequireRole(staffRoles...)).Post("/reprice", h.Reprice)
		r.With(mw.RequireRole(staffRoles...)).Post("/payments", h.RecordPayment)
		r.With(mw.RequireRole(managerRoles...)).Put("/assign", h.Assign)
	})
}

// --- Request types ---

type createOrderRequest struct {
	CustomerID          string                   `json:"customer_id"`
	ServiceType         string                   `json:"service_type"`
	OrderType           string                   `json:"order_type"`
	PickupAddress       string                   `json:"pickup_address"`
	DeliveryAddress     string                   `json:"delivery_address"`
	ScheduledPickupAt   *time.Time               `json:"scheduled_pickup_at"`
	SpecialInstructions string                   `json:"special_instructions"`
	ServiceLevel        string                   `json:"service_level"`
	PaymentMethod       string                   `json:"payment_method"`
	Notes               string                   `json:"notes"`
	PromoCode           string                   `json:"promo_code"`
	RedeemPoints        int64                    `json:"redeem_points"`
	Items               []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ServiceCategoryID *uuid.UUID      `json:"service_category_id"`
	ItemType          string          `json:"item_type"`
	Description       string          `json:"description"`
	Condition         string          `json:"condition"`
	Quantity          int32           `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type updatePaymentRequest struct {
	PaymentStatus string `json:"payment_status"`
	PaymentMethod string `json:"payment_method"`
	TransactionID string `json:"transaction_id"`
}

type assignRequest struct {
	StaffID uuid.UUID `json:"staff_id"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type recordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method"`
	Reference string          `json:"reference"`
}

// --- Handlers ---

// Create places an order. Customers order for themselves; staff must name
// the customer.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	claims := claimsOf(r)
	var customerID uuid.UUID
	if enum.IsStaffRole(claims.Role) {
		id, err := uuid.Parse(req.CustomerID)
		if err != nil {
			writeError(w, r, apperr.Validation("customer_id is required"))
			return
		}
		customerID = id
	} else {
		id, err := customerOf(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		customerID = id
	}

	items := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.CreateOrderItemRequest{
			ServiceCategoryID: it.ServiceCategoryID,
			ItemType:          it.ItemType,
			Description:       it.Description,
			Condition:         it.Condition,
			Quantity:          it.Quantity,
			UnitPrice:         it.UnitPrice,
		}
	}

	detail, err := h.orders.CreateOrder(r.Context(), service.CreateOrderRequest{
		CustomerID:          customerID,
		CreatedBy:           claims.UserID,
		ServiceType:         req.ServiceType,
		OrderType:           req.OrderType,
		PickupAddress:       req.PickupAddress,
		DeliveryAddress:     req.DeliveryAddress,
		ScheduledPickupAt:   req.ScheduledPickupAt,
		SpecialInstructions: req.SpecialInstructions,
		ServiceLevel:        req.ServiceLevel,
		PaymentMethod:       req.PaymentMethod,
		Notes:               req.Notes,
		PromoCode:           req.PromoCode,
		RedeemPoints:        req.RedeemPoints,
		Items:               items,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Order created", detail)
}

// List returns orders. Customers only ever see their own.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	p := parsePage(r, DefaultLimit)
	f := database.OrderFilter{
		Status:      queryStr(r, "status"),
		ServiceType: queryStr(r, "service_type"),
	}

	if isStaff(r) {
		id, err := queryID(r, "customer_id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		f.CustomerID = id
		if f.AssignedStaffID, err = queryID(r, "assigned_staff_id"); err != nil {
			writeError(w, r, err)
			return
		}
	} else {
		id, err := customerOf(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		f.CustomerID = &id
	}

	limit, offset := p.args()
	orders, err := h.store.ListOrders(r.Context(), f, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountOrders(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, "Orders fetched successfully", orders, p, total)
}

// Get returns an order with its items and history.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	order, ok := h.visibleOrder(w, r)
	if !ok {
		return
	}
	items, err := h.store.ListOrderItems(r.Context(), order.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	history, err := h.store.ListOrderStatusEvents(r.Context(), order.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Order fetched successfully", service.OrderDetail{Order: order, Items: items, History: history})
}

// History returns the status timeline of an order.
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	order, ok := h.visibleOrder(w, r)
	if !ok {
		return
	}
	history, err := h.store.ListOrderStatusEvents(r.Context(), order.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Order history fetched successfully", history)
}

// UpdateStatus moves an order to any valid status.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateStatusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	order, err := h.orders.UpdateStatus(r.Context(), id, req.Status, claimsOf(r).UserID, req.Notes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, "order.status", id, map[string]any{"status": order.Status, "notes": req.Notes})
	writeData(w, http.StatusOK, "Order status updated", order)
}

// UpdatePayment changes the payment status, method or transaction id.
func (h *OrderHandler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updatePaymentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	order, err := h.orders.UpdatePayment(r.Context(), id, req.PaymentStatus, req.PaymentMethod, req.TransactionID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, "order.payment", id, map[string]any{
		"payment_status": order.PaymentStatus,
		"payment_method": order.PaymentMethod,
	})
	writeData(w, http.StatusOK, "Payment updated", order)
}

// Assign sets the staff member responsible for an order.
func (h *OrderHandler) Assign(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req assignRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.StaffID == uuid.Nil {
		writeError(w, r, apperr.Validation("staff_id is required"))
		return
	}

	order, err := h.orders.AssignStaff(r.Context(), id, req.StaffID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, "order.assign", id, map[string]any{"assigned_staff_id": req.StaffID})
	writeData(w, http.StatusOK, "Order assigned", order)
}

// Cancel cancels a non-terminal order. Customers may cancel only their own.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	order, ok := h.visibleOrder(w, r)
	if !ok {
		return
	}
	var req cancelRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}

	cancelled, err := h.orders.Cancel(r.Context(), order.ID, req.Reason, claimsOf(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, "order.cancel", order.ID, map[string]any{"status": cancelled.Status, "reason": req.Reason})
	writeData(w, http.StatusOK, "Order cancelled", cancelled)
}

// Reprice recomputes totals from the stored items and current fees.
func (h *OrderHandler) Reprice(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	order, err := h.orders.Reprice(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, "order.reprice", id, map[string]any{"subtotal": order.Subtotal, "tax": order.Tax, "total": order.Total})
	writeData(w, http.StatusOK, "Order repriced", order)
}

// RecordPayment settles an order. Wallet payments debit the customer wallet.
func (h *OrderHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req recordPaymentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.orders.RecordPayment(r.Context(), service.RecordPaymentRequest{
		OrderID:   id,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		ActorID:   claimsOf(r).UserID,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, "payment.record", id, map[string]any{
		"payment_id": res.Payment.ID,
		"amount":     res.Payment.Amount,
		"method":     res.Payment.Method,
	})
	writeData(w, http.StatusCreated, "Payment recorded", res)
}

// visibleOrder loads the {id} order and enforces customer ownership.
func (h *OrderHandler) visibleOrder(w http.ResponseWriter, r *http.Request) (database.Order, bool) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return database.Order{}, false
	}
	order, err := h.store.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, service.ErrOrderNotFound))
		return database.Order{}, false
	}
	if !isStaff(r) {
		c := claimsOf(r)
		if c.CustomerID == nil || *c.CustomerID != order.CustomerID {
			writeError(w, r, errForbidden)
			return database.Order{}, false
		}
	}
	return order, true
}

func (h *OrderHandler) audit(r *http.Request, action string, orderID uuid.UUID, after map[string]any) {
	h.auditor.Record(r.Context(), service.AuditEntry{
		ActorID:    actorOf(r),
		Action:     action,
		TargetType: "order",
		TargetID:   orderID.String(),
		After:      after,
	})
}
