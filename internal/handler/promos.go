package handler

import (
	"context"
	"net/http"
	"strings"
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

// Promos validates and redeems promo codes.
// Satisfied by *service.PromoService.
type Promos interface {
	Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*service.PromoQuote, error)
	Redeem(ctx context.Context, req service.RedeemPromoRequest) (*database.PromoRedemption, error)
}

// PromoStore defines the database methods used by promo handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PromoStore interface {
	ListPromoCodes(ctx context.Context, active *bool, limit, offset int32) ([]database.PromoCode, error)
	CountPromoCodes(ctx context.Context, active *bool) (int64, error)
	GetPromoCode(ctx context.Context, id uuid.UUID) (database.PromoCode, error)
	CreatePromoCode(ctx context.Context, arg database.PromoCodeParams) (database.PromoCode, error)
	UpdatePromoCode(ctx context.Context, arg database.PromoCodeParams) (database.PromoCode, error)
	DeactivatePromoCode(ctx context.Context, id uuid.UUID) (database.PromoCode, error)
	ListPromoRedemptions(ctx context.Context, promoCodeID uuid.UUID, limit, offset int32) ([]database.PromoRedemption, error)
	CountPromoRedemptions(ctx context.Context, promoCodeID uuid.UUID) (int64, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// PromoHandler handles promo code endpoints.
type PromoHandler struct {
	promos  Promos
	store   PromoStore
	auditor *service.Auditor
}

// NewPromoHandler creates a new PromoHandler.
func NewPromoHandler(promos Promos, store PromoStore, auditor *service.Auditor) *PromoHandler {
	return &PromoHandler{promos: promos, store: store, auditor: auditor}
}

var (
	errPromoNotFound = apperr.NotFound("Promo code not found")
	errPromoExists   = apperr.Conflict("Promo code already exists")
	errPromoCode     = apperr.Validation("Promo code is required")
	errPromoType     = apperr.Validation("Promo type must be fixed or percent")
	errPromoValue    = apperr.Validation("Promo value must be greater than 0")
	errPromoPercent  = apperr.Validation("Percent promo value must not exceed 100")
	errPromoUsage    = apperr.Validation("usage_limit must be greater than 0")
)

// RegisterRoutes registers promo endpoints on the given Chi router.
func (h *PromoHandler) RegisterRoutes(r chi.Router) {
	r.Post("/validate", h.Validate)
	r.Post("/redeem", h.Redeem)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(managerRoles...))
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Deactivate)
		r.Get("/{id}/redemptions", h.Redemptions)
	})
}

type promoRequest struct {
	Code       string          `json:"code"`
	Type       string          `json:"type"`
	Value      decimal.Decimal `json:"value"`
	UsageLimit *int32          `json:"usage_limit"`
	ExpiresAt  *time.Time      `json:"expires_at"`
	Active     *bool           `json:"active"`
}

func (req promoRequest) params(id uuid.UUID) (database.PromoCodeParams, error) {
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return database.PromoCodeParams{}, errPromoCode
	}
	if req.Type != enum.PromoTypeFixed && req.Type != enum.PromoTypePercent {
		return database.PromoCodeParams{}, errPromoType
	}
	if !req.Value.IsPositive() {
		return database.PromoCodeParams{}, errPromoValue
	}
	if req.Type == enum.PromoTypePercent && req.Value.GreaterThan(decimal.NewFromInt(100)) {
		return database.PromoCodeParams{}, errPromoPercent
	}
	if req.UsageLimit != nil && *req.UsageLimit <= 0 {
		return database.PromoCodeParams{}, errPromoUsage
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return database.PromoCodeParams{
		ID:         id,
		Code:       code,
		Type:       req.Type,
		Value:      req.Value,
		UsageLimit: req.UsageLimit,
		ExpiresAt:  req.ExpiresAt,
		Active:     active,
	}, nil
}

type validatePromoRequest struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type redeemPromoRequest struct {
	Code    string          `json:"code"`
	OrderID uuid.UUID       `json:"order_id"`
	Amount  decimal.Decimal `json:"amount"`
}

// Validate quotes the discount a code gives on a subtotal.
func (h *PromoHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validatePromoRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, r, errPromoCode)
		return
	}
	quote, err := h.promos.Validate(r.Context(), strings.TrimSpace(req.Code), req.Subtotal)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Promo code is valid", quote)
}

// Redeem records a promo against an order. Customers may redeem only on
// their own orders.
func (h *PromoHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req redeemPromoRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeError(w, r, errPromoCode)
		return
	}

	order, err := h.store.GetOrder(r.Context(), req.OrderID)
	if err != nil {
		writeError(w, r, mapNotFound(err, service.ErrOrderNotFound))
		return
	}
	if !isStaff(r) {
		c := claimsOf(r)
		if c.CustomerID == nil || *c.CustomerID != order.CustomerID {
			writeError(w, r, errForbidden)
			return
		}
	}

	redemption, err := h.promos.Redeem(r.Context(), service.RedeemPromoRequest{
		Code:       strings.TrimSpace(req.Code),
		OrderID:    order.ID,
		CustomerID: &order.CustomerID,
		Amount:     req.Amount,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Promo redeemed", redemption)
}

// List returns promo codes, optionally filtered by active state.
func (h *PromoHandler) List(w http.ResponseWriter, r *http.Request) {
	var active *bool
	switch r.URL.Query().Get("active") {
	case "true":
		active = ptr(true)
	case "false":
		active = ptr(false)
	}

	p := parsePage(r, DefaultLimit)
	limit, offset := p.args()
	codes, err := h.store.ListPromoCodes(r.Context(), active, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountPromoCodes(r.Context(), active)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, "Promo codes fetched successfully", codes, p, total)
}

// Get returns a promo code.
func (h *PromoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	promo, err := h.store.GetPromoCode(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, errPromoNotFound))
		return
	}
	writeData(w, http.StatusOK, "Promo code fetched successfully", promo)
}

// Create adds a promo code. Codes are stored upper-case.
func (h *PromoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req promoRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	arg, err := req.params(uuid.Nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	promo, err := h.store.CreatePromoCode(r.Context(), arg)
	if err != nil {
		if database.IsUniqueViolation(err, "promo_codes_code_key") {
			err = errPromoExists
		}
		writeError(w, r, err)
		return
	}
	h.audit(r, "promo.create", promo)
	writeData(w, http.StatusCreated, "Promo code created", promo)
}

// Update replaces a promo code's definition.
func (h *PromoHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req promoRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	arg, err := req.params(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	promo, err := h.store.UpdatePromoCode(r.Context(), arg)
	if err != nil {
		if database.IsUniqueViolation(err, "promo_codes_code_key") {
			err = errPromoExists
		}
		writeError(w, r, mapNotFound(err, errPromoNotFound))
		return
	}
	h.audit(r, "promo.update", promo)
	writeData(w, http.StatusOK, "Promo code updated", promo)
}

// Deactivate switches a promo code off. Redemptions keep their reference.
func (h *PromoHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	promo, err := h.store.DeactivatePromoCode(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, errPromoNotFound))
		return
	}
	h.audit(r, "promo.deactivate", promo)
	writeData(w, http.StatusOK, "Promo code deactivated", promo)
}

// Redemptions lists the orders a promo code was used on.
func (h *PromoHandler) Redemptions(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	p := parsePage(r, DefaultLimit)
	limit, offset := p.args()
	rows, err := h.store.ListPromoRedemptions(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountPromoRedemptions(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, "Promo redemptions fetched successfully", rows, p, total)
}

func (h *PromoHandler) audit(r *http.Request, action string, promo database.PromoCode) {
	h.auditor.Record(r.Context(), service.AuditEntry{
		ActorID:    actorOf(r),
		Action:     action,
		TargetType: "promo_code",
		TargetID:   promo.ID.String(),
		After:      promo,
	})
}
