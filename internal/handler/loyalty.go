package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	mw "github.com/relux-laundry/api/internal/middleware"
	"github.com/relux-laundry/api/internal/service"
)

// PointsAdjuster applies manual loyalty corrections.
// Satisfied by *service.LoyaltyService.
type PointsAdjuster interface {
	Adjust(ctx context.Context, req service.AdjustRequest) (*service.PointsResult, error)
}

// LoyaltyStore defines the database methods used by loyalty handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type LoyaltyStore interface {
	ListLoyaltyTiers(ctx context.Context, activeOnly bool) ([]database.LoyaltyTier, error)
	GetLoyaltyTier(ctx context.Context, id uuid.UUID) (database.LoyaltyTier, error)
	CreateLoyaltyTier(ctx context.Context, arg database.LoyaltyTierParams) (database.LoyaltyTier, error)
	UpdateLoyaltyTier(ctx context.Context, arg database.LoyaltyTierParams) (database.LoyaltyTier, error)
	DeleteLoyaltyTier(ctx context.Context, id uuid.UUID) (int64, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	ListLoyaltyLedger(ctx context.Context, customerID uuid.UUID, limit, offset int32) ([]database.LoyaltyLedgerEntry, error)
	CountLoyaltyLedger(ctx context.Context, customerID uuid.UUID) (int64, error)
}

// LoyaltyHandler handles tiers, balances and point adjustments.
type LoyaltyHandler struct {
	adjuster PointsAdjuster
	store    LoyaltyStore
	auditor  *service.Auditor
}

// NewLoyaltyHandler creates a new LoyaltyHandler.
func NewLoyaltyHandler(adjuster PointsAdjuster, store LoyaltyStore, auditor *service.Auditor) *LoyaltyHandler {
	return &LoyaltyHandler{adjuster: adjuster, store: store, auditor: auditor}
}

var (
	errTierNotFound = apperr.NotFound("Loyalty tier not found")
	errTierExists   = apperr.Conflict("A tier with this name already exists")
	errTierName     = apperr.Validation("Tier name is required")
	errTierNumbers  = apperr.Validation("points_required and multiplier_percent must not be negative")
)

// RegisterRoutes registers loyalty endpoints on the given Chi router.
func (h *LoyaltyHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tiers", h.ListTiers)
	r.Get("/tiers/{id}", h.GetTier)
	r.Get("/me", h.Mine)
	r.Get("/me/ledger", h.MyLedger)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(managerRoles...))
		r.Get("/customers/{id}", h.ForCustomer)
		r.Get("/customers/{id}/ledger", h.CustomerLedger)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(adminOnly...))
		r.Post("/tiers", h.CreateTier)
		r.Put("/tiers/{id}", h.UpdateTier)
		r.Delete("/tiers/{id}", h.DeleteTier)
		r.Post("/adjust", h.Adjust)
	})
}

type tierRequest struct {
	Name               string `json:"name"`
	PointsRequired     int64  `json:"points_required"`
	MultiplierPercent  int32  `json:"multiplier_percent"`
	Rank               int32  `json:"rank"`
	FreePickup         bool   `json:"free_pickup"`
	FreeDelivery       bool   `json:"free_delivery"`
	PriorityTurnaround bool   `json:"priority_turnaround"`
	Active             *bool  `json:"active"`
}

func (req tierRequest) params(id uuid.UUID) (database.LoyaltyTierParams, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return database.LoyaltyTierParams{}, errTierName
	}
	if req.PointsRequired < 0 || req.MultiplierPercent < 0 {
		return database.LoyaltyTierParams{}, errTierNumbers
	}
	multiplier := req.MultiplierPercent
	if multiplier == 0 {
		multiplier = 100
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return database.LoyaltyTierParams{
		ID:                 id,
		Name:               name,
		PointsRequired:     req.PointsRequired,
		MultiplierPercent:  multiplier,
		Rank:               req.Rank,
		FreePickup:         req.FreePickup,
		FreeDelivery:       req.FreeDelivery,
		PriorityTurnaround: req.PriorityTurnaround,
		Active:             active,
	}, nil
}

type adjustRequest struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Points     int64     `json:"points"`
	Reason     string    `json:"reason"`
}

type loyaltySummary struct {
	CustomerID     uuid.UUID             `json:"customer_id"`
	Points         int64                 `json:"points"`
	LifetimePoints int64                 `json:"lifetime_points"`
	Tier           *database.LoyaltyTier `json:"tier"`
}

// ListTiers returns the tiers. Staff also see inactive ones.
func (h *LoyaltyHandler) ListTiers(w http.ResponseWriter, r *http.Request) {
	tiers, err := h.store.ListLoyaltyTiers(r.Context(), !isStaff(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Loyalty tiers fetched successfully", tiers)
}

// GetTier returns a tier.
func (h *LoyaltyHandler) GetTier(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	tier, err := h.store.GetLoyaltyTier(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, errTierNotFound))
		return
	}
	writeData(w, http.StatusOK, "Loyalty tier fetched successfully", tier)
}

// CreateTier adds a loyalty tier.
func (h *LoyaltyHandler) CreateTier(w http.ResponseWriter, r *http.Request) {
	var req tierRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	arg, err := req.params(uuid.Nil)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tier, err := h.store.CreateLoyaltyTier(r.Context(), arg)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			err = errTierExists
		}
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Loyalty tier created", tier)
}

// UpdateTier replaces a tier's definition.
func (h *LoyaltyHandler) UpdateTier(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req tierRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	arg, err := req.params(id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	tier, err := h.store.UpdateLoyaltyTier(r.Context(), arg)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			err = errTierExists
		}
		writeError(w, r, mapNotFound(err, errTierNotFound))
		return
	}
	writeData(w, http.StatusOK, "Loyalty tier updated", tier)
}

// DeleteTier removes a tier. Customers on it drop to no tier until their
// next reevaluation.
func (h *LoyaltyHandler) DeleteTier(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	n, err := h.store.DeleteLoyaltyTier(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if n == 0 {
		writeError(w, r, errTierNotFound)
		return
	}
	writeData(w, http.StatusOK, "Loyalty tier deleted", nil)
}

// Mine returns the caller's points and tier.
func (h *LoyaltyHandler) Mine(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeSummary(w, r, customerID)
}

// MyLedger returns the caller's points history.
func (h *LoyaltyHandler) MyLedger(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeLedger(w, r, customerID)
}

// ForCustomer returns a customer's points and tier.
func (h *LoyaltyHandler) ForCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeSummary(w, r, id)
}

// CustomerLedger returns a customer's points history.
func (h *LoyaltyHandler) CustomerLedger(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeLedger(w, r, id)
}

// Adjust applies a manual correction to a customer's points.
func (h *LoyaltyHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	var req adjustRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CustomerID == uuid.Nil {
		writeError(w, r, errCustomerRequired)
		return
	}
	id := req.CustomerID

	res, err := h.adjuster.Adjust(r.Context(), service.AdjustRequest{
		CustomerID: id,
		Points:     req.Points,
		Reason:     req.Reason,
		ActorID:    actorOf(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.auditor.Record(r.Context(), service.AuditEntry{
		ActorID:    actorOf(r),
		Action:     "loyalty.adjust",
		TargetType: "customer",
		TargetID:   id.String(),
		After:      map[string]any{"points": req.Points, "balance": res.Customer.LoyaltyPointsBalance},
		Metadata:   map[string]any{"reason": req.Reason},
	})
	writeData(w, http.StatusOK, "Points adjusted", res)
}

func (h *LoyaltyHandler) writeSummary(w http.ResponseWriter, r *http.Request, customerID uuid.UUID) {
	c, err := h.store.GetCustomer(r.Context(), customerID)
	if err != nil {
		writeError(w, r, mapNotFound(err, service.ErrCustomerNotFound))
		return
	}
	out := loyaltySummary{
		CustomerID:     c.ID,
		Points:         c.LoyaltyPointsBalance,
		LifetimePoints: c.LoyaltyLifetimePoints,
	}
	if c.LoyaltyTierID != nil {
		tier, err := h.store.GetLoyaltyTier(r.Context(), *c.LoyaltyTierID)
		if err != nil && apperr.KindOf(err) != apperr.KindNotFound {
			writeError(w, r, err)
			return
		}
		if err == nil {
			out.Tier = &tier
		}
	}
	writeData(w, http.StatusOK, "Loyalty summary fetched successfully", out)
}

func (h *LoyaltyHandler) writeLedger(w http.ResponseWriter, r *http.Request, customerID uuid.UUID) {
	p := parsePage(r, LedgerLimit)
	limit, offset := p.args()
	entries, err := h.store.ListLoyaltyLedger(r.Context(), customerID, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountLoyaltyLedger(r.Context(), customerID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, "Loyalty ledger fetched successfully", entries, p, total)
}
