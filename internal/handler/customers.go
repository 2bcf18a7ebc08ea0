package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	mw "github.com/relux-laundry/api/internal/middleware"
	"github.com/relux-laundry/api/internal/service"
)

// CustomerStore defines the database methods needed by customer handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type CustomerStore interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	ListCustomers(ctx context.Context, f database.CustomerFilter, limit, offset int32) ([]database.Customer, error)
	CountCustomers(ctx context.Context, f database.CustomerFilter) (int64, error)
	UpdateCustomer(ctx context.Context, arg database.UpdateCustomerParams) (database.Customer, error)
	SetCustomerStatus(ctx context.Context, id uuid.UUID, status string) (database.Customer, error)
}

// WalkInCreator creates customers at the counter.
// Satisfied by *service.AccountService.
type WalkInCreator interface {
	CreateWalkInCustomer(ctx context.Context, req service.WalkInRequest) (*database.Customer, error)
}

// CustomerHandler handles customer profile endpoints.
type CustomerHandler struct {
	store   CustomerStore
	walkIns WalkInCreator
	auditor *service.Auditor
}

// NewCustomerHandler creates a new CustomerHandler.
func NewCustomerHandler(store CustomerStore, walkIns WalkInCreator, auditor *service.Auditor) *CustomerHandler {
	return &CustomerHandler{store: store, walkIns: walkIns, auditor: auditor}
}

// RegisterRoutes registers customer endpoints on the given Chi router.
func (h *CustomerHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.GetMe)
	r.Put("/me", h.UpdateMe)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(staffRoles...))
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Put("/{id}", h.Update)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(managerRoles...))
		r.Put("/{id}/suspend", h.setStatus(enum.CustomerStatusSuspended, "Customer suspended"))
		r.Put("/{id}/activate", h.setStatus(enum.CustomerStatusActive, "Customer activated"))
	})
}

type customerRequest struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Email *string `json:"email"`
}

// GetMe returns the caller's customer profile.
func (h *CustomerHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	id, err := customerOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.store.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, service.ErrCustomerNotFound))
		return
	}
	writeData(w, http.StatusOK, "Customer profile fetched successfully", c)
}

// UpdateMe edits the caller's own profile.
func (h *CustomerHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	id, err := customerOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.update(w, r, id)
}

// List returns customers with optional search and status filters.
func (h *CustomerHandler) List(w http.ResponseWriter, r *http.Request) {
	p := parsePage(r, DefaultLimit)
	f := database.CustomerFilter{Search: queryStr(r, "search"), Status: queryStr(r, "status")}
	limit, offset := p.args()

	customers, err := h.store.ListCustomers(r.Context(), f, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountCustomers(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, "Customers fetched successfully", customers, p, total)
}

// Get returns one customer.
func (h *CustomerHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.store.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, service.ErrCustomerNotFound))
		return
	}
	writeData(w, http.StatusOK, "Customer fetched successfully", c)
}

// Create registers a walk-in customer with an empty wallet.
func (h *CustomerHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.walkIns.CreateWalkInCustomer(r.Context(), service.WalkInRequest{
		Name:  deref(req.Name),
		Phone: deref(req.Phone),
		Email: deref(req.Email),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Customer created", c)
}

// Update edits any customer's profile.
func (h *CustomerHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.update(w, r, id)
}

func (h *CustomerHandler) update(w http.ResponseWriter, r *http.Request, id uuid.UUID) {
	var req customerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	current, err := h.store.GetCustomer(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, service.ErrCustomerNotFound))
		return
	}

	arg := database.UpdateCustomerParams{ID: id, Name: current.Name, Phone: current.Phone, Email: current.Email}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		arg.Name = strings.TrimSpace(*req.Name)
	}
	if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
		arg.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Email != nil {
		arg.Email = optStr(*req.Email)
	}

	c, err := h.store.UpdateCustomer(r.Context(), arg)
	if err != nil {
		if database.IsUniqueViolation(err, "customers_phone_key") {
			writeError(w, r, service.ErrCustomerExists)
			return
		}
		writeError(w, r, mapNotFound(err, service.ErrCustomerNotFound))
		return
	}
	writeData(w, http.StatusOK, "Customer updated", c)
}

func (h *CustomerHandler) setStatus(status, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := urlID(r, "id")
		if err != nil {
			writeError(w, r, err)
			return
		}
		c, err := h.store.SetCustomerStatus(r.Context(), id, status)
		if err != nil {
			writeError(w, r, mapNotFound(err, service.ErrCustomerNotFound))
			return
		}

		h.auditor.Record(r.Context(), service.AuditEntry{
			ActorID:    actorOf(r),
			Action:     "customer." + status,
			TargetType: "customer",
			TargetID:   id.String(),
			After:      map[string]any{"status": status},
		})
		writeData(w, http.StatusOK, message, c)
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
