package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	mw "github.com/relux-laundry/api/internal/middleware"
	"github.com/relux-laundry/api/internal/service"
)

// CatalogStore defines the database methods needed by the service catalog.
// Satisfied by *database.Queries; narrow interface for testability.
type CatalogStore interface {
	ListServices(ctx context.Context, activeOnly bool) ([]database.Service, error)
	GetService(ctx context.Context, id uuid.UUID) (database.Service, error)
	CreateService(ctx context.Context, arg database.ServiceParams) (database.Service, error)
	UpdateService(ctx context.Context, arg database.ServiceParams) (database.Service, error)
	DeactivateService(ctx context.Context, id uuid.UUID) (database.Service, error)
	ListServiceCategories(ctx context.Context, serviceID uuid.UUID, activeOnly bool) ([]database.ServiceCategory, error)
	GetServiceCategory(ctx context.Context, id uuid.UUID) (database.ServiceCategory, error)
	CreateServiceCategory(ctx context.Context, arg database.ServiceCategoryParams) (database.ServiceCategory, error)
	UpdateServiceCategory(ctx context.Context, arg database.ServiceCategoryParams) (database.ServiceCategory, error)
	DeactivateServiceCategory(ctx context.Context, serviceID, id uuid.UUID) (database.ServiceCategory, error)
}

// CatalogHandler serves laundry services and their priced categories.
type CatalogHandler struct {
	store CatalogStore
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(store CatalogStore) *CatalogHandler {
	return &CatalogHandler{store: store}
}

var (
	errServiceNotFound = apperr.NotFound("Service not found")
	errServiceExists   = apperr.Conflict("A service with this name already exists")
	errCategoryExists  = apperr.Conflict("A category with this name already exists for this service")
	errNegativePrice   = apperr.Validation("unit_price must not be negative")
)

// RegisterRoutes registers catalog endpoints. Reads are open to every
// authenticated caller; writes are admin only.
func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/categories", h.ListCategories)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(adminOnly...))
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)
		r.Post("/{id}/categories", h.CreateCategory)
		r.Put("/{id}/categories/{cid}", h.UpdateCategory)
		r.Delete("/{id}/categories/{cid}", h.DeleteCategory)
	})
}

// --- Request / Response types ---

type serviceRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Active      *bool  `json:"active"`
}

type categoryRequest struct {
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Active    *bool           `json:"active"`
}

type serviceDetail struct {
	database.Service
	Categories []database.ServiceCategory `json:"categories"`
}

// --- Handlers ---

// List returns services. Staff see inactive ones too.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	services, err := h.store.ListServices(r.Context(), !isStaff(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Services fetched successfully", services)
}

// Get returns a service with its categories.
func (h *CatalogHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	svc, err := h.store.GetService(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, errServiceNotFound))
		return
	}
	cats, err := h.store.ListServiceCategories(r.Context(), id, !isStaff(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Service fetched successfully", serviceDetail{Service: svc, Categories: cats})
}

// Create adds a service.
func (h *CatalogHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, service.ErrNameRequired)
		return
	}

	svc, err := h.store.CreateService(r.Context(), database.ServiceParams{
		Name:        strings.TrimSpace(req.Name),
		Description: optStr(req.Description),
		Icon:        optStr(req.Icon),
		Active:      req.Active == nil || *req.Active,
	})
	if err != nil {
		if database.IsUniqueViolation(err, "services_name_key") {
			writeError(w, r, errServiceExists)
			return
		}
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Service created", svc)
}

// Update replaces a service's fields.
func (h *CatalogHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req serviceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	current, err := h.store.GetService(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, errServiceNotFound))
		return
	}
	arg := database.ServiceParams{
		ID:          id,
		Name:        current.Name,
		Description: current.Description,
		Icon:        current.Icon,
		Active:      current.Active,
	}
	if n := strings.TrimSpace(req.Name); n != "" {
		arg.Name = n
	}
	if req.Description != "" {
		arg.Description = optStr(req.Description)
	}
	if req.Icon != "" {
		arg.Icon = optStr(req.Icon)
	}
	if req.Active != nil {
		arg.Active = *req.Active
	}

	svc, err := h.store.UpdateService(r.Context(), arg)
	if err != nil {
		if database.IsUniqueViolation(err, "services_name_key") {
			writeError(w, r, errServiceExists)
			return
		}
		writeError(w, r, mapNotFound(err, errServiceNotFound))
		return
	}
	writeData(w, http.StatusOK, "Service updated", svc)
}

// Delete deactivates a service. Orders keep referencing it.
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	svc, err := h.store.DeactivateService(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, errServiceNotFound))
		return
	}
	writeData(w, http.StatusOK, "Service deactivated", svc)
}

// ListCategories returns the categories of one service.
func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cats, err := h.store.ListServiceCategories(r.Context(), id, !isStaff(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Service categories fetched successfully", cats)
}

// CreateCategory adds a priced category to a service.
func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	serviceID, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, r, service.ErrNameRequired)
		return
	}
	if req.UnitPrice.IsNegative() {
		writeError(w, r, errNegativePrice)
		return
	}
	if _, err := h.store.GetService(r.Context(), serviceID); err != nil {
		writeError(w, r, mapNotFound(err, errServiceNotFound))
		return
	}

	cat, err := h.store.CreateServiceCategory(r.Context(), database.ServiceCategoryParams{
		ServiceID: serviceID,
		Name:      strings.TrimSpace(req.Name),
		UnitPrice: req.UnitPrice,
		Active:    req.Active == nil || *req.Active,
	})
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			writeError(w, r, errCategoryExists)
			return
		}
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Category created", cat)
}

// UpdateCategory edits a category's name, price or active flag.
func (h *CatalogHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	serviceID, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	catID, err := urlID(r, "cid")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req categoryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	current, err := h.store.GetServiceCategory(r.Context(), catID)
	if err != nil || current.ServiceID != serviceID {
		writeError(w, r, service.ErrCategoryNotFound)
		return
	}
	arg := database.ServiceCategoryParams{
		ID:        catID,
		ServiceID: serviceID,
		Name:      current.Name,
		UnitPrice: current.UnitPrice,
		Active:    current.Active,
	}
	if n := strings.TrimSpace(req.Name); n != "" {
		arg.Name = n
	}
	if !req.UnitPrice.IsZero() {
		if req.UnitPrice.IsNegative() {
			writeError(w, r, errNegativePrice)
			return
		}
		arg.UnitPrice = req.UnitPrice
	}
	if req.Active != nil {
		arg.Active = *req.Active
	}

	cat, err := h.store.UpdateServiceCategory(r.Context(), arg)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			writeError(w, r, errCategoryExists)
			return
		}
		writeError(w, r, mapNotFound(err, service.ErrCategoryNotFound))
		return
	}
	writeData(w, http.StatusOK, "Category updated", cat)
}

// DeleteCategory deactivates a category.
func (h *CatalogHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	serviceID, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	catID, err := urlID(r, "cid")
	if err != nil {
		writeError(w, r, err)
		return
	}
	cat, err := h.store.DeactivateServiceCategory(r.Context(), serviceID, catID)
	if err != nil {
		writeError(w, r, mapNotFound(err, service.ErrCategoryNotFound))
		return
	}
	writeData(w, http.StatusOK, "Category deactivated", cat)
}
