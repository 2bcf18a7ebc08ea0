package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	"github.com/relux-laundry/api/internal/service"
)

// UserStore defines the database methods needed by user handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type UserStore interface {
	ListUsers(ctx context.Context, f database.UserFilter, limit, offset int32) ([]database.User, error)
	CountUsers(ctx context.Context, f database.UserFilter) (int64, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	UpdateUserByAdmin(ctx context.Context, arg database.UpdateUserByAdminParams) (database.User, error)
	DeactivateUser(ctx context.Context, id uuid.UUID) (database.User, error)
}

// StaffCreator creates back-office logins.
// Satisfied by *service.AccountService.
type StaffCreator interface {
	CreateStaff(ctx context.Context, req service.StaffRequest) (*database.User, error)
}

// UserHandler handles user management for admins and managers.
type UserHandler struct {
	store   UserStore
	staff   StaffCreator
	auditor *service.Auditor
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(store UserStore, staff StaffCreator, auditor *service.Auditor) *UserHandler {
	return &UserHandler{store: store, staff: staff, auditor: auditor}
}

// RegisterRoutes registers user endpoints. Expected behind an
// admin/manager role check.
func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Put("/", h.Update)
		r.Delete("/", h.Deactivate)
	})
}

var errUserNotFound = apperr.NotFound("User not found")

// --- Request types ---

type createUserRequest struct {
	Name      string `json:"name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	StaffRole string `json:"staff_role"`
}

type updateUserRequest struct {
	Name      *string `json:"name"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
	Role      *string `json:"role"`
	StaffRole *string `json:"staff_role"`
	IsActive  *bool   `json:"is_active"`
}

// --- Handlers ---

// List returns users, optionally filtered by role or a name/phone search.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	p := parsePage(r, DefaultLimit)
	f := database.UserFilter{Role: queryStr(r, "role"), Search: queryStr(r, "search")}
	limit, offset := p.args()

	users, err := h.store.ListUsers(r.Context(), f, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountUsers(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, "Users fetched successfully", users, p, total)
}

// Get returns one user.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	user, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, errUserNotFound))
		return
	}
	writeData(w, http.StatusOK, "User fetched successfully", user)
}

// Create adds a staff, manager or admin account.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.Role == "" {
		req.Role = enum.UserRoleStaff
	}

	user, err := h.staff.CreateStaff(r.Context(), service.StaffRequest{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
		Role:      req.Role,
		StaffRole: req.StaffRole,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	h.auditor.Record(r.Context(), service.AuditEntry{
		ActorID:    actorOf(r),
		Action:     "user.create",
		TargetType: "user",
		TargetID:   user.ID.String(),
		After:      user,
	})
	writeData(w, http.StatusCreated, "User created", user)
}

// Update changes a user's profile, role or active flag.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateUserRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	current, err := h.store.GetUserByID(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, errUserNotFound))
		return
	}

	arg := database.UpdateUserByAdminParams{
		ID:        id,
		Name:      current.Name,
		Email:     current.Email,
		Phone:     current.Phone,
		Role:      current.Role,
		StaffRole: current.StaffRole,
		IsActive:  current.IsActive,
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		arg.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		arg.Email = optStr(strings.ToLower(*req.Email))
	}
	if req.Phone != nil && strings.TrimSpace(*req.Phone) != "" {
		arg.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Role != nil {
		if *req.Role != enum.UserRoleCustomer && !enum.IsStaffRole(*req.Role) {
			writeError(w, r, service.ErrInvalidStaffRole)
			return
		}
		arg.Role = *req.Role
	}
	if req.StaffRole != nil {
		arg.StaffRole = optStr(*req.StaffRole)
	}
	if req.IsActive != nil {
		arg.IsActive = *req.IsActive
	}

	user, err := h.store.UpdateUserByAdmin(r.Context(), arg)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			writeError(w, r, service.ErrAccountExists)
			return
		}
		writeError(w, r, mapNotFound(err, errUserNotFound))
		return
	}

	h.auditor.Record(r.Context(), service.AuditEntry{
		ActorID:    actorOf(r),
		Action:     "user.update",
		TargetType: "user",
		TargetID:   id.String(),
		Before:     current,
		After:      user,
	})
	writeData(w, http.StatusOK, "User updated", user)
}

// Deactivate disables a login. Callers cannot deactivate themselves.
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if id == claimsOf(r).UserID {
		writeError(w, r, apperr.Validation("You cannot deactivate your own account"))
		return
	}

	user, err := h.store.DeactivateUser(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, errUserNotFound))
		return
	}

	h.auditor.Record(r.Context(), service.AuditEntry{
		ActorID:    actorOf(r),
		Action:     "user.deactivate",
		TargetType: "user",
		TargetID:   id.String(),
	})
	writeData(w, http.StatusOK, "User deactivated", user)
}
