package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	mw "github.com/relux-laundry/api/internal/middleware"
	"github.com/relux-laundry/api/internal/service"
)

// CompensationStore defines the database methods for staff pay settings.
// Satisfied by *database.Queries; narrow interface for testability.
type CompensationStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetCompensationByUser(ctx context.Context, userID uuid.UUID) (database.StaffCompensation, error)
	UpsertCompensation(ctx context.Context, arg database.UpsertCompensationParams) (database.StaffCompensation, error)
}

// StaffHandler manages how staff members are paid.
type StaffHandler struct {
	store   CompensationStore
	auditor *service.Auditor
}

// NewStaffHandler creates a new StaffHandler.
func NewStaffHandler(store CompensationStore, auditor *service.Auditor) *StaffHandler {
	return &StaffHandler{store: store, auditor: auditor}
}

var (
	errCompNotFound = apperr.NotFound("Compensation not set for this staff member")
	errNotStaff     = apperr.Validation("User is not a staff member")
	errPayType      = apperr.Validation("pay_type must be hourly or monthly")
	errPayNegative  = apperr.Validation("Pay amounts must not be negative")
)

// RegisterRoutes registers staff endpoints on the given Chi router.
func (h *StaffHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(adminOnly...))
		r.Get("/{userId}/compensation", h.GetCompensation)
		r.Put("/{userId}/compensation", h.SetCompensation)
	})
}

type compensationRequest struct {
	PayType       string          `json:"pay_type"`
	HourlyRate    decimal.Decimal `json:"hourly_rate"`
	OvertimeRate  decimal.Decimal `json:"overtime_rate"`
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
	BonusPerOrder decimal.Decimal `json:"bonus_per_order"`
	Active        *bool           `json:"active"`
}

// GetCompensation returns a staff member's pay settings.
func (h *StaffHandler) GetCompensation(w http.ResponseWriter, r *http.Request) {
	userID, err := urlID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	comp, err := h.store.GetCompensationByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, mapNotFound(err, errCompNotFound))
		return
	}
	writeData(w, http.StatusOK, "Compensation fetched successfully", comp)
}

// SetCompensation creates or replaces a staff member's pay settings.
func (h *StaffHandler) SetCompensation(w http.ResponseWriter, r *http.Request) {
	userID, err := urlID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req compensationRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	payType := req.PayType
	if payType == "" {
		payType = enum.PayTypeHourly
	}
	if payType != enum.PayTypeHourly && payType != enum.PayTypeMonthly {
		writeError(w, r, errPayType)
		return
	}
	for _, d := range []decimal.Decimal{req.HourlyRate, req.OvertimeRate, req.MonthlySalary, req.BonusPerOrder} {
		if d.IsNegative() {
			writeError(w, r, errPayNegative)
			return
		}
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		writeError(w, r, mapNotFound(err, service.ErrStaffNotFound))
		return
	}
	if !enum.IsStaffRole(user.Role) {
		writeError(w, r, errNotStaff)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	comp, err := h.store.UpsertCompensation(r.Context(), database.UpsertCompensationParams{
		UserID:        userID,
		PayType:       payType,
		HourlyRate:    req.HourlyRate,
		OvertimeRate:  req.OvertimeRate,
		MonthlySalary: req.MonthlySalary,
		BonusPerOrder: req.BonusPerOrder,
		Active:        active,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.auditor.Record(r.Context(), service.AuditEntry{
		ActorID:    actorOf(r),
		Action:     "staff.compensation",
		TargetType: "user",
		TargetID:   userID.String(),
		After:      comp,
	})
	writeData(w, http.StatusOK, "Compensation saved", comp)
}
