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

// Payroll runs payroll periods.
// Satisfied by *service.PayrollService.
type Payroll interface {
	CreatePeriod(ctx context.Context, start, end time.Time, actorID *uuid.UUID) (*database.PayrollPeriod, error)
	GenerateEntries(ctx context.Context, periodID uuid.UUID) ([]database.PayrollEntry, error)
	FinalizePeriod(ctx context.Context, periodID uuid.UUID) (*database.PayrollPeriod, error)
	MarkPeriodPaid(ctx context.Context, periodID uuid.UUID) (*database.PayrollPeriod, error)
	UpdateEntry(ctx context.Context, entryID uuid.UUID, req service.AdjustEntryRequest) (*database.PayrollEntry, error)
	GeneratePayslip(ctx context.Context, entryID uuid.UUID) (*database.Payslip, error)
}

// PayrollStore defines the read-side database methods for payroll.
// Satisfied by *database.Queries; narrow interface for testability.
type PayrollStore interface {
	GetPayrollPeriod(ctx context.Context, id uuid.UUID) (database.PayrollPeriod, error)
	ListPayrollPeriods(ctx context.Context, status *string, limit, offset int32) ([]database.PayrollPeriod, error)
	CountPayrollPeriods(ctx context.Context, status *string) (int64, error)
	ListPayrollEntries(ctx context.Context, periodID uuid.UUID) ([]database.PayrollEntry, error)
	GetPayrollEntry(ctx context.Context, id uuid.UUID) (database.PayrollEntry, error)
	GetPayslip(ctx context.Context, id uuid.UUID) (database.Payslip, error)
	ListPayslipsByUser(ctx context.Context, userID uuid.UUID) ([]database.Payslip, error)
}

// PayrollHandler handles payroll endpoints.
type PayrollHandler struct {
	payroll Payroll
	store   PayrollStore
	auditor *service.Auditor
}

// NewPayrollHandler creates a new PayrollHandler.
func NewPayrollHandler(payroll Payroll, store PayrollStore, auditor *service.Auditor) *PayrollHandler {
	return &PayrollHandler{payroll: payroll, store: store, auditor: auditor}
}

var (
	errPayslipNotFound = apperr.NotFound("Payslip not found")
	errPeriodDates     = apperr.Validation("start_date and end_date are required")
)

// RegisterRoutes registers payroll endpoints on the given Chi router.
func (h *PayrollHandler) RegisterRoutes(r chi.Router) {
	r.With(mw.RequireRole(staffRoles...)).Get("/payslips/me", h.MyPayslips)
	r.With(mw.RequireRole(staffRoles...)).Get("/payslips/{id}", h.GetPayslip)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(adminOnly...))
		r.Get("/periods", h.ListPeriods)
		r.Post("/periods", h.CreatePeriod)
		r.Get("/periods/{id}", h.GetPeriod)
		r.Post("/periods/{id}/generate", h.Generate)
		r.Put("/periods/{id}/finalize", h.Finalize)
		r.Put("/periods/{id}/paid", h.MarkPaid)
		r.Get("/periods/{id}/entries", h.ListEntries)
		r.Put("/entries/{id}", h.UpdateEntry)
		r.Post("/entries/{id}/payslip", h.GeneratePayslip)
	})
}

type periodRequest struct {
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

type entryRequest struct {
	Bonuses    *decimal.Decimal `json:"bonuses"`
	Deductions *decimal.Decimal `json:"deductions"`
}

type periodDetail struct {
	Period  database.PayrollPeriod  `json:"period"`
	Entries []database.PayrollEntry `json:"entries"`
}

// ListPeriods returns payroll periods, optionally filtered by status.
func (h *PayrollHandler) ListPeriods(w http.ResponseWriter, r *http.Request) {
	status := queryStr(r, "status")
	p := parsePage(r, DefaultLimit)
	limit, offset := p.args()
	periods, err := h.store.ListPayrollPeriods(r.Context(), status, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountPayrollPeriods(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, "Payroll periods fetched successfully", periods, p, total)
}

// CreatePeriod opens a draft period.
func (h *PayrollHandler) CreatePeriod(w http.ResponseWriter, r *http.Request) {
	var req periodRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.StartDate == nil || req.EndDate == nil {
		writeError(w, r, errPeriodDates)
		return
	}
	period, err := h.payroll.CreatePeriod(r.Context(), *req.StartDate, *req.EndDate, actorOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, "payroll.period.create", "payroll_period", period.ID, period)
	writeData(w, http.StatusCreated, "Payroll period created", period)
}

// GetPeriod returns a period with its entries.
func (h *PayrollHandler) GetPeriod(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	period, err := h.store.GetPayrollPeriod(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, service.ErrPeriodNotFound))
		return
	}
	entries, err := h.store.ListPayrollEntries(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Payroll period fetched successfully", periodDetail{Period: period, Entries: entries})
}

// ListEntries returns a period's entries.
func (h *PayrollHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := h.store.GetPayrollPeriod(r.Context(), id); err != nil {
		writeError(w, r, mapNotFound(err, service.ErrPeriodNotFound))
		return
	}
	entries, err := h.store.ListPayrollEntries(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Payroll entries fetched successfully", entries)
}

// Generate computes entries from attendance for a draft period.
func (h *PayrollHandler) Generate(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := h.payroll.GenerateEntries(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, "payroll.generate", "payroll_period", id, map[string]any{"entries": len(entries)})
	writeData(w, http.StatusOK, "Payroll entries generated", entries)
}

// Finalize locks a draft period.
func (h *PayrollHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "payroll.finalize", "Payroll period finalized", h.payroll.FinalizePeriod)
}

// MarkPaid marks a finalized period as paid.
func (h *PayrollHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "payroll.paid", "Payroll period marked as paid", h.payroll.MarkPeriodPaid)
}

func (h *PayrollHandler) transition(w http.ResponseWriter, r *http.Request, action, message string,
	fn func(context.Context, uuid.UUID) (*database.PayrollPeriod, error)) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	period, err := fn(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, action, "payroll_period", id, map[string]any{"status": period.Status})
	writeData(w, http.StatusOK, message, period)
}

// UpdateEntry applies bonuses and deductions to a draft entry.
func (h *PayrollHandler) UpdateEntry(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req entryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := h.payroll.UpdateEntry(r.Context(), id, service.AdjustEntryRequest{
		Bonuses:    req.Bonuses,
		Deductions: req.Deductions,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.audit(r, "payroll.entry.update", "payroll_entry", id, map[string]any{
		"bonuses":    entry.Bonuses,
		"deductions": entry.Deductions,
		"total_pay":  entry.TotalPay,
	})
	writeData(w, http.StatusOK, "Payroll entry updated", entry)
}

// GeneratePayslip snapshots an entry into a payslip.
func (h *PayrollHandler) GeneratePayslip(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	slip, err := h.payroll.GeneratePayslip(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Payslip generated", slip)
}

// MyPayslips returns the caller's payslips.
func (h *PayrollHandler) MyPayslips(w http.ResponseWriter, r *http.Request) {
	slips, err := h.store.ListPayslipsByUser(r.Context(), claimsOf(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Payslips fetched successfully", slips)
}

// GetPayslip returns a payslip to its owner or an admin.
func (h *PayrollHandler) GetPayslip(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	slip, err := h.store.GetPayslip(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, errPayslipNotFound))
		return
	}
	c := claimsOf(r)
	if c.Role != enum.UserRoleAdmin {
		entry, err := h.store.GetPayrollEntry(r.Context(), slip.EntryID)
		if err != nil {
			writeError(w, r, mapNotFound(err, service.ErrEntryNotFound))
			return
		}
		if entry.UserID != c.UserID {
			writeError(w, r, errForbidden)
			return
		}
	}
	writeData(w, http.StatusOK, "Payslip fetched successfully", slip)
}

func (h *PayrollHandler) audit(r *http.Request, action, targetType string, id uuid.UUID, after any) {
	h.auditor.Record(r.Context(), service.AuditEntry{
		ActorID:    actorOf(r),
		Action:     action,
		TargetType: targetType,
		TargetID:   id.String(),
		After:      after,
	})
}
