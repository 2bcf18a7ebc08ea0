package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	mw "github.com/relux-laundry/api/internal/middleware"
	"github.com/relux-laundry/api/internal/service"
)

// Attendance records clock-ins and corrections.
// Satisfied by *service.AttendanceService.
type Attendance interface {
	ClockIn(ctx context.Context, userID uuid.UUID, req service.ClockInRequest) (*database.Attendance, error)
	ClockOut(ctx context.Context, userID uuid.UUID) (*database.Attendance, error)
	Update(ctx context.Context, id uuid.UUID, req service.UpdateAttendanceRequest) (*database.Attendance, error)
}

// AttendanceStore defines the read-side database methods for attendance.
// Satisfied by *database.Queries; narrow interface for testability.
type AttendanceStore interface {
	ListAttendance(ctx context.Context, f database.AttendanceFilter, limit, offset int32) ([]database.Attendance, error)
	CountAttendance(ctx context.Context, f database.AttendanceFilter) (int64, error)
}

// AttendanceHandler handles staff attendance endpoints.
type AttendanceHandler struct {
	attendance Attendance
	store      AttendanceStore
	auditor    *service.Auditor
}

// NewAttendanceHandler creates a new AttendanceHandler.
func NewAttendanceHandler(attendance Attendance, store AttendanceStore, auditor *service.Auditor) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, store: store, auditor: auditor}
}

// RegisterRoutes registers attendance endpoints on the given Chi router.
func (h *AttendanceHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(staffRoles...))
		r.Post("/clock-in", h.ClockIn)
		r.Post("/clock-out", h.ClockOut)
		r.Get("/me", h.Mine)
	})

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(managerRoles...))
		r.Get("/", h.List)
		r.Get("/user/{userId}", h.ForUser)
		r.Put("/{id}", h.Update)
	})
}

type clockInRequest struct {
	Source string `json:"source"`
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

type updateAttendanceRequest struct {
	ClockInAt  *time.Time `json:"clock_in_at"`
	ClockOutAt *time.Time `json:"clock_out_at"`
	Status     *string    `json:"status"`
	Notes      *string    `json:"notes"`
}

// ClockIn opens an attendance record for the caller.
func (h *AttendanceHandler) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req clockInRequest
	if r.ContentLength != 0 {
		if err := decode(r, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	a, err := h.attendance.ClockIn(r.Context(), claimsOf(r).UserID, service.ClockInRequest{
		Source: req.Source,
		Status: req.Status,
		Notes:  req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Clocked in", a)
}

// ClockOut closes the caller's open record.
func (h *AttendanceHandler) ClockOut(w http.ResponseWriter, r *http.Request) {
	a, err := h.attendance.ClockOut(r.Context(), claimsOf(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Clocked out", a)
}

// Mine returns the caller's attendance history.
func (h *AttendanceHandler) Mine(w http.ResponseWriter, r *http.Request) {
	id := claimsOf(r).UserID
	h.list(w, r, &id)
}

// List returns attendance across staff, optionally filtered by user.
func (h *AttendanceHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := queryID(r, "user_id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.list(w, r, userID)
}

// ForUser returns one staff member's attendance.
func (h *AttendanceHandler) ForUser(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "userId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.list(w, r, &id)
}

// Update corrects an attendance record.
func (h *AttendanceHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req updateAttendanceRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	a, err := h.attendance.Update(r.Context(), id, service.UpdateAttendanceRequest{
		ClockInAt:  req.ClockInAt,
		ClockOutAt: req.ClockOutAt,
		Status:     req.Status,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.auditor.Record(r.Context(), service.AuditEntry{
		ActorID:    actorOf(r),
		Action:     "attendance.update",
		TargetType: "attendance",
		TargetID:   id.String(),
		After:      a,
	})
	writeData(w, http.StatusOK, "Attendance updated", a)
}

func (h *AttendanceHandler) list(w http.ResponseWriter, r *http.Request, userID *uuid.UUID) {
	f := database.AttendanceFilter{UserID: userID, Status: queryStr(r, "status")}
	var err error
	if f.From, err = queryTime(r, "from"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.To, err = queryTime(r, "to"); err != nil {
		writeError(w, r, err)
		return
	}

	p := parsePage(r, LedgerLimit)
	limit, offset := p.args()
	rows, err := h.store.ListAttendance(r.Context(), f, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountAttendance(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, "Attendance records fetched successfully", rows, p, total)
}

// queryTime accepts RFC 3339 timestamps or plain dates.
func queryTime(r *http.Request, key string) (*time.Time, error) {
	v := queryStr(r, key)
	if v == nil {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, *v); err == nil {
			return &t, nil
		}
	}
	return nil, apperr.Validation(fmt.Sprintf("Invalid %s", key))
}
