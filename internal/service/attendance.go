package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
)

// AttendanceStore defines the DB methods needed for clocking in and out.
// Satisfied by *database.Queries.
type AttendanceStore interface {
	CreateAttendance(ctx context.Context, arg database.CreateAttendanceParams) (database.Attendance, error)
	CloseOpenAttendance(ctx context.Context, userID uuid.UUID, at time.Time) (database.Attendance, error)
	GetAttendance(ctx context.Context, id uuid.UUID) (database.Attendance, error)
	UpdateAttendance(ctx context.Context, arg database.UpdateAttendanceParams) (database.Attendance, error)
}

// AttendanceService records staff clock-ins and clock-outs.
type AttendanceService struct {
	store AttendanceStore
	now   func() time.Time
}

// NewAttendanceService creates a new AttendanceService.
func NewAttendanceService(store AttendanceStore) *AttendanceService {
	return &AttendanceService{store: store, now: time.Now}
}

// ClockInRequest describes a clock-in. Empty fields take defaults.
type ClockInRequest struct {
	Source string
	Status string
	Notes  string
}

// ClockIn opens an attendance record. A user has at most one open record.
func (s *AttendanceService) ClockIn(ctx context.Context, userID uuid.UUID, req ClockInRequest) (*database.Attendance, error) {
	source := req.Source
	if source == "" {
		source = enum.AttendanceSourceApp
	}
	if source != enum.AttendanceSourceApp && source != enum.AttendanceSourceQR {
		return nil, ErrInvalidAttendSource
	}
	status := req.Status
	if status == "" {
		status = enum.AttendancePresent
	}
	if !isAttendanceStatus(status) {
		return nil, ErrInvalidAttendStatus
	}

	a, err := s.store.CreateAttendance(ctx, database.CreateAttendanceParams{
		UserID:    userID,
		ClockInAt: s.now(),
		Source:    source,
		Status:    status,
		Notes:     strPtr(req.Notes),
	})
	if err != nil {
		if database.IsUniqueViolation(err, "attendance_open_key") {
			return nil, ErrAlreadyClockedIn
		}
		return nil, fmt.Errorf("create attendance: %w", err)
	}
	return &a, nil
}

// ClockOut closes the user's open record.
func (s *AttendanceService) ClockOut(ctx context.Context, userID uuid.UUID) (*database.Attendance, error) {
	a, err := s.store.CloseOpenAttendance(ctx, userID, s.now())
	if err != nil {
		return nil, notFound(err, ErrNoActiveClockIn, "close attendance")
	}
	return &a, nil
}

// UpdateAttendanceRequest is an admin correction. Nil fields keep their value.
type UpdateAttendanceRequest struct {
	ClockInAt  *time.Time
	ClockOutAt *time.Time
	Status     *string
	Notes      *string
}

// Update corrects a record. Clock-out must not precede clock-in.
func (s *AttendanceService) Update(ctx context.Context, id uuid.UUID, req UpdateAttendanceRequest) (*database.Attendance, error) {
	current, err := s.store.GetAttendance(ctx, id)
	if err != nil {
		return nil, notFound(err, ErrAttendanceNotFound, "get attendance")
	}

	arg := database.UpdateAttendanceParams{
		ID:         id,
		ClockInAt:  current.ClockInAt,
		ClockOutAt: current.ClockOutAt,
		Status:     current.Status,
		Notes:      current.Notes,
	}
	if req.ClockInAt != nil {
		arg.ClockInAt = *req.ClockInAt
	}
	if req.ClockOutAt != nil {
		arg.ClockOutAt = req.ClockOutAt
	}
	if req.Status != nil {
		if !isAttendanceStatus(*req.Status) {
			return nil, ErrInvalidAttendStatus
		}
		arg.Status = *req.Status
	}
	if req.Notes != nil {
		arg.Notes = req.Notes
	}
	if arg.ClockOutAt != nil && arg.ClockOutAt.Before(arg.ClockInAt) {
		return nil, ErrInvalidClockRange
	}

	a, err := s.store.UpdateAttendance(ctx, arg)
	if err != nil {
		return nil, notFound(err, ErrAttendanceNotFound, "update attendance")
	}
	return &a, nil
}

func isAttendanceStatus(s string) bool {
	switch s {
	case enum.AttendancePresent, enum.AttendanceLate, enum.AttendanceAbsent:
		return true
	}
	return false
}
