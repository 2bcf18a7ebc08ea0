package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	"github.com/relux-laundry/api/internal/handler"
	"github.com/relux-laundry/api/internal/middleware"
	"github.com/relux-laundry/api/internal/service"
)

// --- Mock Attendance + AttendanceStore ---

type mockAttendance struct {
	records    map[uuid.UUID]database.Attendance
	lastFilter database.AttendanceFilter
}

func newMockAttendance() *mockAttendance {
	return &mockAttendance{records: make(map[uuid.UUID]database.Attendance)}
}

func (m *mockAttendance) open(userID uuid.UUID) *database.Attendance {
	for _, a := range m.records {
		if a.UserID == userID && a.ClockOutAt == nil {
			return &a
		}
	}
	return nil
}

func (m *mockAttendance) ClockIn(_ context.Context, userID uuid.UUID, req service.ClockInRequest) (*database.Attendance, error) {
	if m.open(userID) != nil {
		return nil, service.ErrAlreadyClockedIn
	}
	source := req.Source
	if source == "" {
		source = enum.AttendanceSourceApp
	}
	a := database.Attendance{ID: uuid.New(), UserID: userID, ClockInAt: time.Now(), Source: source, Status: enum.AttendancePresent}
	m.records[a.ID] = a
	return &a, nil
}

func (m *mockAttendance) ClockOut(_ context.Context, userID uuid.UUID) (*database.Attendance, error) {
	a := m.open(userID)
	if a == nil {
		return nil, service.ErrNoActiveClockIn
	}
	now := time.Now()
	a.ClockOutAt = &now
	m.records[a.ID] = *a
	return a, nil
}

func (m *mockAttendance) Update(_ context.Context, id uuid.UUID, req service.UpdateAttendanceRequest) (*database.Attendance, error) {
	a, ok := m.records[id]
	if !ok {
		return nil, service.ErrAttendanceNotFound
	}
	if req.Status != nil {
		a.Status = *req.Status
	}
	m.records[id] = a
	return &a, nil
}

func (m *mockAttendance) ListAttendance(_ context.Context, f database.AttendanceFilter, _, _ int32) ([]database.Attendance, error) {
	m.lastFilter = f
	var out []database.Attendance
	for _, a := range m.records {
		if f.UserID != nil && a.UserID != *f.UserID {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockAttendance) CountAttendance(ctx context.Context, f database.AttendanceFilter) (int64, error) {
	out, _ := m.ListAttendance(ctx, f, 0, 0)
	return int64(len(out)), nil
}

func setupAttendanceRouter(m *mockAttendance, audit *captureAudit) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testTokens))
	r.Route("/attendance", handler.NewAttendanceHandler(m, m, service.NewAuditor(audit, zap.NewNop())).RegisterRoutes)
	return r
}

// --- Tests ---

func TestAttendance_ClockInOut(t *testing.T) {
	m := newMockAttendance()
	router := setupAttendanceRouter(m, &captureAudit{})
	staff := staffClaims()

	rr := doAuthRequest(t, router, "POST", "/attendance/clock-out", nil, staff)
	expectError(t, rr, http.StatusBadRequest, "No active clock-in found")

	rr = doAuthRequest(t, router, "POST", "/attendance/clock-in", nil, staff)
	if rr.Code != http.StatusCreated {
		t.Fatalf("clock-in status: got %d (body: %s)", rr.Code, rr.Body.String())
	}
	if got := dataOf(t, decodeResponse(t, rr))["source"]; got != enum.AttendanceSourceApp {
		t.Errorf("source: got %v", got)
	}

	rr = doAuthRequest(t, router, "POST", "/attendance/clock-in", map[string]string{"source": "qr"}, staff)
	expectError(t, rr, http.StatusBadRequest, "You are already clocked in. Please clock out first.")

	rr = doAuthRequest(t, router, "POST", "/attendance/clock-out", nil, staff)
	if rr.Code != http.StatusOK {
		t.Fatalf("clock-out status: got %d (body: %s)", rr.Code, rr.Body.String())
	}
	if dataOf(t, decodeResponse(t, rr))["clock_out_at"] == nil {
		t.Errorf("clock_out_at not set")
	}
}

func TestAttendance_CustomerForbidden(t *testing.T) {
	router := setupAttendanceRouter(newMockAttendance(), &captureAudit{})
	rr := doAuthRequest(t, router, "POST", "/attendance/clock-in", nil, customerClaims(uuid.New()))
	expectError(t, rr, http.StatusForbidden, "User role 'customer' is not authorized to access this route")
}

func TestAttendance_MineIsScopedToCaller(t *testing.T) {
	m := newMockAttendance()
	staff := staffClaims()
	m.ClockIn(context.Background(), staff.UserID, service.ClockInRequest{})
	m.ClockIn(context.Background(), uuid.New(), service.ClockInRequest{})
	router := setupAttendanceRouter(m, &captureAudit{})

	rr := doAuthRequest(t, router, "GET", "/attendance/me", nil, staff)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body: %s)", rr.Code, rr.Body.String())
	}
	if got := decodeResponse(t, rr)["pagination"].(map[string]interface{})["total"]; got.(float64) != 1 {
		t.Errorf("total: got %v, want 1", got)
	}
	if m.lastFilter.UserID == nil || *m.lastFilter.UserID != staff.UserID {
		t.Errorf("user filter: got %v", m.lastFilter.UserID)
	}
}

func TestAttendance_ListFilters(t *testing.T) {
	m := newMockAttendance()
	router := setupAttendanceRouter(m, &captureAudit{})

	rr := doAuthRequest(t, router, "GET", "/attendance?from=2026-09-01&to=2026-09-30T23:59:59Z&status=late", nil, managerClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body: %s)", rr.Code, rr.Body.String())
	}
	f := m.lastFilter
	if f.From == nil || !f.From.Equal(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("from: got %v", f.From)
	}
	if f.To == nil || f.Status == nil || *f.Status != enum.AttendanceLate {
		t.Errorf("filter: got %+v", f)
	}

	rr = doAuthRequest(t, router, "GET", "/attendance?from=yesterday", nil, managerClaims())
	expectError(t, rr, http.StatusBadRequest, "Invalid from")

	rr = doAuthRequest(t, router, "GET", "/attendance", nil, staffClaims())
	expectError(t, rr, http.StatusForbidden, "")
}

func TestAttendance_UpdateAudited(t *testing.T) {
	m := newMockAttendance()
	a, _ := m.ClockIn(context.Background(), uuid.New(), service.ClockInRequest{})
	audit := &captureAudit{}
	router := setupAttendanceRouter(m, audit)

	rr := doAuthRequest(t, router, "PUT", "/attendance/"+a.ID.String(), map[string]string{"status": enum.AttendanceLate}, managerClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body: %s)", rr.Code, rr.Body.String())
	}
	if m.records[a.ID].Status != enum.AttendanceLate {
		t.Errorf("status not updated")
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != "attendance.update" {
		t.Errorf("audit: got %+v", audit.entries)
	}

	rr = doAuthRequest(t, router, "PUT", "/attendance/"+uuid.NewString(), map[string]string{"status": enum.AttendanceLate}, managerClaims())
	expectError(t, rr, http.StatusNotFound, "Attendance record not found")
}
