package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relux-laundry/api/internal/enum"
)

func newAttendanceService(h *harness) *AttendanceService {
	svc := NewAttendanceService(h.store)
	svc.now = func() time.Time { return h.store.now }
	return svc
}

func TestClockInOut(t *testing.T) {
	h := newHarness()
	staff := h.store.addUser(enum.UserRoleStaff)
	svc := newAttendanceService(h)
	ctx := context.Background()

	in, err := svc.ClockIn(ctx, staff.ID, ClockInRequest{})
	require.NoError(t, err)
	assert.Equal(t, enum.AttendanceSourceApp, in.Source)
	assert.Equal(t, enum.AttendancePresent, in.Status)
	assert.Nil(t, in.ClockOutAt)

	_, err = svc.ClockIn(ctx, staff.ID, ClockInRequest{Source: enum.AttendanceSourceQR})
	assert.ErrorIs(t, err, ErrAlreadyClockedIn)
	assert.Equal(t, "You are already clocked in. Please clock out first.", err.Error())

	h.store.now = h.store.now.Add(8 * time.Hour)
	out, err := svc.ClockOut(ctx, staff.ID)
	require.NoError(t, err)
	require.NotNil(t, out.ClockOutAt)
	assert.Equal(t, 8*time.Hour, out.ClockOutAt.Sub(out.ClockInAt))

	_, err = svc.ClockOut(ctx, staff.ID)
	assert.ErrorIs(t, err, ErrNoActiveClockIn)

	_, err = svc.ClockIn(ctx, staff.ID, ClockInRequest{Status: enum.AttendanceLate, Notes: "traffic"})
	assert.NoError(t, err)
}

func TestClockIn_Validation(t *testing.T) {
	h := newHarness()
	svc := newAttendanceService(h)

	_, err := svc.ClockIn(context.Background(), uuid.New(), ClockInRequest{Source: "fingerprint"})
	assert.ErrorIs(t, err, ErrInvalidAttendSource)

	_, err = svc.ClockIn(context.Background(), uuid.New(), ClockInRequest{Status: "sick"})
	assert.ErrorIs(t, err, ErrInvalidAttendStatus)
}

func TestUpdateAttendance(t *testing.T) {
	h := newHarness()
	staff := h.store.addUser(enum.UserRoleStaff)
	svc := newAttendanceService(h)
	ctx := context.Background()

	a, err := svc.ClockIn(ctx, staff.ID, ClockInRequest{})
	require.NoError(t, err)

	before := a.ClockInAt.Add(-time.Hour)
	_, err = svc.Update(ctx, a.ID, UpdateAttendanceRequest{ClockOutAt: &before})
	assert.ErrorIs(t, err, ErrInvalidClockRange)

	after := a.ClockInAt.Add(9 * time.Hour)
	late := enum.AttendanceLate
	got, err := svc.Update(ctx, a.ID, UpdateAttendanceRequest{ClockOutAt: &after, Status: &late})
	require.NoError(t, err)
	assert.Equal(t, enum.AttendanceLate, got.Status)
	assert.Equal(t, after, *got.ClockOutAt)

	_, err = svc.Update(ctx, uuid.New(), UpdateAttendanceRequest{})
	assert.ErrorIs(t, err, ErrAttendanceNotFound)
}
