package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Compensation ---

const staffCompensationColumns = `id, user_id, pay_type, hourly_rate, overtime_rate, monthly_salary,
	bonus_per_order, active, created_at, updated_at`

func scanStaffCompensation(row rowScanner) (StaffCompensation, error) {
	var i StaffCompensation
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.PayType,
		&i.HourlyRate,
		&i.OvertimeRate,
		&i.MonthlySalary,
		&i.BonusPerOrder,
		&i.Active,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const getCompensationByUser = `SELECT ` + staffCompensationColumns + ` FROM staff_compensations WHERE user_id = $1`

func (q *Queries) GetCompensationByUser(ctx context.Context, userID uuid.UUID) (StaffCompensation, error) {
	return scanStaffCompensation(q.db.QueryRow(ctx, getCompensationByUser, userID))
}

const upsertCompensation = `INSERT INTO staff_compensations
	(user_id, pay_type, hourly_rate, overtime_rate, monthly_salary, bonus_per_order, active)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id) DO UPDATE
SET pay_type = EXCLUDED.pay_type,
    hourly_rate = EXCLUDED.hourly_rate,
    overtime_rate = EXCLUDED.overtime_rate,
    monthly_salary = EXCLUDED.monthly_salary,
    bonus_per_order = EXCLUDED.bonus_per_order,
    active = EXCLUDED.active,
    updated_at = now()
RETURNING ` + staffCompensationColumns

type UpsertCompensationParams struct {
	UserID        uuid.UUID
	PayType       string
	HourlyRate    decimal.Decimal
	OvertimeRate  decimal.Decimal
	MonthlySalary decimal.Decimal
	BonusPerOrder decimal.Decimal
	Active        bool
}

func (q *Queries) UpsertCompensation(ctx context.Context, arg UpsertCompensationParams) (StaffCompensation, error) {
	row := q.db.QueryRow(ctx, upsertCompensation,
		arg.UserID,
		arg.PayType,
		arg.HourlyRate,
		arg.OvertimeRate,
		arg.MonthlySalary,
		arg.BonusPerOrder,
		arg.Active,
	)
	return scanStaffCompensation(row)
}

const listActiveCompensations = `SELECT ` + staffCompensationColumns + ` FROM staff_compensations WHERE active ORDER BY created_at`

func (q *Queries) ListActiveCompensations(ctx context.Context) ([]StaffCompensation, error) {
	rows, err := q.db.Query(ctx, listActiveCompensations)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanStaffCompensation)
}

// --- Attendance ---

const attendanceColumns = `id, user_id, clock_in_at, clock_out_at, source, status, notes, created_at, updated_at`

func scanAttendance(row rowScanner) (Attendance, error) {
	var i Attendance
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.ClockInAt,
		&i.ClockOutAt,
		&i.Source,
		&i.Status,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createAttendance = `INSERT INTO attendance (user_id, clock_in_at, source, status, notes)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + attendanceColumns

type CreateAttendanceParams struct {
	UserID    uuid.UUID
	ClockInAt time.Time
	Source    string
	Status    string
	Notes     *string
}

// CreateAttendance fails with a unique violation on attendance_open_key
// while the user still has an open record.
func (q *Queries) CreateAttendance(ctx context.Context, arg CreateAttendanceParams) (Attendance, error) {
	row := q.db.QueryRow(ctx, createAttendance, arg.UserID, arg.ClockInAt, arg.Source, arg.Status, arg.Notes)
	return scanAttendance(row)
}

const closeOpenAttendance = `UPDATE attendance SET clock_out_at = $2, updated_at = now()
WHERE user_id = $1 AND clock_out_at IS NULL
RETURNING ` + attendanceColumns

func (q *Queries) CloseOpenAttendance(ctx context.Context, userID uuid.UUID, at time.Time) (Attendance, error) {
	return scanAttendance(q.db.QueryRow(ctx, closeOpenAttendance, userID, at))
}

const getAttendance = `SELECT ` + attendanceColumns + ` FROM attendance WHERE id = $1`

func (q *Queries) GetAttendance(ctx context.Context, id uuid.UUID) (Attendance, error) {
	return scanAttendance(q.db.QueryRow(ctx, getAttendance, id))
}

const updateAttendance = `UPDATE attendance
SET clock_in_at = $2, clock_out_at = $3, status = $4, notes = $5, updated_at = now()
WHERE id = $1
RETURNING ` + attendanceColumns

type UpdateAttendanceParams struct {
	ID         uuid.UUID
	ClockInAt  time.Time
	ClockOutAt *time.Time
	Status     string
	Notes      *string
}

func (q *Queries) UpdateAttendance(ctx context.Context, arg UpdateAttendanceParams) (Attendance, error) {
	row := q.db.QueryRow(ctx, updateAttendance, arg.ID, arg.ClockInAt, arg.ClockOutAt, arg.Status, arg.Notes)
	return scanAttendance(row)
}

type AttendanceFilter struct {
	UserID *uuid.UUID
	Status *string
	From   *time.Time
	To     *time.Time
}

const listAttendance = `SELECT ` + attendanceColumns + ` FROM attendance
WHERE ($1::uuid IS NULL OR user_id = $1)
  AND ($2::text IS NULL OR status = $2)
  AND ($3::timestamptz IS NULL OR clock_in_at >= $3)
  AND ($4::timestamptz IS NULL OR clock_in_at <= $4)
ORDER BY clock_in_at DESC
LIMIT $5 OFFSET $6`

func (q *Queries) ListAttendance(ctx context.Context, f AttendanceFilter, limit, offset int32) ([]Attendance, error) {
	rows, err := q.db.Query(ctx, listAttendance, f.UserID, f.Status, f.From, f.To, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAttendance)
}

const countAttendance = `SELECT count(*) FROM attendance
WHERE ($1::uuid IS NULL OR user_id = $1)
  AND ($2::text IS NULL OR status = $2)
  AND ($3::timestamptz IS NULL OR clock_in_at >= $3)
  AND ($4::timestamptz IS NULL OR clock_in_at <= $4)`

func (q *Queries) CountAttendance(ctx context.Context, f AttendanceFilter) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countAttendance, f.UserID, f.Status, f.From, f.To).Scan(&n)
	return n, err
}

const listAttendanceInRange = `SELECT ` + attendanceColumns + ` FROM attendance
WHERE user_id = $1 AND clock_in_at >= $2 AND clock_in_at <= $3
ORDER BY clock_in_at`

// ListAttendanceInRange returns rows whose clock-in falls inside [start, end].
func (q *Queries) ListAttendanceInRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]Attendance, error) {
	rows, err := q.db.Query(ctx, listAttendanceInRange, userID, start, end)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanAttendance)
}
