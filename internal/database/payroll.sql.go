package database

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- Periods ---

const payrollPeriodColumns = `id, start_date, end_date, status, finalized_at, paid_at, created_by, created_at, updated_at`

func scanPayrollPeriod(row rowScanner) (PayrollPeriod, error) {
	var i PayrollPeriod
	err := row.Scan(
		&i.ID,
		&i.StartDate,
		&i.EndDate,
		&i.Status,
		&i.FinalizedAt,
		&i.PaidAt,
		&i.CreatedBy,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createPayrollPeriod = `INSERT INTO payroll_periods (start_date, end_date, created_by)
VALUES ($1, $2, $3)
RETURNING ` + payrollPeriodColumns

func (q *Queries) CreatePayrollPeriod(ctx context.Context, start, end time.Time, createdBy *uuid.UUID) (PayrollPeriod, error) {
	return scanPayrollPeriod(q.db.QueryRow(ctx, createPayrollPeriod, start, end, createdBy))
}

const getPayrollPeriod = `SELECT ` + payrollPeriodColumns + ` FROM payroll_periods WHERE id = $1`

func (q *Queries) GetPayrollPeriod(ctx context.Context, id uuid.UUID) (PayrollPeriod, error) {
	return scanPayrollPeriod(q.db.QueryRow(ctx, getPayrollPeriod, id))
}

const getPayrollPeriodForUpdate = `SELECT ` + payrollPeriodColumns + ` FROM payroll_periods WHERE id = $1 FOR UPDATE`

func (q *Queries) GetPayrollPeriodForUpdate(ctx context.Context, id uuid.UUID) (PayrollPeriod, error) {
	return scanPayrollPeriod(q.db.QueryRow(ctx, getPayrollPeriodForUpdate, id))
}

const listPayrollPeriods = `SELECT ` + payrollPeriodColumns + ` FROM payroll_periods
WHERE ($1::text IS NULL OR status = $1)
ORDER BY start_date DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListPayrollPeriods(ctx context.Context, status *string, limit, offset int32) ([]PayrollPeriod, error) {
	rows, err := q.db.Query(ctx, listPayrollPeriods, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPayrollPeriod)
}

const countPayrollPeriods = `SELECT count(*) FROM payroll_periods WHERE ($1::text IS NULL OR status = $1)`

func (q *Queries) CountPayrollPeriods(ctx context.Context, status *string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countPayrollPeriods, status).Scan(&n)
	return n, err
}

const transitionPayrollPeriod = `UPDATE payroll_periods
SET status = $3,
    finalized_at = CASE WHEN $3 = 'finalized' THEN now() ELSE finalized_at END,
    paid_at = CASE WHEN $3 = 'paid' THEN now() ELSE paid_at END,
    updated_at = now()
WHERE id = $1 AND status = $2
RETURNING ` + payrollPeriodColumns

// TransitionPayrollPeriod moves a period from one status to the next in a
// single statement. It returns pgx.ErrNoRows when the period is missing or
// not in the from status.
func (q *Queries) TransitionPayrollPeriod(ctx context.Context, id uuid.UUID, from, to string) (PayrollPeriod, error) {
	return scanPayrollPeriod(q.db.QueryRow(ctx, transitionPayrollPeriod, id, from, to))
}

// --- Entries ---

const payrollEntryColumns = `id, period_id, user_id, base_hours, overtime_hours, hourly_rate, overtime_rate,
	bonuses, deductions, total_pay, attendance_count, late_count, created_at, updated_at`

func scanPayrollEntry(row rowScanner) (PayrollEntry, error) {
	var i PayrollEntry
	err := row.Scan(
		&i.ID,
		&i.PeriodID,
		&i.UserID,
		&i.BaseHours,
		&i.OvertimeHours,
		&i.HourlyRate,
		&i.OvertimeRate,
		&i.Bonuses,
		&i.Deductions,
		&i.TotalPay,
		&i.AttendanceCount,
		&i.LateCount,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const upsertPayrollEntry = `INSERT INTO payroll_entries
	(period_id, user_id, base_hours, overtime_hours, hourly_rate, overtime_rate, bonuses, deductions,
	 total_pay, attendance_count, late_count)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
ON CONFLICT ON CONSTRAINT payroll_entries_period_user_key DO UPDATE
SET base_hours = EXCLUDED.base_hours,
    overtime_hours = EXCLUDED.overtime_hours,
    hourly_rate = EXCLUDED.hourly_rate,
    overtime_rate = EXCLUDED.overtime_rate,
    bonuses = EXCLUDED.bonuses,
    deductions = EXCLUDED.deductions,
    total_pay = EXCLUDED.total_pay,
    attendance_count = EXCLUDED.attendance_count,
    late_count = EXCLUDED.late_count,
    updated_at = now()
RETURNING ` + payrollEntryColumns

type UpsertPayrollEntryParams struct {
	PeriodID        uuid.UUID
	UserID          uuid.UUID
	BaseHours       decimal.Decimal
	OvertimeHours   decimal.Decimal
	HourlyRate      decimal.Decimal
	OvertimeRate    decimal.Decimal
	Bonuses         decimal.Decimal
	Deductions      decimal.Decimal
	TotalPay        decimal.Decimal
	AttendanceCount int32
	LateCount       int32
}

func (q *Queries) UpsertPayrollEntry(ctx context.Context, arg UpsertPayrollEntryParams) (PayrollEntry, error) {
	row := q.db.QueryRow(ctx, upsertPayrollEntry,
		arg.PeriodID,
		arg.UserID,
		arg.BaseHours,
		arg.OvertimeHours,
		arg.HourlyRate,
		arg.OvertimeRate,
		arg.Bonuses,
		arg.Deductions,
		arg.TotalPay,
		arg.AttendanceCount,
		arg.LateCount,
	)
	return scanPayrollEntry(row)
}

const getPayrollEntry = `SELECT ` + payrollEntryColumns + ` FROM payroll_entries WHERE id = $1`

func (q *Queries) GetPayrollEntry(ctx context.Context, id uuid.UUID) (PayrollEntry, error) {
	return scanPayrollEntry(q.db.QueryRow(ctx, getPayrollEntry, id))
}

const listPayrollEntries = `SELECT ` + payrollEntryColumns + ` FROM payroll_entries WHERE period_id = $1 ORDER BY created_at`

func (q *Queries) ListPayrollEntries(ctx context.Context, periodID uuid.UUID) ([]PayrollEntry, error) {
	rows, err := q.db.Query(ctx, listPayrollEntries, periodID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPayrollEntry)
}

const updatePayrollEntryAdjustments = `UPDATE payroll_entries
SET bonuses = $2, deductions = $3, total_pay = $4, updated_at = now()
WHERE id = $1
RETURNING ` + payrollEntryColumns

type UpdatePayrollEntryAdjustmentsParams struct {
	ID         uuid.UUID
	Bonuses    decimal.Decimal
	Deductions decimal.Decimal
	TotalPay   decimal.Decimal
}

func (q *Queries) UpdatePayrollEntryAdjustments(ctx context.Context, arg UpdatePayrollEntryAdjustmentsParams) (PayrollEntry, error) {
	row := q.db.QueryRow(ctx, updatePayrollEntryAdjustments, arg.ID, arg.Bonuses, arg.Deductions, arg.TotalPay)
	return scanPayrollEntry(row)
}

// --- Payslips ---

const payslipColumns = `id, entry_id, data, generated_at, created_at`

func scanPayslip(row rowScanner) (Payslip, error) {
	var i Payslip
	err := row.Scan(&i.ID, &i.EntryID, &i.Data, &i.GeneratedAt, &i.CreatedAt)
	return i, err
}

const upsertPayslip = `INSERT INTO payslips (entry_id, data, generated_at)
VALUES ($1, $2, $3)
ON CONFLICT (entry_id) DO UPDATE SET data = EXCLUDED.data, generated_at = EXCLUDED.generated_at
RETURNING ` + payslipColumns

func (q *Queries) UpsertPayslip(ctx context.Context, entryID uuid.UUID, data json.RawMessage, generatedAt time.Time) (Payslip, error) {
	return scanPayslip(q.db.QueryRow(ctx, upsertPayslip, entryID, data, generatedAt))
}

const getPayslip = `SELECT ` + payslipColumns + ` FROM payslips WHERE id = $1`

func (q *Queries) GetPayslip(ctx context.Context, id uuid.UUID) (Payslip, error) {
	return scanPayslip(q.db.QueryRow(ctx, getPayslip, id))
}

const listPayslipsByUser = `SELECT p.id, p.entry_id, p.data, p.generated_at, p.created_at
FROM payslips p
JOIN payroll_entries e ON e.id = p.entry_id
WHERE e.user_id = $1
ORDER BY p.generated_at DESC`

func (q *Queries) ListPayslipsByUser(ctx context.Context, userID uuid.UUID) ([]Payslip, error) {
	rows, err := q.db.Query(ctx, listPayslipsByUser, userID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPayslip)
}
