package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	"github.com/relux-laundry/api/internal/pricing"
)

// PayrollStore defines the DB methods needed by the payroll engine.
// Satisfied by *database.Queries.
type PayrollStore interface {
	CreatePayrollPeriod(ctx context.Context, start, end time.Time, createdBy *uuid.UUID) (database.PayrollPeriod, error)
	GetPayrollPeriod(ctx context.Context, id uuid.UUID) (database.PayrollPeriod, error)
	GetPayrollPeriodForUpdate(ctx context.Context, id uuid.UUID) (database.PayrollPeriod, error)
	TransitionPayrollPeriod(ctx context.Context, id uuid.UUID, from, to string) (database.PayrollPeriod, error)
	ListActiveCompensations(ctx context.Context) ([]database.StaffCompensation, error)
	ListAttendanceInRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]database.Attendance, error)
	ListPayrollEntries(ctx context.Context, periodID uuid.UUID) ([]database.PayrollEntry, error)
	UpsertPayrollEntry(ctx context.Context, arg database.UpsertPayrollEntryParams) (database.PayrollEntry, error)
	GetPayrollEntry(ctx context.Context, id uuid.UUID) (database.PayrollEntry, error)
	UpdatePayrollEntryAdjustments(ctx context.Context, arg database.UpdatePayrollEntryAdjustmentsParams) (database.PayrollEntry, error)
	UpsertPayslip(ctx context.Context, entryID uuid.UUID, data json.RawMessage, generatedAt time.Time) (database.Payslip, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
}

// NewPayrollStore creates a PayrollStore from a DBTX (pool or tx).
type NewPayrollStore func(db database.DBTX) PayrollStore

// PayrollService turns attendance into payroll entries and payslips.
type PayrollService struct {
	pool     TxBeginner
	newStore NewPayrollStore
	settings SettingsProvider
	now      func() time.Time
}

// NewPayrollService creates a new PayrollService.
func NewPayrollService(pool TxBeginner, newStore NewPayrollStore, settings SettingsProvider) *PayrollService {
	return &PayrollService{pool: pool, newStore: newStore, settings: settings, now: time.Now}
}

// CreatePeriod opens a draft period.
func (s *PayrollService) CreatePeriod(ctx context.Context, start, end time.Time, actorID *uuid.UUID) (*database.PayrollPeriod, error) {
	if !end.After(start) {
		return nil, ErrInvalidPeriodRange
	}
	var period database.PayrollPeriod
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		period, err = s.newStore(tx).CreatePayrollPeriod(ctx, start, end, actorID)
		if err != nil {
			return fmt.Errorf("create payroll period: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &period, nil
}

// WorkedHours sums clock-in to clock-out durations of closed rows, each
// rounded to two decimals, and counts late rows.
func WorkedHours(rows []database.Attendance) (hours decimal.Decimal, closed, late int32) {
	hours = decimal.Zero
	for _, a := range rows {
		if a.Status == enum.AttendanceLate {
			late++
		}
		if a.ClockOutAt == nil {
			continue
		}
		ms := a.ClockOutAt.Sub(a.ClockInAt).Milliseconds()
		h := pricing.Round2(decimal.NewFromInt(ms).Div(decimal.NewFromInt(3600000)))
		hours = hours.Add(h)
		closed++
	}
	return hours, closed, late
}

// SplitHours splits total into regular hours up to threshold and overtime
// above it.
func SplitHours(total, threshold decimal.Decimal) (regular, overtime decimal.Decimal) {
	overtime = decimal.Max(decimal.Zero, total.Sub(threshold))
	return total.Sub(overtime), overtime
}

// BasePay is regular*hourly + overtime*overtimeRate for hourly staff, the
// monthly salary otherwise, rounded to whole currency units.
func BasePay(comp database.StaffCompensation, regular, overtime decimal.Decimal) decimal.Decimal {
	if comp.PayType == enum.PayTypeHourly {
		return regular.Mul(comp.HourlyRate).Add(overtime.Mul(comp.OvertimeRate)).Round(0)
	}
	return comp.MonthlySalary.Round(0)
}

// GenerateEntries computes one entry per active compensation from the
// attendance inside the period. Running it again on a draft period
// overwrites each user's entry and keeps manual bonuses and deductions.
func (s *PayrollService) GenerateEntries(ctx context.Context, periodID uuid.UUID) ([]database.PayrollEntry, error) {
	threshold := s.settings.Current().Payroll.RegularHoursThreshold

	var entries []database.PayrollEntry
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)

		period, err := store.GetPayrollPeriodForUpdate(ctx, periodID)
		if err != nil {
			return notFound(err, ErrPeriodNotFound, "lock payroll period")
		}
		if period.Status != enum.PayrollPeriodDraft {
			return ErrPeriodNotDraft
		}

		existing, err := store.ListPayrollEntries(ctx, periodID)
		if err != nil {
			return fmt.Errorf("list payroll entries: %w", err)
		}
		adjustments := make(map[uuid.UUID]database.PayrollEntry, len(existing))
		for _, e := range existing {
			adjustments[e.UserID] = e
		}

		comps, err := store.ListActiveCompensations(ctx)
		if err != nil {
			return fmt.Errorf("list compensations: %w", err)
		}

		entries = make([]database.PayrollEntry, 0, len(comps))
		for _, comp := range comps {
			rows, err := store.ListAttendanceInRange(ctx, comp.UserID, period.StartDate, period.EndDate)
			if err != nil {
				return fmt.Errorf("list attendance: %w", err)
			}
			total, _, late := WorkedHours(rows)
			regular, overtime := SplitHours(total, threshold)

			bonuses, deductions := decimal.Zero, decimal.Zero
			if prev, ok := adjustments[comp.UserID]; ok {
				bonuses, deductions = prev.Bonuses, prev.Deductions
			}

			entry, err := store.UpsertPayrollEntry(ctx, database.UpsertPayrollEntryParams{
				PeriodID:        periodID,
				UserID:          comp.UserID,
				BaseHours:       regular,
				OvertimeHours:   overtime,
				HourlyRate:      comp.HourlyRate,
				OvertimeRate:    comp.OvertimeRate,
				Bonuses:         bonuses,
				Deductions:      deductions,
				TotalPay:        BasePay(comp, regular, overtime).Add(bonuses).Sub(deductions),
				AttendanceCount: int32(len(rows)),
				LateCount:       late,
			})
			if err != nil {
				return fmt.Errorf("upsert payroll entry: %w", err)
			}
			entries = append(entries, entry)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// FinalizePeriod locks a draft period against further generation.
func (s *PayrollService) FinalizePeriod(ctx context.Context, periodID uuid.UUID) (*database.PayrollPeriod, error) {
	return s.transition(ctx, periodID, enum.PayrollPeriodDraft, enum.PayrollPeriodFinalized, ErrFinalizeNotDraft)
}

// MarkPeriodPaid records that a finalized period was paid out.
func (s *PayrollService) MarkPeriodPaid(ctx context.Context, periodID uuid.UUID) (*database.PayrollPeriod, error) {
	return s.transition(ctx, periodID, enum.PayrollPeriodFinalized, enum.PayrollPeriodPaid, ErrPaidNotFinalized)
}

func (s *PayrollService) transition(ctx context.Context, periodID uuid.UUID, from, to string, wrongState *apperr.Error) (*database.PayrollPeriod, error) {
	var period database.PayrollPeriod
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)

		current, err := store.GetPayrollPeriodForUpdate(ctx, periodID)
		if err != nil {
			return notFound(err, ErrPeriodNotFound, "lock payroll period")
		}
		if current.Status != from {
			return wrongState
		}

		period, err = store.TransitionPayrollPeriod(ctx, periodID, from, to)
		if err != nil {
			return notFound(err, wrongState, "transition payroll period")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &period, nil
}

// AdjustEntryRequest changes the manual parts of an entry. Nil fields keep
// their value.
type AdjustEntryRequest struct {
	Bonuses    *decimal.Decimal
	Deductions *decimal.Decimal
}

// UpdateEntry applies manual bonuses and deductions to a draft entry and
// recomputes its total.
func (s *PayrollService) UpdateEntry(ctx context.Context, entryID uuid.UUID, req AdjustEntryRequest) (*database.PayrollEntry, error) {
	if (req.Bonuses != nil && req.Bonuses.IsNegative()) || (req.Deductions != nil && req.Deductions.IsNegative()) {
		return nil, ErrInvalidAmount
	}

	var entry database.PayrollEntry
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)

		current, err := store.GetPayrollEntry(ctx, entryID)
		if err != nil {
			return notFound(err, ErrEntryNotFound, "get payroll entry")
		}
		period, err := store.GetPayrollPeriodForUpdate(ctx, current.PeriodID)
		if err != nil {
			return notFound(err, ErrPeriodNotFound, "lock payroll period")
		}
		if period.Status != enum.PayrollPeriodDraft {
			return ErrEntryNotEditable
		}

		base := current.TotalPay.Sub(current.Bonuses).Add(current.Deductions)
		bonuses, deductions := current.Bonuses, current.Deductions
		if req.Bonuses != nil {
			bonuses = *req.Bonuses
		}
		if req.Deductions != nil {
			deductions = *req.Deductions
		}

		entry, err = store.UpdatePayrollEntryAdjustments(ctx, database.UpdatePayrollEntryAdjustmentsParams{
			ID:         entryID,
			Bonuses:    bonuses,
			Deductions: deductions,
			TotalPay:   base.Add(bonuses).Sub(deductions),
		})
		if err != nil {
			return fmt.Errorf("update payroll entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// PayslipData is the snapshot stored in a payslip.
type PayslipData struct {
	Period struct {
		ID        uuid.UUID `json:"id"`
		StartDate time.Time `json:"start_date"`
		EndDate   time.Time `json:"end_date"`
		Status    string    `json:"status"`
	} `json:"period"`
	Employee struct {
		ID        uuid.UUID `json:"id"`
		Name      string    `json:"name"`
		Phone     string    `json:"phone"`
		StaffRole *string   `json:"staff_role"`
	} `json:"employee"`
	BaseHours       decimal.Decimal `json:"base_hours"`
	OvertimeHours   decimal.Decimal `json:"overtime_hours"`
	HourlyRate      decimal.Decimal `json:"hourly_rate"`
	OvertimeRate    decimal.Decimal `json:"overtime_rate"`
	Bonuses         decimal.Decimal `json:"bonuses"`
	Deductions      decimal.Decimal `json:"deductions"`
	TotalPay        decimal.Decimal `json:"total_pay"`
	AttendanceCount int32           `json:"attendance_count"`
	LateCount       int32           `json:"late_count"`
	GeneratedAt     time.Time       `json:"generated_at"`
}

// GeneratePayslip snapshots an entry into its payslip, overwriting any
// earlier payslip for the same entry.
func (s *PayrollService) GeneratePayslip(ctx context.Context, entryID uuid.UUID) (*database.Payslip, error) {
	var slip database.Payslip
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)

		entry, err := store.GetPayrollEntry(ctx, entryID)
		if err != nil {
			return notFound(err, ErrEntryNotFound, "get payroll entry")
		}
		period, err := store.GetPayrollPeriod(ctx, entry.PeriodID)
		if err != nil {
			return notFound(err, ErrPeriodNotFound, "get payroll period")
		}
		user, err := store.GetUserByID(ctx, entry.UserID)
		if err != nil {
			return notFound(err, ErrStaffNotFound, "get staff")
		}

		now := s.now()
		var data PayslipData
		data.Period.ID = period.ID
		data.Period.StartDate = period.StartDate
		data.Period.EndDate = period.EndDate
		data.Period.Status = period.Status
		data.Employee.ID = user.ID
		data.Employee.Name = user.Name
		data.Employee.Phone = user.Phone
		data.Employee.StaffRole = user.StaffRole
		data.BaseHours = entry.BaseHours
		data.OvertimeHours = entry.OvertimeHours
		data.HourlyRate = entry.HourlyRate
		data.OvertimeRate = entry.OvertimeRate
		data.Bonuses = entry.Bonuses
		data.Deductions = entry.Deductions
		data.TotalPay = entry.TotalPay
		data.AttendanceCount = entry.AttendanceCount
		data.LateCount = entry.LateCount
		data.GeneratedAt = now

		raw, err := json.Marshal(data)
		if err != nil {
			return fmt.Errorf("encode payslip: %w", err)
		}
		slip, err = store.UpsertPayslip(ctx, entryID, raw, now)
		if err != nil {
			return fmt.Errorf("upsert payslip: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &slip, nil
}
