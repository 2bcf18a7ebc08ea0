// Package service holds the business operations that span more than one
// table. Every mutation runs in a single transaction; side effects such as
// notifications and real-time events happen after commit and never fail the
// operation.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/settings"
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// SettingsProvider returns the active settings version.
// Satisfied by *settings.Store.
type SettingsProvider interface {
	Current() *settings.Settings
}

// Publisher pushes a real-time event to a WebSocket room.
// Satisfied by the relay package.
type Publisher interface {
	Publish(ctx context.Context, room, eventType string, payload any) error
}

// Errors returned by the services.
var (
	ErrOrderNotFound        = apperr.NotFound("Order not found")
	ErrOrderNotCancellable  = apperr.Validation("Order cannot be cancelled")
	ErrOrderAlreadyPaid     = apperr.Validation("Order has already been paid")
	ErrEmptyItems           = apperr.Validation("At least one item is required")
	ErrInvalidQuantity      = apperr.Validation("Item quantity must be greater than 0")
	ErrInvalidUnitPrice     = apperr.Validation("Item unit price must not be negative")
	ErrInvalidServiceType   = apperr.Validation("Invalid service type")
	ErrInvalidOrderType     = apperr.Validation("Invalid order type")
	ErrInvalidServiceLevel  = apperr.Validation("Invalid or inactive service level")
	ErrInvalidPaymentMethod = apperr.Validation("Invalid payment method")
	ErrInvalidOrderStatus   = apperr.Validation("Invalid order status")
	ErrInvalidPaymentStatus = apperr.Validation("Invalid payment status")
	ErrCategoryNotFound     = apperr.NotFound("Service category not found")
	ErrStaffNotFound        = apperr.NotFound("Staff member not found")
	ErrCustomerNotFound     = apperr.NotFound("Customer not found")
	ErrPaymentExists        = apperr.Validation("Payment already exists for this order")

	ErrInvalidAmount     = apperr.Validation("Amount must be greater than 0")
	ErrWalletNotFound    = apperr.NotFound("Wallet not found")
	ErrInsufficientFunds = apperr.Validation("Insufficient wallet balance")

	ErrLoyaltyDisabled      = apperr.Validation("Loyalty redemption is disabled")
	ErrInsufficientPoints   = apperr.Validation("Insufficient loyalty points")
	ErrBelowMinRedeem       = apperr.Validation("Points are below the minimum redeemable amount")
	ErrRedeemExceedsLimit   = apperr.Validation("Redeemed points exceed the allowed share of the order")
	ErrDiscountExceedsTotal = apperr.Validation("Combined promo and points discount exceeds the order total")
	ErrInvalidPointsAmount  = apperr.Validation("Points must be a non-zero whole number")

	ErrPromoInvalid         = apperr.Validation("Invalid or inactive promo code")
	ErrPromoExpired         = apperr.Validation("Promo code has expired")
	ErrPromoUsageLimit      = apperr.Validation("Promo code usage limit reached")
	ErrPromoAlreadyRedeemed = apperr.Validation("Promo already applied to this order")

	ErrReferralCodeInvalid = apperr.Validation("Invalid referral code")
	ErrSelfReferral        = apperr.Validation("You cannot refer yourself")
	ErrAlreadyReferred     = apperr.Validation("You have already been referred")
	ErrReferralsDisabled   = apperr.Validation("Referrals are disabled")
	ErrReferralNotFound    = apperr.NotFound("Referral not found")
	ErrInvalidReferralStat = apperr.Validation("Invalid referral status")

	ErrPeriodNotFound      = apperr.NotFound("Payroll period not found")
	ErrPeriodNotDraft      = apperr.Validation("Can only generate entries for draft periods")
	ErrFinalizeNotDraft    = apperr.Validation("Only draft periods can be finalized")
	ErrPaidNotFinalized    = apperr.Validation("Only finalized periods can be marked as paid")
	ErrEntryNotFound       = apperr.NotFound("Payroll entry not found")
	ErrEntryNotEditable    = apperr.Validation("Entries can only be edited while the period is a draft")
	ErrInvalidPeriodRange  = apperr.Validation("Period end date must be after start date")
	ErrAlreadyClockedIn    = apperr.Validation("You are already clocked in. Please clock out first.")
	ErrNoActiveClockIn     = apperr.Validation("No active clock-in found")
	ErrAttendanceNotFound  = apperr.NotFound("Attendance record not found")
	ErrInvalidAttendStatus = apperr.Validation("Invalid attendance status")
	ErrInvalidAttendSource = apperr.Validation("Invalid attendance source")
	ErrInvalidClockRange   = apperr.Validation("Clock-out time must be after clock-in time")

	ErrThreadNotFound = apperr.NotFound("Chat thread not found")
	ErrThreadClosed   = apperr.Validation("Cannot send message to a closed thread")
	ErrEmptyMessage   = apperr.Validation("Message body is required")
)

// txRetryDelays are the waits before re-running a transaction that hit a
// serialization failure or deadlock.
var txRetryDelays = []time.Duration{50 * time.Millisecond, 200 * time.Millisecond, 500 * time.Millisecond}

// withTx runs fn inside a transaction and commits when fn succeeds.
// Serialization failures and deadlocks re-run fn from the start.
func withTx(ctx context.Context, pool TxBeginner, fn func(tx pgx.Tx) error) error {
	var err error
	for i := 0; ; i++ {
		err = runTx(ctx, pool, fn)
		if err == nil || !database.IsRetryable(err) || i >= len(txRetryDelays) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(txRetryDelays[i]):
		}
	}
}

func runTx(ctx context.Context, pool TxBeginner, fn func(tx pgx.Tx) error) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// notFound maps pgx.ErrNoRows to the given domain error and wraps anything
// else with op.
func notFound(err error, domain *apperr.Error, op string) error {
	if apperr.KindOf(err) == apperr.KindNotFound {
		return domain
	}
	return fmt.Errorf("%s: %w", op, err)
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

