package service

import (
	"context"
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

// PromoStore defines the DB methods needed to validate and redeem promo codes.
// Satisfied by *database.Queries.
type PromoStore interface {
	GetPromoCodeByCode(ctx context.Context, code string) (database.PromoCode, error)
	GetPromoCodeByCodeForUpdate(ctx context.Context, code string) (database.PromoCode, error)
	CountPromoRedemptions(ctx context.Context, promoCodeID uuid.UUID) (int64, error)
	GetPromoRedemptionForOrder(ctx context.Context, orderID uuid.UUID) (database.PromoRedemption, error)
	DeletePromoRedemptionForOrder(ctx context.Context, orderID uuid.UUID) (int64, error)
	CreatePromoRedemption(ctx context.Context, arg database.CreatePromoRedemptionParams) (database.PromoRedemption, error)
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
}

// NewPromoStore creates a PromoStore from a DBTX (pool or tx).
type NewPromoStore func(db database.DBTX) PromoStore

// PromoQuote is a valid promo code and the discount it gives on a subtotal.
type PromoQuote struct {
	PromoCode database.PromoCode `json:"promo_code"`
	Discount  decimal.Decimal    `json:"discount"`
}

// RedeemPromoRequest records a promo against an existing order.
type RedeemPromoRequest struct {
	Code       string
	OrderID    uuid.UUID
	CustomerID *uuid.UUID
	Amount     decimal.Decimal
}

// PromoService validates and redeems promo codes.
type PromoService struct {
	pool     TxBeginner
	newStore NewPromoStore
	store    PromoStore
	now      func() time.Time
}

// NewPromoService creates a new PromoService.
func NewPromoService(pool TxBeginner, newStore NewPromoStore, store PromoStore) *PromoService {
	return &PromoService{pool: pool, newStore: newStore, store: store, now: time.Now}
}

// Validate checks that code is usable now and quotes its discount on subtotal.
func (s *PromoService) Validate(ctx context.Context, code string, subtotal decimal.Decimal) (*PromoQuote, error) {
	promo, err := s.store.GetPromoCodeByCode(ctx, code)
	if err != nil {
		return nil, notFound(err, ErrPromoInvalid, "get promo code")
	}
	if err := checkPromo(ctx, s.store, promo, s.now()); err != nil {
		return nil, err
	}
	return &PromoQuote{PromoCode: promo, Discount: promoDiscount(promo, subtotal)}, nil
}

// Redeem records one redemption of code for an order. The promo row is
// locked for the duration so the usage limit holds under concurrency. An
// order that already carries a redemption fails before the code is checked.
func (s *PromoService) Redeem(ctx context.Context, req RedeemPromoRequest) (*database.PromoRedemption, error) {
	if req.Amount.IsNegative() {
		return nil, ErrInvalidAmount
	}

	var redemption database.PromoRedemption
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)

		if _, err := store.GetOrder(ctx, req.OrderID); err != nil {
			return notFound(err, ErrOrderNotFound, "get order")
		}
		_, err := store.GetPromoRedemptionForOrder(ctx, req.OrderID)
		if err == nil {
			return ErrPromoAlreadyRedeemed
		}
		if apperr.KindOf(err) != apperr.KindNotFound {
			return fmt.Errorf("get order redemption: %w", err)
		}

		promo, err := lockPromo(ctx, store, req.Code, s.now())
		if err != nil {
			return err
		}

		redemption, err = recordRedemption(ctx, store, promo.ID, req.OrderID, req.CustomerID, req.Amount)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &redemption, nil
}

// lockPromo loads and locks code, then checks it is usable.
func lockPromo(ctx context.Context, store PromoStore, code string, now time.Time) (database.PromoCode, error) {
	promo, err := store.GetPromoCodeByCodeForUpdate(ctx, code)
	if err != nil {
		return database.PromoCode{}, notFound(err, ErrPromoInvalid, "lock promo code")
	}
	if err := checkPromo(ctx, store, promo, now); err != nil {
		return database.PromoCode{}, err
	}
	return promo, nil
}

func checkPromo(ctx context.Context, store PromoStore, promo database.PromoCode, now time.Time) error {
	if !promo.Active {
		return ErrPromoInvalid
	}
	if promo.ExpiresAt != nil && promo.ExpiresAt.Before(now) {
		return ErrPromoExpired
	}
	if promo.UsageLimit != nil {
		used, err := store.CountPromoRedemptions(ctx, promo.ID)
		if err != nil {
			return fmt.Errorf("count promo redemptions: %w", err)
		}
		if used >= int64(*promo.UsageLimit) {
			return ErrPromoUsageLimit
		}
	}
	return nil
}

func recordRedemption(ctx context.Context, store PromoStore, promoID, orderID uuid.UUID, customerID *uuid.UUID, amount decimal.Decimal) (database.PromoRedemption, error) {
	r, err := store.CreatePromoRedemption(ctx, database.CreatePromoRedemptionParams{
		PromoCodeID: promoID,
		OrderID:     orderID,
		CustomerID:  customerID,
		Amount:      amount,
	})
	if err != nil {
		if database.IsUniqueViolation(err, "promo_redemptions_order_id_key") {
			return r, ErrPromoAlreadyRedeemed
		}
		return r, fmt.Errorf("create promo redemption: %w", err)
	}
	return r, nil
}

// promoDiscount is the discount a promo gives on subtotal, never more than
// the subtotal itself.
func promoDiscount(promo database.PromoCode, subtotal decimal.Decimal) decimal.Decimal {
	var d decimal.Decimal
	switch promo.Type {
	case enum.PromoTypePercent:
		d = pricing.Round2(subtotal.Mul(promo.Value).Div(decimal.NewFromInt(100)))
	default:
		d = promo.Value
	}
	if d.GreaterThan(subtotal) {
		d = subtotal
	}
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
