package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	"github.com/relux-laundry/api/internal/pricing"
	"github.com/relux-laundry/api/internal/settings"
)

// LoyaltyStore defines the DB methods needed to move loyalty points.
// Satisfied by *database.Queries.
type LoyaltyStore interface {
	GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error)
	AddLoyaltyPoints(ctx context.Context, arg database.AddLoyaltyPointsParams) (database.Customer, error)
	CreateLoyaltyEntry(ctx context.Context, arg database.CreateLoyaltyEntryParams) (database.LoyaltyLedgerEntry, error)
	GetLoyaltyEntryForOrder(ctx context.Context, orderID uuid.UUID, entryType string) (database.LoyaltyLedgerEntry, error)
	GetLoyaltyTier(ctx context.Context, id uuid.UUID) (database.LoyaltyTier, error)
	GetTierForPoints(ctx context.Context, lifetimePoints int64) (database.LoyaltyTier, error)
	SetCustomerTier(ctx context.Context, customerID uuid.UUID, tierID *uuid.UUID) error
}

// NewLoyaltyStore creates a LoyaltyStore from a DBTX (pool or tx).
type NewLoyaltyStore func(db database.DBTX) LoyaltyStore

// PointsResult is the customer after a points movement and its ledger row.
type PointsResult struct {
	Customer database.Customer           `json:"customer"`
	Entry    database.LoyaltyLedgerEntry `json:"entry"`
}

// LoyaltyService handles manual point adjustments. Earning, redemption and
// reversal happen inside order transactions through the package helpers.
type LoyaltyService struct {
	pool     TxBeginner
	newStore NewLoyaltyStore
}

// NewLoyaltyService creates a new LoyaltyService.
func NewLoyaltyService(pool TxBeginner, newStore NewLoyaltyStore) *LoyaltyService {
	return &LoyaltyService{pool: pool, newStore: newStore}
}

// AdjustRequest is an admin correction of any sign.
type AdjustRequest struct {
	CustomerID uuid.UUID
	Points     int64
	Reason     string
	ActorID    *uuid.UUID
}

// Adjust applies an admin correction. Negative adjustments may take the
// balance below zero.
func (s *LoyaltyService) Adjust(ctx context.Context, req AdjustRequest) (*PointsResult, error) {
	if req.Points == 0 {
		return nil, ErrInvalidPointsAmount
	}
	reason := req.Reason
	if reason == "" {
		reason = "Manual adjustment"
	}

	var result *PointsResult
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		result, err = movePoints(ctx, s.newStore(tx), pointsMovement{
			customerID:    req.CustomerID,
			entryType:     enum.LedgerTypeAdjust,
			points:        req.Points,
			reason:        reason,
			actorID:       req.ActorID,
			allowNegative: true,
		})
		return err
	})
	return result, err
}

type pointsMovement struct {
	customerID    uuid.UUID
	orderID       *uuid.UUID
	entryType     string
	points        int64
	reason        string
	actorID       *uuid.UUID
	allowNegative bool
	skipLifetime  bool
}

// movePoints applies one signed movement with a conditional update and
// appends the ledger row carrying the resulting balance. Positive movements
// re-evaluate the customer's tier.
func movePoints(ctx context.Context, store LoyaltyStore, m pointsMovement) (*PointsResult, error) {
	customer, err := store.AddLoyaltyPoints(ctx, database.AddLoyaltyPointsParams{
		CustomerID:    m.customerID,
		Delta:         m.points,
		AllowNegative: m.allowNegative,
		SkipLifetime:  m.skipLifetime,
	})
	if err != nil {
		if apperr.KindOf(err) != apperr.KindNotFound {
			return nil, fmt.Errorf("add loyalty points: %w", err)
		}
		if _, gerr := store.GetCustomer(ctx, m.customerID); gerr != nil {
			return nil, notFound(gerr, ErrCustomerNotFound, "get customer")
		}
		return nil, ErrInsufficientPoints
	}

	entry, err := store.CreateLoyaltyEntry(ctx, database.CreateLoyaltyEntryParams{
		CustomerID:   m.customerID,
		OrderID:      m.orderID,
		Type:         m.entryType,
		Points:       m.points,
		BalanceAfter: customer.LoyaltyPointsBalance,
		Reason:       m.reason,
		CreatedBy:    m.actorID,
	})
	if err != nil {
		return nil, fmt.Errorf("create loyalty entry: %w", err)
	}

	if m.points > 0 && !m.skipLifetime {
		if customer, err = reevaluateTier(ctx, store, customer); err != nil {
			return nil, err
		}
	}
	return &PointsResult{Customer: customer, Entry: entry}, nil
}

// reevaluateTier moves the customer to the highest tier their lifetime
// points reach.
func reevaluateTier(ctx context.Context, store LoyaltyStore, customer database.Customer) (database.Customer, error) {
	var tierID *uuid.UUID
	tier, err := store.GetTierForPoints(ctx, customer.LoyaltyLifetimePoints)
	switch {
	case err == nil:
		tierID = &tier.ID
	case apperr.KindOf(err) == apperr.KindNotFound:
	default:
		return customer, fmt.Errorf("get tier for points: %w", err)
	}

	if sameID(tierID, customer.LoyaltyTierID) {
		return customer, nil
	}
	if err := store.SetCustomerTier(ctx, customer.ID, tierID); err != nil {
		return customer, fmt.Errorf("set customer tier: %w", err)
	}
	customer.LoyaltyTierID = tierID
	return customer, nil
}

func sameID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// quoteRedemption converts points into an order discount, enforcing the
// redemption rules against the customer's balance and the order subtotal.
func quoteRedemption(cfg settings.Loyalty, points, balance int64, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if !cfg.Enabled || !cfg.RedemptionEnabled {
		return decimal.Zero, ErrLoyaltyDisabled
	}
	if points < cfg.MinRedeemPoints {
		return decimal.Zero, ErrBelowMinRedeem
	}
	if points > balance {
		return decimal.Zero, ErrInsufficientPoints
	}

	discount := pricing.Round2(decimal.NewFromInt(points).Div(cfg.RedemptionPointsPerCurrency))
	limit := subtotal.Mul(decimal.NewFromInt(cfg.MaxRedeemPercent)).Div(decimal.NewFromInt(100))
	if discount.GreaterThan(limit) {
		return decimal.Zero, ErrRedeemExceedsLimit
	}
	return discount, nil
}

// EarnStore adds the order lookups needed to award points for an order.
type EarnStore interface {
	LoyaltyStore
	CountCustomerOrdersWithStatus(ctx context.Context, customerID uuid.UUID, status string, excludeID uuid.UUID) (int64, error)
	SetOrderPointsEarned(ctx context.Context, id uuid.UUID, points int64) error
}

// earnPoints computes the points an order earns:
//
//	floor(total * pointsPerCurrency * levelBonus% * tierMultiplier% / 10000)
//
// plus the first-order bonus, capped at maxPointsPerOrder. Orders below the
// minimum amount earn nothing. An order earns at most once.
func earnPoints(cfg settings.Loyalty, order database.Order, tierMultiplier int64, firstOrder bool) int64 {
	if !cfg.Enabled || order.Total.LessThan(cfg.MinOrderAmount) {
		return 0
	}

	points := order.Total.
		Mul(cfg.PointsPerCurrency).
		Mul(decimal.NewFromInt(cfg.BonusPercent(order.ServiceLevel))).
		Mul(decimal.NewFromInt(tierMultiplier)).
		Div(decimal.NewFromInt(10000)).
		Floor().
		IntPart()

	if firstOrder {
		points += cfg.BonusFirstOrderPoints
	}
	if cfg.MaxPointsPerOrder > 0 && points > cfg.MaxPointsPerOrder {
		points = cfg.MaxPointsPerOrder
	}
	if points < 0 {
		return 0
	}
	return points
}

// awardOrderPoints records the earn entry for order inside the caller's
// transaction, which must hold the order row lock. It returns 0 when the
// order already earned or earns nothing.
func awardOrderPoints(ctx context.Context, store EarnStore, cfg settings.Loyalty, order database.Order) (int64, error) {
	if !cfg.Enabled {
		return 0, nil
	}

	_, err := store.GetLoyaltyEntryForOrder(ctx, order.ID, enum.LedgerTypeEarn)
	if err == nil {
		return 0, nil
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return 0, fmt.Errorf("get earn entry: %w", err)
	}

	customer, err := store.GetCustomer(ctx, order.CustomerID)
	if err != nil {
		return 0, notFound(err, ErrCustomerNotFound, "get customer")
	}

	tierMultiplier := int64(100)
	if customer.LoyaltyTierID != nil {
		tier, err := store.GetLoyaltyTier(ctx, *customer.LoyaltyTierID)
		if err == nil && tier.Active {
			tierMultiplier = int64(tier.MultiplierPercent)
		}
	}

	firstOrder := false
	if cfg.BonusFirstOrderPoints > 0 {
		n, err := store.CountCustomerOrdersWithStatus(ctx, order.CustomerID, enum.OrderStatusCompleted, order.ID)
		if err != nil {
			return 0, fmt.Errorf("count completed orders: %w", err)
		}
		firstOrder = n == 0
	}

	points := earnPoints(cfg, order, tierMultiplier, firstOrder)
	if points == 0 {
		return 0, nil
	}

	orderID := order.ID
	if _, err := movePoints(ctx, store, pointsMovement{
		customerID: order.CustomerID,
		orderID:    &orderID,
		entryType:  enum.LedgerTypeEarn,
		points:     points,
		reason:     fmt.Sprintf("Earned on order %s", order.OrderNumber),
	}); err != nil {
		return 0, err
	}

	if err := store.SetOrderPointsEarned(ctx, order.ID, points); err != nil {
		return 0, fmt.Errorf("set order points earned: %w", err)
	}
	return points, nil
}
