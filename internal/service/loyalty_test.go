package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	"github.com/relux-laundry/api/internal/settings"
)

func newLoyaltyService(h *harness) *LoyaltyService {
	return NewLoyaltyService(h.pool, func(db database.DBTX) LoyaltyStore { return h.store })
}

func TestEarnPoints(t *testing.T) {
	base := settings.Defaults().Loyalty

	tests := []struct {
		name       string
		mutate     func(*settings.Loyalty)
		total      string
		level      string
		tier       int64
		firstOrder bool
		want       int64
	}{
		{name: "standard", total: "1000", level: enum.ServiceLevelStandard, tier: 100, want: 1000},
		{name: "express bonus", total: "1000", level: enum.ServiceLevelExpress, tier: 100, want: 1200},
		{name: "premium with gold tier", total: "1000", level: enum.ServiceLevelPremium, tier: 150, want: 2250},
		{name: "floors fractions", total: "999.99", level: enum.ServiceLevelStandard, tier: 100, want: 999},
		{
			name:   "below minimum earns nothing",
			mutate: func(l *settings.Loyalty) { l.MinOrderAmount = dec("5000") },
			total:  "1000", level: enum.ServiceLevelStandard, tier: 100, want: 0,
		},
		{
			name:   "first order bonus",
			mutate: func(l *settings.Loyalty) { l.BonusFirstOrderPoints = 250 },
			total:  "1000", level: enum.ServiceLevelStandard, tier: 100, firstOrder: true, want: 1250,
		},
		{
			name:   "capped",
			mutate: func(l *settings.Loyalty) { l.MaxPointsPerOrder = 300 },
			total:  "1000", level: enum.ServiceLevelStandard, tier: 100, want: 300,
		},
		{
			name:   "disabled",
			mutate: func(l *settings.Loyalty) { l.Enabled = false },
			total:  "1000", level: enum.ServiceLevelStandard, tier: 100, want: 0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			if tt.mutate != nil {
				tt.mutate(&cfg)
			}
			order := database.Order{Total: dec(tt.total), ServiceLevel: tt.level}
			assert.Equal(t, tt.want, earnPoints(cfg, order, tt.tier, tt.firstOrder))
		})
	}
}

func TestQuoteRedemption(t *testing.T) {
	cfg := settings.Defaults().Loyalty

	d, err := quoteRedemption(cfg, 200, 500, dec("1000"))
	require.NoError(t, err)
	assert.True(t, d.Equal(dec("200")))

	_, err = quoteRedemption(cfg, 50, 500, dec("1000"))
	assert.ErrorIs(t, err, ErrBelowMinRedeem)

	_, err = quoteRedemption(cfg, 400, 300, dec("1000"))
	assert.ErrorIs(t, err, ErrInsufficientPoints)

	_, err = quoteRedemption(cfg, 600, 1000, dec("1000"))
	assert.ErrorIs(t, err, ErrRedeemExceedsLimit)

	cfg.RedemptionEnabled = false
	_, err = quoteRedemption(cfg, 200, 500, dec("1000"))
	assert.ErrorIs(t, err, ErrLoyaltyDisabled)
}

func TestLoyaltyAdjust_AllowsNegativeBalance(t *testing.T) {
	h := newHarness()
	c := h.store.addCustomer(50, "0")
	svc := newLoyaltyService(h)

	res, err := svc.Adjust(context.Background(), AdjustRequest{CustomerID: c.ID, Points: -80})

	require.NoError(t, err)
	assert.Equal(t, int64(-30), res.Customer.LoyaltyPointsBalance)
	assert.Equal(t, "Manual adjustment", res.Entry.Reason)
	assert.Equal(t, enum.LedgerTypeAdjust, res.Entry.Type)
	assert.Equal(t, int64(-30), res.Entry.BalanceAfter)
}

func TestLoyaltyAdjust_Validation(t *testing.T) {
	h := newHarness()
	svc := newLoyaltyService(h)

	_, err := svc.Adjust(context.Background(), AdjustRequest{CustomerID: uuid.New(), Points: 0})
	assert.ErrorIs(t, err, ErrInvalidPointsAmount)

	_, err = svc.Adjust(context.Background(), AdjustRequest{CustomerID: uuid.New(), Points: 10})
	assert.ErrorIs(t, err, ErrCustomerNotFound)
}

func TestLoyaltyAdjust_PromotesTier(t *testing.T) {
	h := newHarness()
	c := h.store.addCustomer(0, "0")
	silver := database.LoyaltyTier{ID: uuid.New(), Name: "Silver", PointsRequired: 500, MultiplierPercent: 110, Active: true}
	gold := database.LoyaltyTier{ID: uuid.New(), Name: "Gold", PointsRequired: 2000, MultiplierPercent: 150, Active: true}
	h.store.tiers[silver.ID] = silver
	h.store.tiers[gold.ID] = gold
	svc := newLoyaltyService(h)

	res, err := svc.Adjust(context.Background(), AdjustRequest{CustomerID: c.ID, Points: 600})

	require.NoError(t, err)
	require.NotNil(t, res.Customer.LoyaltyTierID)
	assert.Equal(t, silver.ID, *res.Customer.LoyaltyTierID)
	assert.Equal(t, int64(600), h.store.customers[c.ID].LoyaltyLifetimePoints)
}

// The balance always equals the ledger sum, and every ledger row carries
// the balance after its own movement.
func TestLoyaltyReconciliation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	c := h.store.addCustomer(0, "0")
	staff := h.store.addUser(enum.UserRoleStaff)
	orders := newOrderService(h)
	loyalty := newLoyaltyService(h)

	earned := h.store.addOrder(c.ID, enum.OrderStatusReady)
	_, err := orders.UpdateStatus(ctx, earned.ID, enum.OrderStatusCompleted, staff.ID, "")
	require.NoError(t, err)

	_, err = loyalty.Adjust(ctx, AdjustRequest{CustomerID: c.ID, Points: 300, ActorID: &staff.ID})
	require.NoError(t, err)

	redeemed, err := orders.CreateOrder(ctx, CreateOrderRequest{
		CustomerID:   c.ID,
		CreatedBy:    staff.ID,
		ServiceType:  enum.ServiceTypeWashFold,
		OrderType:    enum.OrderTypeWalkIn,
		RedeemPoints: 200,
		Items:        []CreateOrderItemRequest{{ItemType: "Shirt", Quantity: 1, UnitPrice: dec("1000")}},
	})
	require.NoError(t, err)
	assert.True(t, redeemed.Order.LoyaltyDiscountAmount.Equal(dec("200")))

	_, err = orders.Cancel(ctx, redeemed.Order.ID, "changed mind", staff.ID)
	require.NoError(t, err)

	_, err = loyalty.Adjust(ctx, AdjustRequest{CustomerID: c.ID, Points: -100, ActorID: &staff.ID})
	require.NoError(t, err)

	customer := h.store.customers[c.ID]
	assert.Equal(t, int64(1200), customer.LoyaltyPointsBalance)
	assert.Equal(t, h.store.ledgerSum(c.ID), customer.LoyaltyPointsBalance)
	assert.Equal(t, int64(1300), customer.LoyaltyLifetimePoints)

	var running int64
	for _, e := range h.store.ledger {
		running += e.Points
		assert.Equal(t, running, e.BalanceAfter, "entry %s", e.Type)
	}

	types := make([]string, 0, len(h.store.ledger))
	for _, e := range h.store.ledger {
		types = append(types, e.Type)
	}
	assert.Equal(t, []string{
		enum.LedgerTypeEarn,
		enum.LedgerTypeAdjust,
		enum.LedgerTypeRedeem,
		enum.LedgerTypeReversal,
		enum.LedgerTypeAdjust,
	}, types)
}

func TestAwardOrderPoints_OncePerOrder(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	c := h.store.addCustomer(0, "0")
	order := h.store.addOrder(c.ID, enum.OrderStatusCompleted)
	cfg := h.settings.s.Loyalty

	first, err := awardOrderPoints(ctx, h.store, cfg, order)
	require.NoError(t, err)
	assert.Equal(t, int64(1000), first)

	second, err := awardOrderPoints(ctx, h.store, cfg, order)
	require.NoError(t, err)
	assert.Zero(t, second)

	assert.Equal(t, int64(1000), h.store.customers[c.ID].LoyaltyPointsBalance)
	assert.Equal(t, int64(1000), h.store.orders[order.ID].LoyaltyPointsEarned)
}
