package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
)

func newPromoService(h *harness) *PromoService {
	svc := NewPromoService(h.pool, func(db database.DBTX) PromoStore { return h.store }, h.store)
	svc.now = func() time.Time { return h.store.now }
	return svc
}

func TestPromoDiscount(t *testing.T) {
	tests := []struct {
		name     string
		typ      string
		value    string
		subtotal string
		want     string
	}{
		{"percent", enum.PromoTypePercent, "10", "6500", "650"},
		{"percent rounds", enum.PromoTypePercent, "15", "333.33", "50"},
		{"fixed", enum.PromoTypeFixed, "750", "6500", "750"},
		{"fixed capped at subtotal", enum.PromoTypeFixed, "750", "500", "500"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := database.PromoCode{Type: tt.typ, Value: dec(tt.value)}
			got := promoDiscount(p, dec(tt.subtotal))
			assert.True(t, got.Equal(dec(tt.want)), "got %s", got)
		})
	}
}

func TestPromoValidate(t *testing.T) {
	h := newHarness()
	svc := newPromoService(h)
	ctx := context.Background()

	h.store.addPromo("SAVE500", enum.PromoTypeFixed, "500")
	q, err := svc.Validate(ctx, "SAVE500", dec("2000"))
	require.NoError(t, err)
	assert.True(t, q.Discount.Equal(dec("500")))

	_, err = svc.Validate(ctx, "NOPE", dec("2000"))
	assert.ErrorIs(t, err, ErrPromoInvalid)

	inactive := h.store.addPromo("OFF", enum.PromoTypeFixed, "100")
	inactive.Active = false
	h.store.promos[inactive.ID] = inactive
	_, err = svc.Validate(ctx, "OFF", dec("2000"))
	assert.ErrorIs(t, err, ErrPromoInvalid)

	expired := h.store.addPromo("OLD", enum.PromoTypeFixed, "100")
	past := h.store.now.Add(-time.Hour)
	expired.ExpiresAt = &past
	h.store.promos[expired.ID] = expired
	_, err = svc.Validate(ctx, "OLD", dec("2000"))
	assert.ErrorIs(t, err, ErrPromoExpired)
}

func TestPromoRedeem_SecondRedemptionOnOrderFails(t *testing.T) {
	h := newHarness()
	c := h.store.addCustomer(0, "0")
	order := h.store.addOrder(c.ID, enum.OrderStatusPending)
	h.store.addPromo("FIRST", enum.PromoTypeFixed, "100")
	h.store.addPromo("SECOND", enum.PromoTypePercent, "5")
	svc := newPromoService(h)
	ctx := context.Background()

	_, err := svc.Redeem(ctx, RedeemPromoRequest{Code: "FIRST", OrderID: order.ID, CustomerID: &c.ID, Amount: dec("100")})
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, RedeemPromoRequest{Code: "FIRST", OrderID: order.ID, CustomerID: &c.ID, Amount: dec("100")})
	assert.ErrorIs(t, err, ErrPromoAlreadyRedeemed)

	_, err = svc.Redeem(ctx, RedeemPromoRequest{Code: "SECOND", OrderID: order.ID, CustomerID: &c.ID, Amount: dec("50")})
	assert.ErrorIs(t, err, ErrPromoAlreadyRedeemed)

	assert.Len(t, h.store.redemptions, 1)
}

func TestPromoRedeem_UsageLimit(t *testing.T) {
	h := newHarness()
	c := h.store.addCustomer(0, "0")
	first := h.store.addOrder(c.ID, enum.OrderStatusPending)
	second := h.store.addOrder(c.ID, enum.OrderStatusPending)
	promo := h.store.addPromo("ONCE", enum.PromoTypeFixed, "100")
	limit := int32(1)
	promo.UsageLimit = &limit
	h.store.promos[promo.ID] = promo
	svc := newPromoService(h)
	ctx := context.Background()

	_, err := svc.Redeem(ctx, RedeemPromoRequest{Code: "ONCE", OrderID: first.ID, Amount: dec("100")})
	require.NoError(t, err)

	_, err = svc.Redeem(ctx, RedeemPromoRequest{Code: "ONCE", OrderID: second.ID, Amount: dec("100")})
	assert.ErrorIs(t, err, ErrPromoUsageLimit)

	// The order already holds a redemption, so that wins over the exhausted limit.
	_, err = svc.Redeem(ctx, RedeemPromoRequest{Code: "ONCE", OrderID: first.ID, Amount: dec("100")})
	assert.ErrorIs(t, err, ErrPromoAlreadyRedeemed)
}

func TestPromoRedeem_UnknownOrder(t *testing.T) {
	h := newHarness()
	h.store.addPromo("FIRST", enum.PromoTypeFixed, "100")
	svc := newPromoService(h)

	_, err := svc.Redeem(context.Background(), RedeemPromoRequest{Code: "FIRST", OrderID: uuid.New(), Amount: dec("100")})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}
