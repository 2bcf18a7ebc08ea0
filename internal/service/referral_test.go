package service

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
)

func newReferralService(h *harness) *ReferralService {
	svc := NewReferralService(h.pool, func(db database.DBTX) ReferralStore { return h.store }, h.store, h.settings)
	svc.now = func() time.Time { return h.store.now }
	return svc
}

var referralCodeRe = regexp.MustCompile(`^REF-[0-9A-F]{6}-[0-9A-Z]+$`)

func TestReferralCode_Format(t *testing.T) {
	id := uuid.MustParse("7f9c24e8-3b12-4a5e-9d1c-00000abc12ef")
	at := time.UnixMilli(1700000000000)

	code := ReferralCode(id, at)

	assert.Regexp(t, referralCodeRe, code)
	assert.Equal(t, "REF-BC12EF-LOYW3V28", code)
}

func TestReferralCode_IssuedOnce(t *testing.T) {
	h := newHarness()
	c := h.store.addCustomer(0, "0")
	svc := newReferralService(h)
	ctx := context.Background()

	first, err := svc.Code(ctx, *c.UserID)
	require.NoError(t, err)
	assert.Regexp(t, referralCodeRe, first)

	h.store.now = h.store.now.Add(time.Hour)
	second, err := svc.Code(ctx, *c.UserID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestReferralApply(t *testing.T) {
	h := newHarness()
	referrer := h.store.addCustomer(0, "0")
	referee := h.store.addCustomer(0, "0")
	svc := newReferralService(h)
	ctx := context.Background()

	code, err := svc.Code(ctx, *referrer.UserID)
	require.NoError(t, err)

	_, err = svc.Apply(ctx, *referee.UserID, "REF-000000-NOPE")
	assert.ErrorIs(t, err, ErrReferralCodeInvalid)

	_, err = svc.Apply(ctx, *referrer.UserID, code)
	assert.ErrorIs(t, err, ErrSelfReferral)

	ref, err := svc.Apply(ctx, *referee.UserID, " "+code+" ")
	require.NoError(t, err)
	assert.Equal(t, *referrer.UserID, ref.ReferrerUserID)
	assert.Equal(t, enum.ReferralStatusPending, ref.Status)

	_, err = svc.Apply(ctx, *referee.UserID, code)
	assert.ErrorIs(t, err, ErrAlreadyReferred)
}

func TestReferralApply_Disabled(t *testing.T) {
	h := newHarness()
	h.settings.s.Referral.Enabled = false
	svc := newReferralService(h)

	_, err := svc.Apply(context.Background(), uuid.New(), "REF-000000-X")
	assert.ErrorIs(t, err, ErrReferralsDisabled)
}

func TestReferralRewarded_CreditsOnce(t *testing.T) {
	h := newHarness()
	h.settings.s.Referral.RefereeRewardAmount = dec("250")
	h.settings.s.Referral.ReferrerLoyaltyPoints = 100
	referrer := h.store.addCustomer(0, "0")
	referee := h.store.addCustomer(0, "0")
	admin := h.store.addUser(enum.UserRoleAdmin)
	svc := newReferralService(h)
	ctx := context.Background()

	code, err := svc.Code(ctx, *referrer.UserID)
	require.NoError(t, err)
	ref, err := svc.Apply(ctx, *referee.UserID, code)
	require.NoError(t, err)

	got, err := svc.UpdateStatus(ctx, ref.ID, enum.ReferralStatusRewarded, admin.ID)
	require.NoError(t, err)
	assert.True(t, got.RewardCredited)
	assert.True(t, got.RewardAmount.Equal(dec("1000")))
	assert.True(t, got.RefereeRewardAmount.Equal(dec("250")))
	assert.Equal(t, int64(100), got.ReferrerLoyaltyPoints)

	_, err = svc.UpdateStatus(ctx, ref.ID, enum.ReferralStatusRewarded, admin.ID)
	require.NoError(t, err)

	assert.True(t, h.store.wallets[referrer.ID].Balance.Equal(dec("1000")))
	assert.True(t, h.store.wallets[referee.ID].Balance.Equal(dec("250")))
	assert.Equal(t, int64(100), h.store.customers[referrer.ID].LoyaltyPointsBalance)
	assert.Len(t, h.store.walletTxns, 2)
}

func TestReferralUpdateStatus_Invalid(t *testing.T) {
	h := newHarness()
	svc := newReferralService(h)

	_, err := svc.UpdateStatus(context.Background(), uuid.New(), "paid", uuid.New())
	assert.ErrorIs(t, err, ErrInvalidReferralStat)

	_, err = svc.UpdateStatus(context.Background(), uuid.New(), enum.ReferralStatusQualified, uuid.New())
	assert.ErrorIs(t, err, ErrReferralNotFound)
}
