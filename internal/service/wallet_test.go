package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
)

func newWalletService(h *harness) *WalletService {
	return NewWalletService(h.pool, func(db database.DBTX) WalletStore { return h.store }, h.settings)
}

func TestWalletDebit_InsufficientFundsLeavesBalance(t *testing.T) {
	h := newHarness()
	c := h.store.addCustomer(0, "1000")
	svc := newWalletService(h)

	_, err := svc.Debit(context.Background(), WalletMovement{CustomerID: c.ID, Amount: dec("1500"), Reason: "Order"})

	require.ErrorIs(t, err, ErrInsufficientFunds)
	assert.True(t, h.store.wallets[c.ID].Balance.Equal(dec("1000")), "balance %s", h.store.wallets[c.ID].Balance)
	assert.Empty(t, h.store.walletTxns)
	assert.Zero(t, h.tx.commits)
}

func TestWalletDebit_ExactBalance(t *testing.T) {
	h := newHarness()
	c := h.store.addCustomer(0, "1000")
	svc := newWalletService(h)

	res, err := svc.Debit(context.Background(), WalletMovement{CustomerID: c.ID, Amount: dec("1000"), Reason: "Order"})

	require.NoError(t, err)
	assert.True(t, res.Wallet.Balance.IsZero())
	assert.Equal(t, enum.WalletTxDebit, res.Transaction.Type)
	assert.True(t, res.Transaction.BalanceAfter.IsZero())
	assert.Equal(t, 1, h.tx.commits)
}

func TestWalletTopUp_RecordsTransaction(t *testing.T) {
	h := newHarness()
	c := h.store.addCustomer(0, "1000")
	actor := h.store.addUser(enum.UserRoleStaff)
	svc := newWalletService(h)

	res, err := svc.TopUp(context.Background(), WalletMovement{
		CustomerID: c.ID,
		Amount:     dec("500"),
		Reason:     "Counter top-up",
		Reference:  "RCPT-1",
		ActorID:    &actor.ID,
	})

	require.NoError(t, err)
	assert.True(t, res.Wallet.Balance.Equal(dec("1500")))
	require.Len(t, h.store.walletTxns, 1)
	txn := h.store.walletTxns[0]
	assert.Equal(t, enum.WalletTxCredit, txn.Type)
	assert.True(t, txn.Amount.Equal(dec("500")))
	assert.True(t, txn.BalanceAfter.Equal(dec("1500")))
	require.NotNil(t, txn.Reference)
	assert.Equal(t, "RCPT-1", *txn.Reference)
	assert.Equal(t, &actor.ID, txn.CreatedBy)
}

func TestWalletTopUp_Limits(t *testing.T) {
	h := newHarness()
	c := h.store.addCustomer(0, "0")
	maxTopUp := dec("5000")
	h.settings.s.Payment.WalletMinTopUp = dec("100")
	h.settings.s.Payment.WalletMaxTopUp = &maxTopUp
	svc := newWalletService(h)

	_, err := svc.TopUp(context.Background(), WalletMovement{CustomerID: c.ID, Amount: dec("50")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, apperr.MessageOf(err, ""), "Minimum top-up amount is 100.00")

	_, err = svc.TopUp(context.Background(), WalletMovement{CustomerID: c.ID, Amount: dec("6000")})
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	assert.True(t, h.store.wallets[c.ID].Balance.IsZero())
}

func TestWalletMovement_Validation(t *testing.T) {
	h := newHarness()
	c := h.store.addCustomer(0, "1000")
	svc := newWalletService(h)
	ctx := context.Background()

	_, err := svc.Debit(ctx, WalletMovement{CustomerID: c.ID, Amount: dec("0")})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.TopUp(ctx, WalletMovement{CustomerID: c.ID, Amount: dec("-5")})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.Debit(ctx, WalletMovement{CustomerID: h.store.addUser(enum.UserRoleCustomer).ID, Amount: dec("10")})
	assert.ErrorIs(t, err, ErrWalletNotFound)
}
