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
)

// WalletStore defines the DB methods needed to move wallet money.
// Satisfied by *database.Queries.
type WalletStore interface {
	GetWalletByCustomer(ctx context.Context, customerID uuid.UUID) (database.Wallet, error)
	AdjustWalletBalance(ctx context.Context, walletID uuid.UUID, delta decimal.Decimal) (database.Wallet, error)
	CreateWalletTransaction(ctx context.Context, arg database.CreateWalletTransactionParams) (database.WalletTransaction, error)
}

// NewWalletStore creates a WalletStore from a DBTX (pool or tx).
type NewWalletStore func(db database.DBTX) WalletStore

// WalletMovement is a validated credit or debit request.
type WalletMovement struct {
	CustomerID uuid.UUID
	Amount     decimal.Decimal
	Reason     string
	Reference  string
	ActorID    *uuid.UUID
}

// WalletResult is the wallet after a movement and the ledger row it produced.
type WalletResult struct {
	Wallet      database.Wallet            `json:"wallet"`
	Transaction database.WalletTransaction `json:"transaction"`
}

// WalletService credits and debits customer wallets.
type WalletService struct {
	pool     TxBeginner
	newStore NewWalletStore
	settings SettingsProvider
}

// NewWalletService creates a new WalletService.
func NewWalletService(pool TxBeginner, newStore NewWalletStore, settings SettingsProvider) *WalletService {
	return &WalletService{pool: pool, newStore: newStore, settings: settings}
}

// TopUp credits the customer's wallet.
func (s *WalletService) TopUp(ctx context.Context, m WalletMovement) (*WalletResult, error) {
	cfg := s.settings.Current().Payment
	if m.Amount.IsPositive() && cfg.WalletMinTopUp.IsPositive() && m.Amount.LessThan(cfg.WalletMinTopUp) {
		return nil, apperr.Validation(fmt.Sprintf("Minimum top-up amount is %s", cfg.WalletMinTopUp.StringFixed(2)))
	}
	if cfg.WalletMaxTopUp != nil && m.Amount.GreaterThan(*cfg.WalletMaxTopUp) {
		return nil, apperr.Validation(fmt.Sprintf("Maximum top-up amount is %s", cfg.WalletMaxTopUp.StringFixed(2)))
	}

	var result *WalletResult
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		result, err = moveWallet(ctx, s.newStore(tx), m, enum.WalletTxCredit)
		return err
	})
	return result, err
}

// Debit takes money out of the customer's wallet. The balance never goes
// negative: an oversized debit fails with ErrInsufficientFunds and leaves
// the wallet unchanged.
func (s *WalletService) Debit(ctx context.Context, m WalletMovement) (*WalletResult, error) {
	var result *WalletResult
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		var err error
		result, err = moveWallet(ctx, s.newStore(tx), m, enum.WalletTxDebit)
		return err
	})
	return result, err
}

// moveWallet applies one movement with a conditional update and appends the
// ledger row. It must run inside the caller's transaction.
func moveWallet(ctx context.Context, store WalletStore, m WalletMovement, txType string) (*WalletResult, error) {
	if !m.Amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	wallet, err := store.GetWalletByCustomer(ctx, m.CustomerID)
	if err != nil {
		return nil, notFound(err, ErrWalletNotFound, "get wallet")
	}

	delta := m.Amount
	if txType == enum.WalletTxDebit {
		delta = delta.Neg()
	}

	updated, err := store.AdjustWalletBalance(ctx, wallet.ID, delta)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound || database.IsCheckViolation(err, "wallets_balance_check") {
			return nil, ErrInsufficientFunds
		}
		return nil, fmt.Errorf("adjust wallet: %w", err)
	}

	txn, err := store.CreateWalletTransaction(ctx, database.CreateWalletTransactionParams{
		WalletID:     wallet.ID,
		Amount:       m.Amount,
		Type:         txType,
		Reason:       m.Reason,
		Reference:    strPtr(m.Reference),
		BalanceAfter: updated.Balance,
		CreatedBy:    m.ActorID,
	})
	if err != nil {
		return nil, fmt.Errorf("create wallet transaction: %w", err)
	}

	return &WalletResult{Wallet: updated, Transaction: txn}, nil
}
