package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const walletColumns = `id, customer_id, balance, currency, created_at, updated_at`

func scanWallet(row rowScanner) (Wallet, error) {
	var i Wallet
	err := row.Scan(&i.ID, &i.CustomerID, &i.Balance, &i.Currency, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

const createWallet = `INSERT INTO wallets (customer_id) VALUES ($1) RETURNING ` + walletColumns

func (q *Queries) CreateWallet(ctx context.Context, customerID uuid.UUID) (Wallet, error) {
	return scanWallet(q.db.QueryRow(ctx, createWallet, customerID))
}

const getWalletByCustomer = `SELECT ` + walletColumns + ` FROM wallets WHERE customer_id = $1`

func (q *Queries) GetWalletByCustomer(ctx context.Context, customerID uuid.UUID) (Wallet, error) {
	return scanWallet(q.db.QueryRow(ctx, getWalletByCustomer, customerID))
}

const adjustWalletBalance = `UPDATE wallets SET balance = balance + $2, updated_at = now()
WHERE id = $1 AND balance + $2 >= 0
RETURNING ` + walletColumns

// AdjustWalletBalance adds delta (negative for a debit) atomically. It
// returns pgx.ErrNoRows when the wallet is missing or the result would be
// negative.
func (q *Queries) AdjustWalletBalance(ctx context.Context, walletID uuid.UUID, delta decimal.Decimal) (Wallet, error) {
	return scanWallet(q.db.QueryRow(ctx, adjustWalletBalance, walletID, delta))
}

const walletTransactionColumns = `id, wallet_id, amount, type, reason, reference, balance_after, created_by, created_at`

func scanWalletTransaction(row rowScanner) (WalletTransaction, error) {
	var i WalletTransaction
	err := row.Scan(
		&i.ID,
		&i.WalletID,
		&i.Amount,
		&i.Type,
		&i.Reason,
		&i.Reference,
		&i.BalanceAfter,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createWalletTransaction = `INSERT INTO wallet_transactions (wallet_id, amount, type, reason, reference, balance_after, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + walletTransactionColumns

type CreateWalletTransactionParams struct {
	WalletID     uuid.UUID
	Amount       decimal.Decimal
	Type         string
	Reason       string
	Reference    *string
	BalanceAfter decimal.Decimal
	CreatedBy    *uuid.UUID
}

func (q *Queries) CreateWalletTransaction(ctx context.Context, arg CreateWalletTransactionParams) (WalletTransaction, error) {
	row := q.db.QueryRow(ctx, createWalletTransaction,
		arg.WalletID,
		arg.Amount,
		arg.Type,
		arg.Reason,
		arg.Reference,
		arg.BalanceAfter,
		arg.CreatedBy,
	)
	return scanWalletTransaction(row)
}

const listWalletTransactions = `SELECT ` + walletTransactionColumns + ` FROM wallet_transactions
WHERE wallet_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListWalletTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int32) ([]WalletTransaction, error) {
	rows, err := q.db.Query(ctx, listWalletTransactions, walletID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanWalletTransaction)
}

const countWalletTransactions = `SELECT count(*) FROM wallet_transactions WHERE wallet_id = $1`

func (q *Queries) CountWalletTransactions(ctx context.Context, walletID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countWalletTransactions, walletID).Scan(&n)
	return n, err
}
