package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const paymentColumns = `id, order_id, amount, method, status, reference, confirmed_by, created_at`

func scanPayment(row rowScanner) (Payment, error) {
	var i Payment
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.Amount,
		&i.Method,
		&i.Status,
		&i.Reference,
		&i.ConfirmedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createPayment = `INSERT INTO payments (order_id, amount, method, status, reference, confirmed_by)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + paymentColumns

type CreatePaymentParams struct {
	OrderID     uuid.UUID
	Amount      decimal.Decimal
	Method      string
	Status      string
	Reference   *string
	ConfirmedBy *uuid.UUID
}

func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	row := q.db.QueryRow(ctx, createPayment,
		arg.OrderID,
		arg.Amount,
		arg.Method,
		arg.Status,
		arg.Reference,
		arg.ConfirmedBy,
	)
	return scanPayment(row)
}

const getPayment = `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1`

func (q *Queries) GetPayment(ctx context.Context, id uuid.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPayment, id))
}

const getPaymentByOrder = `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`

func (q *Queries) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (Payment, error) {
	return scanPayment(q.db.QueryRow(ctx, getPaymentByOrder, orderID))
}

type PaymentFilter struct {
	Status *string
	Method *string
}

const listPayments = `SELECT ` + paymentColumns + ` FROM payments
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR method = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

func (q *Queries) ListPayments(ctx context.Context, f PaymentFilter, limit, offset int32) ([]Payment, error) {
	rows, err := q.db.Query(ctx, listPayments, f.Status, f.Method, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPayment)
}

const countPayments = `SELECT count(*) FROM payments
WHERE ($1::text IS NULL OR status = $1)
  AND ($2::text IS NULL OR method = $2)`

func (q *Queries) CountPayments(ctx context.Context, f PaymentFilter) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countPayments, f.Status, f.Method).Scan(&n)
	return n, err
}
