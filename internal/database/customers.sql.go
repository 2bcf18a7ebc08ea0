package database

import (
	"context"

	"github.com/google/uuid"
)

const customerColumns = `id, user_id, name, phone, email, status, loyalty_points_balance, loyalty_lifetime_points,
	loyalty_tier_id, created_at, updated_at`

func scanCustomer(row rowScanner) (Customer, error) {
	var i Customer
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Phone,
		&i.Email,
		&i.Status,
		&i.LoyaltyPointsBalance,
		&i.LoyaltyLifetimePoints,
		&i.LoyaltyTierID,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createCustomer = `INSERT INTO customers (user_id, name, phone, email, status)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + customerColumns

type CreateCustomerParams struct {
	UserID *uuid.UUID
	Name   string
	Phone  string
	Email  *string
	Status string
}

func (q *Queries) CreateCustomer(ctx context.Context, arg CreateCustomerParams) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, createCustomer, arg.UserID, arg.Name, arg.Phone, arg.Email, arg.Status))
}

const getCustomer = `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`

func (q *Queries) GetCustomer(ctx context.Context, id uuid.UUID) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomer, id))
}

const getCustomerByPhone = `SELECT ` + customerColumns + ` FROM customers WHERE phone = $1`

func (q *Queries) GetCustomerByPhone(ctx context.Context, phone string) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, getCustomerByPhone, phone))
}

const attachCustomerUser = `UPDATE customers SET user_id = $2, status = 'active', updated_at = now()
WHERE id = $1 AND user_id IS NULL
RETURNING ` + customerColumns

// AttachCustomerUser claims a walk-in customer record for a newly registered user.
func (q *Queries) AttachCustomerUser(ctx context.Context, customerID, userID uuid.UUID) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, attachCustomerUser, customerID, userID))
}

type CustomerFilter struct {
	Search *string
	Status *string
}

const listCustomers = `SELECT ` + customerColumns + ` FROM customers
WHERE ($1::text IS NULL OR name ILIKE '%' || $1 || '%' OR phone ILIKE '%' || $1 || '%')
  AND ($2::text IS NULL OR status = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`

func (q *Queries) ListCustomers(ctx context.Context, f CustomerFilter, limit, offset int32) ([]Customer, error) {
	rows, err := q.db.Query(ctx, listCustomers, f.Search, f.Status, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanCustomer)
}

const countCustomers = `SELECT count(*) FROM customers
WHERE ($1::text IS NULL OR name ILIKE '%' || $1 || '%' OR phone ILIKE '%' || $1 || '%')
  AND ($2::text IS NULL OR status = $2)`

func (q *Queries) CountCustomers(ctx context.Context, f CustomerFilter) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countCustomers, f.Search, f.Status).Scan(&n)
	return n, err
}

const updateCustomer = `UPDATE customers SET name = $2, phone = $3, email = $4, updated_at = now()
WHERE id = $1
RETURNING ` + customerColumns

type UpdateCustomerParams struct {
	ID    uuid.UUID
	Name  string
	Phone string
	Email *string
}

func (q *Queries) UpdateCustomer(ctx context.Context, arg UpdateCustomerParams) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, updateCustomer, arg.ID, arg.Name, arg.Phone, arg.Email))
}

const setCustomerStatus = `UPDATE customers SET status = $2, updated_at = now() WHERE id = $1 RETURNING ` + customerColumns

func (q *Queries) SetCustomerStatus(ctx context.Context, id uuid.UUID, status string) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, setCustomerStatus, id, status))
}

const addLoyaltyPoints = `UPDATE customers
SET loyalty_points_balance  = loyalty_points_balance + $2,
    loyalty_lifetime_points = loyalty_lifetime_points + CASE WHEN $4 THEN 0 ELSE GREATEST($2, 0) END,
    updated_at = now()
WHERE id = $1 AND ($3 OR loyalty_points_balance + $2 >= 0)
RETURNING ` + customerColumns

type AddLoyaltyPointsParams struct {
	CustomerID uuid.UUID
	Delta      int64
	// AllowNegative lets an admin adjustment push the balance below zero.
	AllowNegative bool
	// SkipLifetime leaves lifetime points untouched, for reversals.
	SkipLifetime bool
}

// AddLoyaltyPoints applies delta in a single statement. It returns
// pgx.ErrNoRows when the customer is missing or the balance would go
// negative without AllowNegative.
func (q *Queries) AddLoyaltyPoints(ctx context.Context, arg AddLoyaltyPointsParams) (Customer, error) {
	return scanCustomer(q.db.QueryRow(ctx, addLoyaltyPoints, arg.CustomerID, arg.Delta, arg.AllowNegative, arg.SkipLifetime))
}

const setCustomerTier = `UPDATE customers SET loyalty_tier_id = $2, updated_at = now() WHERE id = $1`

func (q *Queries) SetCustomerTier(ctx context.Context, customerID uuid.UUID, tierID *uuid.UUID) error {
	_, err := q.db.Exec(ctx, setCustomerTier, customerID, tierID)
	return err
}

const countAllCustomers = `SELECT count(*) FROM customers`

func (q *Queries) CountAllCustomers(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countAllCustomers).Scan(&n)
	return n, err
}
