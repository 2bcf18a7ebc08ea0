package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const promoCodeColumns = `id, code, type, value, usage_limit, expires_at, active, created_at, updated_at`

func scanPromoCode(row rowScanner) (PromoCode, error) {
	var i PromoCode
	err := row.Scan(
		&i.ID,
		&i.Code,
		&i.Type,
		&i.Value,
		&i.UsageLimit,
		&i.ExpiresAt,
		&i.Active,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listPromoCodes = `SELECT ` + promoCodeColumns + ` FROM promo_codes
WHERE ($1::boolean IS NULL OR active = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListPromoCodes(ctx context.Context, active *bool, limit, offset int32) ([]PromoCode, error) {
	rows, err := q.db.Query(ctx, listPromoCodes, active, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPromoCode)
}

const countPromoCodes = `SELECT count(*) FROM promo_codes WHERE ($1::boolean IS NULL OR active = $1)`

func (q *Queries) CountPromoCodes(ctx context.Context, active *bool) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countPromoCodes, active).Scan(&n)
	return n, err
}

const getPromoCode = `SELECT ` + promoCodeColumns + ` FROM promo_codes WHERE id = $1`

func (q *Queries) GetPromoCode(ctx context.Context, id uuid.UUID) (PromoCode, error) {
	return scanPromoCode(q.db.QueryRow(ctx, getPromoCode, id))
}

const getPromoCodeByCode = `SELECT ` + promoCodeColumns + ` FROM promo_codes WHERE code = upper($1)`

func (q *Queries) GetPromoCodeByCode(ctx context.Context, code string) (PromoCode, error) {
	return scanPromoCode(q.db.QueryRow(ctx, getPromoCodeByCode, code))
}

const getPromoCodeByCodeForUpdate = `SELECT ` + promoCodeColumns + ` FROM promo_codes WHERE code = upper($1) FOR UPDATE`

// GetPromoCodeByCodeForUpdate locks the promo row so concurrent redemptions
// of the same code serialize on the usage-limit check.
func (q *Queries) GetPromoCodeByCodeForUpdate(ctx context.Context, code string) (PromoCode, error) {
	return scanPromoCode(q.db.QueryRow(ctx, getPromoCodeByCodeForUpdate, code))
}

type PromoCodeParams struct {
	ID         uuid.UUID
	Code       string
	Type       string
	Value      decimal.Decimal
	UsageLimit *int32
	ExpiresAt  *time.Time
	Active     bool
}

const createPromoCode = `INSERT INTO promo_codes (code, type, value, usage_limit, expires_at, active)
VALUES (upper($1), $2, $3, $4, $5, $6)
RETURNING ` + promoCodeColumns

func (q *Queries) CreatePromoCode(ctx context.Context, arg PromoCodeParams) (PromoCode, error) {
	row := q.db.QueryRow(ctx, createPromoCode, arg.Code, arg.Type, arg.Value, arg.UsageLimit, arg.ExpiresAt, arg.Active)
	return scanPromoCode(row)
}

const updatePromoCode = `UPDATE promo_codes
SET code = upper($2), type = $3, value = $4, usage_limit = $5, expires_at = $6, active = $7, updated_at = now()
WHERE id = $1
RETURNING ` + promoCodeColumns

func (q *Queries) UpdatePromoCode(ctx context.Context, arg PromoCodeParams) (PromoCode, error) {
	row := q.db.QueryRow(ctx, updatePromoCode,
		arg.ID,
		arg.Code,
		arg.Type,
		arg.Value,
		arg.UsageLimit,
		arg.ExpiresAt,
		arg.Active,
	)
	return scanPromoCode(row)
}

const deactivatePromoCode = `UPDATE promo_codes SET active = false, updated_at = now() WHERE id = $1 RETURNING ` + promoCodeColumns

func (q *Queries) DeactivatePromoCode(ctx context.Context, id uuid.UUID) (PromoCode, error) {
	return scanPromoCode(q.db.QueryRow(ctx, deactivatePromoCode, id))
}

// --- Redemptions ---

const promoRedemptionColumns = `id, promo_code_id, order_id, customer_id, amount, created_at`

func scanPromoRedemption(row rowScanner) (PromoRedemption, error) {
	var i PromoRedemption
	err := row.Scan(&i.ID, &i.PromoCodeID, &i.OrderID, &i.CustomerID, &i.Amount, &i.CreatedAt)
	return i, err
}

const countPromoRedemptions = `SELECT count(*) FROM promo_redemptions WHERE promo_code_id = $1`

func (q *Queries) CountPromoRedemptions(ctx context.Context, promoCodeID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countPromoRedemptions, promoCodeID).Scan(&n)
	return n, err
}

const getPromoRedemptionForOrder = `SELECT ` + promoRedemptionColumns + ` FROM promo_redemptions WHERE order_id = $1`

func (q *Queries) GetPromoRedemptionForOrder(ctx context.Context, orderID uuid.UUID) (PromoRedemption, error) {
	return scanPromoRedemption(q.db.QueryRow(ctx, getPromoRedemptionForOrder, orderID))
}

const deletePromoRedemptionForOrder = `DELETE FROM promo_redemptions WHERE order_id = $1`

func (q *Queries) DeletePromoRedemptionForOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deletePromoRedemptionForOrder, orderID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

const createPromoRedemption = `INSERT INTO promo_redemptions (promo_code_id, order_id, customer_id, amount)
VALUES ($1, $2, $3, $4)
RETURNING ` + promoRedemptionColumns

type CreatePromoRedemptionParams struct {
	PromoCodeID uuid.UUID
	OrderID     uuid.UUID
	CustomerID  *uuid.UUID
	Amount      decimal.Decimal
}

func (q *Queries) CreatePromoRedemption(ctx context.Context, arg CreatePromoRedemptionParams) (PromoRedemption, error) {
	row := q.db.QueryRow(ctx, createPromoRedemption, arg.PromoCodeID, arg.OrderID, arg.CustomerID, arg.Amount)
	return scanPromoRedemption(row)
}

const listPromoRedemptions = `SELECT ` + promoRedemptionColumns + ` FROM promo_redemptions
WHERE promo_code_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListPromoRedemptions(ctx context.Context, promoCodeID uuid.UUID, limit, offset int32) ([]PromoRedemption, error) {
	rows, err := q.db.Query(ctx, listPromoRedemptions, promoCodeID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanPromoRedemption)
}
