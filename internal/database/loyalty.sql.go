package database

import (
	"context"

	"github.com/google/uuid"
)

// --- Tiers ---

const loyaltyTierColumns = `id, name, points_required, multiplier_percent, rank, free_pickup, free_delivery,
	priority_turnaround, active, created_at, updated_at`

func scanLoyaltyTier(row rowScanner) (LoyaltyTier, error) {
	var i LoyaltyTier
	err := row.Scan(
		&i.ID,
		&i.Name,
		&i.PointsRequired,
		&i.MultiplierPercent,
		&i.Rank,
		&i.FreePickup,
		&i.FreeDelivery,
		&i.PriorityTurnaround,
		&i.Active,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const listLoyaltyTiers = `SELECT ` + loyaltyTierColumns + ` FROM loyalty_tiers
WHERE ($1 = false OR active)
ORDER BY rank, points_required`

func (q *Queries) ListLoyaltyTiers(ctx context.Context, activeOnly bool) ([]LoyaltyTier, error) {
	rows, err := q.db.Query(ctx, listLoyaltyTiers, activeOnly)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanLoyaltyTier)
}

const getLoyaltyTier = `SELECT ` + loyaltyTierColumns + ` FROM loyalty_tiers WHERE id = $1`

func (q *Queries) GetLoyaltyTier(ctx context.Context, id uuid.UUID) (LoyaltyTier, error) {
	return scanLoyaltyTier(q.db.QueryRow(ctx, getLoyaltyTier, id))
}

const getTierForPoints = `SELECT ` + loyaltyTierColumns + ` FROM loyalty_tiers
WHERE active AND points_required <= $1
ORDER BY points_required DESC, rank DESC
LIMIT 1`

// GetTierForPoints returns the highest active tier reachable with lifetime points.
func (q *Queries) GetTierForPoints(ctx context.Context, lifetimePoints int64) (LoyaltyTier, error) {
	return scanLoyaltyTier(q.db.QueryRow(ctx, getTierForPoints, lifetimePoints))
}

type LoyaltyTierParams struct {
	ID                 uuid.UUID
	Name               string
	PointsRequired     int64
	MultiplierPercent  int32
	Rank               int32
	FreePickup         bool
	FreeDelivery       bool
	PriorityTurnaround bool
	Active             bool
}

const createLoyaltyTier = `INSERT INTO loyalty_tiers
	(name, points_required, multiplier_percent, rank, free_pickup, free_delivery, priority_turnaround, active)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + loyaltyTierColumns

func (q *Queries) CreateLoyaltyTier(ctx context.Context, arg LoyaltyTierParams) (LoyaltyTier, error) {
	row := q.db.QueryRow(ctx, createLoyaltyTier,
		arg.Name,
		arg.PointsRequired,
		arg.MultiplierPercent,
		arg.Rank,
		arg.FreePickup,
		arg.FreeDelivery,
		arg.PriorityTurnaround,
		arg.Active,
	)
	return scanLoyaltyTier(row)
}

const updateLoyaltyTier = `UPDATE loyalty_tiers
SET name = $2, points_required = $3, multiplier_percent = $4, rank = $5, free_pickup = $6,
    free_delivery = $7, priority_turnaround = $8, active = $9, updated_at = now()
WHERE id = $1
RETURNING ` + loyaltyTierColumns

func (q *Queries) UpdateLoyaltyTier(ctx context.Context, arg LoyaltyTierParams) (LoyaltyTier, error) {
	row := q.db.QueryRow(ctx, updateLoyaltyTier,
		arg.ID,
		arg.Name,
		arg.PointsRequired,
		arg.MultiplierPercent,
		arg.Rank,
		arg.FreePickup,
		arg.FreeDelivery,
		arg.PriorityTurnaround,
		arg.Active,
	)
	return scanLoyaltyTier(row)
}

const deleteLoyaltyTier = `DELETE FROM loyalty_tiers WHERE id = $1`

func (q *Queries) DeleteLoyaltyTier(ctx context.Context, id uuid.UUID) (int64, error) {
	tag, err := q.db.Exec(ctx, deleteLoyaltyTier, id)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// --- Ledger ---

const loyaltyLedgerColumns = `id, customer_id, order_id, type, points, balance_after, reason, created_by, created_at`

func scanLoyaltyLedgerEntry(row rowScanner) (LoyaltyLedgerEntry, error) {
	var i LoyaltyLedgerEntry
	err := row.Scan(
		&i.ID,
		&i.CustomerID,
		&i.OrderID,
		&i.Type,
		&i.Points,
		&i.BalanceAfter,
		&i.Reason,
		&i.CreatedBy,
		&i.CreatedAt,
	)
	return i, err
}

const createLoyaltyEntry = `INSERT INTO loyalty_ledger (customer_id, order_id, type, points, balance_after, reason, created_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING ` + loyaltyLedgerColumns

type CreateLoyaltyEntryParams struct {
	CustomerID   uuid.UUID
	OrderID      *uuid.UUID
	Type         string
	Points       int64
	BalanceAfter int64
	Reason       string
	CreatedBy    *uuid.UUID
}

func (q *Queries) CreateLoyaltyEntry(ctx context.Context, arg CreateLoyaltyEntryParams) (LoyaltyLedgerEntry, error) {
	row := q.db.QueryRow(ctx, createLoyaltyEntry,
		arg.CustomerID,
		arg.OrderID,
		arg.Type,
		arg.Points,
		arg.BalanceAfter,
		arg.Reason,
		arg.CreatedBy,
	)
	return scanLoyaltyLedgerEntry(row)
}

const getLoyaltyEntryForOrder = `SELECT ` + loyaltyLedgerColumns + ` FROM loyalty_ledger WHERE order_id = $1 AND type = $2`

func (q *Queries) GetLoyaltyEntryForOrder(ctx context.Context, orderID uuid.UUID, entryType string) (LoyaltyLedgerEntry, error) {
	return scanLoyaltyLedgerEntry(q.db.QueryRow(ctx, getLoyaltyEntryForOrder, orderID, entryType))
}

const listLoyaltyLedger = `SELECT ` + loyaltyLedgerColumns + ` FROM loyalty_ledger
WHERE customer_id = $1
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListLoyaltyLedger(ctx context.Context, customerID uuid.UUID, limit, offset int32) ([]LoyaltyLedgerEntry, error) {
	rows, err := q.db.Query(ctx, listLoyaltyLedger, customerID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanLoyaltyLedgerEntry)
}

const countLoyaltyLedger = `SELECT count(*) FROM loyalty_ledger WHERE customer_id = $1`

func (q *Queries) CountLoyaltyLedger(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countLoyaltyLedger, customerID).Scan(&n)
	return n, err
}

const sumLoyaltyLedger = `SELECT COALESCE(sum(points), 0)::bigint FROM loyalty_ledger WHERE customer_id = $1`

// SumLoyaltyLedger is the reconciliation figure compared against the
// customer's points balance.
func (q *Queries) SumLoyaltyLedger(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, sumLoyaltyLedger, customerID).Scan(&n)
	return n, err
}
