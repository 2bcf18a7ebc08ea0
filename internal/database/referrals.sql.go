package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const referralColumns = `id, referrer_user_id, referee_user_id, status, reward_credited, reward_amount,
	referee_reward_credited, referee_reward_amount, referrer_loyalty_points, referee_loyalty_points,
	created_at, updated_at`

func scanReferral(row rowScanner) (Referral, error) {
	var i Referral
	err := row.Scan(
		&i.ID,
		&i.ReferrerUserID,
		&i.RefereeUserID,
		&i.Status,
		&i.RewardCredited,
		&i.RewardAmount,
		&i.RefereeRewardCredited,
		&i.RefereeRewardAmount,
		&i.ReferrerLoyaltyPoints,
		&i.RefereeLoyaltyPoints,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createReferral = `INSERT INTO referrals (referrer_user_id, referee_user_id) VALUES ($1, $2) RETURNING ` + referralColumns

func (q *Queries) CreateReferral(ctx context.Context, referrerID, refereeID uuid.UUID) (Referral, error) {
	return scanReferral(q.db.QueryRow(ctx, createReferral, referrerID, refereeID))
}

const getReferral = `SELECT ` + referralColumns + ` FROM referrals WHERE id = $1`

func (q *Queries) GetReferral(ctx context.Context, id uuid.UUID) (Referral, error) {
	return scanReferral(q.db.QueryRow(ctx, getReferral, id))
}

const getReferralForUpdate = `SELECT ` + referralColumns + ` FROM referrals WHERE id = $1 FOR UPDATE`

func (q *Queries) GetReferralForUpdate(ctx context.Context, id uuid.UUID) (Referral, error) {
	return scanReferral(q.db.QueryRow(ctx, getReferralForUpdate, id))
}

const getReferralByReferee = `SELECT ` + referralColumns + ` FROM referrals WHERE referee_user_id = $1`

func (q *Queries) GetReferralByReferee(ctx context.Context, refereeID uuid.UUID) (Referral, error) {
	return scanReferral(q.db.QueryRow(ctx, getReferralByReferee, refereeID))
}

const listReferralsByReferrer = `SELECT ` + referralColumns + ` FROM referrals WHERE referrer_user_id = $1 ORDER BY created_at DESC`

func (q *Queries) ListReferralsByReferrer(ctx context.Context, referrerID uuid.UUID) ([]Referral, error) {
	rows, err := q.db.Query(ctx, listReferralsByReferrer, referrerID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanReferral)
}

const listReferrals = `SELECT ` + referralColumns + ` FROM referrals
WHERE ($1::text IS NULL OR status = $1)
ORDER BY created_at DESC
LIMIT $2 OFFSET $3`

func (q *Queries) ListReferrals(ctx context.Context, status *string, limit, offset int32) ([]Referral, error) {
	rows, err := q.db.Query(ctx, listReferrals, status, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanReferral)
}

const countReferrals = `SELECT count(*) FROM referrals WHERE ($1::text IS NULL OR status = $1)`

func (q *Queries) CountReferrals(ctx context.Context, status *string) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countReferrals, status).Scan(&n)
	return n, err
}

const updateReferralStatus = `UPDATE referrals SET status = $2, updated_at = now() WHERE id = $1 RETURNING ` + referralColumns

func (q *Queries) UpdateReferralStatus(ctx context.Context, id uuid.UUID, status string) (Referral, error) {
	return scanReferral(q.db.QueryRow(ctx, updateReferralStatus, id, status))
}

const markReferralRewarded = `UPDATE referrals
SET reward_credited = true,
    reward_amount = $2,
    referee_reward_credited = $3 > 0 OR referee_reward_credited,
    referee_reward_amount = $3,
    referrer_loyalty_points = $4,
    referee_loyalty_points = $5,
    updated_at = now()
WHERE id = $1
RETURNING ` + referralColumns

type MarkReferralRewardedParams struct {
	ID                  uuid.UUID
	RewardAmount        decimal.Decimal
	RefereeRewardAmount decimal.Decimal
	ReferrerPoints      int64
	RefereePoints       int64
}

func (q *Queries) MarkReferralRewarded(ctx context.Context, arg MarkReferralRewardedParams) (Referral, error) {
	row := q.db.QueryRow(ctx, markReferralRewarded,
		arg.ID,
		arg.RewardAmount,
		arg.RefereeRewardAmount,
		arg.ReferrerPoints,
		arg.RefereePoints,
	)
	return scanReferral(row)
}
