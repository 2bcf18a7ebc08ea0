package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
)

// ReferralStore defines the DB methods needed by referrals.
// Satisfied by *database.Queries.
type ReferralStore interface {
	WalletStore
	LoyaltyStore
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	GetUserByReferralCode(ctx context.Context, code string) (database.User, error)
	SetUserReferralCode(ctx context.Context, id uuid.UUID, code string) (database.User, error)
	CreateReferral(ctx context.Context, referrerID, refereeID uuid.UUID) (database.Referral, error)
	GetReferralByReferee(ctx context.Context, refereeID uuid.UUID) (database.Referral, error)
	GetReferralForUpdate(ctx context.Context, id uuid.UUID) (database.Referral, error)
	UpdateReferralStatus(ctx context.Context, id uuid.UUID, status string) (database.Referral, error)
	MarkReferralRewarded(ctx context.Context, arg database.MarkReferralRewardedParams) (database.Referral, error)
}

// NewReferralStore creates a ReferralStore from a DBTX (pool or tx).
type NewReferralStore func(db database.DBTX) ReferralStore

// ReferralService issues referral codes, records referrals and credits
// rewards.
type ReferralService struct {
	pool     TxBeginner
	newStore NewReferralStore
	store    ReferralStore
	settings SettingsProvider
	now      func() time.Time
}

// NewReferralService creates a new ReferralService.
func NewReferralService(pool TxBeginner, newStore NewReferralStore, store ReferralStore, settings SettingsProvider) *ReferralService {
	return &ReferralService{pool: pool, newStore: newStore, store: store, settings: settings, now: time.Now}
}

// ReferralCode formats a code as REF-<last 6 hex of the user id>-<base36 millis>.
func ReferralCode(userID uuid.UUID, at time.Time) string {
	hex := strings.ReplaceAll(userID.String(), "-", "")
	return fmt.Sprintf("REF-%s-%s",
		strings.ToUpper(hex[len(hex)-6:]),
		strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36)),
	)
}

// Code returns the user's referral code, issuing one on first use.
func (s *ReferralService) Code(ctx context.Context, userID uuid.UUID) (string, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return "", notFound(err, ErrCustomerNotFound, "get user")
	}
	if user.ReferralCode != nil {
		return *user.ReferralCode, nil
	}

	user, err = s.store.SetUserReferralCode(ctx, userID, ReferralCode(userID, s.now()))
	if err != nil {
		return "", fmt.Errorf("set referral code: %w", err)
	}
	return *user.ReferralCode, nil
}

// Apply links refereeID to the owner of code. A user can be referred once
// and never by themselves.
func (s *ReferralService) Apply(ctx context.Context, refereeID uuid.UUID, code string) (*database.Referral, error) {
	if !s.settings.Current().Referral.Enabled {
		return nil, ErrReferralsDisabled
	}

	referrer, err := s.store.GetUserByReferralCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, notFound(err, ErrReferralCodeInvalid, "get referrer")
	}
	if referrer.ID == refereeID {
		return nil, ErrSelfReferral
	}

	_, err = s.store.GetReferralByReferee(ctx, refereeID)
	if err == nil {
		return nil, ErrAlreadyReferred
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return nil, fmt.Errorf("get referral by referee: %w", err)
	}

	ref, err := s.store.CreateReferral(ctx, referrer.ID, refereeID)
	if err != nil {
		if database.IsUniqueViolation(err, "referrals_referee_user_id_key") {
			return nil, ErrAlreadyReferred
		}
		return nil, fmt.Errorf("create referral: %w", err)
	}
	return &ref, nil
}

// UpdateStatus moves a referral to status. Moving to rewarded credits the
// configured rewards exactly once.
func (s *ReferralService) UpdateStatus(ctx context.Context, id uuid.UUID, status string, actorID uuid.UUID) (*database.Referral, error) {
	if !isReferralStatus(status) {
		return nil, ErrInvalidReferralStat
	}
	cfg := s.settings.Current().Referral

	var ref database.Referral
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)

		current, err := store.GetReferralForUpdate(ctx, id)
		if err != nil {
			return notFound(err, ErrReferralNotFound, "lock referral")
		}

		ref, err = store.UpdateReferralStatus(ctx, id, status)
		if err != nil {
			return fmt.Errorf("update referral status: %w", err)
		}
		if status != enum.ReferralStatusRewarded || current.RewardCredited {
			return nil
		}

		reward := database.MarkReferralRewardedParams{ID: id}
		reason := fmt.Sprintf("Referral reward %s", id)

		referrerCustomer, err := customerOf(ctx, store, current.ReferrerUserID)
		if err != nil {
			return err
		}
		refereeCustomer, err := customerOf(ctx, store, current.RefereeUserID)
		if err != nil {
			return err
		}

		if referrerCustomer != nil {
			if reward.RewardAmount, err = creditReward(ctx, store, *referrerCustomer, cfg.ReferrerRewardAmount, reason, actorID); err != nil {
				return err
			}
			if reward.ReferrerPoints, err = rewardPoints(ctx, store, *referrerCustomer, cfg.ReferrerLoyaltyPoints, reason, actorID); err != nil {
				return err
			}
		}
		if refereeCustomer != nil && !current.RefereeRewardCredited {
			if reward.RefereeRewardAmount, err = creditReward(ctx, store, *refereeCustomer, cfg.RefereeRewardAmount, reason, actorID); err != nil {
				return err
			}
			if reward.RefereePoints, err = rewardPoints(ctx, store, *refereeCustomer, cfg.RefereeLoyaltyPoints, reason, actorID); err != nil {
				return err
			}
		}

		ref, err = store.MarkReferralRewarded(ctx, reward)
		if err != nil {
			return fmt.Errorf("mark referral rewarded: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

func customerOf(ctx context.Context, store ReferralStore, userID uuid.UUID) (*uuid.UUID, error) {
	user, err := store.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get referral user: %w", err)
	}
	return user.CustomerID, nil
}

func creditReward(ctx context.Context, store ReferralStore, customerID uuid.UUID, amount decimal.Decimal, reason string, actorID uuid.UUID) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, nil
	}
	if _, err := moveWallet(ctx, store, WalletMovement{
		CustomerID: customerID,
		Amount:     amount,
		Reason:     reason,
		ActorID:    &actorID,
	}, enum.WalletTxCredit); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

func rewardPoints(ctx context.Context, store ReferralStore, customerID uuid.UUID, points int64, reason string, actorID uuid.UUID) (int64, error) {
	if points <= 0 {
		return 0, nil
	}
	if _, err := movePoints(ctx, store, pointsMovement{
		customerID: customerID,
		entryType:  enum.LedgerTypeAdjust,
		points:     points,
		reason:     reason,
		actorID:    &actorID,
	}); err != nil {
		return 0, err
	}
	return points, nil
}

func isReferralStatus(s string) bool {
	switch s {
	case enum.ReferralStatusPending, enum.ReferralStatusQualified, enum.ReferralStatusRewarded,
		enum.ReferralStatusReversed, enum.ReferralStatusRejected:
		return true
	}
	return false
}
