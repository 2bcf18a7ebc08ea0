// Package settings holds the business configuration that admins can change
// at runtime. Every change is stored as a new version; the process keeps the
// latest version in memory and swaps it atomically on update or reload.
package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/enum"
)

// Section names accepted by Update.
const (
	SectionPayment      = "payment"
	SectionNotification = "notification"
	SectionLoyalty      = "loyalty"
	SectionReferral     = "referral"
	SectionFees         = "fees"
	SectionPayroll      = "payroll"
	SectionServiceLevel = "service_levels"
)

var ErrUnknownSection = apperr.NotFound("Settings section not found")

type Payment struct {
	EnableWallet         bool             `json:"enable_wallet"`
	EnableCash           bool             `json:"enable_cash"`
	EnablePOS            bool             `json:"enable_pos"`
	EnableTransfer       bool             `json:"enable_transfer"`
	EnableOnline         bool             `json:"enable_online"`
	WalletMinTopUp       decimal.Decimal  `json:"wallet_min_top_up"`
	WalletMaxTopUp       *decimal.Decimal `json:"wallet_max_top_up"`
	RequireReferenceCash bool             `json:"require_reference_for_cash"`
	RequireReferencePOS  bool             `json:"require_reference_for_pos"`
}

type Notification struct {
	DisableInApp    bool `json:"disable_in_app"`
	DisableSMS      bool `json:"disable_sms"`
	DisableEmail    bool `json:"disable_email"`
	DisableWhatsapp bool `json:"disable_whatsapp"`
}

type Loyalty struct {
	Enabled                     bool            `json:"enabled"`
	RedemptionEnabled           bool            `json:"redemption_enabled"`
	PointsPerCurrency           decimal.Decimal `json:"points_per_currency"`
	RedemptionPointsPerCurrency decimal.Decimal `json:"redemption_points_per_currency"`
	MinOrderAmount              decimal.Decimal `json:"min_order_amount"`
	MaxPointsPerOrder           int64           `json:"max_points_per_order"`
	MinRedeemPoints             int64           `json:"min_redeem_points"`
	MaxRedeemPercent            int64           `json:"max_redeem_percent"`
	QualifyOnStatus             string          `json:"qualify_on_status"`
	BonusStandardPercent        int64           `json:"bonus_standard_percent"`
	BonusExpressPercent         int64           `json:"bonus_express_percent"`
	BonusPremiumPercent         int64           `json:"bonus_premium_percent"`
	BonusFirstOrderPoints       int64           `json:"bonus_first_order_points"`
}

type Referral struct {
	Enabled               bool            `json:"enabled"`
	ReferrerRewardAmount  decimal.Decimal `json:"referrer_reward_amount"`
	RefereeRewardAmount   decimal.Decimal `json:"referee_reward_amount"`
	ReferrerLoyaltyPoints int64           `json:"referrer_loyalty_points"`
	RefereeLoyaltyPoints  int64           `json:"referee_loyalty_points"`
}

type Fees struct {
	PickupFee   decimal.Decimal `json:"pickup_fee"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
}

type Payroll struct {
	// RegularHoursThreshold applies to every period regardless of its length.
	RegularHoursThreshold decimal.Decimal `json:"regular_hours_threshold"`
}

type ServiceLevel struct {
	DurationHours int  `json:"duration_hours"`
	Active        bool `json:"active"`
}

// Settings is one immutable version of the business configuration.
type Settings struct {
	Version       int64                   `json:"version"`
	Payment       Payment                 `json:"payment"`
	Notification  Notification            `json:"notification"`
	Loyalty       Loyalty                 `json:"loyalty"`
	Referral      Referral                `json:"referral"`
	Fees          Fees                    `json:"fees"`
	Payroll       Payroll                 `json:"payroll"`
	ServiceLevels map[string]ServiceLevel `json:"service_levels"`
}

// Defaults returns version 0, used until an admin saves the first version.
func Defaults() Settings {
	return Settings{
		Payment: Payment{
			EnableWallet:        true,
			EnableCash:          true,
			EnablePOS:           true,
			EnableTransfer:      true,
			EnableOnline:        true,
			WalletMinTopUp:      decimal.Zero,
			RequireReferencePOS: true,
		},
		Loyalty: Loyalty{
			Enabled:                     true,
			RedemptionEnabled:           true,
			PointsPerCurrency:           decimal.NewFromInt(1),
			RedemptionPointsPerCurrency: decimal.NewFromInt(1),
			MinOrderAmount:              decimal.Zero,
			MinRedeemPoints:             100,
			MaxRedeemPercent:            50,
			QualifyOnStatus:             enum.OrderStatusCompleted,
			BonusStandardPercent:        100,
			BonusExpressPercent:         120,
			BonusPremiumPercent:         150,
		},
		Referral: Referral{
			Enabled:              true,
			ReferrerRewardAmount: decimal.NewFromInt(1000),
			RefereeRewardAmount:  decimal.Zero,
		},
		Fees: Fees{
			PickupFee:   decimal.NewFromInt(500),
			DeliveryFee: decimal.NewFromInt(500),
		},
		Payroll: Payroll{
			RegularHoursThreshold: decimal.NewFromInt(160),
		},
		ServiceLevels: map[string]ServiceLevel{
			enum.ServiceLevelStandard: {DurationHours: 48, Active: true},
			enum.ServiceLevelExpress:  {DurationHours: 24, Active: true},
			enum.ServiceLevelPremium:  {DurationHours: 12, Active: true},
		},
	}
}

// BonusPercent returns the loyalty earn bonus for a service level.
func (l Loyalty) BonusPercent(level string) int64 {
	switch level {
	case enum.ServiceLevelExpress:
		return l.BonusExpressPercent
	case enum.ServiceLevelPremium:
		return l.BonusPremiumPercent
	default:
		return l.BonusStandardPercent
	}
}

// Section returns the named section as a value suitable for JSON encoding.
func (s *Settings) Section(name string) (any, error) {
	switch name {
	case SectionPayment:
		return s.Payment, nil
	case SectionNotification:
		return s.Notification, nil
	case SectionLoyalty:
		return s.Loyalty, nil
	case SectionReferral:
		return s.Referral, nil
	case SectionFees:
		return s.Fees, nil
	case SectionPayroll:
		return s.Payroll, nil
	case SectionServiceLevel:
		return s.ServiceLevels, nil
	}
	return nil, ErrUnknownSection
}

// apply decodes patch over the named section. Fields absent from patch keep
// their current value.
func (s *Settings) apply(name string, patch json.RawMessage) error {
	var target any
	switch name {
	case SectionPayment:
		target = &s.Payment
	case SectionNotification:
		target = &s.Notification
	case SectionLoyalty:
		target = &s.Loyalty
	case SectionReferral:
		target = &s.Referral
	case SectionFees:
		target = &s.Fees
	case SectionPayroll:
		target = &s.Payroll
	case SectionServiceLevel:
		levels := make(map[string]ServiceLevel, len(s.ServiceLevels))
		for k, v := range s.ServiceLevels {
			levels[k] = v
		}
		s.ServiceLevels = levels
		target = &s.ServiceLevels
	default:
		return ErrUnknownSection
	}
	if err := json.Unmarshal(patch, target); err != nil {
		return apperr.Validation("Invalid settings payload")
	}
	return nil
}

// Validate checks cross-field constraints.
func (s *Settings) Validate() error {
	if s.Loyalty.MaxRedeemPercent < 0 || s.Loyalty.MaxRedeemPercent > 100 {
		return apperr.Validation("max_redeem_percent must be between 0 and 100")
	}
	if s.Loyalty.QualifyOnStatus != enum.OrderStatusCompleted && s.Loyalty.QualifyOnStatus != enum.PaymentStatusPaid {
		return apperr.Validation("qualify_on_status must be 'completed' or 'paid'")
	}
	if s.Loyalty.RedemptionPointsPerCurrency.Sign() <= 0 {
		return apperr.Validation("redemption_points_per_currency must be positive")
	}
	if s.Fees.PickupFee.IsNegative() || s.Fees.DeliveryFee.IsNegative() {
		return apperr.Validation("fees must be non-negative")
	}
	if s.Payroll.RegularHoursThreshold.Sign() <= 0 {
		return apperr.Validation("regular_hours_threshold must be positive")
	}
	for level, cfg := range s.ServiceLevels {
		if level != enum.ServiceLevelStandard && level != enum.ServiceLevelExpress && level != enum.ServiceLevelPremium {
			return apperr.Validation(fmt.Sprintf("unknown service level '%s'", level))
		}
		if cfg.DurationHours < 0 {
			return apperr.Validation("duration_hours must be non-negative")
		}
	}
	return nil
}

// Source persists settings versions. Satisfied by *database.Queries.
type Source interface {
	GetLatestSettings(ctx context.Context) (version int64, data []byte, err error)
	InsertSettings(ctx context.Context, data []byte, updatedBy *uuid.UUID) (int64, error)
}

// Store serves the current settings version.
type Store struct {
	src      Source
	logger   *zap.Logger
	current  atomic.Pointer[Settings]
	onChange func(ctx context.Context, version int64)
}

// NewStore creates a Store primed with Defaults. Call Load before serving.
func NewStore(src Source, logger *zap.Logger) *Store {
	s := &Store{src: src, logger: logger}
	def := Defaults()
	s.current.Store(&def)
	return s
}

// OnChange registers a hook invoked after a new version is saved locally.
func (s *Store) OnChange(fn func(ctx context.Context, version int64)) {
	s.onChange = fn
}

// Current returns the in-memory version. Callers must not mutate it.
func (s *Store) Current() *Settings {
	return s.current.Load()
}

// Load replaces the in-memory copy with the latest stored version.
// An empty store keeps the defaults.
func (s *Store) Load(ctx context.Context) error {
	version, data, err := s.src.GetLatestSettings(ctx)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			s.logger.Info("no stored settings, using defaults")
			return nil
		}
		return fmt.Errorf("load settings: %w", err)
	}

	next := Defaults()
	if err := json.Unmarshal(data, &next); err != nil {
		return fmt.Errorf("decode settings v%d: %w", version, err)
	}
	next.Version = version
	s.current.Store(&next)
	s.logger.Info("settings loaded", zap.Int64("version", version))
	return nil
}

// Update applies patch to one section and stores the result as a new version.
func (s *Store) Update(ctx context.Context, section string, patch json.RawMessage, updatedBy *uuid.UUID) (*Settings, error) {
	cur := s.Current()
	next := *cur
	if err := next.apply(section, patch); err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(next)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	version, err := s.src.InsertSettings(ctx, data, updatedBy)
	if err != nil {
		return nil, fmt.Errorf("insert settings: %w", err)
	}
	next.Version = version
	s.current.Store(&next)

	if s.onChange != nil {
		s.onChange(ctx, version)
	}
	return &next, nil
}

// IsUnknownSection reports whether err came from an unknown section name.
func IsUnknownSection(err error) bool {
	return errors.Is(err, ErrUnknownSection)
}
