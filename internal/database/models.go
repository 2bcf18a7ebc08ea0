package database

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type User struct {
	ID              uuid.UUID  `json:"id"`
	Name            string     `json:"name"`
	Email           *string    `json:"email"`
	Phone           string     `json:"phone"`
	HashedPassword  string     `json:"-"`
	Role            string     `json:"role"`
	StaffRole       *string    `json:"staff_role"`
	CustomerID      *uuid.UUID `json:"customer_id"`
	ReferralCode    *string    `json:"referral_code"`
	IsActive        bool       `json:"is_active"`
	IsPhoneVerified bool       `json:"is_phone_verified"`
	LastLoginAt     *time.Time `json:"last_login_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type Customer struct {
	ID                    uuid.UUID  `json:"id"`
	UserID                *uuid.UUID `json:"user_id"`
	Name                  string     `json:"name"`
	Phone                 string     `json:"phone"`
	Email                 *string    `json:"email"`
	Status                string     `json:"status"`
	LoyaltyPointsBalance  int64      `json:"loyalty_points_balance"`
	LoyaltyLifetimePoints int64      `json:"loyalty_lifetime_points"`
	LoyaltyTierID         *uuid.UUID `json:"loyalty_tier_id"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type LoyaltyTier struct {
	ID                 uuid.UUID `json:"id"`
	Name               string    `json:"name"`
	PointsRequired     int64     `json:"points_required"`
	MultiplierPercent  int32     `json:"multiplier_percent"`
	Rank               int32     `json:"rank"`
	FreePickup         bool      `json:"free_pickup"`
	FreeDelivery       bool      `json:"free_delivery"`
	PriorityTurnaround bool      `json:"priority_turnaround"`
	Active             bool      `json:"active"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type LoyaltyLedgerEntry struct {
	ID           uuid.UUID  `json:"id"`
	CustomerID   uuid.UUID  `json:"customer_id"`
	OrderID      *uuid.UUID `json:"order_id"`
	Type         string     `json:"type"`
	Points       int64      `json:"points"`
	BalanceAfter int64      `json:"balance_after"`
	Reason       string     `json:"reason"`
	CreatedBy    *uuid.UUID `json:"created_by"`
	CreatedAt    time.Time  `json:"created_at"`
}

type Wallet struct {
	ID         uuid.UUID       `json:"id"`
	CustomerID uuid.UUID       `json:"customer_id"`
	Balance    decimal.Decimal `json:"balance"`
	Currency   string          `json:"currency"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type WalletTransaction struct {
	ID           uuid.UUID       `json:"id"`
	WalletID     uuid.UUID       `json:"wallet_id"`
	Amount       decimal.Decimal `json:"amount"`
	Type         string          `json:"type"`
	Reason       string          `json:"reason"`
	Reference    *string         `json:"reference"`
	BalanceAfter decimal.Decimal `json:"balance_after"`
	CreatedBy    *uuid.UUID      `json:"created_by"`
	CreatedAt    time.Time       `json:"created_at"`
}

type Service struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	Icon        *string   `json:"icon"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ServiceCategory struct {
	ID        uuid.UUID       `json:"id"`
	ServiceID uuid.UUID       `json:"service_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Active    bool            `json:"active"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type Order struct {
	ID                    uuid.UUID       `json:"id"`
	OrderNumber           string          `json:"order_number"`
	CustomerID            uuid.UUID       `json:"customer_id"`
	CreatedBy             uuid.UUID       `json:"created_by"`
	ServiceType           string          `json:"service_type"`
	OrderType             string          `json:"order_type"`
	PickupAddress         *string         `json:"pickup_address"`
	DeliveryAddress       *string         `json:"delivery_address"`
	ScheduledPickupAt     *time.Time      `json:"scheduled_pickup_at"`
	SpecialInstructions   *string         `json:"special_instructions"`
	ServiceLevel          string          `json:"service_level"`
	ServiceLevelDueAt     *time.Time      `json:"service_level_due_at"`
	Status                string          `json:"status"`
	PaymentMethod         string          `json:"payment_method"`
	PaymentStatus         string          `json:"payment_status"`
	PaymentAmount         decimal.Decimal `json:"payment_amount"`
	PaymentTransactionID  *string         `json:"payment_transaction_id"`
	PaidAt                *time.Time      `json:"paid_at"`
	Subtotal              decimal.Decimal `json:"subtotal"`
	PickupFee             decimal.Decimal `json:"pickup_fee"`
	DeliveryFee           decimal.Decimal `json:"delivery_fee"`
	Discount              decimal.Decimal `json:"discount"`
	Tax                   decimal.Decimal `json:"tax"`
	Total                 decimal.Decimal `json:"total"`
	PromoCodeID           *uuid.UUID      `json:"promo_code_id"`
	PromoDiscount         decimal.Decimal `json:"promo_discount"`
	LoyaltyPointsEarned   int64           `json:"loyalty_points_earned"`
	LoyaltyPointsRedeemed int64           `json:"loyalty_points_redeemed"`
	LoyaltyDiscountAmount decimal.Decimal `json:"loyalty_discount_amount"`
	AssignedStaffID       *uuid.UUID      `json:"assigned_staff_id"`
	QRCode                *string         `json:"qr_code"`
	Notes                 *string         `json:"notes"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID                uuid.UUID       `json:"id"`
	OrderID           uuid.UUID       `json:"order_id"`
	ServiceCategoryID *uuid.UUID      `json:"service_category_id"`
	ItemType          string          `json:"item_type"`
	Description       *string         `json:"description"`
	Condition         *string         `json:"condition"`
	Quantity          int32           `json:"quantity"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	LineTotal         decimal.Decimal `json:"line_total"`
	CreatedAt         time.Time       `json:"created_at"`
}

type OrderStatusEvent struct {
	ID        int64      `json:"id"`
	OrderID   uuid.UUID  `json:"order_id"`
	Status    string     `json:"status"`
	ActorID   *uuid.UUID `json:"actor_id"`
	Notes     *string    `json:"notes"`
	CreatedAt time.Time  `json:"created_at"`
}

type Payment struct {
	ID          uuid.UUID       `json:"id"`
	OrderID     uuid.UUID       `json:"order_id"`
	Amount      decimal.Decimal `json:"amount"`
	Method      string          `json:"method"`
	Status      string          `json:"status"`
	Reference   *string         `json:"reference"`
	ConfirmedBy *uuid.UUID      `json:"confirmed_by"`
	CreatedAt   time.Time       `json:"created_at"`
}

type PromoCode struct {
	ID         uuid.UUID       `json:"id"`
	Code       string          `json:"code"`
	Type       string          `json:"type"`
	Value      decimal.Decimal `json:"value"`
	UsageLimit *int32          `json:"usage_limit"`
	ExpiresAt  *time.Time      `json:"expires_at"`
	Active     bool            `json:"active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

type PromoRedemption struct {
	ID          uuid.UUID       `json:"id"`
	PromoCodeID uuid.UUID       `json:"promo_code_id"`
	OrderID     uuid.UUID       `json:"order_id"`
	CustomerID  *uuid.UUID      `json:"customer_id"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Referral struct {
	ID                    uuid.UUID       `json:"id"`
	ReferrerUserID        uuid.UUID       `json:"referrer_user_id"`
	RefereeUserID         uuid.UUID       `json:"referee_user_id"`
	Status                string          `json:"status"`
	RewardCredited        bool            `json:"reward_credited"`
	RewardAmount          decimal.Decimal `json:"reward_amount"`
	RefereeRewardCredited bool            `json:"referee_reward_credited"`
	RefereeRewardAmount   decimal.Decimal `json:"referee_reward_amount"`
	ReferrerLoyaltyPoints int64           `json:"referrer_loyalty_points"`
	RefereeLoyaltyPoints  int64           `json:"referee_loyalty_points"`
	CreatedAt             time.Time       `json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

type StaffCompensation struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	PayType       string          `json:"pay_type"`
	HourlyRate    decimal.Decimal `json:"hourly_rate"`
	OvertimeRate  decimal.Decimal `json:"overtime_rate"`
	MonthlySalary decimal.Decimal `json:"monthly_salary"`
	BonusPerOrder decimal.Decimal `json:"bonus_per_order"`
	Active        bool            `json:"active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type Attendance struct {
	ID         uuid.UUID  `json:"id"`
	UserID     uuid.UUID  `json:"user_id"`
	ClockInAt  time.Time  `json:"clock_in_at"`
	ClockOutAt *time.Time `json:"clock_out_at"`
	Source     string     `json:"source"`
	Status     string     `json:"status"`
	Notes      *string    `json:"notes"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type PayrollPeriod struct {
	ID          uuid.UUID  `json:"id"`
	StartDate   time.Time  `json:"start_date"`
	EndDate     time.Time  `json:"end_date"`
	Status      string     `json:"status"`
	FinalizedAt *time.Time `json:"finalized_at"`
	PaidAt      *time.Time `json:"paid_at"`
	CreatedBy   *uuid.UUID `json:"created_by"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type PayrollEntry struct {
	ID              uuid.UUID       `json:"id"`
	PeriodID        uuid.UUID       `json:"period_id"`
	UserID          uuid.UUID       `json:"user_id"`
	BaseHours       decimal.Decimal `json:"base_hours"`
	OvertimeHours   decimal.Decimal `json:"overtime_hours"`
	HourlyRate      decimal.Decimal `json:"hourly_rate"`
	OvertimeRate    decimal.Decimal `json:"overtime_rate"`
	Bonuses         decimal.Decimal `json:"bonuses"`
	Deductions      decimal.Decimal `json:"deductions"`
	TotalPay        decimal.Decimal `json:"total_pay"`
	AttendanceCount int32           `json:"attendance_count"`
	LateCount       int32           `json:"late_count"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type Payslip struct {
	ID          uuid.UUID       `json:"id"`
	EntryID     uuid.UUID       `json:"entry_id"`
	Data        json.RawMessage `json:"data"`
	GeneratedAt time.Time       `json:"generated_at"`
	CreatedAt   time.Time       `json:"created_at"`
}

type ChatThread struct {
	ID         uuid.UUID  `json:"id"`
	OrderID    *uuid.UUID `json:"order_id"`
	CustomerID uuid.UUID  `json:"customer_id"`
	Subject    *string    `json:"subject"`
	Status     string     `json:"status"`
	CreatedBy  string     `json:"created_by"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

type ChatMessage struct {
	ID               uuid.UUID  `json:"id"`
	ThreadID         uuid.UUID  `json:"thread_id"`
	SenderType       string     `json:"sender_type"`
	SenderCustomerID *uuid.UUID `json:"sender_customer_id"`
	SenderUserID     *uuid.UUID `json:"sender_user_id"`
	Body             string     `json:"body"`
	CreatedAt        time.Time  `json:"created_at"`
}

type Notification struct {
	ID         uuid.UUID       `json:"id"`
	UserID     *uuid.UUID      `json:"user_id"`
	CustomerID *uuid.UUID      `json:"customer_id"`
	Type       string          `json:"type"`
	Channel    string          `json:"channel"`
	Title      string          `json:"title"`
	Body       string          `json:"body"`
	ReadAt     *time.Time      `json:"read_at"`
	Metadata   json.RawMessage `json:"metadata"`
	CreatedAt  time.Time       `json:"created_at"`
}

type AuditLog struct {
	ID          uuid.UUID       `json:"id"`
	ActorUserID *uuid.UUID      `json:"actor_user_id"`
	Action      string          `json:"action"`
	TargetType  string          `json:"target_type"`
	TargetID    *string         `json:"target_id"`
	Before      json.RawMessage `json:"before"`
	After       json.RawMessage `json:"after"`
	Metadata    json.RawMessage `json:"metadata"`
	CreatedAt   time.Time       `json:"created_at"`
}
