package enum

// ── Group A: State machines (CHECK constrained in DB) ──

const (
	OrderStatusDraft          = "draft"
	OrderStatusPending        = "pending"
	OrderStatusConfirmed      = "confirmed"
	OrderStatusInProgress     = "in_progress"
	OrderStatusPickedUp       = "picked-up"
	OrderStatusWashing        = "washing"
	OrderStatusIroning        = "ironing"
	OrderStatusReady          = "ready"
	OrderStatusOutForDelivery = "out-for-delivery"
	OrderStatusDelivered      = "delivered"
	OrderStatusCompleted      = "completed"
	OrderStatusCancelled      = "cancelled"
)

const (
	PaymentStatusPending  = "pending"
	PaymentStatusPaid     = "paid"
	PaymentStatusFailed   = "failed"
	PaymentStatusRefunded = "refunded"
)

const (
	PayrollPeriodDraft     = "draft"
	PayrollPeriodFinalized = "finalized"
	PayrollPeriodPaid      = "paid"
)

const (
	ReferralStatusPending   = "pending"
	ReferralStatusQualified = "qualified"
	ReferralStatusRewarded  = "rewarded"
	ReferralStatusReversed  = "reversed"
	ReferralStatusRejected  = "rejected"
)

const (
	ChatThreadOpen   = "open"
	ChatThreadClosed = "closed"
)

// ── Group C: Borderline (CHECK constrained in DB) ──

const (
	UserRoleCustomer = "customer"
	UserRoleStaff    = "staff"
	UserRoleManager  = "manager"
	UserRoleAdmin    = "admin"
)

const (
	StaffRoleReceptionist = "receptionist"
	StaffRoleWasher       = "washer"
	StaffRoleDelivery     = "delivery"
)

const (
	CustomerStatusGuest     = "guest"
	CustomerStatusActive    = "active"
	CustomerStatusSuspended = "suspended"
)

const (
	ServiceTypeWashFold = "wash-fold"
	ServiceTypeWashIron = "wash-iron"
	ServiceTypeIronOnly = "iron-only"
)

const (
	OrderTypePickupDelivery = "pickup-delivery"
	OrderTypeWalkIn         = "walk-in"
)

const (
	ServiceLevelStandard = "standard"
	ServiceLevelExpress  = "express"
	ServiceLevelPremium  = "premium"
)

const (
	LedgerTypeEarn     = "earn"
	LedgerTypeRedeem   = "redeem"
	LedgerTypeAdjust   = "adjust"
	LedgerTypeReversal = "reversal"
)

const (
	WalletTxCredit = "credit"
	WalletTxDebit  = "debit"
)

const (
	PayTypeHourly  = "hourly"
	PayTypeMonthly = "monthly"
)

const (
	AttendancePresent = "present"
	AttendanceLate    = "late"
	AttendanceAbsent  = "absent"
)

const (
	AttendanceSourceApp = "app"
	AttendanceSourceQR  = "qr"
)

const (
	PromoTypeFixed   = "fixed"
	PromoTypePercent = "percent"
)

// ── Group B: Configurable labels (no DB constraint) ──

const (
	PaymentMethodOnline   = "online"
	PaymentMethodCash     = "cash"
	PaymentMethodPOS      = "pos"
	PaymentMethodTransfer = "transfer"
	PaymentMethodWallet   = "wallet"
)

const (
	NotificationOrderCreated       = "order_created"
	NotificationOrderStatusUpdated = "order_status_updated"
	NotificationOrderDueSoon       = "order_due_soon"
	NotificationAnnouncement       = "site_announcement"
	NotificationChatMessage        = "chat_message"
)

const (
	SenderCustomer = "customer"
	SenderStaff    = "staff"
)

// OrderStatuses lists every valid order status in lifecycle order.
var OrderStatuses = []string{
	OrderStatusDraft,
	OrderStatusPending,
	OrderStatusConfirmed,
	OrderStatusInProgress,
	OrderStatusPickedUp,
	OrderStatusWashing,
	OrderStatusIroning,
	OrderStatusReady,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// IsOrderStatus reports whether s is a known order status.
func IsOrderStatus(s string) bool {
	for _, v := range OrderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminalOrderStatus reports whether an order in status s can no longer be cancelled.
func IsTerminalOrderStatus(s string) bool {
	return s == OrderStatusDelivered || s == OrderStatusCompleted || s == OrderStatusCancelled
}

// IsStaffRole reports whether role belongs to the back-office side.
func IsStaffRole(role string) bool {
	return role == UserRoleStaff || role == UserRoleManager || role == UserRoleAdmin
}
