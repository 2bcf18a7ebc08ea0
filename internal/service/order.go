package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	"github.com/relux-laundry/api/internal/pricing"
	"github.com/relux-laundry/api/internal/settings"
	"github.com/relux-laundry/api/internal/ws"
)

const maxOrderNumberRetries = 3

// OrderStore defines the DB methods needed by the order lifecycle.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	EarnStore
	PromoStore
	WalletStore
	CountOrdersCreatedToday(ctx context.Context) (int64, error)
	GetServiceCategory(ctx context.Context, id uuid.UUID) (database.ServiceCategory, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string, notes *string) (database.Order, error)
	UpdateOrderPayment(ctx context.Context, arg database.UpdateOrderPaymentParams) (database.Order, error)
	AssignOrderStaff(ctx context.Context, id, staffID uuid.UUID) (database.Order, error)
	UpdateOrderPricing(ctx context.Context, arg database.UpdateOrderPricingParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	CreateOrderStatusEvent(ctx context.Context, arg database.CreateOrderStatusEventParams) (database.OrderStatusEvent, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	CustomerID          uuid.UUID
	CreatedBy           uuid.UUID
	ServiceType         string
	OrderType           string
	PickupAddress       string
	DeliveryAddress     string
	ScheduledPickupAt   *time.Time
	SpecialInstructions string
	ServiceLevel        string
	PaymentMethod       string
	Notes               string
	PromoCode           string
	RedeemPoints        int64
	Items               []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single item in the order. When
// ServiceCategoryID is set the category's price wins over UnitPrice.
type CreateOrderItemRequest struct {
	ServiceCategoryID *uuid.UUID
	ItemType          string
	Description       string
	Condition         string
	Quantity          int32
	UnitPrice         decimal.Decimal
}

// OrderDetail is an order with its items and status history.
type OrderDetail struct {
	Order   database.Order              `json:"order"`
	Items   []database.OrderItem        `json:"items"`
	History []database.OrderStatusEvent `json:"history"`

	// login of the ordering customer, notified after commit
	recipient *uuid.UUID
}

// RecordPaymentRequest settles an order.
type RecordPaymentRequest struct {
	OrderID   uuid.UUID
	Amount    decimal.Decimal
	Method    string
	Reference string
	ActorID   uuid.UUID
}

// PaymentResult is the stored payment, the settled order and, for wallet
// payments, the wallet movement.
type PaymentResult struct {
	Payment database.Payment `json:"payment"`
	Order   database.Order   `json:"order"`
	Wallet  *WalletResult    `json:"wallet,omitempty"`
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	settings SettingsProvider
	notifier *Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore, settings SettingsProvider, notifier *Notifier, logger *zap.Logger) *OrderService {
	return &OrderService{
		pool:     pool,
		newStore: newStore,
		settings: settings,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// CreateOrder validates, prices and creates an order atomically, applying any
// promo code and loyalty redemption in the same transaction.
// Retries up to maxOrderNumberRetries times on order_number unique constraint
// violations (two concurrent orders reading the same daily count).
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderDetail, error) {
	cfg := s.settings.Current()

	// --- Validate enums ---
	if !isServiceType(req.ServiceType) {
		return nil, ErrInvalidServiceType
	}
	if req.OrderType != enum.OrderTypePickupDelivery && req.OrderType != enum.OrderTypeWalkIn {
		return nil, ErrInvalidOrderType
	}
	if req.ServiceLevel == "" {
		req.ServiceLevel = enum.ServiceLevelStandard
	}
	level, ok := cfg.ServiceLevels[req.ServiceLevel]
	if !ok || !level.Active {
		return nil, ErrInvalidServiceLevel
	}
	if req.PaymentMethod == "" {
		req.PaymentMethod = enum.PaymentMethodCash
	}
	if err := checkPaymentMethod(cfg.Payment, req.PaymentMethod); err != nil {
		return nil, err
	}

	// --- Validate items ---
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidQuantity)
		}
		if item.ServiceCategoryID == nil && item.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("item[%d]: %w", i, ErrInvalidUnitPrice)
		}
	}
	if req.RedeemPoints < 0 {
		return nil, ErrInvalidPointsAmount
	}

	// Retry loop: handles order_number unique constraint race condition.
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberRetries; attempt++ {
		result, err := s.createOrderTx(ctx, req, cfg, level)
		if err == nil {
			s.afterCreate(ctx, result)
			return result, nil
		}
		if database.IsUniqueViolation(err, "orders_order_number_key") {
			lastErr = err
			continue
		}
		return nil, err
	}
	return nil, lastErr
}

// createOrderTx executes the full order creation in a single transaction.
func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest, cfg *settings.Settings, level settings.ServiceLevel) (*OrderDetail, error) {
	var result *OrderDetail
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)
		now := s.now()

		customer, err := store.GetCustomer(ctx, req.CustomerID)
		if err != nil {
			return notFound(err, ErrCustomerNotFound, "get customer")
		}

		// --- Generate order number ---
		todays, err := store.CountOrdersCreatedToday(ctx)
		if err != nil {
			return fmt.Errorf("count today's orders: %w", err)
		}
		orderNumber := fmt.Sprintf("RLX%d%04d", now.UnixMilli(), todays+1)

		// --- Price items ---
		items := make([]database.CreateOrderItemParams, 0, len(req.Items))
		priced := make([]pricing.Item, 0, len(req.Items))
		for i, item := range req.Items {
			unitPrice := item.UnitPrice
			itemType := item.ItemType
			if item.ServiceCategoryID != nil {
				cat, err := store.GetServiceCategory(ctx, *item.ServiceCategoryID)
				if err != nil {
					return fmt.Errorf("item[%d]: %w", i, notFound(err, ErrCategoryNotFound, "get service category"))
				}
				if !cat.Active {
					return fmt.Errorf("item[%d]: %w", i, ErrCategoryNotFound)
				}
				unitPrice = cat.UnitPrice
				if itemType == "" {
					itemType = cat.Name
				}
			}
			items = append(items, database.CreateOrderItemParams{
				ServiceCategoryID: item.ServiceCategoryID,
				ItemType:          itemType,
				Description:       strPtr(item.Description),
				Condition:         strPtr(item.Condition),
				Quantity:          item.Quantity,
				UnitPrice:         unitPrice,
				LineTotal:         unitPrice.Mul(decimal.NewFromInt32(item.Quantity)),
			})
			priced = append(priced, pricing.Item{UnitPrice: unitPrice, Quantity: item.Quantity})
		}
		subtotal := pricing.Calculate(priced, decimal.Zero, decimal.Zero, decimal.Zero).Subtotal

		// --- Fees ---
		pickupFee, deliveryFee := decimal.Zero, decimal.Zero
		var pickupAddr, deliveryAddr *string
		if req.OrderType == enum.OrderTypePickupDelivery {
			pickupFee, deliveryFee = cfg.Fees.PickupFee, cfg.Fees.DeliveryFee
			pickupAddr, deliveryAddr = strPtr(req.PickupAddress), strPtr(req.DeliveryAddress)
		}

		// --- Promo ---
		promoDisc := decimal.Zero
		var promoID *uuid.UUID
		if req.PromoCode != "" {
			promo, err := lockPromo(ctx, store, req.PromoCode, now)
			if err != nil {
				return err
			}
			promoID = &promo.ID
			promoDisc = promoDiscount(promo, subtotal)
		}

		// --- Loyalty redemption ---
		loyaltyDisc := decimal.Zero
		if req.RedeemPoints > 0 {
			loyaltyDisc, err = quoteRedemption(cfg.Loyalty, req.RedeemPoints, customer.LoyaltyPointsBalance, subtotal)
			if err != nil {
				return err
			}
		}

		discount := promoDisc.Add(loyaltyDisc)
		breakdown := pricing.Calculate(priced, pickupFee, deliveryFee, discount)
		if breakdown.Total.IsNegative() {
			return ErrDiscountExceedsTotal
		}
		dueAt := pricing.DueAt(now, level.DurationHours)
		qr := fmt.Sprintf("RELUX-%s-%d", orderNumber, now.UnixMilli())

		// --- Insert order ---
		order, err := store.CreateOrder(ctx, database.CreateOrderParams{
			OrderNumber:           orderNumber,
			CustomerID:            req.CustomerID,
			CreatedBy:             req.CreatedBy,
			ServiceType:           req.ServiceType,
			OrderType:             req.OrderType,
			PickupAddress:         pickupAddr,
			DeliveryAddress:       deliveryAddr,
			ScheduledPickupAt:     req.ScheduledPickupAt,
			SpecialInstructions:   strPtr(req.SpecialInstructions),
			ServiceLevel:          req.ServiceLevel,
			ServiceLevelDueAt:     &dueAt,
			Status:                enum.OrderStatusPending,
			PaymentMethod:         req.PaymentMethod,
			PaymentAmount:         breakdown.Total,
			Subtotal:              breakdown.Subtotal,
			PickupFee:             breakdown.PickupFee,
			DeliveryFee:           breakdown.DeliveryFee,
			Discount:              breakdown.Discount,
			Tax:                   breakdown.Tax,
			Total:                 breakdown.Total,
			PromoCodeID:           promoID,
			PromoDiscount:         promoDisc,
			LoyaltyPointsRedeemed: req.RedeemPoints,
			LoyaltyDiscountAmount: loyaltyDisc,
			QRCode:                &qr,
			Notes:                 strPtr(req.Notes),
			CreatedAt:             now,
		})
		if err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		// --- Insert items ---
		created := make([]database.OrderItem, 0, len(items))
		for _, it := range items {
			it.OrderID = order.ID
			row, err := store.CreateOrderItem(ctx, it)
			if err != nil {
				return fmt.Errorf("create order item: %w", err)
			}
			created = append(created, row)
		}

		// --- Ledgers ---
		orderID := order.ID
		if promoID != nil {
			if _, err := recordRedemption(ctx, store, *promoID, order.ID, &req.CustomerID, promoDisc); err != nil {
				return err
			}
		}
		if req.RedeemPoints > 0 {
			if _, err := movePoints(ctx, store, pointsMovement{
				customerID: req.CustomerID,
				orderID:    &orderID,
				entryType:  enum.LedgerTypeRedeem,
				points:     -req.RedeemPoints,
				reason:     fmt.Sprintf("Redeemed on order %s", orderNumber),
				actorID:    &req.CreatedBy,
			}); err != nil {
				return err
			}
		}

		// --- Initial history entry ---
		event, err := store.CreateOrderStatusEvent(ctx, database.CreateOrderStatusEventParams{
			OrderID: order.ID,
			Status:  order.Status,
			ActorID: &req.CreatedBy,
		})
		if err != nil {
			return fmt.Errorf("create status event: %w", err)
		}

		result = &OrderDetail{
			Order:   order,
			Items:   created,
			History: []database.OrderStatusEvent{event},
		}
		result.recipient = customer.UserID
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateStatus sets any valid status and appends one history entry. When the
// status is the loyalty qualifying status the order earns its points in the
// same transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID uuid.UUID, status string, actorID uuid.UUID, notes string) (*database.Order, error) {
	if !enum.IsOrderStatus(status) {
		return nil, ErrInvalidOrderStatus
	}
	loyalty := s.settings.Current().Loyalty

	var order database.Order
	var recipient *uuid.UUID
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)

		if _, err := store.GetOrderForUpdate(ctx, orderID); err != nil {
			return notFound(err, ErrOrderNotFound, "lock order")
		}

		var err error
		order, err = store.UpdateOrderStatus(ctx, orderID, status, strPtr(notes))
		if err != nil {
			return fmt.Errorf("update order status: %w", err)
		}
		if _, err := store.CreateOrderStatusEvent(ctx, database.CreateOrderStatusEventParams{
			OrderID: orderID,
			Status:  status,
			ActorID: &actorID,
			Notes:   strPtr(notes),
		}); err != nil {
			return fmt.Errorf("create status event: %w", err)
		}

		if status == loyalty.QualifyOnStatus {
			points, err := awardOrderPoints(ctx, store, loyalty, order)
			if err != nil {
				return err
			}
			if points > 0 {
				order.LoyaltyPointsEarned = points
			}
		}

		recipient = s.customerUser(ctx, store, order.CustomerID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(ctx, ws.OrderRoom(order.ID), ws.EventOrderStatusUpdated, map[string]any{
		"order_id": order.ID,
		"status":   status,
		"notes":    notes,
	})
	s.notifier.Notify(ctx, Message{
		UserID:     recipient,
		CustomerID: &order.CustomerID,
		Type:       enum.NotificationOrderStatusUpdated,
		Title:      "Order updated",
		Body:       fmt.Sprintf("Order %s is now %s", order.OrderNumber, status),
		Metadata:   map[string]any{"order_id": order.ID, "status": status},
	})
	return &order, nil
}

// Cancel moves a non-terminal order to cancelled and appends one history
// entry. Redeemed loyalty points go back to the customer and the promo
// redemption is released so it no longer counts toward the usage limit.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID, reason string, actorID uuid.UUID) (*database.Order, error) {
	var order database.Order
	var recipient *uuid.UUID
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)

		current, err := store.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return notFound(err, ErrOrderNotFound, "lock order")
		}
		if enum.IsTerminalOrderStatus(current.Status) {
			return ErrOrderNotCancellable
		}

		note := "Cancelled: " + reason
		order, err = store.UpdateOrderStatus(ctx, orderID, enum.OrderStatusCancelled, &note)
		if err != nil {
			return fmt.Errorf("cancel order: %w", err)
		}
		if _, err := store.CreateOrderStatusEvent(ctx, database.CreateOrderStatusEventParams{
			OrderID: orderID,
			Status:  enum.OrderStatusCancelled,
			ActorID: &actorID,
			Notes:   strPtr(reason),
		}); err != nil {
			return fmt.Errorf("create status event: %w", err)
		}

		if current.LoyaltyPointsRedeemed > 0 {
			if err := reverseRedemption(ctx, store, current, actorID); err != nil {
				return err
			}
		}
		if current.PromoCodeID != nil {
			if _, err := store.DeletePromoRedemptionForOrder(ctx, orderID); err != nil {
				return fmt.Errorf("release promo redemption: %w", err)
			}
		}

		recipient = s.customerUser(ctx, store, order.CustomerID)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(ctx, ws.OrderRoom(order.ID), ws.EventOrderStatusUpdated, map[string]any{
		"order_id": order.ID,
		"status":   order.Status,
		"notes":    reason,
	})
	s.notifier.Notify(ctx, Message{
		UserID:     recipient,
		CustomerID: &order.CustomerID,
		Type:       enum.NotificationOrderStatusUpdated,
		Title:      "Order cancelled",
		Body:       fmt.Sprintf("Order %s was cancelled: %s", order.OrderNumber, reason),
		Metadata:   map[string]any{"order_id": order.ID, "status": order.Status},
	})
	return &order, nil
}

func reverseRedemption(ctx context.Context, store OrderStore, order database.Order, actorID uuid.UUID) error {
	_, err := store.GetLoyaltyEntryForOrder(ctx, order.ID, enum.LedgerTypeReversal)
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != apperr.KindNotFound {
		return fmt.Errorf("get reversal entry: %w", err)
	}
	orderID := order.ID
	_, err = movePoints(ctx, store, pointsMovement{
		customerID:   order.CustomerID,
		orderID:      &orderID,
		entryType:    enum.LedgerTypeReversal,
		points:       order.LoyaltyPointsRedeemed,
		reason:       fmt.Sprintf("Reversed redemption on cancelled order %s", order.OrderNumber),
		actorID:      &actorID,
		skipLifetime: true,
	})
	return err
}

// AssignStaff sets the staff member responsible for an order.
func (s *OrderService) AssignStaff(ctx context.Context, orderID, staffID uuid.UUID) (*database.Order, error) {
	var order database.Order
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)

		staff, err := store.GetUserByID(ctx, staffID)
		if err != nil {
			return notFound(err, ErrStaffNotFound, "get staff")
		}
		if !enum.IsStaffRole(staff.Role) || !staff.IsActive {
			return ErrStaffNotFound
		}

		order, err = store.AssignOrderStaff(ctx, orderID, staffID)
		if err != nil {
			return notFound(err, ErrOrderNotFound, "assign staff")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdatePayment changes the payment sub-record independently of the order
// status. Setting paid stamps paid_at.
func (s *OrderService) UpdatePayment(ctx context.Context, orderID uuid.UUID, status, method, transactionID string) (*database.Order, error) {
	if !isPaymentStatus(status) {
		return nil, ErrInvalidPaymentStatus
	}
	if method != "" && !isPaymentMethod(method) {
		return nil, ErrInvalidPaymentMethod
	}
	loyalty := s.settings.Current().Loyalty

	var order database.Order
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)

		if _, err := store.GetOrderForUpdate(ctx, orderID); err != nil {
			return notFound(err, ErrOrderNotFound, "lock order")
		}

		var err error
		order, err = store.UpdateOrderPayment(ctx, database.UpdateOrderPaymentParams{
			ID:            orderID,
			Status:        status,
			Method:        strPtr(method),
			TransactionID: strPtr(transactionID),
		})
		if err != nil {
			return fmt.Errorf("update order payment: %w", err)
		}

		if status == enum.PaymentStatusPaid && loyalty.QualifyOnStatus == enum.PaymentStatusPaid {
			points, err := awardOrderPoints(ctx, store, loyalty, order)
			if err != nil {
				return err
			}
			if points > 0 {
				order.LoyaltyPointsEarned = points
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishPayment(ctx, order)
	return &order, nil
}

// RecordPayment stores a settled payment for an order and marks it paid.
// Wallet payments debit the customer's wallet in the same transaction.
func (s *OrderService) RecordPayment(ctx context.Context, req RecordPaymentRequest) (*PaymentResult, error) {
	cfg := s.settings.Current()
	if err := checkPaymentMethod(cfg.Payment, req.Method); err != nil {
		return nil, err
	}
	if req.Reference == "" {
		if (req.Method == enum.PaymentMethodCash && cfg.Payment.RequireReferenceCash) ||
			(req.Method == enum.PaymentMethodPOS && cfg.Payment.RequireReferencePOS) {
			return nil, apperr.Validation(fmt.Sprintf("Reference is required for %s payments", req.Method))
		}
	}

	var result PaymentResult
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)

		order, err := store.GetOrderForUpdate(ctx, req.OrderID)
		if err != nil {
			return notFound(err, ErrOrderNotFound, "lock order")
		}
		if order.PaymentStatus == enum.PaymentStatusPaid {
			return ErrOrderAlreadyPaid
		}
		if order.Status == enum.OrderStatusCancelled {
			return apperr.Validation("Cannot record payment for a cancelled order")
		}

		amount := req.Amount
		if amount.IsZero() {
			amount = order.Total
		}
		if !amount.IsPositive() {
			return ErrInvalidAmount
		}

		if req.Method == enum.PaymentMethodWallet {
			result.Wallet, err = moveWallet(ctx, store, WalletMovement{
				CustomerID: order.CustomerID,
				Amount:     amount,
				Reason:     fmt.Sprintf("Payment for order %s", order.OrderNumber),
				Reference:  order.OrderNumber,
				ActorID:    &req.ActorID,
			}, enum.WalletTxDebit)
			if err != nil {
				return err
			}
		}

		result.Payment, err = store.CreatePayment(ctx, database.CreatePaymentParams{
			OrderID:     order.ID,
			Amount:      amount,
			Method:      req.Method,
			Status:      enum.PaymentStatusPaid,
			Reference:   strPtr(req.Reference),
			ConfirmedBy: &req.ActorID,
		})
		if err != nil {
			if database.IsUniqueViolation(err, "payments_order_id_key") {
				return ErrPaymentExists
			}
			return fmt.Errorf("create payment: %w", err)
		}

		method := req.Method
		result.Order, err = store.UpdateOrderPayment(ctx, database.UpdateOrderPaymentParams{
			ID:            order.ID,
			Status:        enum.PaymentStatusPaid,
			Method:        &method,
			TransactionID: strPtr(req.Reference),
		})
		if err != nil {
			return fmt.Errorf("mark order paid: %w", err)
		}

		if cfg.Loyalty.QualifyOnStatus == enum.PaymentStatusPaid {
			points, err := awardOrderPoints(ctx, store, cfg.Loyalty, result.Order)
			if err != nil {
				return err
			}
			if points > 0 {
				result.Order.LoyaltyPointsEarned = points
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishPayment(ctx, result.Order)
	return &result, nil
}

// Reprice recomputes the pricing snapshot from the stored items, keeping the
// fees and discount the order was created with. Paid orders are frozen.
func (s *OrderService) Reprice(ctx context.Context, orderID uuid.UUID) (*database.Order, error) {
	var order database.Order
	err := withTx(ctx, s.pool, func(tx pgx.Tx) error {
		store := s.newStore(tx)

		current, err := store.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return notFound(err, ErrOrderNotFound, "lock order")
		}
		if current.PaymentStatus == enum.PaymentStatusPaid {
			return ErrOrderAlreadyPaid
		}

		items, err := store.ListOrderItems(ctx, orderID)
		if err != nil {
			return fmt.Errorf("list order items: %w", err)
		}
		priced := make([]pricing.Item, 0, len(items))
		for _, it := range items {
			priced = append(priced, pricing.Item{UnitPrice: it.UnitPrice, Quantity: it.Quantity})
		}

		b := pricing.Calculate(priced, current.PickupFee, current.DeliveryFee, current.Discount)
		order, err = store.UpdateOrderPricing(ctx, database.UpdateOrderPricingParams{
			ID:          orderID,
			Subtotal:    b.Subtotal,
			PickupFee:   b.PickupFee,
			DeliveryFee: b.DeliveryFee,
			Discount:    b.Discount,
			Tax:         b.Tax,
			Total:       b.Total,
		})
		if err != nil {
			return fmt.Errorf("update order pricing: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// --- Side effects ---

func (s *OrderService) afterCreate(ctx context.Context, d *OrderDetail) {
	s.notifier.Publish(ctx, ws.UserRoom(d.Order.CreatedBy), ws.EventOrderCreated, d.Order)
	if d.recipient != nil && *d.recipient != d.Order.CreatedBy {
		s.notifier.Publish(ctx, ws.UserRoom(*d.recipient), ws.EventOrderCreated, d.Order)
	}
	s.notifier.Notify(ctx, Message{
		UserID:     d.recipient,
		CustomerID: &d.Order.CustomerID,
		Type:       enum.NotificationOrderCreated,
		Title:      "Order placed",
		Body:       fmt.Sprintf("Your order %s has been received", d.Order.OrderNumber),
		Metadata:   map[string]any{"order_id": d.Order.ID, "order_number": d.Order.OrderNumber},
	})
}

func (s *OrderService) publishPayment(ctx context.Context, order database.Order) {
	s.notifier.Publish(ctx, ws.OrderRoom(order.ID), ws.EventOrderPaymentUpdated, map[string]any{
		"order_id":       order.ID,
		"payment_status": order.PaymentStatus,
		"payment_method": order.PaymentMethod,
	})
}

// customerUser returns the login linked to a customer, if any.
func (s *OrderService) customerUser(ctx context.Context, store OrderStore, customerID uuid.UUID) *uuid.UUID {
	c, err := store.GetCustomer(ctx, customerID)
	if err != nil {
		s.logger.Warn("customer lookup for notification failed", zap.Stringer("customer_id", customerID), zap.Error(err))
		return nil
	}
	return c.UserID
}

// --- Helpers ---

func isServiceType(s string) bool {
	switch s {
	case enum.ServiceTypeWashFold, enum.ServiceTypeWashIron, enum.ServiceTypeIronOnly:
		return true
	}
	return false
}

func isPaymentMethod(s string) bool {
	switch s {
	case enum.PaymentMethodOnline, enum.PaymentMethodCash, enum.PaymentMethodPOS,
		enum.PaymentMethodTransfer, enum.PaymentMethodWallet:
		return true
	}
	return false
}

func isPaymentStatus(s string) bool {
	switch s {
	case enum.PaymentStatusPending, enum.PaymentStatusPaid,
		enum.PaymentStatusFailed, enum.PaymentStatusRefunded:
		return true
	}
	return false
}

// checkPaymentMethod rejects unknown methods and those disabled in settings.
func checkPaymentMethod(cfg settings.Payment, method string) error {
	enabled := false
	switch method {
	case enum.PaymentMethodOnline:
		enabled = cfg.EnableOnline
	case enum.PaymentMethodCash:
		enabled = cfg.EnableCash
	case enum.PaymentMethodPOS:
		enabled = cfg.EnablePOS
	case enum.PaymentMethodTransfer:
		enabled = cfg.EnableTransfer
	case enum.PaymentMethodWallet:
		enabled = cfg.EnableWallet
	default:
		return ErrInvalidPaymentMethod
	}
	if !enabled {
		return apperr.Validation(fmt.Sprintf("Payment method '%s' is disabled", method))
	}
	return nil
}
