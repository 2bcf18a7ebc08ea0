package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const orderColumns = `id, order_number, customer_id, created_by, service_type, order_type, pickup_address,
	delivery_address, scheduled_pickup_at, special_instructions, service_level, service_level_due_at, status,
	payment_method, payment_status, payment_amount, payment_transaction_id, paid_at, subtotal, pickup_fee,
	delivery_fee, discount, tax, total, promo_code_id, promo_discount, loyalty_points_earned,
	loyalty_points_redeemed, loyalty_discount_amount, assigned_staff_id, qr_code, notes, created_at, updated_at`

func scanOrder(row rowScanner) (Order, error) {
	var i Order
	err := row.Scan(
		&i.ID,
		&i.OrderNumber,
		&i.CustomerID,
		&i.CreatedBy,
		&i.ServiceType,
		&i.OrderType,
		&i.PickupAddress,
		&i.DeliveryAddress,
		&i.ScheduledPickupAt,
		&i.SpecialInstructions,
		&i.ServiceLevel,
		&i.ServiceLevelDueAt,
		&i.Status,
		&i.PaymentMethod,
		&i.PaymentStatus,
		&i.PaymentAmount,
		&i.PaymentTransactionID,
		&i.PaidAt,
		&i.Subtotal,
		&i.PickupFee,
		&i.DeliveryFee,
		&i.Discount,
		&i.Tax,
		&i.Total,
		&i.PromoCodeID,
		&i.PromoDiscount,
		&i.LoyaltyPointsEarned,
		&i.LoyaltyPointsRedeemed,
		&i.LoyaltyDiscountAmount,
		&i.AssignedStaffID,
		&i.QRCode,
		&i.Notes,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const countOrdersCreatedToday = `SELECT count(*) FROM orders WHERE created_at >= date_trunc('day', now())`

// CountOrdersCreatedToday feeds the per-day order number sequence.
func (q *Queries) CountOrdersCreatedToday(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrdersCreatedToday).Scan(&n)
	return n, err
}

const createOrder = `INSERT INTO orders (
	order_number, customer_id, created_by, service_type, order_type, pickup_address, delivery_address,
	scheduled_pickup_at, special_instructions, service_level, service_level_due_at, status, payment_method,
	payment_amount, subtotal, pickup_fee, delivery_fee, discount, tax, total, promo_code_id, promo_discount,
	loyalty_points_redeemed, loyalty_discount_amount, qr_code, notes, created_at
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
	$21, $22, $23, $24, $25, $26, $27
)
RETURNING ` + orderColumns

type CreateOrderParams struct {
	OrderNumber           string
	CustomerID            uuid.UUID
	CreatedBy             uuid.UUID
	ServiceType           string
	OrderType             string
	PickupAddress         *string
	DeliveryAddress       *string
	ScheduledPickupAt     *time.Time
	SpecialInstructions   *string
	ServiceLevel          string
	ServiceLevelDueAt     *time.Time
	Status                string
	PaymentMethod         string
	PaymentAmount         decimal.Decimal
	Subtotal              decimal.Decimal
	PickupFee             decimal.Decimal
	DeliveryFee           decimal.Decimal
	Discount              decimal.Decimal
	Tax                   decimal.Decimal
	Total                 decimal.Decimal
	PromoCodeID           *uuid.UUID
	PromoDiscount         decimal.Decimal
	LoyaltyPointsRedeemed int64
	LoyaltyDiscountAmount decimal.Decimal
	QRCode                *string
	Notes                 *string
	CreatedAt             time.Time
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	row := q.db.QueryRow(ctx, createOrder,
		arg.OrderNumber,
		arg.CustomerID,
		arg.CreatedBy,
		arg.ServiceType,
		arg.OrderType,
		arg.PickupAddress,
		arg.DeliveryAddress,
		arg.ScheduledPickupAt,
		arg.SpecialInstructions,
		arg.ServiceLevel,
		arg.ServiceLevelDueAt,
		arg.Status,
		arg.PaymentMethod,
		arg.PaymentAmount,
		arg.Subtotal,
		arg.PickupFee,
		arg.DeliveryFee,
		arg.Discount,
		arg.Tax,
		arg.Total,
		arg.PromoCodeID,
		arg.PromoDiscount,
		arg.LoyaltyPointsRedeemed,
		arg.LoyaltyDiscountAmount,
		arg.QRCode,
		arg.Notes,
		arg.CreatedAt,
	)
	return scanOrder(row)
}

const getOrder = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrder, id))
}

const getOrderForUpdate = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR UPDATE`

func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, getOrderForUpdate, id))
}

type OrderFilter struct {
	CustomerID      *uuid.UUID
	Status          *string
	ServiceType     *string
	AssignedStaffID *uuid.UUID
}

const listOrders = `SELECT ` + orderColumns + ` FROM orders
WHERE ($1::uuid IS NULL OR customer_id = $1)
  AND ($2::text IS NULL OR status = $2)
  AND ($3::text IS NULL OR service_type = $3)
  AND ($4::uuid IS NULL OR assigned_staff_id = $4)
ORDER BY created_at DESC
LIMIT $5 OFFSET $6`

func (q *Queries) ListOrders(ctx context.Context, f OrderFilter, limit, offset int32) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders, f.CustomerID, f.Status, f.ServiceType, f.AssignedStaffID, limit, offset)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanOrder)
}

const countOrders = `SELECT count(*) FROM orders
WHERE ($1::uuid IS NULL OR customer_id = $1)
  AND ($2::text IS NULL OR status = $2)
  AND ($3::text IS NULL OR service_type = $3)
  AND ($4::uuid IS NULL OR assigned_staff_id = $4)`

func (q *Queries) CountOrders(ctx context.Context, f OrderFilter) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countOrders, f.CustomerID, f.Status, f.ServiceType, f.AssignedStaffID).Scan(&n)
	return n, err
}

const updateOrderStatus = `UPDATE orders SET status = $2, notes = COALESCE($3, notes), updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

func (q *Queries) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string, notes *string) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderStatus, id, status, notes))
}

const updateOrderPayment = `UPDATE orders
SET payment_status = $2,
    payment_method = COALESCE($3, payment_method),
    payment_transaction_id = COALESCE($4, payment_transaction_id),
    paid_at = CASE WHEN $2 = 'paid' THEN now() ELSE paid_at END,
    updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderPaymentParams struct {
	ID            uuid.UUID
	Status        string
	Method        *string
	TransactionID *string
}

func (q *Queries) UpdateOrderPayment(ctx context.Context, arg UpdateOrderPaymentParams) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, updateOrderPayment, arg.ID, arg.Status, arg.Method, arg.TransactionID))
}

const assignOrderStaff = `UPDATE orders SET assigned_staff_id = $2, updated_at = now() WHERE id = $1 RETURNING ` + orderColumns

func (q *Queries) AssignOrderStaff(ctx context.Context, id, staffID uuid.UUID) (Order, error) {
	return scanOrder(q.db.QueryRow(ctx, assignOrderStaff, id, staffID))
}

const updateOrderPricing = `UPDATE orders
SET subtotal = $2, pickup_fee = $3, delivery_fee = $4, discount = $5, tax = $6, total = $7,
    payment_amount = $7, updated_at = now()
WHERE id = $1
RETURNING ` + orderColumns

type UpdateOrderPricingParams struct {
	ID          uuid.UUID
	Subtotal    decimal.Decimal
	PickupFee   decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
}

func (q *Queries) UpdateOrderPricing(ctx context.Context, arg UpdateOrderPricingParams) (Order, error) {
	row := q.db.QueryRow(ctx, updateOrderPricing,
		arg.ID,
		arg.Subtotal,
		arg.PickupFee,
		arg.DeliveryFee,
		arg.Discount,
		arg.Tax,
		arg.Total,
	)
	return scanOrder(row)
}

const setOrderPointsEarned = `UPDATE orders SET loyalty_points_earned = $2, updated_at = now() WHERE id = $1`

func (q *Queries) SetOrderPointsEarned(ctx context.Context, id uuid.UUID, points int64) error {
	_, err := q.db.Exec(ctx, setOrderPointsEarned, id, points)
	return err
}

const countCustomerOrdersWithStatus = `SELECT count(*) FROM orders WHERE customer_id = $1 AND status = $2 AND id <> $3`

// CountCustomerOrdersWithStatus counts the customer's other orders in status.
func (q *Queries) CountCustomerOrdersWithStatus(ctx context.Context, customerID uuid.UUID, status string, excludeID uuid.UUID) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countCustomerOrdersWithStatus, customerID, status, excludeID).Scan(&n)
	return n, err
}

// --- Items ---

const orderItemColumns = `id, order_id, service_category_id, item_type, description, condition, quantity,
	unit_price, line_total, created_at`

func scanOrderItem(row rowScanner) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID,
		&i.OrderID,
		&i.ServiceCategoryID,
		&i.ItemType,
		&i.Description,
		&i.Condition,
		&i.Quantity,
		&i.UnitPrice,
		&i.LineTotal,
		&i.CreatedAt,
	)
	return i, err
}

const createOrderItem = `INSERT INTO order_items
	(order_id, service_category_id, item_type, description, condition, quantity, unit_price, line_total)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING ` + orderItemColumns

type CreateOrderItemParams struct {
	OrderID           uuid.UUID
	ServiceCategoryID *uuid.UUID
	ItemType          string
	Description       *string
	Condition         *string
	Quantity          int32
	UnitPrice         decimal.Decimal
	LineTotal         decimal.Decimal
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID,
		arg.ServiceCategoryID,
		arg.ItemType,
		arg.Description,
		arg.Condition,
		arg.Quantity,
		arg.UnitPrice,
		arg.LineTotal,
	)
	return scanOrderItem(row)
}

const listOrderItems = `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY created_at, id`

func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItems, orderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanOrderItem)
}

// --- Status history ---

const orderStatusEventColumns = `id, order_id, status, actor_id, notes, created_at`

func scanOrderStatusEvent(row rowScanner) (OrderStatusEvent, error) {
	var i OrderStatusEvent
	err := row.Scan(&i.ID, &i.OrderID, &i.Status, &i.ActorID, &i.Notes, &i.CreatedAt)
	return i, err
}

const createOrderStatusEvent = `INSERT INTO order_status_history (order_id, status, actor_id, notes)
VALUES ($1, $2, $3, $4)
RETURNING ` + orderStatusEventColumns

type CreateOrderStatusEventParams struct {
	OrderID uuid.UUID
	Status  string
	ActorID *uuid.UUID
	Notes   *string
}

func (q *Queries) CreateOrderStatusEvent(ctx context.Context, arg CreateOrderStatusEventParams) (OrderStatusEvent, error) {
	return scanOrderStatusEvent(q.db.QueryRow(ctx, createOrderStatusEvent, arg.OrderID, arg.Status, arg.ActorID, arg.Notes))
}

const listOrderStatusEvents = `SELECT ` + orderStatusEventColumns + ` FROM order_status_history WHERE order_id = $1 ORDER BY id`

func (q *Queries) ListOrderStatusEvents(ctx context.Context, orderID uuid.UUID) ([]OrderStatusEvent, error) {
	rows, err := q.db.Query(ctx, listOrderStatusEvents, orderID)
	if err != nil {
		return nil, err
	}
	return collect(rows, scanOrderStatusEvent)
}

// --- Dashboard ---

type OrderStatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

const countOrdersByStatus = `SELECT status, count(*) FROM orders GROUP BY status ORDER BY status`

func (q *Queries) CountOrdersByStatus(ctx context.Context) ([]OrderStatusCount, error) {
	rows, err := q.db.Query(ctx, countOrdersByStatus)
	if err != nil {
		return nil, err
	}
	return collect(rows, func(row rowScanner) (OrderStatusCount, error) {
		var i OrderStatusCount
		err := row.Scan(&i.Status, &i.Count)
		return i, err
	})
}

const sumPaidRevenue = `SELECT COALESCE(sum(total), 0) FROM orders WHERE payment_status = 'paid'`

func (q *Queries) SumPaidRevenue(ctx context.Context) (decimal.Decimal, error) {
	var d decimal.Decimal
	err := q.db.QueryRow(ctx, sumPaidRevenue).Scan(&d)
	return d, err
}
