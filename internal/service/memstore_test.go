package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	"github.com/relux-laundry/api/internal/settings"
)

// --- Mock transaction ---

// mockTx implements pgx.Tx with only the methods we need.
// The unused methods panic so we catch accidental calls.
type mockTx struct {
	commits   int
	rollbacks int
}

func (m *mockTx) Begin(ctx context.Context) (pgx.Tx, error) { panic("not implemented") }
func (m *mockTx) Commit(ctx context.Context) error          { m.commits++; return nil }
func (m *mockTx) Rollback(ctx context.Context) error        { m.rollbacks++; return nil }
func (m *mockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}
func (m *mockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}
func (m *mockTx) LargeObjects() pgx.LargeObjects { panic("not implemented") }
func (m *mockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}
func (m *mockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}
func (m *mockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	panic("not implemented")
}
func (m *mockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	panic("not implemented")
}
func (m *mockTx) Conn() *pgx.Conn { panic("not implemented") }

// mockTxBeginner implements TxBeginner.
type mockTxBeginner struct {
	tx *mockTx
}

func (m *mockTxBeginner) Begin(ctx context.Context) (pgx.Tx, error) {
	return m.tx, nil
}

// --- In-memory store ---

// memStore is an in-memory stand-in for *database.Queries. Conditional
// updates and unique constraints behave like their SQL counterparts; writes
// are not rolled back with the transaction.
type memStore struct {
	now time.Time
	// staleCounts makes the next n order counts miss one order, as a
	// concurrent creator would.
	staleCounts int

	users         map[uuid.UUID]database.User
	customers     map[uuid.UUID]database.Customer
	tiers         map[uuid.UUID]database.LoyaltyTier
	ledger        []database.LoyaltyLedgerEntry
	wallets       map[uuid.UUID]database.Wallet
	walletTxns    []database.WalletTransaction
	categories    map[uuid.UUID]database.ServiceCategory
	orders        map[uuid.UUID]database.Order
	items         []database.OrderItem
	history       []database.OrderStatusEvent
	payments      map[uuid.UUID]database.Payment
	promos        map[uuid.UUID]database.PromoCode
	redemptions   []database.PromoRedemption
	referrals     map[uuid.UUID]database.Referral
	periods       map[uuid.UUID]database.PayrollPeriod
	comps         []database.StaffCompensation
	attendance    map[uuid.UUID]database.Attendance
	entries       map[uuid.UUID]database.PayrollEntry
	payslips      map[uuid.UUID]database.Payslip
	threads       map[uuid.UUID]database.ChatThread
	messages      []database.ChatMessage
	notifications []database.CreateNotificationParams
	audits        []database.CreateAuditLogParams
}

func newMemStore() *memStore {
	return &memStore{
		now:        time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		users:      map[uuid.UUID]database.User{},
		customers:  map[uuid.UUID]database.Customer{},
		tiers:      map[uuid.UUID]database.LoyaltyTier{},
		wallets:    map[uuid.UUID]database.Wallet{},
		categories: map[uuid.UUID]database.ServiceCategory{},
		orders:     map[uuid.UUID]database.Order{},
		payments:   map[uuid.UUID]database.Payment{},
		promos:     map[uuid.UUID]database.PromoCode{},
		referrals:  map[uuid.UUID]database.Referral{},
		periods:    map[uuid.UUID]database.PayrollPeriod{},
		attendance: map[uuid.UUID]database.Attendance{},
		entries:    map[uuid.UUID]database.PayrollEntry{},
		payslips:   map[uuid.UUID]database.Payslip{},
		threads:    map[uuid.UUID]database.ChatThread{},
	}
}

func uniqueErr(constraint string) error {
	return &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: constraint}
}

// --- Fixtures ---

func (m *memStore) addUser(role string) database.User {
	u := database.User{ID: uuid.New(), Name: "User " + role, Phone: "0800" + role, Role: role, IsActive: true}
	m.users[u.ID] = u
	return u
}

// addCustomer creates a customer with a linked login and a wallet.
func (m *memStore) addCustomer(points int64, balance string) database.Customer {
	u := m.addUser(enum.UserRoleCustomer)
	c := database.Customer{
		ID:                   uuid.New(),
		UserID:               &u.ID,
		Name:                 "Ada",
		Phone:                "08011111111",
		Status:               enum.CustomerStatusActive,
		LoyaltyPointsBalance: points,
	}
	m.customers[c.ID] = c
	u.CustomerID = &c.ID
	m.users[u.ID] = u
	m.wallets[c.ID] = database.Wallet{ID: uuid.New(), CustomerID: c.ID, Balance: decimal.RequireFromString(balance), Currency: "NGN"}
	return c
}

func (m *memStore) addOrder(customerID uuid.UUID, status string) database.Order {
	o := database.Order{
		ID:            uuid.New(),
		OrderNumber:   "RLX" + uuid.NewString()[:8],
		CustomerID:    customerID,
		Status:        status,
		ServiceLevel:  enum.ServiceLevelStandard,
		PaymentMethod: enum.PaymentMethodCash,
		PaymentStatus: enum.PaymentStatusPending,
		Total:         decimal.NewFromInt(1000),
		CreatedAt:     m.now,
	}
	m.orders[o.ID] = o
	return o
}

func (m *memStore) addPromo(code, typ, value string) database.PromoCode {
	p := database.PromoCode{ID: uuid.New(), Code: code, Type: typ, Value: decimal.RequireFromString(value), Active: true}
	m.promos[p.ID] = p
	return p
}

func (m *memStore) historyFor(orderID uuid.UUID) []database.OrderStatusEvent {
	var out []database.OrderStatusEvent
	for _, e := range m.history {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out
}

func (m *memStore) ledgerSum(customerID uuid.UUID) int64 {
	var sum int64
	for _, e := range m.ledger {
		if e.CustomerID == customerID {
			sum += e.Points
		}
	}
	return sum
}

// --- Users / customers ---

func (m *memStore) GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error) {
	u, ok := m.users[id]
	if !ok {
		return u, pgx.ErrNoRows
	}
	return u, nil
}

func (m *memStore) GetUserByReferralCode(ctx context.Context, code string) (database.User, error) {
	for _, u := range m.users {
		if u.ReferralCode != nil && *u.ReferralCode == code {
			return u, nil
		}
	}
	return database.User{}, pgx.ErrNoRows
}

func (m *memStore) SetUserReferralCode(ctx context.Context, id uuid.UUID, code string) (database.User, error) {
	u, ok := m.users[id]
	if !ok {
		return u, pgx.ErrNoRows
	}
	if u.ReferralCode == nil {
		u.ReferralCode = &code
		m.users[id] = u
	}
	return u, nil
}

func (m *memStore) GetCustomer(ctx context.Context, id uuid.UUID) (database.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return c, pgx.ErrNoRows
	}
	return c, nil
}

// --- Loyalty ---

func (m *memStore) AddLoyaltyPoints(ctx context.Context, arg database.AddLoyaltyPointsParams) (database.Customer, error) {
	c, ok := m.customers[arg.CustomerID]
	if !ok || (!arg.AllowNegative && c.LoyaltyPointsBalance+arg.Delta < 0) {
		return database.Customer{}, pgx.ErrNoRows
	}
	c.LoyaltyPointsBalance += arg.Delta
	if !arg.SkipLifetime && arg.Delta > 0 {
		c.LoyaltyLifetimePoints += arg.Delta
	}
	m.customers[c.ID] = c
	return c, nil
}

func (m *memStore) CreateLoyaltyEntry(ctx context.Context, arg database.CreateLoyaltyEntryParams) (database.LoyaltyLedgerEntry, error) {
	if arg.OrderID != nil {
		if _, err := m.GetLoyaltyEntryForOrder(ctx, *arg.OrderID, arg.Type); err == nil {
			return database.LoyaltyLedgerEntry{}, uniqueErr("loyalty_ledger_order_type_key")
		}
	}
	e := database.LoyaltyLedgerEntry{
		ID:           uuid.New(),
		CustomerID:   arg.CustomerID,
		OrderID:      arg.OrderID,
		Type:         arg.Type,
		Points:       arg.Points,
		BalanceAfter: arg.BalanceAfter,
		Reason:       arg.Reason,
		CreatedBy:    arg.CreatedBy,
		CreatedAt:    m.now,
	}
	m.ledger = append(m.ledger, e)
	return e, nil
}

func (m *memStore) GetLoyaltyEntryForOrder(ctx context.Context, orderID uuid.UUID, entryType string) (database.LoyaltyLedgerEntry, error) {
	for _, e := range m.ledger {
		if e.OrderID != nil && *e.OrderID == orderID && e.Type == entryType {
			return e, nil
		}
	}
	return database.LoyaltyLedgerEntry{}, pgx.ErrNoRows
}

func (m *memStore) GetLoyaltyTier(ctx context.Context, id uuid.UUID) (database.LoyaltyTier, error) {
	t, ok := m.tiers[id]
	if !ok {
		return t, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memStore) GetTierForPoints(ctx context.Context, lifetimePoints int64) (database.LoyaltyTier, error) {
	var best *database.LoyaltyTier
	for _, t := range m.tiers {
		if !t.Active || t.PointsRequired > lifetimePoints {
			continue
		}
		if best == nil || t.PointsRequired > best.PointsRequired {
			t := t
			best = &t
		}
	}
	if best == nil {
		return database.LoyaltyTier{}, pgx.ErrNoRows
	}
	return *best, nil
}

func (m *memStore) SetCustomerTier(ctx context.Context, customerID uuid.UUID, tierID *uuid.UUID) error {
	c := m.customers[customerID]
	c.LoyaltyTierID = tierID
	m.customers[customerID] = c
	return nil
}

func (m *memStore) CountCustomerOrdersWithStatus(ctx context.Context, customerID uuid.UUID, status string, excludeID uuid.UUID) (int64, error) {
	var n int64
	for _, o := range m.orders {
		if o.CustomerID == customerID && o.Status == status && o.ID != excludeID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) SetOrderPointsEarned(ctx context.Context, id uuid.UUID, points int64) error {
	o := m.orders[id]
	o.LoyaltyPointsEarned = points
	m.orders[id] = o
	return nil
}

// --- Wallets ---

func (m *memStore) GetWalletByCustomer(ctx context.Context, customerID uuid.UUID) (database.Wallet, error) {
	w, ok := m.wallets[customerID]
	if !ok {
		return w, pgx.ErrNoRows
	}
	return w, nil
}

func (m *memStore) AdjustWalletBalance(ctx context.Context, walletID uuid.UUID, delta decimal.Decimal) (database.Wallet, error) {
	for cid, w := range m.wallets {
		if w.ID != walletID {
			continue
		}
		next := w.Balance.Add(delta)
		if next.IsNegative() {
			return database.Wallet{}, pgx.ErrNoRows
		}
		w.Balance = next
		m.wallets[cid] = w
		return w, nil
	}
	return database.Wallet{}, pgx.ErrNoRows
}

func (m *memStore) CreateWalletTransaction(ctx context.Context, arg database.CreateWalletTransactionParams) (database.WalletTransaction, error) {
	t := database.WalletTransaction{
		ID:           uuid.New(),
		WalletID:     arg.WalletID,
		Amount:       arg.Amount,
		Type:         arg.Type,
		Reason:       arg.Reason,
		Reference:    arg.Reference,
		BalanceAfter: arg.BalanceAfter,
		CreatedBy:    arg.CreatedBy,
		CreatedAt:    m.now,
	}
	m.walletTxns = append(m.walletTxns, t)
	return t, nil
}

// --- Promos ---

func (m *memStore) GetPromoCodeByCode(ctx context.Context, code string) (database.PromoCode, error) {
	for _, p := range m.promos {
		if p.Code == code {
			return p, nil
		}
	}
	return database.PromoCode{}, pgx.ErrNoRows
}

func (m *memStore) GetPromoCodeByCodeForUpdate(ctx context.Context, code string) (database.PromoCode, error) {
	return m.GetPromoCodeByCode(ctx, code)
}

func (m *memStore) CountPromoRedemptions(ctx context.Context, promoCodeID uuid.UUID) (int64, error) {
	var n int64
	for _, r := range m.redemptions {
		if r.PromoCodeID == promoCodeID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetPromoRedemptionForOrder(ctx context.Context, orderID uuid.UUID) (database.PromoRedemption, error) {
	for _, r := range m.redemptions {
		if r.OrderID == orderID {
			return r, nil
		}
	}
	return database.PromoRedemption{}, pgx.ErrNoRows
}

func (m *memStore) DeletePromoRedemptionForOrder(ctx context.Context, orderID uuid.UUID) (int64, error) {
	kept := m.redemptions[:0]
	var n int64
	for _, r := range m.redemptions {
		if r.OrderID == orderID {
			n++
			continue
		}
		kept = append(kept, r)
	}
	m.redemptions = kept
	return n, nil
}

func (m *memStore) CreatePromoRedemption(ctx context.Context, arg database.CreatePromoRedemptionParams) (database.PromoRedemption, error) {
	for _, r := range m.redemptions {
		if r.OrderID == arg.OrderID {
			return database.PromoRedemption{}, uniqueErr("promo_redemptions_order_id_key")
		}
	}
	r := database.PromoRedemption{
		ID:          uuid.New(),
		PromoCodeID: arg.PromoCodeID,
		OrderID:     arg.OrderID,
		CustomerID:  arg.CustomerID,
		Amount:      arg.Amount,
		CreatedAt:   m.now,
	}
	m.redemptions = append(m.redemptions, r)
	return r, nil
}

// --- Orders ---

func (m *memStore) GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return o, pgx.ErrNoRows
	}
	return o, nil
}

func (m *memStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.GetOrder(ctx, id)
}

func (m *memStore) CountOrdersCreatedToday(ctx context.Context) (int64, error) {
	n := len(m.orders)
	if m.staleCounts > 0 {
		m.staleCounts--
		n--
	}
	return int64(n), nil
}

func (m *memStore) GetServiceCategory(ctx context.Context, id uuid.UUID) (database.ServiceCategory, error) {
	c, ok := m.categories[id]
	if !ok {
		return c, pgx.ErrNoRows
	}
	return c, nil
}

func (m *memStore) CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error) {
	for _, o := range m.orders {
		if o.OrderNumber == arg.OrderNumber {
			return database.Order{}, uniqueErr("orders_order_number_key")
		}
	}
	o := database.Order{
		ID:                    uuid.New(),
		OrderNumber:           arg.OrderNumber,
		CustomerID:            arg.CustomerID,
		CreatedBy:             arg.CreatedBy,
		ServiceType:           arg.ServiceType,
		OrderType:             arg.OrderType,
		PickupAddress:         arg.PickupAddress,
		DeliveryAddress:       arg.DeliveryAddress,
		ScheduledPickupAt:     arg.ScheduledPickupAt,
		SpecialInstructions:   arg.SpecialInstructions,
		ServiceLevel:          arg.ServiceLevel,
		ServiceLevelDueAt:     arg.ServiceLevelDueAt,
		Status:                arg.Status,
		PaymentMethod:         arg.PaymentMethod,
		PaymentStatus:         enum.PaymentStatusPending,
		PaymentAmount:         arg.PaymentAmount,
		Subtotal:              arg.Subtotal,
		PickupFee:             arg.PickupFee,
		DeliveryFee:           arg.DeliveryFee,
		Discount:              arg.Discount,
		Tax:                   arg.Tax,
		Total:                 arg.Total,
		PromoCodeID:           arg.PromoCodeID,
		PromoDiscount:         arg.PromoDiscount,
		LoyaltyPointsRedeemed: arg.LoyaltyPointsRedeemed,
		LoyaltyDiscountAmount: arg.LoyaltyDiscountAmount,
		QRCode:                arg.QRCode,
		Notes:                 arg.Notes,
		CreatedAt:             arg.CreatedAt,
		UpdatedAt:             arg.CreatedAt,
	}
	m.orders[o.ID] = o
	return o, nil
}

func (m *memStore) UpdateOrderStatus(ctx context.Context, id uuid.UUID, status string, notes *string) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return o, pgx.ErrNoRows
	}
	o.Status = status
	if notes != nil {
		o.Notes = notes
	}
	m.orders[id] = o
	return o, nil
}

func (m *memStore) UpdateOrderPayment(ctx context.Context, arg database.UpdateOrderPaymentParams) (database.Order, error) {
	o, ok := m.orders[arg.ID]
	if !ok {
		return o, pgx.ErrNoRows
	}
	o.PaymentStatus = arg.Status
	if arg.Method != nil {
		o.PaymentMethod = *arg.Method
	}
	if arg.TransactionID != nil {
		o.PaymentTransactionID = arg.TransactionID
	}
	if arg.Status == enum.PaymentStatusPaid {
		at := m.now
		o.PaidAt = &at
	}
	m.orders[arg.ID] = o
	return o, nil
}

func (m *memStore) AssignOrderStaff(ctx context.Context, id, staffID uuid.UUID) (database.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return o, pgx.ErrNoRows
	}
	o.AssignedStaffID = &staffID
	m.orders[id] = o
	return o, nil
}

func (m *memStore) UpdateOrderPricing(ctx context.Context, arg database.UpdateOrderPricingParams) (database.Order, error) {
	o, ok := m.orders[arg.ID]
	if !ok {
		return o, pgx.ErrNoRows
	}
	o.Subtotal, o.PickupFee, o.DeliveryFee = arg.Subtotal, arg.PickupFee, arg.DeliveryFee
	o.Discount, o.Tax, o.Total = arg.Discount, arg.Tax, arg.Total
	m.orders[arg.ID] = o
	return o, nil
}

func (m *memStore) CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error) {
	it := database.OrderItem{
		ID:                uuid.New(),
		OrderID:           arg.OrderID,
		ServiceCategoryID: arg.ServiceCategoryID,
		ItemType:          arg.ItemType,
		Description:       arg.Description,
		Condition:         arg.Condition,
		Quantity:          arg.Quantity,
		UnitPrice:         arg.UnitPrice,
		LineTotal:         arg.LineTotal,
		CreatedAt:         m.now,
	}
	m.items = append(m.items, it)
	return it, nil
}

func (m *memStore) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error) {
	var out []database.OrderItem
	for _, it := range m.items {
		if it.OrderID == orderID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (m *memStore) CreateOrderStatusEvent(ctx context.Context, arg database.CreateOrderStatusEventParams) (database.OrderStatusEvent, error) {
	e := database.OrderStatusEvent{
		ID:        int64(len(m.history) + 1),
		OrderID:   arg.OrderID,
		Status:    arg.Status,
		ActorID:   arg.ActorID,
		Notes:     arg.Notes,
		CreatedAt: m.now,
	}
	m.history = append(m.history, e)
	return e, nil
}

func (m *memStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	for _, p := range m.payments {
		if p.OrderID == arg.OrderID {
			return database.Payment{}, uniqueErr("payments_order_id_key")
		}
	}
	p := database.Payment{
		ID:          uuid.New(),
		OrderID:     arg.OrderID,
		Amount:      arg.Amount,
		Method:      arg.Method,
		Status:      arg.Status,
		Reference:   arg.Reference,
		ConfirmedBy: arg.ConfirmedBy,
		CreatedAt:   m.now,
	}
	m.payments[p.ID] = p
	return p, nil
}

// --- Referrals ---

func (m *memStore) CreateReferral(ctx context.Context, referrerID, refereeID uuid.UUID) (database.Referral, error) {
	if _, err := m.GetReferralByReferee(ctx, refereeID); err == nil {
		return database.Referral{}, uniqueErr("referrals_referee_user_id_key")
	}
	r := database.Referral{
		ID:             uuid.New(),
		ReferrerUserID: referrerID,
		RefereeUserID:  refereeID,
		Status:         enum.ReferralStatusPending,
		CreatedAt:      m.now,
	}
	m.referrals[r.ID] = r
	return r, nil
}

func (m *memStore) GetReferralByReferee(ctx context.Context, refereeID uuid.UUID) (database.Referral, error) {
	for _, r := range m.referrals {
		if r.RefereeUserID == refereeID {
			return r, nil
		}
	}
	return database.Referral{}, pgx.ErrNoRows
}

func (m *memStore) GetReferralForUpdate(ctx context.Context, id uuid.UUID) (database.Referral, error) {
	r, ok := m.referrals[id]
	if !ok {
		return r, pgx.ErrNoRows
	}
	return r, nil
}

func (m *memStore) UpdateReferralStatus(ctx context.Context, id uuid.UUID, status string) (database.Referral, error) {
	r, ok := m.referrals[id]
	if !ok {
		return r, pgx.ErrNoRows
	}
	r.Status = status
	m.referrals[id] = r
	return r, nil
}

func (m *memStore) MarkReferralRewarded(ctx context.Context, arg database.MarkReferralRewardedParams) (database.Referral, error) {
	r, ok := m.referrals[arg.ID]
	if !ok {
		return r, pgx.ErrNoRows
	}
	r.RewardCredited = true
	r.RewardAmount = arg.RewardAmount
	r.RefereeRewardCredited = true
	r.RefereeRewardAmount = arg.RefereeRewardAmount
	r.ReferrerLoyaltyPoints = arg.ReferrerPoints
	r.RefereeLoyaltyPoints = arg.RefereePoints
	m.referrals[arg.ID] = r
	return r, nil
}

// --- Payroll ---

func (m *memStore) CreatePayrollPeriod(ctx context.Context, start, end time.Time, createdBy *uuid.UUID) (database.PayrollPeriod, error) {
	p := database.PayrollPeriod{
		ID:        uuid.New(),
		StartDate: start,
		EndDate:   end,
		Status:    enum.PayrollPeriodDraft,
		CreatedBy: createdBy,
		CreatedAt: m.now,
	}
	m.periods[p.ID] = p
	return p, nil
}

func (m *memStore) GetPayrollPeriod(ctx context.Context, id uuid.UUID) (database.PayrollPeriod, error) {
	p, ok := m.periods[id]
	if !ok {
		return p, pgx.ErrNoRows
	}
	return p, nil
}

func (m *memStore) GetPayrollPeriodForUpdate(ctx context.Context, id uuid.UUID) (database.PayrollPeriod, error) {
	return m.GetPayrollPeriod(ctx, id)
}

func (m *memStore) TransitionPayrollPeriod(ctx context.Context, id uuid.UUID, from, to string) (database.PayrollPeriod, error) {
	p, ok := m.periods[id]
	if !ok || p.Status != from {
		return database.PayrollPeriod{}, pgx.ErrNoRows
	}
	p.Status = to
	at := m.now
	switch to {
	case enum.PayrollPeriodFinalized:
		p.FinalizedAt = &at
	case enum.PayrollPeriodPaid:
		p.PaidAt = &at
	}
	m.periods[id] = p
	return p, nil
}

func (m *memStore) ListActiveCompensations(ctx context.Context) ([]database.StaffCompensation, error) {
	var out []database.StaffCompensation
	for _, c := range m.comps {
		if c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) ListAttendanceInRange(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]database.Attendance, error) {
	var out []database.Attendance
	for _, a := range m.attendance {
		if a.UserID == userID && !a.ClockInAt.Before(start) && !a.ClockInAt.After(end) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ClockInAt.Before(out[j].ClockInAt) })
	return out, nil
}

func (m *memStore) ListPayrollEntries(ctx context.Context, periodID uuid.UUID) ([]database.PayrollEntry, error) {
	var out []database.PayrollEntry
	for _, e := range m.entries {
		if e.PeriodID == periodID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) UpsertPayrollEntry(ctx context.Context, arg database.UpsertPayrollEntryParams) (database.PayrollEntry, error) {
	id := uuid.New()
	for _, e := range m.entries {
		if e.PeriodID == arg.PeriodID && e.UserID == arg.UserID {
			id = e.ID
		}
	}
	e := database.PayrollEntry{
		ID:              id,
		PeriodID:        arg.PeriodID,
		UserID:          arg.UserID,
		BaseHours:       arg.BaseHours,
		OvertimeHours:   arg.OvertimeHours,
		HourlyRate:      arg.HourlyRate,
		OvertimeRate:    arg.OvertimeRate,
		Bonuses:         arg.Bonuses,
		Deductions:      arg.Deductions,
		TotalPay:        arg.TotalPay,
		AttendanceCount: arg.AttendanceCount,
		LateCount:       arg.LateCount,
		CreatedAt:       m.now,
	}
	m.entries[id] = e
	return e, nil
}

func (m *memStore) GetPayrollEntry(ctx context.Context, id uuid.UUID) (database.PayrollEntry, error) {
	e, ok := m.entries[id]
	if !ok {
		return e, pgx.ErrNoRows
	}
	return e, nil
}

func (m *memStore) UpdatePayrollEntryAdjustments(ctx context.Context, arg database.UpdatePayrollEntryAdjustmentsParams) (database.PayrollEntry, error) {
	e, ok := m.entries[arg.ID]
	if !ok {
		return e, pgx.ErrNoRows
	}
	e.Bonuses, e.Deductions, e.TotalPay = arg.Bonuses, arg.Deductions, arg.TotalPay
	m.entries[arg.ID] = e
	return e, nil
}

func (m *memStore) UpsertPayslip(ctx context.Context, entryID uuid.UUID, data json.RawMessage, generatedAt time.Time) (database.Payslip, error) {
	s, ok := m.payslips[entryID]
	if !ok {
		s = database.Payslip{ID: uuid.New(), EntryID: entryID, CreatedAt: m.now}
	}
	s.Data, s.GeneratedAt = data, generatedAt
	m.payslips[entryID] = s
	return s, nil
}

// --- Attendance ---

func (m *memStore) CreateAttendance(ctx context.Context, arg database.CreateAttendanceParams) (database.Attendance, error) {
	for _, a := range m.attendance {
		if a.UserID == arg.UserID && a.ClockOutAt == nil {
			return database.Attendance{}, uniqueErr("attendance_open_key")
		}
	}
	a := database.Attendance{
		ID:        uuid.New(),
		UserID:    arg.UserID,
		ClockInAt: arg.ClockInAt,
		Source:    arg.Source,
		Status:    arg.Status,
		Notes:     arg.Notes,
		CreatedAt: m.now,
	}
	m.attendance[a.ID] = a
	return a, nil
}

func (m *memStore) CloseOpenAttendance(ctx context.Context, userID uuid.UUID, at time.Time) (database.Attendance, error) {
	for id, a := range m.attendance {
		if a.UserID == userID && a.ClockOutAt == nil {
			a.ClockOutAt = &at
			m.attendance[id] = a
			return a, nil
		}
	}
	return database.Attendance{}, pgx.ErrNoRows
}

func (m *memStore) GetAttendance(ctx context.Context, id uuid.UUID) (database.Attendance, error) {
	a, ok := m.attendance[id]
	if !ok {
		return a, pgx.ErrNoRows
	}
	return a, nil
}

func (m *memStore) UpdateAttendance(ctx context.Context, arg database.UpdateAttendanceParams) (database.Attendance, error) {
	a, ok := m.attendance[arg.ID]
	if !ok {
		return a, pgx.ErrNoRows
	}
	a.ClockInAt, a.ClockOutAt, a.Status, a.Notes = arg.ClockInAt, arg.ClockOutAt, arg.Status, arg.Notes
	m.attendance[arg.ID] = a
	return a, nil
}

// --- Chat ---

func (m *memStore) CreateChatThread(ctx context.Context, arg database.CreateChatThreadParams) (database.ChatThread, error) {
	if arg.OrderID != nil {
		if _, err := m.GetChatThreadByOrder(ctx, *arg.OrderID); err == nil {
			return database.ChatThread{}, uniqueErr("chat_threads_order_id_key")
		}
	}
	t := database.ChatThread{
		ID:         uuid.New(),
		OrderID:    arg.OrderID,
		CustomerID: arg.CustomerID,
		Subject:    arg.Subject,
		Status:     enum.ChatThreadOpen,
		CreatedBy:  arg.CreatedBy,
		CreatedAt:  m.now,
		UpdatedAt:  m.now,
	}
	m.threads[t.ID] = t
	return t, nil
}

func (m *memStore) GetChatThread(ctx context.Context, id uuid.UUID) (database.ChatThread, error) {
	t, ok := m.threads[id]
	if !ok {
		return t, pgx.ErrNoRows
	}
	return t, nil
}

func (m *memStore) GetChatThreadByOrder(ctx context.Context, orderID uuid.UUID) (database.ChatThread, error) {
	for _, t := range m.threads {
		if t.OrderID != nil && *t.OrderID == orderID {
			return t, nil
		}
	}
	return database.ChatThread{}, pgx.ErrNoRows
}

func (m *memStore) CloseChatThread(ctx context.Context, id uuid.UUID) (database.ChatThread, error) {
	t, ok := m.threads[id]
	if !ok {
		return t, pgx.ErrNoRows
	}
	t.Status = enum.ChatThreadClosed
	m.threads[id] = t
	return t, nil
}

func (m *memStore) TouchChatThread(ctx context.Context, id uuid.UUID) error {
	t := m.threads[id]
	t.UpdatedAt = m.now
	m.threads[id] = t
	return nil
}

func (m *memStore) CreateChatMessage(ctx context.Context, arg database.CreateChatMessageParams) (database.ChatMessage, error) {
	msg := database.ChatMessage{
		ID:               uuid.New(),
		ThreadID:         arg.ThreadID,
		SenderType:       arg.SenderType,
		SenderCustomerID: arg.SenderCustomerID,
		SenderUserID:     arg.SenderUserID,
		Body:             arg.Body,
		CreatedAt:        m.now,
	}
	m.messages = append(m.messages, msg)
	return msg, nil
}

// --- Notifications / audit ---

func (m *memStore) CreateNotification(ctx context.Context, arg database.CreateNotificationParams) (database.Notification, error) {
	m.notifications = append(m.notifications, arg)
	return database.Notification{ID: uuid.New(), UserID: arg.UserID, Type: arg.Type, Title: arg.Title, Body: arg.Body}, nil
}

func (m *memStore) CreateAuditLog(ctx context.Context, arg database.CreateAuditLogParams) (database.AuditLog, error) {
	m.audits = append(m.audits, arg)
	return database.AuditLog{ID: uuid.New(), Action: arg.Action, TargetType: arg.TargetType}, nil
}

// --- Settings / publisher ---

type staticSettings struct{ s settings.Settings }

func (p *staticSettings) Current() *settings.Settings { return &p.s }

func defaultSettings() *staticSettings {
	return &staticSettings{s: settings.Defaults()}
}

type publishedEvent struct {
	room      string
	eventType string
}

type recordingPublisher struct {
	events []publishedEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, room, eventType string, payload any) error {
	p.events = append(p.events, publishedEvent{room: room, eventType: eventType})
	return nil
}

// --- Harness ---

type harness struct {
	store     *memStore
	tx        *mockTx
	pool      *mockTxBeginner
	settings  *staticSettings
	publisher *recordingPublisher
	notifier  *Notifier
}

func newHarness() *harness {
	store := newMemStore()
	tx := &mockTx{}
	cfg := defaultSettings()
	pub := &recordingPublisher{}
	return &harness{
		store:     store,
		tx:        tx,
		pool:      &mockTxBeginner{tx: tx},
		settings:  cfg,
		publisher: pub,
		notifier:  NewNotifier(store, pub, cfg, zap.NewNop()),
	}
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func ptrDec(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// --- Accounts ---

func (m *memStore) CreateUser(ctx context.Context, arg database.CreateUserParams) (database.User, error) {
	for _, u := range m.users {
		if u.Phone == arg.Phone {
			return database.User{}, uniqueErr("users_phone_key")
		}
		if arg.Email != nil && u.Email != nil && *u.Email == *arg.Email {
			return database.User{}, uniqueErr("users_email_key")
		}
	}
	u := database.User{
		ID:             uuid.New(),
		Name:           arg.Name,
		Email:          arg.Email,
		Phone:          arg.Phone,
		HashedPassword: arg.HashedPassword,
		Role:           arg.Role,
		StaffRole:      arg.StaffRole,
		CustomerID:     arg.CustomerID,
		IsActive:       true,
		CreatedAt:      m.now,
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *memStore) GetUserByLogin(ctx context.Context, login string) (database.User, error) {
	for _, u := range m.users {
		if u.Phone == login || (u.Email != nil && strings.EqualFold(*u.Email, login)) {
			return u, nil
		}
	}
	return database.User{}, pgx.ErrNoRows
}

func (m *memStore) LinkUserCustomer(ctx context.Context, userID, customerID uuid.UUID) error {
	u := m.users[userID]
	u.CustomerID = &customerID
	m.users[userID] = u
	return nil
}

func (m *memStore) UpdateUserPassword(ctx context.Context, id uuid.UUID, hashedPassword string) error {
	u, ok := m.users[id]
	if !ok {
		return pgx.ErrNoRows
	}
	u.HashedPassword = hashedPassword
	m.users[id] = u
	return nil
}

func (m *memStore) TouchUserLogin(ctx context.Context, id uuid.UUID) error {
	u := m.users[id]
	at := m.now
	u.LastLoginAt = &at
	m.users[id] = u
	return nil
}

func (m *memStore) CreateCustomer(ctx context.Context, arg database.CreateCustomerParams) (database.Customer, error) {
	for _, c := range m.customers {
		if c.Phone == arg.Phone {
			return database.Customer{}, uniqueErr("customers_phone_key")
		}
	}
	c := database.Customer{ID: uuid.New(), UserID: arg.UserID, Name: arg.Name, Phone: arg.Phone, Email: arg.Email, Status: arg.Status, CreatedAt: m.now}
	m.customers[c.ID] = c
	return c, nil
}

func (m *memStore) GetCustomerByPhone(ctx context.Context, phone string) (database.Customer, error) {
	for _, c := range m.customers {
		if c.Phone == phone {
			return c, nil
		}
	}
	return database.Customer{}, pgx.ErrNoRows
}

func (m *memStore) AttachCustomerUser(ctx context.Context, customerID, userID uuid.UUID) (database.Customer, error) {
	c, ok := m.customers[customerID]
	if !ok || c.UserID != nil {
		return database.Customer{}, pgx.ErrNoRows
	}
	c.UserID = &userID
	c.Status = enum.CustomerStatusActive
	m.customers[customerID] = c
	return c, nil
}

func (m *memStore) CreateWallet(ctx context.Context, customerID uuid.UUID) (database.Wallet, error) {
	w := database.Wallet{ID: uuid.New(), CustomerID: customerID, Balance: decimal.Zero, Currency: "NGN"}
	m.wallets[customerID] = w
	return w, nil
}
