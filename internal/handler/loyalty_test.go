package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	"github.com/relux-laundry/api/internal/handler"
	"github.com/relux-laundry/api/internal/middleware"
	"github.com/relux-laundry/api/internal/service"
)

// --- Mock PointsAdjuster + LoyaltyStore ---

type mockLoyalty struct {
	tiers     map[uuid.UUID]database.LoyaltyTier
	customers map[uuid.UUID]database.Customer
	ledger    []database.LoyaltyLedgerEntry
}

func newMockLoyalty() *mockLoyalty {
	return &mockLoyalty{
		tiers:     make(map[uuid.UUID]database.LoyaltyTier),
		customers: make(map[uuid.UUID]database.Customer),
	}
}

func (m *mockLoyalty) Adjust(_ context.Context, req service.AdjustRequest) (*service.PointsResult, error) {
	if req.Points == 0 {
		return nil, service.ErrInvalidPointsAmount
	}
	c, ok := m.customers[req.CustomerID]
	if !ok {
		return nil, service.ErrCustomerNotFound
	}
	c.LoyaltyPointsBalance += req.Points
	m.customers[c.ID] = c
	e := database.LoyaltyLedgerEntry{
		ID:           uuid.New(),
		CustomerID:   c.ID,
		Type:         enum.LedgerTypeAdjust,
		Points:       req.Points,
		BalanceAfter: c.LoyaltyPointsBalance,
		Reason:       req.Reason,
		CreatedBy:    req.ActorID,
		CreatedAt:    time.Now(),
	}
	m.ledger = append(m.ledger, e)
	return &service.PointsResult{Customer: c, Entry: e}, nil
}

func (m *mockLoyalty) ListLoyaltyTiers(_ context.Context, activeOnly bool) ([]database.LoyaltyTier, error) {
	var out []database.LoyaltyTier
	for _, t := range m.tiers {
		if activeOnly && !t.Active {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (m *mockLoyalty) GetLoyaltyTier(_ context.Context, id uuid.UUID) (database.LoyaltyTier, error) {
	t, ok := m.tiers[id]
	if !ok {
		return database.LoyaltyTier{}, pgx.ErrNoRows
	}
	return t, nil
}

func (m *mockLoyalty) CreateLoyaltyTier(_ context.Context, arg database.LoyaltyTierParams) (database.LoyaltyTier, error) {
	t := database.LoyaltyTier{
		ID:                uuid.New(),
		Name:              arg.Name,
		PointsRequired:    arg.PointsRequired,
		MultiplierPercent: arg.MultiplierPercent,
		Rank:              arg.Rank,
		Active:            arg.Active,
	}
	m.tiers[t.ID] = t
	return t, nil
}

func (m *mockLoyalty) UpdateLoyaltyTier(_ context.Context, arg database.LoyaltyTierParams) (database.LoyaltyTier, error) {
	t, ok := m.tiers[arg.ID]
	if !ok {
		return database.LoyaltyTier{}, pgx.ErrNoRows
	}
	t.Name, t.PointsRequired, t.MultiplierPercent, t.Active = arg.Name, arg.PointsRequired, arg.MultiplierPercent, arg.Active
	m.tiers[t.ID] = t
	return t, nil
}

func (m *mockLoyalty) DeleteLoyaltyTier(_ context.Context, id uuid.UUID) (int64, error) {
	if _, ok := m.tiers[id]; !ok {
		return 0, nil
	}
	delete(m.tiers, id)
	return 1, nil
}

func (m *mockLoyalty) GetCustomer(_ context.Context, id uuid.UUID) (database.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return database.Customer{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockLoyalty) ListLoyaltyLedger(_ context.Context, customerID uuid.UUID, _, _ int32) ([]database.LoyaltyLedgerEntry, error) {
	var out []database.LoyaltyLedgerEntry
	for _, e := range m.ledger {
		if e.CustomerID == customerID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockLoyalty) CountLoyaltyLedger(ctx context.Context, customerID uuid.UUID) (int64, error) {
	out, _ := m.ListLoyaltyLedger(ctx, customerID, 0, 0)
	return int64(len(out)), nil
}

func setupLoyaltyRouter(m *mockLoyalty, audit *captureAudit) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testTokens))
	r.Route("/loyalty", handler.NewLoyaltyHandler(m, m, service.NewAuditor(audit, zap.NewNop())).RegisterRoutes)
	return r
}

// --- Tests ---

func TestLoyalty_CustomersSeeActiveTiersOnly(t *testing.T) {
	m := newMockLoyalty()
	m.CreateLoyaltyTier(context.Background(), database.LoyaltyTierParams{Name: "Silver", Active: true})
	m.CreateLoyaltyTier(context.Background(), database.LoyaltyTierParams{Name: "Legacy", Active: false})
	router := setupLoyaltyRouter(m, &captureAudit{})

	rr := doAuthRequest(t, router, "GET", "/loyalty/tiers", nil, customerClaims(uuid.New()))
	if got := decodeResponse(t, rr)["data"].([]interface{}); len(got) != 1 {
		t.Errorf("customer tiers: got %d, want 1", len(got))
	}

	rr = doAuthRequest(t, router, "GET", "/loyalty/tiers", nil, staffClaims())
	if got := decodeResponse(t, rr)["data"].([]interface{}); len(got) != 2 {
		t.Errorf("staff tiers: got %d, want 2", len(got))
	}
}

func TestLoyalty_MineIncludesTier(t *testing.T) {
	m := newMockLoyalty()
	tier, _ := m.CreateLoyaltyTier(context.Background(), database.LoyaltyTierParams{Name: "Gold", Active: true})
	c := database.Customer{ID: uuid.New(), LoyaltyPointsBalance: 120, LoyaltyLifetimePoints: 900, LoyaltyTierID: &tier.ID}
	m.customers[c.ID] = c
	router := setupLoyaltyRouter(m, &captureAudit{})

	rr := doAuthRequest(t, router, "GET", "/loyalty/me", nil, customerClaims(c.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body: %s)", rr.Code, rr.Body.String())
	}
	data := dataOf(t, decodeResponse(t, rr))
	if data["points"].(float64) != 120 || data["lifetime_points"].(float64) != 900 {
		t.Errorf("summary: got %v", data)
	}
	if data["tier"].(map[string]interface{})["name"] != "Gold" {
		t.Errorf("tier: got %v", data["tier"])
	}

	rr = doAuthRequest(t, router, "GET", "/loyalty/me", nil, staffClaims())
	expectError(t, rr, http.StatusNotFound, "Customer profile not found")
}

func TestLoyalty_TierValidationAndDefaults(t *testing.T) {
	m := newMockLoyalty()
	router := setupLoyaltyRouter(m, &captureAudit{})

	rr := doAuthRequest(t, router, "POST", "/loyalty/tiers", map[string]interface{}{"name": "  "}, adminClaims())
	expectError(t, rr, http.StatusBadRequest, "Tier name is required")

	rr = doAuthRequest(t, router, "POST", "/loyalty/tiers", map[string]interface{}{"name": "Bronze", "points_required": -1}, adminClaims())
	expectError(t, rr, http.StatusBadRequest, "points_required and multiplier_percent must not be negative")

	rr = doAuthRequest(t, router, "POST", "/loyalty/tiers", map[string]interface{}{"name": "Bronze"}, adminClaims())
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d (body: %s)", rr.Code, rr.Body.String())
	}
	data := dataOf(t, decodeResponse(t, rr))
	if data["multiplier_percent"].(float64) != 100 || data["active"] != true {
		t.Errorf("defaults: got %v", data)
	}

	rr = doAuthRequest(t, router, "POST", "/loyalty/tiers", map[string]interface{}{"name": "Bronze"}, managerClaims())
	expectError(t, rr, http.StatusForbidden, "")
}

func TestLoyalty_DeleteMissingTier(t *testing.T) {
	router := setupLoyaltyRouter(newMockLoyalty(), &captureAudit{})
	rr := doAuthRequest(t, router, "DELETE", "/loyalty/tiers/"+uuid.NewString(), nil, adminClaims())
	expectError(t, rr, http.StatusNotFound, "Loyalty tier not found")

	rr = doAuthRequest(t, router, "GET", "/loyalty/tiers/"+uuid.NewString(), nil, adminClaims())
	expectError(t, rr, http.StatusNotFound, "Loyalty tier not found")
}

func TestLoyalty_AdjustAudited(t *testing.T) {
	m := newMockLoyalty()
	c := database.Customer{ID: uuid.New(), LoyaltyPointsBalance: 10}
	m.customers[c.ID] = c
	audit := &captureAudit{}
	router := setupLoyaltyRouter(m, audit)
	admin := adminClaims()

	rr := doAuthRequest(t, router, "POST", "/loyalty/adjust", map[string]interface{}{
		"customer_id": c.ID, "points": -25, "reason": "Duplicate earn",
	}, admin)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body: %s)", rr.Code, rr.Body.String())
	}
	entry := dataOf(t, decodeResponse(t, rr))["entry"].(map[string]interface{})
	if entry["balance_after"].(float64) != -15 || entry["type"] != enum.LedgerTypeAdjust {
		t.Errorf("entry: got %v", entry)
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != "loyalty.adjust" || *audit.entries[0].ActorUserID != admin.UserID {
		t.Errorf("audit: got %+v", audit.entries)
	}

	rr = doAuthRequest(t, router, "POST", "/loyalty/adjust", map[string]interface{}{"customer_id": c.ID, "points": 0}, admin)
	expectError(t, rr, http.StatusBadRequest, "Points must be a non-zero whole number")

	rr = doAuthRequest(t, router, "POST", "/loyalty/adjust", map[string]interface{}{"points": 5}, admin)
	expectError(t, rr, http.StatusBadRequest, "")

	rr = doAuthRequest(t, router, "POST", "/loyalty/adjust", map[string]interface{}{"customer_id": c.ID, "points": 5}, managerClaims())
	expectError(t, rr, http.StatusForbidden, "")
}

func TestLoyalty_CustomerLedgerForManagers(t *testing.T) {
	m := newMockLoyalty()
	c := database.Customer{ID: uuid.New()}
	m.customers[c.ID] = c
	m.Adjust(context.Background(), service.AdjustRequest{CustomerID: c.ID, Points: 40})
	m.Adjust(context.Background(), service.AdjustRequest{CustomerID: c.ID, Points: -10})
	router := setupLoyaltyRouter(m, &captureAudit{})

	rr := doAuthRequest(t, router, "GET", "/loyalty/customers/"+c.ID.String()+"/ledger", nil, managerClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body: %s)", rr.Code, rr.Body.String())
	}
	pg := decodeResponse(t, rr)["pagination"].(map[string]interface{})
	if pg["total"].(float64) != 2 || pg["limit"].(float64) != float64(handler.LedgerLimit) {
		t.Errorf("pagination: got %v", pg)
	}

	rr = doAuthRequest(t, router, "GET", "/loyalty/customers/"+c.ID.String(), nil, staffClaims())
	expectError(t, rr, http.StatusForbidden, "")
}
