package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	"github.com/relux-laundry/api/internal/handler"
	"github.com/relux-laundry/api/internal/middleware"
	"github.com/relux-laundry/api/internal/service"
)

// --- Mock CustomerStore ---

type mockCustomerStore struct {
	customers  map[uuid.UUID]database.Customer
	lastFilter database.CustomerFilter
}

func newMockCustomerStore() *mockCustomerStore {
	return &mockCustomerStore{customers: make(map[uuid.UUID]database.Customer)}
}

func (m *mockCustomerStore) add(name, phone string) database.Customer {
	c := database.Customer{ID: uuid.New(), Name: name, Phone: phone, Status: enum.CustomerStatusActive}
	m.customers[c.ID] = c
	return c
}

func (m *mockCustomerStore) GetCustomer(_ context.Context, id uuid.UUID) (database.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return database.Customer{}, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockCustomerStore) ListCustomers(_ context.Context, f database.CustomerFilter, _, _ int32) ([]database.Customer, error) {
	m.lastFilter = f
	var out []database.Customer
	for _, c := range m.customers {
		out = append(out, c)
	}
	return out, nil
}

func (m *mockCustomerStore) CountCustomers(context.Context, database.CustomerFilter) (int64, error) {
	return int64(len(m.customers)), nil
}

func (m *mockCustomerStore) UpdateCustomer(_ context.Context, arg database.UpdateCustomerParams) (database.Customer, error) {
	for _, c := range m.customers {
		if c.ID != arg.ID && c.Phone == arg.Phone {
			return database.Customer{}, &pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "customers_phone_key"}
		}
	}
	c := m.customers[arg.ID]
	c.Name, c.Phone, c.Email = arg.Name, arg.Phone, arg.Email
	m.customers[arg.ID] = c
	return c, nil
}

func (m *mockCustomerStore) SetCustomerStatus(_ context.Context, id uuid.UUID, status string) (database.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return database.Customer{}, pgx.ErrNoRows
	}
	c.Status = status
	m.customers[id] = c
	return c, nil
}

func (m *mockCustomerStore) CreateWalkInCustomer(_ context.Context, req service.WalkInRequest) (*database.Customer, error) {
	if req.Phone == "" {
		return nil, service.ErrPhoneRequired
	}
	c := m.add(req.Name, req.Phone)
	c.Status = enum.CustomerStatusGuest
	m.customers[c.ID] = c
	return &c, nil
}

func setupCustomerRouter(store *mockCustomerStore, audit *captureAudit) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testTokens))
	h := handler.NewCustomerHandler(store, store, service.NewAuditor(audit, zap.NewNop()))
	r.Route("/customers", h.RegisterRoutes)
	return r
}

// --- Tests ---

func TestCustomer_MeAndUpdateMe(t *testing.T) {
	store := newMockCustomerStore()
	c := store.add("Budi", "0812")
	router := setupCustomerRouter(store, &captureAudit{})
	claims := customerClaims(c.ID)

	rr := doAuthRequest(t, router, "GET", "/customers/me", nil, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body: %s)", rr.Code, rr.Body.String())
	}

	rr = doAuthRequest(t, router, "PUT", "/customers/me", map[string]string{"name": "Budi S", "email": "budi@example.com"}, claims)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body: %s)", rr.Code, rr.Body.String())
	}
	data := dataOf(t, decodeResponse(t, rr))
	if data["name"] != "Budi S" || data["email"] != "budi@example.com" || data["phone"] != "0812" {
		t.Errorf("updated customer: got %v", data)
	}
}

func TestCustomer_UpdateDuplicatePhone(t *testing.T) {
	store := newMockCustomerStore()
	c := store.add("Budi", "0812")
	store.add("Sari", "0813")
	router := setupCustomerRouter(store, &captureAudit{})

	rr := doAuthRequest(t, router, "PUT", "/customers/"+c.ID.String(), map[string]string{"phone": "0813"}, staffClaims())
	expectError(t, rr, http.StatusBadRequest, "Customer already exists with this phone")
}

func TestCustomer_CustomerCannotList(t *testing.T) {
	store := newMockCustomerStore()
	c := store.add("Budi", "0812")
	router := setupCustomerRouter(store, &captureAudit{})

	rr := doAuthRequest(t, router, "GET", "/customers", nil, customerClaims(c.ID))
	expectError(t, rr, http.StatusForbidden, "User role 'customer' is not authorized to access this route")
}

func TestCustomer_ListSearch(t *testing.T) {
	store := newMockCustomerStore()
	store.add("Budi", "0812")
	router := setupCustomerRouter(store, &captureAudit{})

	rr := doAuthRequest(t, router, "GET", "/customers?search=bud&status=active", nil, staffClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d", rr.Code)
	}
	if store.lastFilter.Search == nil || *store.lastFilter.Search != "bud" {
		t.Errorf("search filter: got %v", store.lastFilter.Search)
	}
}

func TestCustomer_CreateWalkIn(t *testing.T) {
	store := newMockCustomerStore()
	router := setupCustomerRouter(store, &captureAudit{})

	rr := doAuthRequest(t, router, "POST", "/customers", map[string]string{"name": "Walk In", "phone": "0899"}, staffClaims())
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d (body: %s)", rr.Code, rr.Body.String())
	}
	if got := dataOf(t, decodeResponse(t, rr))["status"]; got != enum.CustomerStatusGuest {
		t.Errorf("status: got %v", got)
	}
}

func TestCustomer_SuspendAudited(t *testing.T) {
	store := newMockCustomerStore()
	c := store.add("Budi", "0812")
	audit := &captureAudit{}
	router := setupCustomerRouter(store, audit)

	rr := doAuthRequest(t, router, "PUT", "/customers/"+c.ID.String()+"/suspend", nil, staffClaims())
	expectError(t, rr, http.StatusForbidden, "")

	rr = doAuthRequest(t, router, "PUT", "/customers/"+c.ID.String()+"/suspend", nil, managerClaims())
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d (body: %s)", rr.Code, rr.Body.String())
	}
	if store.customers[c.ID].Status != enum.CustomerStatusSuspended {
		t.Errorf("status not changed")
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != "customer.suspended" {
		t.Errorf("audit: got %+v", audit.entries)
	}

	rr = doAuthRequest(t, router, "PUT", "/customers/"+uuid.NewString()+"/activate", nil, adminClaims())
	expectError(t, rr, http.StatusNotFound, "Customer not found")
}
