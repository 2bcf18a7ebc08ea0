package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/relux-laundry/api/internal/database"
	mw "github.com/relux-laundry/api/internal/middleware"
)

// DashboardStore defines the aggregate queries behind the admin dashboard.
// Satisfied by *database.Queries; narrow interface for testability.
type DashboardStore interface {
	CountOrdersByStatus(ctx context.Context) ([]database.OrderStatusCount, error)
	CountOrdersCreatedToday(ctx context.Context) (int64, error)
	SumPaidRevenue(ctx context.Context) (decimal.Decimal, error)
	CountAllCustomers(ctx context.Context) (int64, error)
	CountActiveStaff(ctx context.Context) (int64, error)
}

// AdminHandler serves the back-office dashboard.
type AdminHandler struct {
	store DashboardStore
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(store DashboardStore) *AdminHandler {
	return &AdminHandler{store: store}
}

// RegisterRoutes registers admin endpoints on the given Chi router.
func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.With(mw.RequireRole(managerRoles...)).Get("/dashboard", h.Dashboard)
}

type dashboardResponse struct {
	OrdersByStatus map[string]int64 `json:"orders_by_status"`
	TotalOrders    int64            `json:"total_orders"`
	OrdersToday    int64            `json:"orders_today"`
	Revenue        decimal.Decimal  `json:"revenue"`
	Customers      int64            `json:"customers"`
	ActiveStaff    int64            `json:"active_staff"`
}

// Dashboard returns headline counts. The queries run concurrently.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	var (
		out    dashboardResponse
		counts []database.OrderStatusCount
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() (err error) {
		counts, err = h.store.CountOrdersByStatus(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.OrdersToday, err = h.store.CountOrdersCreatedToday(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Revenue, err = h.store.SumPaidRevenue(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.Customers, err = h.store.CountAllCustomers(ctx)
		return err
	})
	g.Go(func() (err error) {
		out.ActiveStaff, err = h.store.CountActiveStaff(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, err)
		return
	}

	out.OrdersByStatus = make(map[string]int64, len(counts))
	for _, c := range counts {
		out.OrdersByStatus[c.Status] = c.Count
		out.TotalOrders += c.Count
	}
	writeData(w, http.StatusOK, "Dashboard fetched successfully", out)
}
