package router

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/relux-laundry/api/internal/auth"
	"github.com/relux-laundry/api/internal/config"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	"github.com/relux-laundry/api/internal/handler"
	mw "github.com/relux-laundry/api/internal/middleware"
	"github.com/relux-laundry/api/internal/service"
	"github.com/relux-laundry/api/internal/settings"
	"github.com/relux-laundry/api/internal/ws"
)

// Deps are the long-lived objects the routes are built from.
type Deps struct {
	Config    *config.Config
	Queries   *database.Queries
	Pool      *pgxpool.Pool
	Hub       *ws.Hub
	Publisher service.Publisher
	Settings  *settings.Store
	Logger    *zap.Logger
}

// New creates a Chi router with all application routes wired up under
// /api/v1. Services are built here from the shared pool and queries.
func New(d Deps) chi.Router {
	cfg, queries, pool := d.Config, d.Queries, d.Pool
	started := time.Now()

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(mw.RequestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.ClientURLs,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteMessage(w, http.StatusNotFound, fmt.Sprintf("Route %s not found", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		handler.WriteMessage(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method %s not allowed on %s", r.Method, r.URL.Path))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		handler.WriteHealth(w, started)
	})

	tokens := auth.Tokens{
		Secret:        cfg.JWTSecret,
		AccessExpire:  cfg.JWTExpire,
		RefreshExpire: cfg.RefreshExpire,
	}

	// Shared services
	notifier := service.NewNotifier(queries, d.Publisher, d.Settings, d.Logger)
	auditor := service.NewAuditor(queries, d.Logger)

	accounts := service.NewAccountService(pool, func(db database.DBTX) service.AccountStore {
		return database.New(db)
	}, queries)
	orders := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}, d.Settings, notifier, d.Logger)
	wallets := service.NewWalletService(pool, func(db database.DBTX) service.WalletStore {
		return database.New(db)
	}, d.Settings)
	loyalty := service.NewLoyaltyService(pool, func(db database.DBTX) service.LoyaltyStore {
		return database.New(db)
	})
	promos := service.NewPromoService(pool, func(db database.DBTX) service.PromoStore {
		return database.New(db)
	}, queries)
	referrals := service.NewReferralService(pool, func(db database.DBTX) service.ReferralStore {
		return database.New(db)
	}, queries, d.Settings)
	payroll := service.NewPayrollService(pool, func(db database.DBTX) service.PayrollStore {
		return database.New(db)
	}, d.Settings)
	attendance := service.NewAttendanceService(queries)
	chats := service.NewChatService(pool, func(db database.DBTX) service.ChatStore {
		return database.New(db)
	}, queries, notifier)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			handler.WriteHealth(w, started)
		})

		authHandler := handler.NewAuthHandler(accounts, queries, tokens, cfg.CookieSecure)
		r.Route("/auth", func(r chi.Router) {
			authHandler.RegisterRoutes(r)
			r.Group(func(r chi.Router) {
				r.Use(mw.Authenticate(tokens))
				authHandler.RegisterProtectedRoutes(r)
			})
		})

		// WebSocket route (handles auth internally via query param)
		authorize := handler.RoomAuthorizer(queries)
		r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
			ws.ServeWS(d.Hub, tokens, authorize, w, r)
		})

		// Protected routes (require authentication)
		r.Group(func(r chi.Router) {
			r.Use(mw.Authenticate(tokens))

			r.Route("/users", func(r chi.Router) {
				r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleManager))
				handler.NewUserHandler(queries, accounts, auditor).RegisterRoutes(r)
			})

			r.Route("/customers", handler.NewCustomerHandler(queries, accounts, auditor).RegisterRoutes)
			r.Route("/services", handler.NewCatalogHandler(queries).RegisterRoutes)
			r.Route("/orders", handler.NewOrderHandler(orders, queries, auditor).RegisterRoutes)
			r.Route("/payments", handler.NewPaymentHandler(queries).RegisterRoutes)
			r.Route("/wallets", handler.NewWalletHandler(wallets, queries, auditor).RegisterRoutes)
			r.Route("/loyalty", handler.NewLoyaltyHandler(loyalty, queries, auditor).RegisterRoutes)
			r.Route("/promos", handler.NewPromoHandler(promos, queries, auditor).RegisterRoutes)
			r.Route("/referrals", handler.NewReferralHandler(referrals, queries, auditor).RegisterRoutes)
			r.Route("/staff", handler.NewStaffHandler(queries, auditor).RegisterRoutes)
			r.Route("/attendance", handler.NewAttendanceHandler(attendance, queries, auditor).RegisterRoutes)
			r.Route("/payroll", handler.NewPayrollHandler(payroll, queries, auditor).RegisterRoutes)
			r.Route("/settings", handler.NewSettingsHandler(d.Settings, auditor).RegisterRoutes)
			r.Route("/notifications", handler.NewNotificationHandler(queries).RegisterRoutes)
			r.Route("/chats", handler.NewChatHandler(chats, queries).RegisterRoutes)
			r.Route("/audit-logs", handler.NewAuditHandler(queries).RegisterRoutes)
			r.Route("/admin", handler.NewAdminHandler(queries).RegisterRoutes)
		})
	})

	d.Logger.Info("router initialized")
	return r
}
