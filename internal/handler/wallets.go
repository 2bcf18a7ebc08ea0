package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	mw "github.com/relux-laundry/api/internal/middleware"
	"github.com/relux-laundry/api/internal/service"
)

// Wallets moves money in and out of customer wallets.
// Satisfied by *service.WalletService.
type Wallets interface {
	TopUp(ctx context.Context, m service.WalletMovement) (*service.WalletResult, error)
	Debit(ctx context.Context, m service.WalletMovement) (*service.WalletResult, error)
}

// WalletStore defines the read-side database methods for wallets.
// Satisfied by *database.Queries; narrow interface for testability.
type WalletStore interface {
	GetWalletByCustomer(ctx context.Context, customerID uuid.UUID) (database.Wallet, error)
	ListWalletTransactions(ctx context.Context, walletID uuid.UUID, limit, offset int32) ([]database.WalletTransaction, error)
	CountWalletTransactions(ctx context.Context, walletID uuid.UUID) (int64, error)
}

var errCustomerRequired = apperr.Validation("customer_id is required")

// WalletHandler handles wallet endpoints.
type WalletHandler struct {
	wallets Wallets
	store   WalletStore
	auditor *service.Auditor
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(wallets Wallets, store WalletStore, auditor *service.Auditor) *WalletHandler {
	return &WalletHandler{wallets: wallets, store: store, auditor: auditor}
}

// RegisterRoutes registers wallet endpoints on the given Chi router.
func (h *WalletHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.Mine)
	r.Get("/me/transactions", h.MyTransactions)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(staffRoles...))
		r.Get("/customer/{customerId}", h.ForCustomer)
		r.Get("/customer/{customerId}/transactions", h.CustomerTransactions)
		r.Post("/topup", h.TopUp)
		r.Post("/debit", h.Debit)
	})
}

type walletMovementRequest struct {
	CustomerID uuid.UUID       `json:"customer_id"`
	Amount     decimal.Decimal `json:"amount"`
	Reason     string          `json:"reason"`
	Reference  string          `json:"reference"`
}

// Mine returns the caller's wallet.
func (h *WalletHandler) Mine(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeWallet(w, r, customerID)
}

// MyTransactions returns the caller's wallet ledger, newest first.
func (h *WalletHandler) MyTransactions(w http.ResponseWriter, r *http.Request) {
	customerID, err := customerOf(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeTransactions(w, r, customerID)
}

// ForCustomer returns a customer's wallet.
func (h *WalletHandler) ForCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := urlID(r, "customerId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeWallet(w, r, customerID)
}

// CustomerTransactions returns a customer's wallet ledger.
func (h *WalletHandler) CustomerTransactions(w http.ResponseWriter, r *http.Request) {
	customerID, err := urlID(r, "customerId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.writeTransactions(w, r, customerID)
}

// TopUp credits a customer's wallet.
func (h *WalletHandler) TopUp(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "wallet.topup", "Wallet topped up", h.wallets.TopUp)
}

// Debit takes money out of a customer's wallet.
func (h *WalletHandler) Debit(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, "wallet.debit", "Wallet debited", h.wallets.Debit)
}

func (h *WalletHandler) move(w http.ResponseWriter, r *http.Request, action, message string,
	fn func(context.Context, service.WalletMovement) (*service.WalletResult, error)) {
	var req walletMovementRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CustomerID == uuid.Nil {
		writeError(w, r, errCustomerRequired)
		return
	}
	customerID := req.CustomerID

	res, err := fn(r.Context(), service.WalletMovement{
		CustomerID: customerID,
		Amount:     req.Amount,
		Reason:     req.Reason,
		Reference:  req.Reference,
		ActorID:    actorOf(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.auditor.Record(r.Context(), service.AuditEntry{
		ActorID:    actorOf(r),
		Action:     action,
		TargetType: "customer",
		TargetID:   customerID.String(),
		After: map[string]any{
			"amount":         req.Amount,
			"balance":        res.Wallet.Balance,
			"transaction_id": res.Transaction.ID,
		},
		Metadata: map[string]any{"reason": req.Reason},
	})
	writeData(w, http.StatusOK, message, res)
}

func (h *WalletHandler) writeWallet(w http.ResponseWriter, r *http.Request, customerID uuid.UUID) {
	wallet, err := h.store.GetWalletByCustomer(r.Context(), customerID)
	if err != nil {
		writeError(w, r, mapNotFound(err, service.ErrWalletNotFound))
		return
	}
	writeData(w, http.StatusOK, "Wallet fetched successfully", wallet)
}

func (h *WalletHandler) writeTransactions(w http.ResponseWriter, r *http.Request, customerID uuid.UUID) {
	wallet, err := h.store.GetWalletByCustomer(r.Context(), customerID)
	if err != nil {
		writeError(w, r, mapNotFound(err, service.ErrWalletNotFound))
		return
	}
	p := parsePage(r, LedgerLimit)
	limit, offset := p.args()
	txs, err := h.store.ListWalletTransactions(r.Context(), wallet.ID, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountWalletTransactions(r.Context(), wallet.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, "Wallet transactions fetched successfully", txs, p, total)
}
