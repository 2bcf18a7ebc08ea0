package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	mw "github.com/relux-laundry/api/internal/middleware"
)

// AuditLogStore defines the database methods for reading the audit trail.
// Satisfied by *database.Queries; narrow interface for testability.
type AuditLogStore interface {
	GetAuditLog(ctx context.Context, id uuid.UUID) (database.AuditLog, error)
	ListAuditLogs(ctx context.Context, f database.AuditLogFilter, limit, offset int32) ([]database.AuditLog, error)
	CountAuditLogs(ctx context.Context, f database.AuditLogFilter) (int64, error)
}

// AuditHandler serves the audit trail to admins.
type AuditHandler struct {
	store AuditLogStore
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(store AuditLogStore) *AuditHandler {
	return &AuditHandler{store: store}
}

var errAuditNotFound = apperr.NotFound("Audit log not found")

// RegisterRoutes registers audit endpoints on the given Chi router.
func (h *AuditHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(adminOnly...))
		r.Get("/", h.List)
		r.Get("/target/{type}/{id}", h.ForTarget)
		r.Get("/{id}", h.Get)
	})
}

// List returns audit entries filtered by action and target.
func (h *AuditHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, database.AuditLogFilter{
		Action:     queryStr(r, "action"),
		TargetType: queryStr(r, "target_type"),
		TargetID:   queryStr(r, "target_id"),
	})
}

// ForTarget returns the history of one entity.
func (h *AuditHandler) ForTarget(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, database.AuditLogFilter{
		Action:     queryStr(r, "action"),
		TargetType: ptr(chi.URLParam(r, "type")),
		TargetID:   ptr(chi.URLParam(r, "id")),
	})
}

// Get returns a single entry.
func (h *AuditHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	entry, err := h.store.GetAuditLog(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, errAuditNotFound))
		return
	}
	writeData(w, http.StatusOK, "Audit log fetched successfully", entry)
}

func (h *AuditHandler) list(w http.ResponseWriter, r *http.Request, f database.AuditLogFilter) {
	p := parsePage(r, LedgerLimit)
	limit, offset := p.args()
	rows, err := h.store.ListAuditLogs(r.Context(), f, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountAuditLogs(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, "Audit logs fetched successfully", rows, p, total)
}
