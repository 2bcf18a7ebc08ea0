package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/database"
	mw "github.com/relux-laundry/api/internal/middleware"
	"github.com/relux-laundry/api/internal/service"
)

// Referrals issues codes and moves referrals through their states.
// Satisfied by *service.ReferralService.
type Referrals interface {
	Code(ctx context.Context, userID uuid.UUID) (string, error)
	Apply(ctx context.Context, refereeID uuid.UUID, code string) (*database.Referral, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, actorID uuid.UUID) (*database.Referral, error)
}

// ReferralStore defines the database methods used by referral handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReferralStore interface {
	GetReferral(ctx context.Context, id uuid.UUID) (database.Referral, error)
	ListReferrals(ctx context.Context, status *string, limit, offset int32) ([]database.Referral, error)
	CountReferrals(ctx context.Context, status *string) (int64, error)
	ListReferralsByReferrer(ctx context.Context, referrerID uuid.UUID) ([]database.Referral, error)
	GetReferralByReferee(ctx context.Context, refereeID uuid.UUID) (database.Referral, error)
}

// ReferralHandler handles referral endpoints.
type ReferralHandler struct {
	referrals Referrals
	store     ReferralStore
	auditor   *service.Auditor
}

// NewReferralHandler creates a new ReferralHandler.
func NewReferralHandler(referrals Referrals, store ReferralStore, auditor *service.Auditor) *ReferralHandler {
	return &ReferralHandler{referrals: referrals, store: store, auditor: auditor}
}

// RegisterRoutes registers referral endpoints on the given Chi router.
func (h *ReferralHandler) RegisterRoutes(r chi.Router) {
	r.Get("/me", h.Mine)
	r.Get("/me/code", h.MyCode)
	r.Post("/apply", h.Apply)

	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(managerRoles...))
		r.Get("/", h.List)
		r.Get("/{id}", h.Get)
		r.Put("/{id}/status", h.UpdateStatus)
	})
}

type applyReferralRequest struct {
	Code string `json:"code"`
}

type referralStatusRequest struct {
	Status string `json:"status"`
}

type myReferrals struct {
	Referred   []database.Referral `json:"referred"`
	ReferredBy *database.Referral  `json:"referred_by"`
}

// Mine returns the referrals the caller made and the one that brought them in.
func (h *ReferralHandler) Mine(w http.ResponseWriter, r *http.Request) {
	userID := claimsOf(r).UserID
	made, err := h.store.ListReferralsByReferrer(r.Context(), userID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out := myReferrals{Referred: made}
	by, err := h.store.GetReferralByReferee(r.Context(), userID)
	switch {
	case err == nil:
		out.ReferredBy = &by
	case apperr.KindOf(err) != apperr.KindNotFound:
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Referrals fetched successfully", out)
}

// MyCode returns the caller's referral code, issuing one on first call.
func (h *ReferralHandler) MyCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.referrals.Code(r.Context(), claimsOf(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Referral code fetched successfully", map[string]string{"code": code})
}

// Apply records that the caller was referred by the owner of a code.
func (h *ReferralHandler) Apply(w http.ResponseWriter, r *http.Request) {
	var req applyReferralRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	code := strings.TrimSpace(req.Code)
	if code == "" {
		writeError(w, r, service.ErrReferralCodeInvalid)
		return
	}
	ref, err := h.referrals.Apply(r.Context(), claimsOf(r).UserID, code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusCreated, "Referral applied", ref)
}

// List returns referrals, optionally filtered by status.
func (h *ReferralHandler) List(w http.ResponseWriter, r *http.Request) {
	status := queryStr(r, "status")
	p := parsePage(r, DefaultLimit)
	limit, offset := p.args()
	refs, err := h.store.ListReferrals(r.Context(), status, limit, offset)
	if err != nil {
		writeError(w, r, err)
		return
	}
	total, err := h.store.CountReferrals(r.Context(), status)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, "Referrals fetched successfully", refs, p, total)
}

// Get returns a referral.
func (h *ReferralHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := h.store.GetReferral(r.Context(), id)
	if err != nil {
		writeError(w, r, mapNotFound(err, service.ErrReferralNotFound))
		return
	}
	writeData(w, http.StatusOK, "Referral fetched successfully", ref)
}

// UpdateStatus moves a referral. Reaching rewarded credits both sides once.
func (h *ReferralHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req referralStatusRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	ref, err := h.referrals.UpdateStatus(r.Context(), id, req.Status, claimsOf(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.auditor.Record(r.Context(), service.AuditEntry{
		ActorID:    actorOf(r),
		Action:     "referral.status",
		TargetType: "referral",
		TargetID:   id.String(),
		After:      map[string]any{"status": ref.Status, "reward_credited": ref.RewardCredited},
	})
	writeData(w, http.StatusOK, "Referral status updated", ref)
}
