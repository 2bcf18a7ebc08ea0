package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	mw "github.com/relux-laundry/api/internal/middleware"
	"github.com/relux-laundry/api/internal/service"
	"github.com/relux-laundry/api/internal/settings"
)

// SettingsManager reads and versions business settings.
// Satisfied by *settings.Store.
type SettingsManager interface {
	Current() *settings.Settings
	Load(ctx context.Context) error
	Update(ctx context.Context, section string, patch json.RawMessage, updatedBy *uuid.UUID) (*settings.Settings, error)
}

// SettingsHandler exposes runtime settings to admins.
type SettingsHandler struct {
	settings SettingsManager
	auditor  *service.Auditor
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(s SettingsManager, auditor *service.Auditor) *SettingsHandler {
	return &SettingsHandler{settings: s, auditor: auditor}
}

// RegisterRoutes registers settings endpoints on the given Chi router.
func (h *SettingsHandler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireRole(adminOnly...))
		r.Get("/", h.Get)
		r.Post("/reload", h.Reload)
		r.Get("/{section}", h.GetSection)
		r.Put("/{section}", h.UpdateSection)
	})
}

// Get returns the full current settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeData(w, http.StatusOK, "Settings fetched successfully", h.settings.Current())
}

// GetSection returns one section.
func (h *SettingsHandler) GetSection(w http.ResponseWriter, r *http.Request) {
	section, err := h.settings.Current().Section(chi.URLParam(r, "section"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Settings fetched successfully", section)
}

// UpdateSection merges the body into a section and stores a new version.
func (h *SettingsHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "section")
	before, err := h.settings.Current().Section(name)
	if err != nil {
		writeError(w, r, err)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil || !json.Valid(body) {
		writeError(w, r, errBadBody)
		return
	}

	next, err := h.settings.Update(r.Context(), name, body, actorOf(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	after, _ := next.Section(name)
	h.auditor.Record(r.Context(), service.AuditEntry{
		ActorID:    actorOf(r),
		Action:     "settings.update",
		TargetType: "settings",
		TargetID:   name,
		Before:     before,
		After:      after,
		Metadata:   map[string]any{"version": next.Version},
	})
	writeData(w, http.StatusOK, "Settings updated", after)
}

// Reload rereads the latest stored version.
func (h *SettingsHandler) Reload(w http.ResponseWriter, r *http.Request) {
	if err := h.settings.Load(r.Context()); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Settings reloaded", h.settings.Current())
}
