package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/auth"
	"github.com/relux-laundry/api/internal/database"
	"github.com/relux-laundry/api/internal/enum"
	mw "github.com/relux-laundry/api/internal/middleware"
)

// Pagination defaults.
const (
	DefaultLimit = 10
	LedgerLimit  = 20
	ChatLimit    = 50
	MaxLimit     = 100
)

var exposeErrors atomic.Bool

// ExposeErrors makes 500 responses carry the underlying error text.
// Only for development.
func ExposeErrors(on bool) { exposeErrors.Store(on) }

type envelope struct {
	Success    bool        `json:"success"`
	Message    string      `json:"message"`
	Data       any         `json:"data,omitempty"`
	Pagination *pagination `json:"pagination,omitempty"`
}

type pagination struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
	Pages int64 `json:"pages"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

// writeData writes a success envelope.
func writeData(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// writeList writes a success envelope with pagination.
func writeList(w http.ResponseWriter, message string, data any, p page, total int64) {
	pages := total / int64(p.Limit)
	if total%int64(p.Limit) != 0 {
		pages++
	}
	writeJSON(w, http.StatusOK, envelope{
		Success:    true,
		Message:    message,
		Data:       data,
		Pagination: &pagination{Page: p.Page, Limit: p.Limit, Total: total, Pages: pages},
	})
}

// WriteMessage writes a failure envelope with a fixed status.
func WriteMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// writeError maps err to a status through its apperr kind. Internal errors
// are logged and hidden behind "Server Error".
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	status := statusFor(kind)

	if status == http.StatusInternalServerError {
		zap.L().Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err),
		)
		msg := "Server Error"
		if exposeErrors.Load() {
			msg = err.Error()
		}
		WriteMessage(w, status, msg)
		return
	}
	WriteMessage(w, status, apperr.MessageOf(err, "Server Error"))
}

func statusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindValidation, apperr.KindConflict:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

var (
	errBadBody   = apperr.Validation("Invalid request body")
	errForbidden = apperr.Forbidden("Not authorized to access this resource")
	errNoProfile = apperr.NotFound("Customer profile not found")
)

// decode reads a JSON body into dst. Unknown fields are ignored.
func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.Validation("Request body is required")
		}
		return errBadBody
	}
	return nil
}

// urlID parses the named chi URL parameter as a UUID.
func urlID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, apperr.Validation(fmt.Sprintf("Invalid %s", name))
	}
	return id, nil
}

type page struct {
	Page  int
	Limit int
}

// parsePage reads page and limit from the query string.
func parsePage(r *http.Request, defaultLimit int) page {
	p := page{Page: 1, Limit: defaultLimit}
	if v, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && v > 0 {
		p.Page = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 {
		p.Limit = v
	}
	if p.Limit > MaxLimit {
		p.Limit = MaxLimit
	}
	return p
}

func (p page) args() (int32, int32) {
	return database.Page(p.Page, p.Limit)
}

// queryStr returns a trimmed query value or nil when absent.
func queryStr(r *http.Request, key string) *string {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return nil
	}
	return &v
}

func queryID(r *http.Request, key string) (*uuid.UUID, error) {
	v := queryStr(r, key)
	if v == nil {
		return nil, nil
	}
	id, err := uuid.Parse(*v)
	if err != nil {
		return nil, apperr.Validation(fmt.Sprintf("Invalid %s", key))
	}
	return &id, nil
}

func claimsOf(r *http.Request) *auth.Claims {
	return mw.ClaimsFromContext(r.Context())
}

// customerOf returns the caller's customer id.
func customerOf(r *http.Request) (uuid.UUID, error) {
	c := claimsOf(r)
	if c == nil || c.CustomerID == nil {
		return uuid.Nil, errNoProfile
	}
	return *c.CustomerID, nil
}

func actorOf(r *http.Request) *uuid.UUID {
	c := claimsOf(r)
	if c == nil {
		return nil
	}
	id := c.UserID
	return &id
}

func ptr[T any](v T) *T { return &v }

func optStr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// mapNotFound swaps a bare not-found for a domain message.
func mapNotFound(err error, domain *apperr.Error) error {
	var e *apperr.Error
	if !errors.As(err, &e) && apperr.KindOf(err) == apperr.KindNotFound {
		return domain
	}
	return err
}

// Role sets used by route guards.
var (
	staffRoles   = []string{enum.UserRoleStaff, enum.UserRoleManager, enum.UserRoleAdmin}
	managerRoles = []string{enum.UserRoleAdmin, enum.UserRoleManager}
	adminOnly    = []string{enum.UserRoleAdmin}
)

func isStaff(r *http.Request) bool {
	c := claimsOf(r)
	return c != nil && enum.IsStaffRole(c.Role)
}

type health struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    float64   `json:"uptime"`
}

// WriteHealth reports liveness and seconds since started.
func WriteHealth(w http.ResponseWriter, started time.Time) {
	writeJSON(w, http.StatusOK, health{
		Success:   true,
		Message:   "Relux API is running",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(started).Seconds(),
	})
}
