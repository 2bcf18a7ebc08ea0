package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relux-laundry/api/internal/apperr"
	"github.com/relux-laundry/api/internal/auth"
	"github.com/relux-laundry/api/internal/database"
	mw "github.com/relux-laundry/api/internal/middleware"
	"github.com/relux-laundry/api/internal/service"
)

// Accounts is the credential side of the account service.
// Satisfied by *service.AccountService.
type Accounts interface {
	Register(ctx context.Context, req service.RegisterRequest) (*service.Registration, error)
	Authenticate(ctx context.Context, login, password string) (*database.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
}

// AuthStore defines the database methods needed by auth handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type AuthStore interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (database.User, error)
	UpdateUserDetails(ctx context.Context, arg database.UpdateUserDetailsParams) (database.User, error)
}

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	accounts     Accounts
	store        AuthStore
	tokens       auth.Tokens
	cookieSecure bool
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts Accounts, store AuthStore, tokens auth.Tokens, cookieSecure bool) *AuthHandler {
	return &AuthHandler{accounts: accounts, store: store, tokens: tokens, cookieSecure: cookieSecure}
}

// RegisterRoutes registers the public auth endpoints.
func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/login", h.Login)
	r.Post("/refresh", h.Refresh)
}

// RegisterProtectedRoutes registers auth endpoints that need a token.
func (h *AuthHandler) RegisterProtectedRoutes(r chi.Router) {
	r.Get("/me", h.Me)
	r.Put("/me", h.UpdateMe)
	r.Put("/password", h.ChangePassword)
	r.Post("/logout", h.Logout)
}

// --- Request / Response types ---

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type loginRequest struct {
	Login    string `json:"login"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type updateMeRequest struct {
	Name  *string `json:"name"`
	Email *string `json:"email"`
	Phone *string `json:"phone"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type tokenResponse struct {
	Token        string        `json:"token"`
	RefreshToken string        `json:"refresh_token"`
	User         database.User `json:"user"`
}

// --- Handlers ---

// Register creates a customer account and signs it in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	reg, err := h.accounts.Register(r.Context(), service.RegisterRequest{
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
		Password: req.Password,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondWithTokens(w, r, http.StatusCreated, "Registration successful", reg.User)
}

// Login accepts a phone number or an email address with a password.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	login := firstNonEmpty(req.Login, req.Email, req.Phone)
	if login == "" || req.Password == "" {
		writeError(w, r, apperr.Validation("Please provide login and password"))
		return
	}

	user, err := h.accounts.Authenticate(r.Context(), login, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	h.respondWithTokens(w, r, http.StatusOK, "Login successful", *user)
}

// Refresh exchanges a valid refresh token for a new token pair.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.RefreshToken == "" {
		writeError(w, r, apperr.Validation("refresh_token is required"))
		return
	}

	userID, err := h.tokens.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		writeError(w, r, apperr.Unauthorized("Invalid refresh token"))
		return
	}

	user, err := h.store.GetUserByID(r.Context(), userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			writeError(w, r, apperr.Unauthorized("User not found"))
			return
		}
		writeError(w, r, err)
		return
	}
	if !user.IsActive {
		writeError(w, r, service.ErrAccountDisabled)
		return
	}
	h.respondWithTokens(w, r, http.StatusOK, "", user)
}

// Me returns the caller's user record.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.store.GetUserByID(r.Context(), claimsOf(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "User fetched successfully", user)
}

// UpdateMe changes the caller's name, email or phone.
func (h *AuthHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var req updateMeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.store.GetUserByID(r.Context(), claimsOf(r).UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	arg := database.UpdateUserDetailsParams{ID: user.ID, Name: user.Name, Email: user.Email, Phone: user.Phone}
	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			writeError(w, r, service.ErrNameRequired)
			return
		}
		arg.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		arg.Email = optStr(strings.ToLower(*req.Email))
	}
	if req.Phone != nil {
		if strings.TrimSpace(*req.Phone) == "" {
			writeError(w, r, service.ErrPhoneRequired)
			return
		}
		arg.Phone = strings.TrimSpace(*req.Phone)
	}

	updated, err := h.store.UpdateUserDetails(r.Context(), arg)
	if err != nil {
		if database.IsUniqueViolation(err, "") {
			writeError(w, r, service.ErrAccountExists)
			return
		}
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Profile updated", updated)
}

// ChangePassword replaces the caller's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		writeError(w, r, apperr.Validation("current_password and new_password are required"))
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), claimsOf(r).UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "Password updated", nil)
}

// Logout clears the token cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     mw.TokenCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeData(w, http.StatusOK, "Logged out", nil)
}

// --- Helpers ---

func (h *AuthHandler) respondWithTokens(w http.ResponseWriter, r *http.Request, status int, message string, user database.User) {
	accessToken, err := h.tokens.GenerateToken(user.ID, user.CustomerID, user.Role)
	if err != nil {
		writeError(w, r, fmt.Errorf("sign access token: %w", err))
		return
	}
	refreshToken, err := h.tokens.GenerateRefreshToken(user.ID)
	if err != nil {
		writeError(w, r, fmt.Errorf("sign refresh token: %w", err))
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     mw.TokenCookie,
		Value:    accessToken,
		Path:     "/",
		MaxAge:   int(h.tokens.AccessExpire.Seconds()),
		HttpOnly: true,
		Secure:   h.cookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	writeData(w, status, message, tokenResponse{
		Token:        accessToken,
		RefreshToken: refreshToken,
		User:         user,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
