package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/code-sharad/inventory-management-sub000/internal/auth"
	"github.com/code-sharad/inventory-management-sub000/internal/models"
	"github.com/code-sharad/inventory-management-sub000/internal/services"
	pkgauth "github.com/code-sharad/inventory-management-sub000/pkg/auth"
	pkghttp "github.com/code-sharad/inventory-management-sub000/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AuthServiceInterface defines the interface for auth business logic
type AuthServiceInterface interface {
	Register(ctx context.Context, email, username, password string) error
	Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (string, error)
	Logout(ctx context.Context, refreshToken string) error
	LogoutAll(ctx context.Context, userID string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, rawToken, newPassword string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	VerifyEmail(ctx context.Context, rawToken string) (string, error)
	ResendVerification(ctx context.Context, userID string) error
}

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	service      AuthServiceInterface
	cookieConfig auth.CookieConfig
	ipConfig     *pkghttp.IPConfig
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface, cookieConfig auth.CookieConfig, ipConfig *pkghttp.IPConfig) *AuthHandler {
	return &AuthHandler{
		service:      service,
		cookieConfig: cookieConfig,
		ipConfig:     ipConfig,
	}
}

// Request DTOs

// RegisterRequest represents the request body for registration
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ForgotPasswordRequest represents the request body for forgot-password
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the request body for reset-password
type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required"`
}

// ChangePasswordRequest represents the request body for change-password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
}

// LoginResponse mirrors the envelope the frontend expects: status, access
// token in the body, sanitized user under data. The refresh token is only in
// the cookie.
type LoginResponse struct {
	Status      string `json:"status"`
	AccessToken string `json:"accessToken"`
	Data        struct {
		User *services.UserResponse `json:"user"`
	} `json:"data"`
}

// RefreshResponse carries the new access token after a refresh
type RefreshResponse struct {
	Status      string `json:"status"`
	AccessToken string `json:"accessToken"`
}

// Register handles user registration; the new account stays logged out until
// it verifies its email and logs in.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := h.service.Register(r.Context(), req.Email, req.Username, req.Password); err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]string{
		"status":  "success",
		"message": "Registration successful. Please check your email to verify your account.",
	})
}

// Login authenticates and opens a session: access token in the body, refresh
// token in the cookie.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	ipAddress := pkghttp.ExtractClientIP(r, h.ipConfig)
	userAgent := r.Header.Get("User-Agent")

	authResp, err := h.service.Login(r.Context(), req.Email, req.Password, ipAddress, userAgent)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	auth.SetRefreshTokenCookie(w, authResp.RefreshToken, authResp.RefreshExpiresAt, h.cookieConfig)

	resp := LoginResponse{Status: "success", AccessToken: authResp.AccessToken}
	resp.Data.User = authResp.User
	writeJSON(w, http.StatusOK, resp)
}

// RefreshToken exchanges the refresh cookie for a new access token. The
// cookie itself is untouched: the same refresh token stays valid until its
// own expiry or logout.
func (h *AuthHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	refreshToken, err := auth.GetRefreshTokenCookie(r)
	if err != nil || refreshToken == "" {
		pkghttp.WriteUnauthorized(w, "Refresh token missing")
		return
	}

	accessToken, err := h.service.Refresh(r.Context(), refreshToken)
	if err != nil {
		// A rejected refresh token is dead to this client; remove the cookie
		// so the next attempt starts clean.
		auth.ClearRefreshTokenCookie(w, h.cookieConfig)
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, RefreshResponse{Status: "success", AccessToken: accessToken})
}

// Logout ends the session matching the refresh cookie. The cookie is cleared
// even when the token is not recognized: the caller wants out either way.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	refreshToken, _ := auth.GetRefreshTokenCookie(r)

	auth.ClearRefreshTokenCookie(w, h.cookieConfig)

	if err := h.service.Logout(r.Context(), refreshToken); err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Logged out successfully",
	})
}

// LogoutAll ends every session for the caller
func (h *AuthHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	auth.ClearRefreshTokenCookie(w, h.cookieConfig)

	if err := h.service.LogoutAll(r.Context(), claims.UserID); err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Logged out from all devices",
	})
}

// ForgotPassword mails a one-time reset token
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteBadRequest(w, "There is no user with that email address")
			return
		}
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Password reset link sent to your email",
	})
}

// ResetPassword consumes the mailed token and sets a new password. Every
// session dies; the caller logs in again.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ResetPassword(r.Context(), token, req.Password); err != nil {
		writeAuthError(w, err)
		return
	}

	auth.ClearRefreshTokenCookie(w, h.cookieConfig)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Password reset successful. Please log in with your new password.",
	})
}

// ChangePassword verifies the current password before replacing it; clears
// all sessions on success.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims.UserID, req.CurrentPassword, req.NewPassword); err != nil {
		writeAuthError(w, err)
		return
	}

	auth.ClearRefreshTokenCookie(w, h.cookieConfig)
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Password changed. Please log in again.",
	})
}

// VerifyEmail consumes a verification token from the URL
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	if _, err := h.service.VerifyEmail(r.Context(), token); err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Email verified successfully. Please log in.",
	})
}

// ResendVerification issues a fresh verification token for the caller
func (h *AuthHandler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	if err := h.service.ResendVerification(r.Context(), claims.UserID); err != nil {
		if errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteBadRequest(w, "Email is already verified")
			return
		}
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Verification email sent",
	})
}

// writeAuthError translates service sentinel errors to the HTTP error
// taxonomy. Anything unmapped surfaces as a generic 500.
func writeAuthError(w http.ResponseWriter, err error) {
	var pwErr *pkgauth.PasswordValidationError

	switch {
	case errors.Is(err, models.ErrDuplicateEmail):
		pkghttp.WriteBadRequest(w, "An account with that email already exists")
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteUnauthorized(w, "Invalid email or password")
	case errors.Is(err, models.ErrAccountLocked):
		pkghttp.WriteUnauthorized(w, "Account is temporarily locked. Try again later.")
	case errors.Is(err, models.ErrAccountDeactivated):
		pkghttp.WriteUnauthorized(w, "Account is deactivated")
	case errors.Is(err, models.ErrTokenExpired),
		errors.Is(err, models.ErrInvalidSignature),
		errors.Is(err, models.ErrInvalidTokenType),
		errors.Is(err, models.ErrTokenNotRecognized),
		errors.Is(err, models.ErrStaleToken):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrActionTokenInvalid):
		pkghttp.WriteBadRequest(w, "Token is invalid or has expired")
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "unauthorized")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "forbidden")
	case errors.As(err, &pwErr):
		pkghttp.WriteBadRequest(w, pwErr.Error())
	case errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, err.Error())
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
