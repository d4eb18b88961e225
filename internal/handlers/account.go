package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/code-sharad/inventory-management-sub000/internal/auth"
	"github.com/code-sharad/inventory-management-sub000/internal/models"
	"github.com/code-sharad/inventory-management-sub000/internal/services"
	pkghttp "github.com/code-sharad/inventory-management-sub000/pkg/http"
	"github.com/go-chi/chi/v5"
)

// AccountServiceInterface defines the profile/sessions/admin surface
type AccountServiceInterface interface {
	GetProfile(ctx context.Context, userID string) (*services.UserResponse, error)
	UpdateProfile(ctx context.Context, userID, username, email string) (*services.UserResponse, error)
	ListSessions(ctx context.Context, userID string) ([]services.SessionResponse, error)
	GetLoginHistory(ctx context.Context, userID string) ([]services.LoginHistoryResponse, error)
	ListAccounts(ctx context.Context, limit, offset int) ([]*services.UserResponse, error)
	CreateAccount(ctx context.Context, email, username, password string, role models.Role) (*services.UserResponse, error)
	SetAccountActive(ctx context.Context, userID string, active bool) error
	DeleteAccount(ctx context.Context, userID string) error
}

// AccountHandler handles profile, sessions-view and admin account requests
type AccountHandler struct {
	service AccountServiceInterface
}

func NewAccountHandler(service AccountServiceInterface) *AccountHandler {
	return &AccountHandler{service: service}
}

// UpdateProfileRequest represents the request body for profile updates
type UpdateProfileRequest struct {
	Username string `json:"username" validate:"omitempty,min=1,max=64"`
	Email    string `json:"email" validate:"omitempty,email"`
}

// CreateAccountRequest is the admin account-creation body
type CreateAccountRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=1,max=64"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"required,oneof=admin manager user"`
}

// SetAccountStatusRequest toggles the login gate on an account
type SetAccountStatusRequest struct {
	IsActive *bool `json:"isActive" validate:"required"`
}

// GetProfile returns the caller's account
func (h *AccountHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), claims.UserID)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"user": profile},
	})
}

// UpdateProfile mutates username/email for the caller
func (h *AccountHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), claims.UserID, req.Username, req.Email)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"user": profile},
	})
}

// ListSessions returns the caller's active sessions
func (h *AccountHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	sessions, err := h.service.ListSessions(r.Context(), claims.UserID)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"sessions": sessions},
	})
}

// GetLoginHistory returns the caller's login audit trail
func (h *AccountHandler) GetLoginHistory(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUserFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "unauthorized")
		return
	}

	history, err := h.service.GetLoginHistory(r.Context(), claims.UserID)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"loginHistory": history},
	})
}

// ListAccounts is the admin account listing
func (h *AccountHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	accounts, err := h.service.ListAccounts(r.Context(), limit, offset)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"users": accounts},
	})
}

// CreateAccount is the admin account-creation path; the result is
// pre-verified.
func (h *AccountHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	role, ok := models.ParseRole(req.Role)
	if !ok {
		pkghttp.WriteBadRequest(w, "Invalid role")
		return
	}

	account, err := h.service.CreateAccount(r.Context(), req.Email, req.Username, req.Password, role)
	if err != nil {
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"status": "success",
		"data":   map[string]interface{}{"user": account},
	})
}

// SetAccountStatus activates or deactivates an account
func (h *AccountHandler) SetAccountStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req SetAccountStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.SetAccountActive(r.Context(), id, *req.IsActive); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		writeAuthError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Account status updated",
	})
}

// DeleteAccount removes an account and, by cascade, all of its sessions
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	claims := auth.GetUserFromContext(r)
	if claims != nil && claims.UserID == id {
		pkghttp.WriteBadRequest(w, "Cannot delete your own account")
		return
	}

	if err := h.service.DeleteAccount(r.Context(), id); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkghttp.WriteNotFound(w, "Account not found")
			return
		}
		writeAuthError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
