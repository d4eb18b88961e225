package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/code-sharad/inventory-management-sub000/internal/models"
	pkgauth "github.com/code-sharad/inventory-management-sub000/pkg/auth"
)

// AccountRepository extends the auth-flow user operations with the profile
// and admin surface.
type AccountRepository interface {
	UserRepository
	UpdateProfile(ctx context.Context, id string, username, email string, emailVerified bool) (*models.User, error)
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context, limit, offset int) ([]*models.User, error)
	Delete(ctx context.Context, id string) error
}

// SessionLister exposes the sessions view
type SessionLister interface {
	ListForUser(ctx context.Context, userID string) ([]*models.Session, error)
	ClearForUser(ctx context.Context, userID string) error
}

// LoginHistoryLister exposes the audit-trail view
type LoginHistoryLister interface {
	ListForUser(ctx context.Context, userID string) ([]*models.LoginHistoryEntry, error)
}

// VerificationSender re-triggers email verification after a profile email
// change. Satisfied by AuthService.
type VerificationSender interface {
	SendVerificationFor(ctx context.Context, user *models.User) error
}

// AccountService handles profile, sessions-view and admin account management
type AccountService struct {
	users        AccountRepository
	sessions     SessionLister
	history      LoginHistoryLister
	verification VerificationSender
	logger       *slog.Logger
}

func NewAccountService(users AccountRepository, sessions SessionLister, history LoginHistoryLister, verification VerificationSender, logger *slog.Logger) *AccountService {
	return &AccountService{
		users:        users,
		sessions:     sessions,
		history:      history,
		verification: verification,
		logger:       logger,
	}
}

// SessionResponse is one row of the sessions view. The token itself is never
// returned; CreatedAt/ExpiresAt plus device info is all the UI needs.
type SessionResponse struct {
	ID         string     `json:"id"`
	DeviceInfo string     `json:"deviceInfo"`
	CreatedAt  time.Time  `json:"createdAt"`
	ExpiresAt  time.Time  `json:"expiresAt"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
}

// LoginHistoryResponse is one row of the login-history view
type LoginHistoryResponse struct {
	Timestamp time.Time `json:"timestamp"`
	IPAddress string    `json:"ipAddress"`
	UserAgent string    `json:"userAgent"`
	Success   bool      `json:"success"`
}

// GetProfile returns the caller's sanitized account
func (s *AccountService) GetProfile(ctx context.Context, userID string) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get profile", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	return userModelToResponse(user), nil
}

// UpdateProfile mutates username and/or email. Changing the email resets the
// verification flag and sends a fresh verification mail.
func (s *AccountService) UpdateProfile(ctx context.Context, userID, username, email string) (*UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for profile update", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if username = strings.TrimSpace(username); username == "" {
		username = user.Username
	}

	email = strings.ToLower(strings.TrimSpace(email))
	emailChanged := email != "" && email != user.Email
	if email == "" {
		email = user.Email
	}

	emailVerified := user.EmailVerified
	if emailChanged {
		emailVerified = false
	}

	updated, err := s.users.UpdateProfile(ctx, userID, username, email, emailVerified)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrDuplicateEmail
		}
		s.logger.Error("failed to update profile", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if emailChanged {
		if err := s.verification.SendVerificationFor(ctx, updated); err != nil {
			s.logger.Error("failed to send verification for changed email",
				slog.String("user_id", userID), slog.Any("error", err))
		}
	}

	s.logger.Info("profile updated", slog.String("user_id", userID))
	return userModelToResponse(updated), nil
}

// ListSessions returns the caller's active refresh-token records
func (s *AccountService) ListSessions(ctx context.Context, userID string) ([]SessionResponse, error) {
	sessions, err := s.sessions.ListForUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list sessions", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	out := make([]SessionResponse, 0, len(sessions))
	for _, sess := range sessions {
		if sess.IsExpired() {
			continue
		}
		out = append(out, SessionResponse{
			ID:         sess.ID,
			DeviceInfo: sess.DeviceInfo,
			CreatedAt:  sess.CreatedAt,
			ExpiresAt:  sess.ExpiresAt,
			LastUsedAt: sess.LastUsedAt,
		})
	}

	return out, nil
}

// GetLoginHistory returns the caller's capped audit trail
func (s *AccountService) GetLoginHistory(ctx context.Context, userID string) ([]LoginHistoryResponse, error) {
	entries, err := s.history.ListForUser(ctx, userID)
	if err != nil {
		s.logger.Error("failed to list login history", slog.String("user_id", userID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	out := make([]LoginHistoryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, LoginHistoryResponse{
			Timestamp: e.CreatedAt,
			IPAddress: e.IPAddress,
			UserAgent: e.UserAgent,
			Success:   e.Success,
		})
	}

	return out, nil
}

// ListAccounts returns accounts for the admin view
func (s *AccountService) ListAccounts(ctx context.Context, limit, offset int) ([]*UserResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	users, err := s.users.List(ctx, limit, offset)
	if err != nil {
		s.logger.Error("failed to list accounts", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	out := make([]*UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, userModelToResponse(u))
	}

	return out, nil
}

// CreateAccount is the admin path: the account comes out pre-verified and may
// carry any role from the closed set.
func (s *AccountService) CreateAccount(ctx context.Context, email, username, password string, role models.Role) (*UserResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := pkgauth.ValidatePassword(password); err != nil {
		return nil, err
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	now := time.Now()
	user := &models.User{
		Email:             email,
		Username:          strings.TrimSpace(username),
		PasswordHash:      hashedPassword,
		Role:              role,
		IsActive:          true,
		EmailVerified:     true,
		PasswordChangedAt: &now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return nil, models.ErrDuplicateEmail
		}
		s.logger.Error("failed to create account", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.logger.Info("account created by admin", slog.String("user_id", created.ID))
	return userModelToResponse(created), nil
}

// SetAccountActive toggles the login gate. Deactivation also clears the
// account's sessions so outstanding refresh tokens die immediately.
func (s *AccountService) SetAccountActive(ctx context.Context, userID string, active bool) error {
	if err := s.users.SetActive(ctx, userID, active); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to set account active", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	if !active {
		if err := s.sessions.ClearForUser(ctx, userID); err != nil {
			s.logger.Error("failed to clear sessions on deactivate",
				slog.String("user_id", userID), slog.Any("error", err))
		}
	}

	s.logger.Info("account active flag changed", slog.String("user_id", userID), slog.Bool("active", active))
	return nil
}

// DeleteAccount removes an account; sessions and tokens cascade away with it.
func (s *AccountService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.users.Delete(ctx, userID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return err
		}
		s.logger.Error("failed to delete account", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("account deleted", slog.String("user_id", userID))
	return nil
}
