package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/code-sharad/inventory-management-sub000/internal/auth"
	"github.com/code-sharad/inventory-management-sub000/internal/models"
	pkgauth "github.com/code-sharad/inventory-management-sub000/pkg/auth"
	pkglogger "github.com/code-sharad/inventory-management-sub000/pkg/logger"
)

// UserRepository defines the user store operations the auth flows need
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	MarkEmailVerified(ctx context.Context, id string) error
	RecordFailedAttempt(ctx context.Context, id string, maxFailed int, lockFor time.Duration) error
	ClearFailedAttempts(ctx context.Context, id string) error
}

// PasswordStore is the atomic password-mutation operation: hash swap plus
// session cascade in one transaction.
type PasswordStore interface {
	SetPassword(ctx context.Context, userID, passwordHash string) error
}

// SessionRepository defines the refresh-token record operations
type SessionRepository interface {
	Add(ctx context.Context, session *models.Session, maxSessions int) (*models.Session, error)
	FindValid(ctx context.Context, tokenHash string) (*models.Session, error)
	TouchLastUsed(ctx context.Context, id string) error
	Remove(ctx context.Context, tokenHash string) (bool, error)
	ClearForUser(ctx context.Context, userID string) error
}

// ActionTokenRepository defines the one-time-token store operations
type ActionTokenRepository interface {
	Create(ctx context.Context, userID string, purpose models.ActionTokenPurpose, tokenHash string, expiresAt time.Time) (*models.ActionToken, error)
	GetByTokenHash(ctx context.Context, tokenHash string, purpose models.ActionTokenPurpose) (*models.ActionToken, error)
	MarkAsUsed(ctx context.Context, id string) error
}

// LoginHistoryRecorder appends to the account's capped audit trail
type LoginHistoryRecorder interface {
	Record(ctx context.Context, entry *models.LoginHistoryEntry) error
}

// AuthPolicy holds the tunable knobs of the auth flows
type AuthPolicy struct {
	MaxSessionsPerUser int
	MaxFailedLogins    int
	LockoutDuration    time.Duration
	ActionTokenExpiry  time.Duration
}

// AuthService orchestrates registration, login, refresh, logout and the
// one-time-token flows.
type AuthService struct {
	users       UserRepository
	passwords   PasswordStore
	sessions    SessionRepository
	actionRepo  ActionTokenRepository
	history     LoginHistoryRecorder
	email       EmailService
	tm          *auth.TokenManager
	policy      AuthPolicy
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
}

// NewAuthService creates a new AuthService
func NewAuthService(
	users UserRepository,
	passwords PasswordStore,
	sessions SessionRepository,
	actionRepo ActionTokenRepository,
	history LoginHistoryRecorder,
	email EmailService,
	tm *auth.TokenManager,
	policy AuthPolicy,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *AuthService {
	return &AuthService{
		users:       users,
		passwords:   passwords,
		sessions:    sessions,
		actionRepo:  actionRepo,
		history:     history,
		email:       email,
		tm:          tm,
		policy:      policy,
		logger:      logger,
		auditLogger: auditLogger,
	}
}

// UserResponse represents a sanitized account in HTTP responses. The password
// hash never appears here.
type UserResponse struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	Role          string `json:"role"`
	IsActive      bool   `json:"isActive"`
	EmailVerified bool   `json:"isEmailVerified"`
	CreatedAt     string `json:"createdAt"`
}

// AuthResponse is the result of a successful login: the access token for the
// response body and the refresh token destined for the cookie.
type AuthResponse struct {
	AccessToken      string
	RefreshToken     string
	RefreshExpiresAt time.Time
	User             *UserResponse
}

// HashToken derives the storage form of a refresh or action token. Only the
// sha256 hash ever touches the database.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// generateActionToken returns a URL-safe random token and its storage hash.
func generateActionToken() (plain, hash string, err error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("failed to generate token: %w", err)
	}
	plain = base64.URLEncoding.EncodeToString(buf)
	return plain, HashToken(plain), nil
}

// Register creates a new unverified account and mails a verification token.
// It does not log the caller in.
func (s *AuthService) Register(ctx context.Context, email, username, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)

	if email == "" {
		return fmt.Errorf("%w: email is required", models.ErrBadRequest)
	}
	if username == "" {
		return fmt.Errorf("%w: username is required", models.ErrBadRequest)
	}

	if err := pkgauth.ValidatePassword(password); err != nil {
		return err
	}

	_, err := s.users.GetByEmail(ctx, email)
	if err == nil {
		s.logger.Info("registration failed: email already registered", pkglogger.EmailAttr(email))
		return models.ErrDuplicateEmail
	}
	if !errors.Is(err, models.ErrNotFound) {
		s.logger.Error("failed to check if user exists", slog.Any("error", err))
		return models.ErrInternalServer
	}

	hashedPassword, err := pkgauth.HashPassword(password)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	now := time.Now()
	user := &models.User{
		Email:             email,
		Username:          username,
		PasswordHash:      hashedPassword,
		Role:              models.RoleUser,
		IsActive:          true,
		PasswordChangedAt: &now,
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			return models.ErrDuplicateEmail
		}
		s.logger.Error("failed to create user", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.sendActionToken(ctx, created, models.PurposeEmailVerification); err != nil {
		return err
	}

	s.logger.Info("user registered", slog.String("user_id", created.ID))
	s.auditLogger.LogAccountAction(pkglogger.EventUserRegistered, created.ID, "", nil)

	return nil
}

// Login authenticates credentials and opens a new session. Every successful
// login appends its own refresh-token record, so concurrent logins from
// different devices are independent.
func (s *AuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*AuthResponse, error) {
	if email = strings.ToLower(strings.TrimSpace(email)); email == "" {
		return nil, models.ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// Unknown email and wrong password are deliberately indistinguishable
			s.logger.Info("login failed: invalid credentials", pkglogger.EmailAttr(email))
			s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
				EventType:     pkglogger.EventLoginFailed,
				IPAddress:     ipAddress,
				FailureReason: pkglogger.ReasonInvalidCredentials,
				Success:       false,
			})
			return nil, models.ErrInvalidCredentials
		}
		s.logger.Error("failed to get user by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if user.IsLocked() {
		s.logger.Info("login blocked: account locked", slog.String("user_id", user.ID))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginFailed,
			UserID:        user.ID,
			IPAddress:     ipAddress,
			FailureReason: pkglogger.ReasonAccountLocked,
			Success:       false,
		})
		return nil, models.ErrAccountLocked
	}

	if !user.IsActive {
		s.logger.Info("login blocked: account deactivated", slog.String("user_id", user.ID))
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginFailed,
			UserID:        user.ID,
			IPAddress:     ipAddress,
			FailureReason: pkglogger.ReasonAccountDeactivated,
			Success:       false,
		})
		return nil, models.ErrAccountDeactivated
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, password); err != nil {
		s.recordLogin(ctx, user.ID, ipAddress, userAgent, false)
		if err := s.users.RecordFailedAttempt(ctx, user.ID, s.policy.MaxFailedLogins, s.policy.LockoutDuration); err != nil {
			s.logger.Error("failed to record failed attempt", slog.String("user_id", user.ID), slog.Any("error", err))
		}
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginFailed,
			UserID:        user.ID,
			IPAddress:     ipAddress,
			FailureReason: pkglogger.ReasonInvalidCredentials,
			Success:       false,
		})
		return nil, models.ErrInvalidCredentials
	}

	if err := s.users.ClearFailedAttempts(ctx, user.ID); err != nil {
		s.logger.Error("failed to clear attempts", slog.String("user_id", user.ID), slog.Any("error", err))
	}

	accessToken, err := s.tm.Issue(user.ID, models.TokenTypeAccess)
	if err != nil {
		s.logger.Error("failed to issue access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	refreshToken, err := s.tm.Issue(user.ID, models.TokenTypeRefresh)
	if err != nil {
		s.logger.Error("failed to issue refresh token", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	expiresAt := time.Now().Add(s.tm.RefreshTokenExpiry())
	session := &models.Session{
		UserID:     user.ID,
		TokenHash:  HashToken(refreshToken),
		DeviceInfo: strings.TrimSpace(userAgent + " " + ipAddress),
		ExpiresAt:  expiresAt,
	}
	if _, err := s.sessions.Add(ctx, session, s.policy.MaxSessionsPerUser); err != nil {
		s.logger.Error("failed to persist session", slog.String("user_id", user.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.recordLogin(ctx, user.ID, ipAddress, userAgent, true)

	s.logger.Info("user logged in", slog.String("user_id", user.ID))
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: pkglogger.EventLoginSuccess,
		UserID:    user.ID,
		IPAddress: ipAddress,
		Success:   true,
	})

	return &AuthResponse{
		AccessToken:      accessToken,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: expiresAt,
		User:             userModelToResponse(user),
	}, nil
}

// Refresh exchanges a valid refresh token for a new access token. The refresh
// token itself is not rotated: the same token stays valid until its own
// expiry or an explicit logout.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken == "" {
		return "", models.ErrTokenNotRecognized
	}

	claims, err := s.tm.Verify(refreshToken)
	if err != nil {
		s.logger.Info("refresh token validation failed", slog.Any("error", err))
		return "", err
	}

	if claims.Type != models.TokenTypeRefresh {
		s.logger.Warn("refresh attempt with non-refresh token", slog.String("user_id", claims.UserID))
		return "", models.ErrInvalidTokenType
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("account gone for token refresh", slog.String("user_id", claims.UserID))
			return "", models.ErrTokenNotRecognized
		}
		s.logger.Error("failed to get user for token refresh", slog.String("user_id", claims.UserID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if !user.IsActive {
		s.logger.Info("token refresh blocked: account deactivated", slog.String("user_id", user.ID))
		return "", models.ErrAccountDeactivated
	}

	session, err := s.sessions.FindValid(ctx, HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.logger.Info("refresh token not in active set", slog.String("user_id", user.ID))
			return "", models.ErrTokenNotRecognized
		}
		s.logger.Error("failed to look up session", slog.String("user_id", user.ID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	// Defense-in-depth: clearing the session list is the primary invalidation
	// on password change, this check catches tokens that raced the clear.
	if claims.IssuedAt != nil && user.PasswordChangedAfter(claims.IssuedAt.Time) {
		s.logger.Info("token refresh blocked: issued before password change", slog.String("user_id", user.ID))
		return "", models.ErrStaleToken
	}

	accessToken, err := s.tm.Issue(user.ID, models.TokenTypeAccess)
	if err != nil {
		s.logger.Error("failed to issue access token", slog.String("user_id", user.ID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if err := s.sessions.TouchLastUsed(ctx, session.ID); err != nil {
		s.logger.Error("failed to touch session", slog.String("session_id", session.ID), slog.Any("error", err))
	}

	s.logger.Info("access token refreshed", slog.String("user_id", user.ID))

	return accessToken, nil
}

// Logout removes the single session matching the presented refresh token,
// leaving the account's other sessions untouched.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken = strings.TrimSpace(refreshToken); refreshToken == "" {
		return models.ErrTokenNotRecognized
	}

	removed, err := s.sessions.Remove(ctx, HashToken(refreshToken))
	if err != nil {
		s.logger.Error("failed to remove session", slog.Any("error", err))
		return models.ErrInternalServer
	}
	if !removed {
		return models.ErrTokenNotRecognized
	}

	s.logger.Info("session ended")
	return nil
}

// LogoutAll empties the caller's session list.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) error {
	if err := s.sessions.ClearForUser(ctx, userID); err != nil {
		s.logger.Error("failed to clear sessions", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("user logged out from all devices", slog.String("user_id", userID))
	return nil
}

// ForgotPassword mails a one-time reset token. Only the token's hash is
// persisted; the raw value exists solely in the outgoing mail.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			// The product surfaces "no user with that email" here, unlike
			// login. Inconsistent anti-enumeration posture, kept as-is.
			return models.ErrNotFound
		}
		s.logger.Error("failed to get user for password reset", slog.Any("error", err))
		return models.ErrInternalServer
	}

	return s.sendActionToken(ctx, user, models.PurposePasswordReset)
}

// ResetPassword consumes a reset token and sets the new password. The session
// cascade inside SetPassword logs every device out; the caller must log in
// again.
func (s *AuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	token, err := s.lookupActionToken(ctx, rawToken, models.PurposePasswordReset)
	if err != nil {
		return err
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.passwords.SetPassword(ctx, token.UserID, hashedPassword); err != nil {
		// The token stays unconsumed: the user can retry with the same link.
		s.logger.Error("failed to set password", slog.String("user_id", token.UserID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	// Consume the token only once the password write has landed. If this
	// fails the password is already changed; the leftover token dies at its
	// own expiry.
	if err := s.actionRepo.MarkAsUsed(ctx, token.ID); err != nil {
		s.logger.Error("failed to consume reset token", slog.Any("error", err))
	}

	s.logger.Info("password reset", slog.String("user_id", token.UserID))
	s.auditLogger.LogPasswordChange(token.UserID, "", true)

	return nil
}

// ChangePassword verifies the current password before setting the new one.
// All sessions are invalidated on success.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for password change", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(user.PasswordHash, currentPassword); err != nil {
		s.auditLogger.LogPasswordChange(userID, "", false)
		return models.ErrInvalidCredentials
	}

	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPassword, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.passwords.SetPassword(ctx, userID, hashedPassword); err != nil {
		s.logger.Error("failed to set password", slog.String("user_id", userID), slog.Any("error", err))
		return models.ErrInternalServer
	}

	s.logger.Info("password changed", slog.String("user_id", userID))
	s.auditLogger.LogPasswordChange(userID, "", true)

	return nil
}

// VerifyEmail consumes a verification token and marks the account verified.
func (s *AuthService) VerifyEmail(ctx context.Context, rawToken string) (string, error) {
	token, err := s.lookupActionToken(ctx, rawToken, models.PurposeEmailVerification)
	if err != nil {
		return "", err
	}

	if err := s.actionRepo.MarkAsUsed(ctx, token.ID); err != nil {
		if errors.Is(err, models.ErrActionTokenInvalid) {
			return "", err
		}
		s.logger.Error("failed to consume verification token", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	if err := s.users.MarkEmailVerified(ctx, token.UserID); err != nil {
		s.logger.Error("failed to mark email verified", slog.String("user_id", token.UserID), slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	s.logger.Info("email verified", slog.String("user_id", token.UserID))
	return token.UserID, nil
}

// ResendVerification issues a fresh verification token for the caller.
func (s *AuthService) ResendVerification(ctx context.Context, userID string) error {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrUnauthorized
		}
		s.logger.Error("failed to get user for resend", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if user.EmailVerified {
		return models.ErrBadRequest
	}

	return s.sendActionToken(ctx, user, models.PurposeEmailVerification)
}

// SendVerificationFor issues a verification token after a profile email
// change.
func (s *AuthService) SendVerificationFor(ctx context.Context, user *models.User) error {
	return s.sendActionToken(ctx, user, models.PurposeEmailVerification)
}

// sendActionToken generates, stores and mails a one-time token for the given
// purpose.
func (s *AuthService) sendActionToken(ctx context.Context, user *models.User, purpose models.ActionTokenPurpose) error {
	plain, hash, err := generateActionToken()
	if err != nil {
		s.logger.Error("failed to generate action token", slog.Any("error", err))
		return models.ErrInternalServer
	}

	expiresAt := time.Now().Add(s.policy.ActionTokenExpiry)

	if _, err := s.actionRepo.Create(ctx, user.ID, purpose, hash, expiresAt); err != nil {
		s.logger.Error("failed to store action token",
			slog.String("user_id", user.ID),
			slog.String("purpose", string(purpose)),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	switch purpose {
	case models.PurposeEmailVerification:
		err = s.email.SendVerificationEmail(ctx, user.Email, plain, expiresAt)
	case models.PurposePasswordReset:
		err = s.email.SendPasswordResetEmail(ctx, user.Email, plain, expiresAt)
	}
	if err != nil {
		s.logger.Error("failed to send email",
			slog.String("user_id", user.ID),
			slog.String("purpose", string(purpose)),
			slog.Any("error", err))
		return models.ErrInternalServer
	}

	return nil
}

// lookupActionToken hashes the presented token and validates the stored row.
func (s *AuthService) lookupActionToken(ctx context.Context, rawToken string, purpose models.ActionTokenPurpose) (*models.ActionToken, error) {
	if rawToken == "" {
		return nil, models.ErrActionTokenInvalid
	}

	token, err := s.actionRepo.GetByTokenHash(ctx, HashToken(rawToken), purpose)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrActionTokenInvalid
		}
		s.logger.Error("failed to look up action token", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if !token.IsValid() {
		return nil, models.ErrActionTokenInvalid
	}

	return token, nil
}

func (s *AuthService) recordLogin(ctx context.Context, userID, ipAddress, userAgent string, success bool) {
	err := s.history.Record(ctx, &models.LoginHistoryEntry{
		UserID:    userID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Success:   success,
	})
	if err != nil {
		// Audit trail only, never blocks the login itself
		s.logger.Error("failed to record login history", slog.String("user_id", userID), slog.Any("error", err))
	}
}

// userModelToResponse converts a user model to its response DTO
func userModelToResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:            user.ID,
		Email:         user.Email,
		Username:      user.Username,
		Role:          string(user.Role),
		IsActive:      user.IsActive,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt.Format(time.RFC3339),
	}
}
