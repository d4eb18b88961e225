package services

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/code-sharad/inventory-management-sub000/internal/auth"
	"github.com/code-sharad/inventory-management-sub000/internal/models"
	pkglogger "github.com/code-sharad/inventory-management-sub000/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenManager() *auth.TokenManager {
	return auth.NewTokenManager("test-secret-key-16", 24*time.Hour, 7*24*time.Hour)
}

func newTestAuthService(
	users *MockUserRepository,
	passwords *MockPasswordStore,
	sessions *MockSessionRepository,
	actionRepo *MockActionTokenRepository,
	history *MockLoginHistoryRepository,
	email *MockEmailService,
) *AuthService {
	logger := slog.Default()
	return NewAuthService(
		users,
		passwords,
		sessions,
		actionRepo,
		history,
		email,
		newTestTokenManager(),
		AuthPolicy{
			MaxSessionsPerUser: 10,
			MaxFailedLogins:    5,
			LockoutDuration:    15 * time.Minute,
			ActionTokenExpiry:  10 * time.Minute,
		},
		logger,
		pkglogger.NewAuditLogger(logger),
	)
}

// ============================================================================
// Register Tests
// ============================================================================

func TestAuthService_Register_Success(t *testing.T) {
	var createdUser *models.User
	emailSent := false

	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			createdUser = user
			user.ID = "user123"
			user.CreatedAt = time.Now()
			user.UpdatedAt = time.Now()
			return user, nil
		},
	}
	mockEmail := &MockEmailService{
		SendVerificationEmailFunc: func(ctx context.Context, email, token string, expiresAt time.Time) error {
			emailSent = true
			assert.Equal(t, "user@example.com", email)
			assert.NotEmpty(t, token)
			return nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, mockEmail)

	err := svc.Register(context.Background(), "User@Example.com", "John Doe", TestPassword)

	require.NoError(t, err)
	require.NotNil(t, createdUser)
	assert.Equal(t, "user@example.com", createdUser.Email, "email should be lowercased")
	assert.False(t, createdUser.EmailVerified, "email should not be verified on registration")
	assert.Equal(t, models.RoleUser, createdUser.Role)
	assert.True(t, createdUser.IsActive)
	assert.True(t, emailSent, "verification email should be sent")
}

func TestAuthService_Register_DuplicateEmail(t *testing.T) {
	existing := NewTestUser("existing_user", "user@example.com", "Existing User")

	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return existing, nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	err := svc.Register(context.Background(), "user@example.com", "John Doe", TestPassword)

	assert.ErrorIs(t, err, models.ErrDuplicateEmail)
}

func TestAuthService_Register_InvalidPassword(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{}, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	invalidPasswords := []string{
		"short",          // Too short
		"nouppercase123", // No uppercase
		"NOLOWERCASE123", // No lowercase
		"NoDigitsHere!",  // No digits
	}

	for _, invalidPass := range invalidPasswords {
		err := svc.Register(context.Background(), "user@example.com", "John Doe", invalidPass)
		assert.Error(t, err, "password %q should be invalid", invalidPass)
	}
}

func TestAuthService_Register_MissingFields(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{}, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	err := svc.Register(context.Background(), "   ", "John Doe", TestPassword)
	assert.ErrorIs(t, err, models.ErrBadRequest, "blank email maps to the bad-request sentinel")

	err = svc.Register(context.Background(), "user@example.com", "  ", TestPassword)
	assert.ErrorIs(t, err, models.ErrBadRequest, "blank username maps to the bad-request sentinel")
}

func TestAuthService_Register_StoresHashedActionToken(t *testing.T) {
	var storedHash string
	var sentToken string

	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
		CreateFunc: func(ctx context.Context, user *models.User) (*models.User, error) {
			user.ID = "user123"
			return user, nil
		},
	}
	mockActionRepo := &MockActionTokenRepository{
		CreateFunc: func(ctx context.Context, userID string, purpose models.ActionTokenPurpose, tokenHash string, expiresAt time.Time) (*models.ActionToken, error) {
			storedHash = tokenHash
			assert.Equal(t, models.PurposeEmailVerification, purpose)
			return &models.ActionToken{ID: "t1", UserID: userID, TokenHash: tokenHash, Purpose: purpose, ExpiresAt: expiresAt}, nil
		},
	}
	mockEmail := &MockEmailService{
		SendVerificationEmailFunc: func(ctx context.Context, email, token string, expiresAt time.Time) error {
			sentToken = token
			return nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, &MockSessionRepository{},
		mockActionRepo, &MockLoginHistoryRepository{}, mockEmail)

	err := svc.Register(context.Background(), "user@example.com", "John Doe", TestPassword)

	require.NoError(t, err)
	require.NotEmpty(t, sentToken)
	assert.NotEqual(t, sentToken, storedHash, "raw token must never be persisted")
	assert.Equal(t, HashToken(sentToken), storedHash)
}

// ============================================================================
// Login Tests
// ============================================================================

func TestAuthService_Login_Success(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "John Doe")
	var addedSession *models.Session
	historyRecorded := false

	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}
	mockSessions := &MockSessionRepository{
		AddFunc: func(ctx context.Context, session *models.Session, maxSessions int) (*models.Session, error) {
			addedSession = session
			assert.Equal(t, 10, maxSessions)
			session.ID = "session_123"
			return session, nil
		},
	}
	mockHistory := &MockLoginHistoryRepository{
		RecordFunc: func(ctx context.Context, entry *models.LoginHistoryEntry) error {
			historyRecorded = true
			assert.True(t, entry.Success)
			assert.Equal(t, "192.0.2.1", entry.IPAddress)
			return nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, mockSessions,
		&MockActionTokenRepository{}, mockHistory, &MockEmailService{})

	resp, err := svc.Login(context.Background(), "user@example.com", TestPassword, "192.0.2.1", "test-agent")

	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.NotEqual(t, resp.AccessToken, resp.RefreshToken)
	assert.Equal(t, "user123", resp.User.ID)
	require.NotNil(t, addedSession)
	assert.Equal(t, HashToken(resp.RefreshToken), addedSession.TokenHash, "session must store the token hash, not the raw token")
	assert.Contains(t, addedSession.DeviceInfo, "test-agent")
	assert.True(t, historyRecorded)
}

func TestAuthService_Login_UnknownEmail(t *testing.T) {
	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	resp, err := svc.Login(context.Background(), "nobody@example.com", TestPassword, "", "")

	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Nil(t, resp)
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "John Doe")
	failureRecorded := false
	historySuccess := true

	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		RecordFailedAttemptFunc: func(ctx context.Context, id string, maxFailed int, lockFor time.Duration) error {
			failureRecorded = true
			assert.Equal(t, "user123", id)
			assert.Equal(t, 5, maxFailed)
			return nil
		},
	}
	mockHistory := &MockLoginHistoryRepository{
		RecordFunc: func(ctx context.Context, entry *models.LoginHistoryEntry) error {
			historySuccess = entry.Success
			return nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, mockHistory, &MockEmailService{})

	resp, err := svc.Login(context.Background(), "user@example.com", "WrongPassword1!", "", "")

	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.Nil(t, resp)
	assert.True(t, failureRecorded, "failed attempt should be counted")
	assert.False(t, historySuccess, "login history should record the failure")
}

func TestAuthService_Login_LockedAccount(t *testing.T) {
	user := NewTestUserLocked("user123", "user@example.com", "John Doe")

	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	resp, err := svc.Login(context.Background(), "user@example.com", TestPassword, "", "")

	assert.ErrorIs(t, err, models.ErrAccountLocked)
	assert.Nil(t, resp)
}

func TestAuthService_Login_DeactivatedAccount(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "John Doe")
	user.IsActive = false

	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	resp, err := svc.Login(context.Background(), "user@example.com", TestPassword, "", "")

	assert.ErrorIs(t, err, models.ErrAccountDeactivated)
	assert.Nil(t, resp)
}

func TestAuthService_Login_ClearsFailedAttempts(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "John Doe")
	user.FailedLoginAttempts = 3
	cleared := false

	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
		ClearFailedAttemptsFunc: func(ctx context.Context, id string) error {
			cleared = true
			return nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	_, err := svc.Login(context.Background(), "user@example.com", TestPassword, "", "")

	require.NoError(t, err)
	assert.True(t, cleared)
}

// ============================================================================
// Refresh Tests
// ============================================================================

func TestAuthService_Refresh_Success(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "John Doe")
	tm := newTestTokenManager()
	refreshToken, err := tm.Issue("user123", models.TokenTypeRefresh)
	require.NoError(t, err)

	touched := false

	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	mockSessions := &MockSessionRepository{
		FindValidFunc: func(ctx context.Context, tokenHash string) (*models.Session, error) {
			assert.Equal(t, HashToken(refreshToken), tokenHash)
			return &models.Session{ID: "session_123", UserID: "user123", TokenHash: tokenHash,
				ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
		TouchLastUsedFunc: func(ctx context.Context, id string) error {
			touched = true
			assert.Equal(t, "session_123", id)
			return nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, mockSessions,
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	accessToken, err := svc.Refresh(context.Background(), refreshToken)

	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.True(t, touched)

	claims, err := tm.VerifyTyped(accessToken, models.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user123", claims.UserID)
}

func TestAuthService_Refresh_RejectsAccessToken(t *testing.T) {
	tm := newTestTokenManager()
	accessToken, err := tm.Issue("user123", models.TokenTypeAccess)
	require.NoError(t, err)

	svc := newTestAuthService(&MockUserRepository{}, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	_, err = svc.Refresh(context.Background(), accessToken)

	assert.ErrorIs(t, err, models.ErrInvalidTokenType)
}

func TestAuthService_Refresh_TokenNotInActiveSet(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "John Doe")
	tm := newTestTokenManager()
	refreshToken, err := tm.Issue("user123", models.TokenTypeRefresh)
	require.NoError(t, err)

	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	mockSessions := &MockSessionRepository{
		FindValidFunc: func(ctx context.Context, tokenHash string) (*models.Session, error) {
			// Cryptographically valid but logged out
			return nil, models.ErrNotFound
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, mockSessions,
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	_, err = svc.Refresh(context.Background(), refreshToken)

	assert.ErrorIs(t, err, models.ErrTokenNotRecognized)
}

func TestAuthService_Refresh_StaleAfterPasswordChange(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "John Doe")
	tm := newTestTokenManager()
	refreshToken, err := tm.Issue("user123", models.TokenTypeRefresh)
	require.NoError(t, err)

	changedAt := time.Now().Add(time.Minute)
	user.PasswordChangedAt = &changedAt

	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	mockSessions := &MockSessionRepository{
		FindValidFunc: func(ctx context.Context, tokenHash string) (*models.Session, error) {
			return &models.Session{ID: "session_123", UserID: "user123",
				ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, mockSessions,
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	_, err = svc.Refresh(context.Background(), refreshToken)

	assert.ErrorIs(t, err, models.ErrStaleToken)
}

func TestAuthService_Refresh_SameSecondAsPasswordChange(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "John Doe")
	tm := newTestTokenManager()
	refreshToken, err := tm.Issue("user123", models.TokenTypeRefresh)
	require.NoError(t, err)

	// The change lands in the same wall-clock second as the token's iat but
	// with sub-second precision. iat carries whole seconds, so this login's
	// session must keep refreshing for its full lifetime.
	claims, err := tm.Verify(refreshToken)
	require.NoError(t, err)
	changedAt := claims.IssuedAt.Time.Add(500 * time.Millisecond)
	user.PasswordChangedAt = &changedAt

	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	mockSessions := &MockSessionRepository{
		FindValidFunc: func(ctx context.Context, tokenHash string) (*models.Session, error) {
			return &models.Session{ID: "session_123", UserID: "user123",
				ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, mockSessions,
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	accessToken, err := svc.Refresh(context.Background(), refreshToken)

	require.NoError(t, err, "token issued after the password change must refresh")
	assert.NotEmpty(t, accessToken)
}

func TestAuthService_Refresh_DeactivatedAccount(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "John Doe")
	user.IsActive = false
	tm := newTestTokenManager()
	refreshToken, err := tm.Issue("user123", models.TokenTypeRefresh)
	require.NoError(t, err)

	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	_, err = svc.Refresh(context.Background(), refreshToken)

	assert.ErrorIs(t, err, models.ErrAccountDeactivated)
}

func TestAuthService_Refresh_GarbageToken(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{}, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	_, err := svc.Refresh(context.Background(), "not-a-jwt")

	assert.ErrorIs(t, err, models.ErrInvalidSignature)
}

// ============================================================================
// Logout Tests
// ============================================================================

func TestAuthService_Logout_Success(t *testing.T) {
	tm := newTestTokenManager()
	refreshToken, err := tm.Issue("user123", models.TokenTypeRefresh)
	require.NoError(t, err)

	var removedHash string
	mockSessions := &MockSessionRepository{
		RemoveFunc: func(ctx context.Context, tokenHash string) (bool, error) {
			removedHash = tokenHash
			return true, nil
		},
	}

	svc := newTestAuthService(&MockUserRepository{}, &MockPasswordStore{}, mockSessions,
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	err = svc.Logout(context.Background(), refreshToken)

	require.NoError(t, err)
	assert.Equal(t, HashToken(refreshToken), removedHash)
}

func TestAuthService_Logout_UnknownToken(t *testing.T) {
	mockSessions := &MockSessionRepository{
		RemoveFunc: func(ctx context.Context, tokenHash string) (bool, error) {
			return false, nil
		},
	}

	svc := newTestAuthService(&MockUserRepository{}, &MockPasswordStore{}, mockSessions,
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	err := svc.Logout(context.Background(), "some-token")

	assert.ErrorIs(t, err, models.ErrTokenNotRecognized)
}

func TestAuthService_LogoutAll_Success(t *testing.T) {
	var clearedUser string
	mockSessions := &MockSessionRepository{
		ClearForUserFunc: func(ctx context.Context, userID string) error {
			clearedUser = userID
			return nil
		},
	}

	svc := newTestAuthService(&MockUserRepository{}, &MockPasswordStore{}, mockSessions,
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	err := svc.LogoutAll(context.Background(), "user123")

	require.NoError(t, err)
	assert.Equal(t, "user123", clearedUser)
}

// ============================================================================
// Forgot / Reset Password Tests
// ============================================================================

func TestAuthService_ForgotPassword_Success(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "John Doe")
	var storedHash, sentToken string

	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return user, nil
		},
	}
	mockActionRepo := &MockActionTokenRepository{
		CreateFunc: func(ctx context.Context, userID string, purpose models.ActionTokenPurpose, tokenHash string, expiresAt time.Time) (*models.ActionToken, error) {
			storedHash = tokenHash
			assert.Equal(t, models.PurposePasswordReset, purpose)
			return &models.ActionToken{ID: "t1", UserID: userID, TokenHash: tokenHash, Purpose: purpose, ExpiresAt: expiresAt}, nil
		},
	}
	mockEmail := &MockEmailService{
		SendPasswordResetEmailFunc: func(ctx context.Context, email, token string, expiresAt time.Time) error {
			sentToken = token
			return nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, &MockSessionRepository{},
		mockActionRepo, &MockLoginHistoryRepository{}, mockEmail)

	err := svc.ForgotPassword(context.Background(), "user@example.com")

	require.NoError(t, err)
	assert.Equal(t, HashToken(sentToken), storedHash)
}

func TestAuthService_ForgotPassword_UnknownEmail(t *testing.T) {
	mockUserRepo := &MockUserRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.User, error) {
			return nil, models.ErrNotFound
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	err := svc.ForgotPassword(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAuthService_ResetPassword_Success(t *testing.T) {
	rawToken := "reset-token-raw"
	marked := false
	var newHashSet string

	mockActionRepo := &MockActionTokenRepository{
		GetByTokenHashFunc: func(ctx context.Context, tokenHash string, purpose models.ActionTokenPurpose) (*models.ActionToken, error) {
			assert.Equal(t, HashToken(rawToken), tokenHash)
			return &models.ActionToken{ID: "t1", UserID: "user123", TokenHash: tokenHash,
				Purpose: purpose, ExpiresAt: time.Now().Add(5 * time.Minute)}, nil
		},
		MarkAsUsedFunc: func(ctx context.Context, id string) error {
			marked = true
			return nil
		},
	}
	mockPasswords := &MockPasswordStore{
		SetPasswordFunc: func(ctx context.Context, userID, passwordHash string) error {
			assert.Equal(t, "user123", userID)
			newHashSet = passwordHash
			return nil
		},
	}

	svc := newTestAuthService(&MockUserRepository{}, mockPasswords, &MockSessionRepository{},
		mockActionRepo, &MockLoginHistoryRepository{}, &MockEmailService{})

	err := svc.ResetPassword(context.Background(), rawToken, "NewSecureP@ss123")

	require.NoError(t, err)
	assert.True(t, marked, "token must be consumed")
	assert.NotEmpty(t, newHashSet)
	assert.NotEqual(t, "NewSecureP@ss123", newHashSet, "password must be stored hashed")
}

func TestAuthService_ResetPassword_FailedWriteKeepsTokenUsable(t *testing.T) {
	mockActionRepo := &MockActionTokenRepository{
		GetByTokenHashFunc: func(ctx context.Context, tokenHash string, purpose models.ActionTokenPurpose) (*models.ActionToken, error) {
			return &models.ActionToken{ID: "t1", UserID: "user123", TokenHash: tokenHash,
				Purpose: purpose, ExpiresAt: time.Now().Add(5 * time.Minute)}, nil
		},
		MarkAsUsedFunc: func(ctx context.Context, id string) error {
			t.Fatal("a failed password write must not burn the one-time token")
			return nil
		},
	}
	mockPasswords := &MockPasswordStore{
		SetPasswordFunc: func(ctx context.Context, userID, passwordHash string) error {
			return models.ErrInternalServer
		},
	}

	svc := newTestAuthService(&MockUserRepository{}, mockPasswords, &MockSessionRepository{},
		mockActionRepo, &MockLoginHistoryRepository{}, &MockEmailService{})

	err := svc.ResetPassword(context.Background(), "reset-token-raw", "NewSecureP@ss123")

	assert.ErrorIs(t, err, models.ErrInternalServer)
}

func TestAuthService_ResetPassword_ExpiredToken(t *testing.T) {
	mockActionRepo := &MockActionTokenRepository{
		GetByTokenHashFunc: func(ctx context.Context, tokenHash string, purpose models.ActionTokenPurpose) (*models.ActionToken, error) {
			return &models.ActionToken{ID: "t1", UserID: "user123", TokenHash: tokenHash,
				Purpose: purpose, ExpiresAt: time.Now().Add(-time.Minute)}, nil
		},
	}

	svc := newTestAuthService(&MockUserRepository{}, &MockPasswordStore{}, &MockSessionRepository{},
		mockActionRepo, &MockLoginHistoryRepository{}, &MockEmailService{})

	err := svc.ResetPassword(context.Background(), "reset-token-raw", "NewSecureP@ss123")

	assert.ErrorIs(t, err, models.ErrActionTokenInvalid)
}

func TestAuthService_ResetPassword_UnknownToken(t *testing.T) {
	svc := newTestAuthService(&MockUserRepository{}, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	err := svc.ResetPassword(context.Background(), "bogus", "NewSecureP@ss123")

	assert.ErrorIs(t, err, models.ErrActionTokenInvalid)
}

// ============================================================================
// Change Password Tests
// ============================================================================

func TestAuthService_ChangePassword_Success(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "John Doe")
	passwordSet := false

	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	mockPasswords := &MockPasswordStore{
		SetPasswordFunc: func(ctx context.Context, userID, passwordHash string) error {
			passwordSet = true
			return nil
		},
	}

	svc := newTestAuthService(mockUserRepo, mockPasswords, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	err := svc.ChangePassword(context.Background(), "user123", TestPassword, "NewSecureP@ss123")

	require.NoError(t, err)
	assert.True(t, passwordSet)
}

func TestAuthService_ChangePassword_WrongCurrentPassword(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "John Doe")
	passwordSet := false

	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	mockPasswords := &MockPasswordStore{
		SetPasswordFunc: func(ctx context.Context, userID, passwordHash string) error {
			passwordSet = true
			return nil
		},
	}

	svc := newTestAuthService(mockUserRepo, mockPasswords, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	err := svc.ChangePassword(context.Background(), "user123", "WrongCurrent1!", "NewSecureP@ss123")

	assert.ErrorIs(t, err, models.ErrInvalidCredentials)
	assert.False(t, passwordSet)
}

// ============================================================================
// Email Verification Tests
// ============================================================================

func TestAuthService_VerifyEmail_Success(t *testing.T) {
	rawToken := "verify-token-raw"
	marked := false
	verified := false

	mockUserRepo := &MockUserRepository{
		MarkEmailVerifiedFunc: func(ctx context.Context, id string) error {
			verified = true
			assert.Equal(t, "user123", id)
			return nil
		},
	}
	mockActionRepo := &MockActionTokenRepository{
		GetByTokenHashFunc: func(ctx context.Context, tokenHash string, purpose models.ActionTokenPurpose) (*models.ActionToken, error) {
			assert.Equal(t, models.PurposeEmailVerification, purpose)
			return &models.ActionToken{ID: "t1", UserID: "user123", TokenHash: tokenHash,
				Purpose: purpose, ExpiresAt: time.Now().Add(5 * time.Minute)}, nil
		},
		MarkAsUsedFunc: func(ctx context.Context, id string) error {
			marked = true
			return nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, &MockSessionRepository{},
		mockActionRepo, &MockLoginHistoryRepository{}, &MockEmailService{})

	userID, err := svc.VerifyEmail(context.Background(), rawToken)

	require.NoError(t, err)
	assert.Equal(t, "user123", userID)
	assert.True(t, marked)
	assert.True(t, verified)
}

func TestAuthService_VerifyEmail_UsedToken(t *testing.T) {
	usedAt := time.Now().Add(-time.Minute)
	mockActionRepo := &MockActionTokenRepository{
		GetByTokenHashFunc: func(ctx context.Context, tokenHash string, purpose models.ActionTokenPurpose) (*models.ActionToken, error) {
			return &models.ActionToken{ID: "t1", UserID: "user123", TokenHash: tokenHash,
				Purpose: purpose, ExpiresAt: time.Now().Add(5 * time.Minute), UsedAt: &usedAt}, nil
		},
	}

	svc := newTestAuthService(&MockUserRepository{}, &MockPasswordStore{}, &MockSessionRepository{},
		mockActionRepo, &MockLoginHistoryRepository{}, &MockEmailService{})

	_, err := svc.VerifyEmail(context.Background(), "verify-token-raw")

	assert.ErrorIs(t, err, models.ErrActionTokenInvalid)
}

func TestAuthService_ResendVerification_AlreadyVerified(t *testing.T) {
	user := NewTestUser("user123", "user@example.com", "John Doe")

	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, &MockEmailService{})

	err := svc.ResendVerification(context.Background(), "user123")

	assert.ErrorIs(t, err, models.ErrBadRequest)
}

func TestAuthService_ResendVerification_Success(t *testing.T) {
	user := NewTestUserUnverified("user123", "user@example.com", "John Doe")
	emailSent := false

	mockUserRepo := &MockUserRepository{
		GetByIDFunc: func(ctx context.Context, id string) (*models.User, error) {
			return user, nil
		},
	}
	mockEmail := &MockEmailService{
		SendVerificationEmailFunc: func(ctx context.Context, email, token string, expiresAt time.Time) error {
			emailSent = true
			return nil
		},
	}

	svc := newTestAuthService(mockUserRepo, &MockPasswordStore{}, &MockSessionRepository{},
		&MockActionTokenRepository{}, &MockLoginHistoryRepository{}, mockEmail)

	err := svc.ResendVerification(context.Background(), "user123")

	require.NoError(t, err)
	assert.True(t, emailSent)
}
