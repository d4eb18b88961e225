package services

import (
	"context"
	"sync"
	"time"

	"github.com/code-sharad/inventory-management-sub000/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// MockUserRepository implements UserRepository and AccountRepository for testing
type MockUserRepository struct {
	GetByIDFunc             func(ctx context.Context, id string) (*models.User, error)
	GetByEmailFunc          func(ctx context.Context, email string) (*models.User, error)
	CreateFunc              func(ctx context.Context, user *models.User) (*models.User, error)
	MarkEmailVerifiedFunc   func(ctx context.Context, id string) error
	RecordFailedAttemptFunc func(ctx context.Context, id string, maxFailed int, lockFor time.Duration) error
	ClearFailedAttemptsFunc func(ctx context.Context, id string) error
	UpdateProfileFunc       func(ctx context.Context, id string, username, email string, emailVerified bool) (*models.User, error)
	SetActiveFunc           func(ctx context.Context, id string, active bool) error
	ListFunc                func(ctx context.Context, limit, offset int) ([]*models.User, error)
	DeleteFunc              func(ctx context.Context, id string) error
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) MarkEmailVerified(ctx context.Context, id string) error {
	if m.MarkEmailVerifiedFunc != nil {
		return m.MarkEmailVerifiedFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) RecordFailedAttempt(ctx context.Context, id string, maxFailed int, lockFor time.Duration) error {
	if m.RecordFailedAttemptFunc != nil {
		return m.RecordFailedAttemptFunc(ctx, id, maxFailed, lockFor)
	}
	return nil
}

func (m *MockUserRepository) ClearFailedAttempts(ctx context.Context, id string) error {
	if m.ClearFailedAttemptsFunc != nil {
		return m.ClearFailedAttemptsFunc(ctx, id)
	}
	return nil
}

func (m *MockUserRepository) UpdateProfile(ctx context.Context, id string, username, email string, emailVerified bool) (*models.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, username, email, emailVerified)
	}
	return nil, models.ErrInternalServer
}

func (m *MockUserRepository) SetActive(ctx context.Context, id string, active bool) error {
	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(ctx, id, active)
	}
	return nil
}

func (m *MockUserRepository) List(ctx context.Context, limit, offset int) ([]*models.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, limit, offset)
	}
	return []*models.User{}, nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

// MockPasswordStore implements PasswordStore for testing
type MockPasswordStore struct {
	SetPasswordFunc func(ctx context.Context, userID, passwordHash string) error
}

func (m *MockPasswordStore) SetPassword(ctx context.Context, userID, passwordHash string) error {
	if m.SetPasswordFunc != nil {
		return m.SetPasswordFunc(ctx, userID, passwordHash)
	}
	return nil
}

// MockSessionRepository implements SessionRepository and SessionLister for testing
type MockSessionRepository struct {
	AddFunc           func(ctx context.Context, session *models.Session, maxSessions int) (*models.Session, error)
	FindValidFunc     func(ctx context.Context, tokenHash string) (*models.Session, error)
	TouchLastUsedFunc func(ctx context.Context, id string) error
	RemoveFunc        func(ctx context.Context, tokenHash string) (bool, error)
	ClearForUserFunc  func(ctx context.Context, userID string) error
	ListForUserFunc   func(ctx context.Context, userID string) ([]*models.Session, error)
}

func (m *MockSessionRepository) Add(ctx context.Context, session *models.Session, maxSessions int) (*models.Session, error) {
	if m.AddFunc != nil {
		return m.AddFunc(ctx, session, maxSessions)
	}
	session.ID = "session_123"
	session.CreatedAt = time.Now()
	return session, nil
}

func (m *MockSessionRepository) FindValid(ctx context.Context, tokenHash string) (*models.Session, error) {
	if m.FindValidFunc != nil {
		return m.FindValidFunc(ctx, tokenHash)
	}
	return nil, models.ErrNotFound
}

func (m *MockSessionRepository) TouchLastUsed(ctx context.Context, id string) error {
	if m.TouchLastUsedFunc != nil {
		return m.TouchLastUsedFunc(ctx, id)
	}
	return nil
}

func (m *MockSessionRepository) Remove(ctx context.Context, tokenHash string) (bool, error) {
	if m.RemoveFunc != nil {
		return m.RemoveFunc(ctx, tokenHash)
	}
	return false, nil
}

func (m *MockSessionRepository) ClearForUser(ctx context.Context, userID string) error {
	if m.ClearForUserFunc != nil {
		return m.ClearForUserFunc(ctx, userID)
	}
	return nil
}

func (m *MockSessionRepository) ListForUser(ctx context.Context, userID string) ([]*models.Session, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, userID)
	}
	return []*models.Session{}, nil
}

// MockActionTokenRepository implements ActionTokenRepository for testing
type MockActionTokenRepository struct {
	CreateFunc         func(ctx context.Context, userID string, purpose models.ActionTokenPurpose, tokenHash string, expiresAt time.Time) (*models.ActionToken, error)
	GetByTokenHashFunc func(ctx context.Context, tokenHash string, purpose models.ActionTokenPurpose) (*models.ActionToken, error)
	MarkAsUsedFunc     func(ctx context.Context, id string) error
}

func (m *MockActionTokenRepository) Create(ctx context.Context, userID string, purpose models.ActionTokenPurpose, tokenHash string, expiresAt time.Time) (*models.ActionToken, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, purpose, tokenHash, expiresAt)
	}
	return &models.ActionToken{
		ID:        "token_123",
		UserID:    userID,
		Purpose:   purpose,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
	}, nil
}

func (m *MockActionTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string, purpose models.ActionTokenPurpose) (*models.ActionToken, error) {
	if m.GetByTokenHashFunc != nil {
		return m.GetByTokenHashFunc(ctx, tokenHash, purpose)
	}
	return nil, models.ErrNotFound
}

func (m *MockActionTokenRepository) MarkAsUsed(ctx context.Context, id string) error {
	if m.MarkAsUsedFunc != nil {
		return m.MarkAsUsedFunc(ctx, id)
	}
	return nil
}

// MockLoginHistoryRepository implements LoginHistoryRecorder and
// LoginHistoryLister for testing
type MockLoginHistoryRepository struct {
	RecordFunc      func(ctx context.Context, entry *models.LoginHistoryEntry) error
	ListForUserFunc func(ctx context.Context, userID string) ([]*models.LoginHistoryEntry, error)
}

func (m *MockLoginHistoryRepository) Record(ctx context.Context, entry *models.LoginHistoryEntry) error {
	if m.RecordFunc != nil {
		return m.RecordFunc(ctx, entry)
	}
	return nil
}

func (m *MockLoginHistoryRepository) ListForUser(ctx context.Context, userID string) ([]*models.LoginHistoryEntry, error) {
	if m.ListForUserFunc != nil {
		return m.ListForUserFunc(ctx, userID)
	}
	return []*models.LoginHistoryEntry{}, nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendVerificationEmailFunc  func(ctx context.Context, email, token string, expiresAt time.Time) error
	SendPasswordResetEmailFunc func(ctx context.Context, email, token string, expiresAt time.Time) error
}

func (m *MockEmailService) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, email, token, expiresAt)
	}
	return nil
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	if m.SendPasswordResetEmailFunc != nil {
		return m.SendPasswordResetEmailFunc(ctx, email, token, expiresAt)
	}
	return nil
}

// TestPassword is the plaintext matching the hash NewTestUser carries
const TestPassword = "SecurePassword123!"

var (
	testHashOnce sync.Once
	testHash     string
)

// testPasswordHash hashes TestPassword once at MinCost; production cost would
// slow the suite down for nothing.
func testPasswordHash() string {
	testHashOnce.Do(func() {
		h, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
		if err != nil {
			panic(err)
		}
		testHash = string(h)
	})
	return testHash
}

// NewTestUser creates a user with sensible defaults for tests. The password
// hash corresponds to TestPassword.
func NewTestUser(id, email, username string) *models.User {
	now := time.Now()
	return &models.User{
		ID:            id,
		Email:         email,
		Username:      username,
		PasswordHash:  testPasswordHash(),
		Role:          models.RoleUser,
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// NewTestUserLocked creates a user under an active lockout
func NewTestUserLocked(id, email, username string) *models.User {
	user := NewTestUser(id, email, username)
	lockedUntil := time.Now().Add(30 * time.Minute)
	user.LockedUntil = &lockedUntil
	user.FailedLoginAttempts = 5
	return user
}

// NewTestUserUnverified creates a user with unverified email
func NewTestUserUnverified(id, email, username string) *models.User {
	user := NewTestUser(id, email, username)
	user.EmailVerified = false
	return user
}
