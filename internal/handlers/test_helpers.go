package handlers

import (
	"context"

	"github.com/code-sharad/inventory-management-sub000/internal/models"
	"github.com/code-sharad/inventory-management-sub000/internal/services"
)

// MockAuthService implements AuthServiceInterface for testing
type MockAuthService struct {
	RegisterFunc           func(ctx context.Context, email, username, password string) error
	LoginFunc              func(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error)
	RefreshFunc            func(ctx context.Context, refreshToken string) (string, error)
	LogoutFunc             func(ctx context.Context, refreshToken string) error
	LogoutAllFunc          func(ctx context.Context, userID string) error
	ForgotPasswordFunc     func(ctx context.Context, email string) error
	ResetPasswordFunc      func(ctx context.Context, rawToken, newPassword string) error
	ChangePasswordFunc     func(ctx context.Context, userID, currentPassword, newPassword string) error
	VerifyEmailFunc        func(ctx context.Context, rawToken string) (string, error)
	ResendVerificationFunc func(ctx context.Context, userID string) error
}

func (m *MockAuthService) Register(ctx context.Context, email, username, password string) error {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, email, username, password)
	}
	return nil
}

func (m *MockAuthService) Login(ctx context.Context, email, password, ipAddress, userAgent string) (*services.AuthResponse, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, password, ipAddress, userAgent)
	}
	return nil, models.ErrInvalidCredentials
}

func (m *MockAuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, refreshToken)
	}
	return "", models.ErrTokenNotRecognized
}

func (m *MockAuthService) Logout(ctx context.Context, refreshToken string) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, refreshToken)
	}
	return nil
}

func (m *MockAuthService) LogoutAll(ctx context.Context, userID string) error {
	if m.LogoutAllFunc != nil {
		return m.LogoutAllFunc(ctx, userID)
	}
	return nil
}

func (m *MockAuthService) ForgotPassword(ctx context.Context, email string) error {
	if m.ForgotPasswordFunc != nil {
		return m.ForgotPasswordFunc(ctx, email)
	}
	return nil
}

func (m *MockAuthService) ResetPassword(ctx context.Context, rawToken, newPassword string) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, rawToken, newPassword)
	}
	return nil
}

func (m *MockAuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, userID, currentPassword, newPassword)
	}
	return nil
}

func (m *MockAuthService) VerifyEmail(ctx context.Context, rawToken string) (string, error) {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, rawToken)
	}
	return "", models.ErrActionTokenInvalid
}

func (m *MockAuthService) ResendVerification(ctx context.Context, userID string) error {
	if m.ResendVerificationFunc != nil {
		return m.ResendVerificationFunc(ctx, userID)
	}
	return nil
}

// MockAccountService implements AccountServiceInterface for testing
type MockAccountService struct {
	GetProfileFunc       func(ctx context.Context, userID string) (*services.UserResponse, error)
	UpdateProfileFunc    func(ctx context.Context, userID, username, email string) (*services.UserResponse, error)
	ListSessionsFunc     func(ctx context.Context, userID string) ([]services.SessionResponse, error)
	GetLoginHistoryFunc  func(ctx context.Context, userID string) ([]services.LoginHistoryResponse, error)
	ListAccountsFunc     func(ctx context.Context, limit, offset int) ([]*services.UserResponse, error)
	CreateAccountFunc    func(ctx context.Context, email, username, password string, role models.Role) (*services.UserResponse, error)
	SetAccountActiveFunc func(ctx context.Context, userID string, active bool) error
	DeleteAccountFunc    func(ctx context.Context, userID string) error
}

func (m *MockAccountService) GetProfile(ctx context.Context, userID string) (*services.UserResponse, error) {
	if m.GetProfileFunc != nil {
		return m.GetProfileFunc(ctx, userID)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountService) UpdateProfile(ctx context.Context, userID, username, email string) (*services.UserResponse, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, userID, username, email)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountService) ListSessions(ctx context.Context, userID string) ([]services.SessionResponse, error) {
	if m.ListSessionsFunc != nil {
		return m.ListSessionsFunc(ctx, userID)
	}
	return []services.SessionResponse{}, nil
}

func (m *MockAccountService) GetLoginHistory(ctx context.Context, userID string) ([]services.LoginHistoryResponse, error) {
	if m.GetLoginHistoryFunc != nil {
		return m.GetLoginHistoryFunc(ctx, userID)
	}
	return []services.LoginHistoryResponse{}, nil
}

func (m *MockAccountService) ListAccounts(ctx context.Context, limit, offset int) ([]*services.UserResponse, error) {
	if m.ListAccountsFunc != nil {
		return m.ListAccountsFunc(ctx, limit, offset)
	}
	return []*services.UserResponse{}, nil
}

func (m *MockAccountService) CreateAccount(ctx context.Context, email, username, password string, role models.Role) (*services.UserResponse, error) {
	if m.CreateAccountFunc != nil {
		return m.CreateAccountFunc(ctx, email, username, password, role)
	}
	return nil, models.ErrInternalServer
}

func (m *MockAccountService) SetAccountActive(ctx context.Context, userID string, active bool) error {
	if m.SetAccountActiveFunc != nil {
		return m.SetAccountActiveFunc(ctx, userID, active)
	}
	return nil
}

func (m *MockAccountService) DeleteAccount(ctx context.Context, userID string) error {
	if m.DeleteAccountFunc != nil {
		return m.DeleteAccountFunc(ctx, userID)
	}
	return nil
}
