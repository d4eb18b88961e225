package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/code-sharad/inventory-management-sub000/internal/auth"
	"github.com/code-sharad/inventory-management-sub000/internal/config"
	"github.com/code-sharad/inventory-management-sub000/internal/database"
	"github.com/code-sharad/inventory-management-sub000/internal/handlers"
	middlewareCustom "github.com/code-sharad/inventory-management-sub000/internal/middleware"
	"github.com/code-sharad/inventory-management-sub000/internal/repositories"
	"github.com/code-sharad/inventory-management-sub000/internal/routes"
	"github.com/code-sharad/inventory-management-sub000/internal/services"
	pkghttp "github.com/code-sharad/inventory-management-sub000/pkg/http"
	pkglogger "github.com/code-sharad/inventory-management-sub000/pkg/logger"
)

// SentEmail represents a captured email message
type SentEmail struct {
	To      string
	Purpose string // "verification" or "password_reset"
	Token   string
}

// MockEmailService captures sent emails for test assertions
type MockEmailService struct {
	mu         sync.Mutex
	SentEmails []SentEmail
}

func (m *MockEmailService) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = append(m.SentEmails, SentEmail{To: email, Purpose: "verification", Token: token})
	return nil
}

func (m *MockEmailService) SendPasswordResetEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SentEmails = append(m.SentEmails, SentEmail{To: email, Purpose: "password_reset", Token: token})
	return nil
}

// LastEmail returns the most recent email sent, or nil
func (m *MockEmailService) LastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.SentEmails) == 0 {
		return nil
	}
	return &m.SentEmails[len(m.SentEmails)-1]
}

// TestServer wraps httptest.Server with the database and all dependencies
type TestServer struct {
	Server       *httptest.Server
	DB           *database.DB
	EmailService *MockEmailService
	Config       *config.Config
	TokenManager *auth.TokenManager
	UserRepo     *repositories.UserRepository
	SessionRepo  *repositories.SessionRepository
}

// NewTestServer wires the full HTTP stack against a real database with the
// email service mocked out. The wiring mirrors cmd/api/main.go.
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
			TrustedProxies: []string{},
		},
		Auth: config.AuthConfig{
			JWTSecret:          "test-secret-32-characters-long-ok",
			AccessTokenExpiry:  24 * time.Hour,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
			ActionTokenExpiry:  10 * time.Minute,
			MaxSessionsPerUser: 10,
			MaxFailedLogins:    5,
			LockoutDuration:    15 * time.Minute,
			CleanupInterval:    time.Hour,
		},
	}

	userRepo := repositories.NewUserRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	actionTokenRepo := repositories.NewActionTokenRepository(db)
	loginHistoryRepo := repositories.NewLoginHistoryRepository(db)
	credentialStore := repositories.NewCredentialStore(db, userRepo, sessionRepo)

	tokenManager := auth.NewTokenManager(
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)
	mockEmail := &MockEmailService{}

	authPolicy := services.AuthPolicy{
		MaxSessionsPerUser: cfg.Auth.MaxSessionsPerUser,
		MaxFailedLogins:    cfg.Auth.MaxFailedLogins,
		LockoutDuration:    cfg.Auth.LockoutDuration,
		ActionTokenExpiry:  cfg.Auth.ActionTokenExpiry,
	}
	authService := services.NewAuthService(
		userRepo,
		credentialStore,
		sessionRepo,
		actionTokenRepo,
		loginHistoryRepo,
		mockEmail,
		tokenManager,
		authPolicy,
		logger,
		auditLogger,
	)
	accountService := services.NewAccountService(userRepo, sessionRepo, loginHistoryRepo, authService, logger)

	cookieConfig := auth.CookieConfig{}
	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, cookieConfig, ipConfig)
	accountHandler := handlers.NewAccountHandler(accountService)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, authHandler, accountHandler, tokenManager, userRepo)

	server := httptest.NewServer(r)

	return &TestServer{
		Server:       server,
		DB:           db,
		EmailService: mockEmail,
		Config:       cfg,
		TokenManager: tokenManager,
		UserRepo:     userRepo,
		SessionRepo:  sessionRepo,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	// No redirects, no shared cookie jar: tests manage cookies explicitly
	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return client.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with an access token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses a JSON response body into the target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// RefreshCookie returns the refresh_token cookie set on a response, or nil
func RefreshCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == auth.RefreshCookieName {
			return c
		}
	}
	return nil
}

// ExtractAccessToken pulls the access token out of a login/refresh response
func ExtractAccessToken(resp *http.Response) (string, error) {
	defer resp.Body.Close()

	var authResp struct {
		AccessToken string `json:"accessToken"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", err
	}
	return authResp.AccessToken, nil
}

// GetErrorMessage extracts the message field from an error response
func GetErrorMessage(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if msg, ok := errResp["message"].(string); ok {
		return msg, nil
	}
	return "", nil
}
