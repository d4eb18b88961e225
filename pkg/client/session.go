// Package client provides an HTTP client wrapper that makes the
// access-token/refresh-token split transparent to application code. It
// attaches the current access token as a bearer credential, coordinates at
// most one refresh call at a time across concurrent requests, and retries a
// rejected request exactly once after a successful refresh.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"
)

type contextKey string

// retriedKey marks a request that already went through one refresh-and-retry
// cycle so a second 401 cannot loop.
const retriedKey contextKey = "session_retried"

// SessionManager holds the access token in memory and drives the refresh
// protocol. The refresh token itself never passes through application code;
// it lives in the cookie jar shared by the wrapped client and the refresh
// call.
type SessionManager struct {
	baseURL string

	mu          sync.RWMutex
	accessToken string
	loggingOut  bool

	// refreshGroup collapses concurrent refresh attempts into a single
	// outstanding call; queued callers all receive its result.
	refreshGroup singleflight.Group

	jar           *cookiejar.Jar
	refreshClient *http.Client

	onSessionEnd func()
}

// Option configures a SessionManager
type Option func(*SessionManager)

// WithSessionEndHandler registers a callback invoked exactly once per forced
// session end (failed refresh or explicit logout). The application typically
// redirects to its login flow here.
func WithSessionEndHandler(fn func()) Option {
	return func(sm *SessionManager) {
		sm.onSessionEnd = fn
	}
}

// NewSessionManager creates a session manager targeting the given API base
// URL (e.g. "https://api.example.com/api/v1").
func NewSessionManager(baseURL string, opts ...Option) (*SessionManager, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	sm := &SessionManager{
		baseURL: strings.TrimRight(baseURL, "/"),
		jar:     jar,
	}
	sm.refreshClient = &http.Client{Jar: jar}

	for _, opt := range opts {
		opt(sm)
	}

	return sm, nil
}

// Client returns an *http.Client whose requests carry the bearer token and
// transparently recover from access-token expiry.
func (sm *SessionManager) Client() *http.Client {
	return &http.Client{
		Jar:       sm.jar,
		Transport: &authTransport{sm: sm, base: http.DefaultTransport},
	}
}

// AccessToken returns the current access token, empty if logged out
func (sm *SessionManager) AccessToken() string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.accessToken
}

// SetAccessToken seeds the manager with a token obtained out of band
func (sm *SessionManager) SetAccessToken(token string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.accessToken = token
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Status      string `json:"status"`
	AccessToken string `json:"accessToken"`
}

// Login authenticates and stores the resulting access token. The refresh
// cookie set by the server lands in the shared jar.
func (sm *SessionManager) Login(ctx context.Context, email, password string) error {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sm.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := sm.refreshClient.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var tr tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return fmt.Errorf("failed to decode login response: %w", err)
	}

	sm.mu.Lock()
	sm.accessToken = tr.AccessToken
	sm.loggingOut = false
	sm.mu.Unlock()

	return nil
}

// Logout ends the session. Local state is cleared regardless of the server's
// answer: to the user "no session" and "failed to end session" are the same
// outcome, and their intent to leave must be honored even when the network
// call fails.
func (sm *SessionManager) Logout(ctx context.Context) error {
	sm.mu.Lock()
	sm.loggingOut = true
	token := sm.accessToken
	sm.mu.Unlock()

	defer sm.endSession()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sm.baseURL+"/auth/logout", nil)
	if err != nil {
		return fmt.Errorf("failed to create logout request: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := sm.refreshClient.Do(req)
	if err != nil {
		return fmt.Errorf("logout request failed: %w", err)
	}
	defer resp.Body.Close()

	io.Copy(io.Discard, resp.Body)
	return nil
}

// refresh performs (or joins) the single outstanding refresh call. Every
// concurrent caller receives the same token or the same error.
func (sm *SessionManager) refresh(ctx context.Context) (string, error) {
	token, err, _ := sm.refreshGroup.Do("refresh", func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, sm.baseURL+"/auth/refresh-token", nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create refresh request: %w", err)
		}

		resp, err := sm.refreshClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("refresh request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			io.Copy(io.Discard, resp.Body)
			return nil, fmt.Errorf("refresh rejected with status %d", resp.StatusCode)
		}

		var tr tokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
			return nil, fmt.Errorf("failed to decode refresh response: %w", err)
		}

		sm.mu.Lock()
		sm.accessToken = tr.AccessToken
		sm.mu.Unlock()

		return tr.AccessToken, nil
	})
	if err != nil {
		return "", err
	}
	return token.(string), nil
}

// endSession clears local session state and fires the session-end callback
func (sm *SessionManager) endSession() {
	sm.mu.Lock()
	hadSession := sm.accessToken != ""
	sm.accessToken = ""
	sm.loggingOut = false
	sm.mu.Unlock()

	if hadSession && sm.onSessionEnd != nil {
		sm.onSessionEnd()
	}
}

func (sm *SessionManager) isLoggingOut() bool {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.loggingOut
}

// authTransport is the interceptor: bearer attach on the way out, refresh
// coordination on a 401 on the way back.
type authTransport struct {
	sm   *SessionManager
	base http.RoundTripper
}

func (t *authTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token := t.sm.AccessToken()

	outReq := req.Clone(req.Context())
	if token != "" {
		outReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := t.base.RoundTrip(outReq)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	// Already retried once; surface the rejection rather than looping.
	if req.Context().Value(retriedKey) != nil {
		return resp, nil
	}

	// A logout in progress wins over any 401-triggered refresh.
	if t.sm.isLoggingOut() {
		return resp, nil
	}

	// A request body without GetBody cannot be replayed.
	if req.Body != nil && req.GetBody == nil {
		return resp, nil
	}

	if _, refreshErr := t.sm.refresh(req.Context()); refreshErr != nil {
		t.sm.endSession()
		return resp, nil
	}

	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	retryReq := req.Clone(context.WithValue(req.Context(), retriedKey, true))
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, fmt.Errorf("failed to rewind request body for retry: %w", err)
		}
		retryReq.Body = body
	}

	// Back through the interceptor: it attaches the refreshed token, and the
	// context mark makes a second 401 surface instead of refreshing again.
	return t.RoundTrip(retryReq)
}
