package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveCORS(t *testing.T, config *CORSConfig, method, origin string) *httptest.ResponseRecorder {
	t.Helper()

	var reachedHandler bool
	handler := CORS(config)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reachedHandler = true
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, "/api/v1/auth/login", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if method == http.MethodOptions && reachedHandler {
		t.Error("preflight must be answered by the middleware, not the handler")
	}
	return w
}

func TestCORS_AllowedOrigin(t *testing.T) {
	config := DefaultCORSConfig("development")
	config.AllowedOrigins = []string{"http://localhost:3000"}

	w := serveCORS(t, config, http.MethodPost, "http://localhost:3000")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Errorf("Access-Control-Allow-Origin: got %q, want the requesting origin", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("credentials must be allowed for the refresh cookie, got %q", got)
	}
	if got := w.Header().Get("Vary"); got != "Origin" {
		t.Errorf("Vary: got %q, want Origin", got)
	}
}

func TestCORS_UnlistedOriginGetsNoHeaders(t *testing.T) {
	config := DefaultCORSConfig("production")
	config.AllowedOrigins = []string{"https://app.example.com"}

	w := serveCORS(t, config, http.MethodPost, "https://evil.example.net")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unlisted origin must receive no CORS headers, got %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "" {
		t.Errorf("credentials header leaked to unlisted origin: %q", got)
	}
}

func TestCORS_PreflightShortCircuits(t *testing.T) {
	config := DefaultCORSConfig("development")
	config.AllowedOrigins = []string{"http://localhost:5173"}

	w := serveCORS(t, config, http.MethodOptions, "http://localhost:5173")

	if w.Code != http.StatusNoContent {
		t.Errorf("preflight status: got %d, want %d", w.Code, http.StatusNoContent)
	}
	if got := w.Header().Get("Access-Control-Allow-Methods"); got == "" {
		t.Error("preflight response missing Access-Control-Allow-Methods")
	}
}

func TestCORS_EmptyOriginListDeniesEverything(t *testing.T) {
	w := serveCORS(t, DefaultCORSConfig("production"), http.MethodGet, "https://app.example.com")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("empty allowlist must deny all origins, got %q", got)
	}
}
