package auth

import (
	"net/http"
	"time"
)

// RefreshCookieName is the cookie carrying the refresh token. The access token
// never travels by cookie: it is returned in response bodies and attached by
// callers as a bearer credential.
const RefreshCookieName = "refresh_token"

// CookieConfig holds cookie security settings
type CookieConfig struct {
	Domain string // Empty string = current host only
	Secure bool   // HTTPS only; always on in TLS-terminated deployments
}

// SetRefreshTokenCookie writes the refresh token into an httpOnly,
// SameSite=Strict cookie.
func SetRefreshTokenCookie(w http.ResponseWriter, refreshToken string, expiresAt time.Time, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     RefreshCookieName,
		Value:    refreshToken,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  expiresAt,
		MaxAge:   int(time.Until(expiresAt).Seconds()),
		HttpOnly: true, // page scripts must never read the refresh token
		Secure:   config.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	http.SetCookie(w, cookie)
}

// ClearRefreshTokenCookie clears the refresh token cookie
func ClearRefreshTokenCookie(w http.ResponseWriter, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     "/",
		Domain:   config.Domain,
		MaxAge:   -1, // Negative MaxAge deletes the cookie
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: http.SameSiteStrictMode,
	}
	http.SetCookie(w, cookie)
}

// GetRefreshTokenCookie retrieves the refresh token from the request cookies
func GetRefreshTokenCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return "", err
	}
	return cookie.Value, nil
}
