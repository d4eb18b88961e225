package models

import (
	"time"
)

// Session is the server-side record of one active refresh token. Only the
// sha256 hash of the token is stored; the raw value lives in the client's
// refresh cookie.
type Session struct {
	ID         string
	UserID     string
	TokenHash  string
	DeviceInfo string // user agent + origin IP, for the sessions view
	CreatedAt  time.Time
	ExpiresAt  time.Time
	LastUsedAt *time.Time
}

// IsExpired reports whether the session's refresh token has passed its expiry.
// Expired rows are treated as invalid even before the sweep removes them.
func (s *Session) IsExpired() bool {
	return !time.Now().Before(s.ExpiresAt)
}
