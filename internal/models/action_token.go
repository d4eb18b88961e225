package models

import (
	"time"
)

// ActionTokenPurpose distinguishes the two one-time token flows.
type ActionTokenPurpose string

const (
	PurposeEmailVerification ActionTokenPurpose = "email_verification"
	PurposePasswordReset     ActionTokenPurpose = "password_reset"
)

// ActionToken is a hashed one-time token for password reset or email
// verification. The raw token is mailed to the user and never persisted.
type ActionToken struct {
	ID        string
	UserID    string
	Purpose   ActionTokenPurpose
	TokenHash string `json:"-"`
	ExpiresAt time.Time
	UsedAt    *time.Time
	CreatedAt time.Time
}

// IsExpired checks if the token has expired
func (t *ActionToken) IsExpired() bool {
	return time.Now().After(t.ExpiresAt)
}

// IsUsed checks if the token has already been consumed
func (t *ActionToken) IsUsed() bool {
	return t.UsedAt != nil
}

// IsValid checks if the token is still usable (not expired and not used)
func (t *ActionToken) IsValid() bool {
	return !t.IsExpired() && !t.IsUsed()
}
