package models

import (
	"time"
)

// Role is the closed set of authorization roles.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleUser    Role = "user"
)

// ParseRole validates a role string against the closed set.
func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleAdmin, RoleManager, RoleUser:
		return Role(s), true
	}
	return "", false
}

// CanManageUsers reports whether the role may perform admin-only account
// operations (listing, deactivating, deleting accounts, logout-all).
func (r Role) CanManageUsers() bool {
	return r == RoleAdmin
}

// CanViewReports reports whether the role may read business-wide reporting
// surfaces (dashboard, all invoices).
func (r Role) CanViewReports() bool {
	return r == RoleAdmin || r == RoleManager
}

type User struct {
	ID                  string
	Email               string // stored lowercase, unique
	Username            string
	PasswordHash        string // never serialized outward
	Role                Role
	IsActive            bool
	EmailVerified       bool
	PasswordChangedAt   *time.Time
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLocked reports whether the account is under a temporary login lock.
func (u *User) IsLocked() bool {
	return u.LockedUntil != nil && time.Now().Before(*u.LockedUntil)
}

// PasswordChangedAfter reports whether the password was changed after the
// given token issue time. Tokens issued before a password change are rejected.
// JWT iat claims carry whole seconds only, so the comparison happens at
// second granularity: a token issued in the same second as the change is
// treated as issued after it.
func (u *User) PasswordChangedAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return issuedAt.Truncate(time.Second).Before(u.PasswordChangedAt.Truncate(time.Second))
}
