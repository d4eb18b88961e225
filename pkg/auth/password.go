// Package auth holds the credential primitives shared by the service and its
// admin bootstrap: bcrypt hashing and the account password policy.
package auth

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is deliberately above bcrypt's default; login latency is
// dominated by this and the value is load-tested against the login rate
// limit window.
const (
	BcryptCost     = 14
	MinPasswordLen = 8
	MaxPasswordLen = 128
)

// PasswordValidationError collects every policy rule the candidate password
// broke. The detail stays server-side; Error() is what users see.
type PasswordValidationError struct {
	Errors []string
}

// Error returns a deliberately generic message. Listing the failed rules
// would tell an attacker which rules a guessed password already satisfies.
func (e *PasswordValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "password validation failed"
	}
	return "invalid password"
}

// deniedPasswords are rejected outright regardless of the character rules.
// Seeded from breach-corpus staples plus the obvious guesses for an
// invoicing product's accounts.
var deniedPasswords = map[string]struct{}{
	"password":     {},
	"password1":    {},
	"password123":  {},
	"password123!": {},
	"passw0rd":     {},
	"12345678":     {},
	"123456789":    {},
	"qwerty123":    {},
	"letmein":      {},
	"welcome1":     {},
	"admin":        {},
	"admin123":     {},
	"changeme":     {},
	"iloveyou":     {},
	"invoice":      {},
	"invoice123":   {},
	"billing123":   {},
	"accounts1":    {},
}

// HashPassword produces the bcrypt hash stored in the users table.
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", fmt.Errorf("password cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// ComparePassword checks a plaintext candidate against a stored hash.
// bcrypt's comparison is constant-time for equal-cost hashes.
func ComparePassword(hashedPassword, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password))
}

// ValidatePassword applies the account password policy: length bounds, all
// four character classes, and the denylist. Registration, password reset,
// password change and the admin bootstrap all go through here.
func ValidatePassword(password string) error {
	var issues []string

	if len(password) < MinPasswordLen {
		issues = append(issues, fmt.Sprintf("must be at least %d characters", MinPasswordLen))
	}
	if len(password) > MaxPasswordLen {
		// bcrypt only reads 72 bytes; the cap keeps request bodies honest
		issues = append(issues, fmt.Sprintf("must be at most %d characters", MaxPasswordLen))
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}
	if !hasUpper {
		issues = append(issues, "must contain an uppercase letter")
	}
	if !hasLower {
		issues = append(issues, "must contain a lowercase letter")
	}
	if !hasDigit {
		issues = append(issues, "must contain a digit")
	}
	if !hasSpecial {
		issues = append(issues, "must contain a special character")
	}

	if _, denied := deniedPasswords[strings.ToLower(password)]; denied {
		issues = append(issues, "is on the denied-password list")
	}

	if len(issues) > 0 {
		return &PasswordValidationError{Errors: issues}
	}
	return nil
}
