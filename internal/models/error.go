package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Authentication failures
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrAccountLocked      = errors.New("account is temporarily locked")
	ErrAccountDeactivated = errors.New("account is deactivated")

	// Token failures
	ErrTokenExpired       = errors.New("token has expired")
	ErrInvalidSignature   = errors.New("token signature is invalid")
	ErrInvalidTokenType   = errors.New("unexpected token type")
	ErrTokenNotRecognized = errors.New("refresh token not recognized")
	ErrStaleToken         = errors.New("token issued before password change")

	// One-time action tokens (password reset, email verification)
	ErrActionTokenInvalid = errors.New("token is invalid or has expired")
)
