package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// TokenType tags a JWT as either a short-lived access token or a long-lived
// refresh token.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// TokenClaims is the verified payload of an issued token.
type TokenClaims struct {
	Type   TokenType `json:"type"`
	UserID string    `json:"user_id"`
	jwt.RegisteredClaims
}
