package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/code-sharad/inventory-management-sub000/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenManager issues and verifies signed, self-contained tokens. Verification
// is purely cryptographic and never consults the store: access-token checks
// stay cheap, and revocability for refresh tokens lives one layer up in the
// per-account session table.
type TokenManager struct {
	secret             string
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
}

// NewTokenManager creates a new TokenManager
func NewTokenManager(secret string, accessExpiry, refreshExpiry time.Duration) *TokenManager {
	return &TokenManager{
		secret:             secret,
		accessTokenExpiry:  accessExpiry,
		refreshTokenExpiry: refreshExpiry,
	}
}

// AccessTokenExpiry returns the configured access-token validity window.
func (tm *TokenManager) AccessTokenExpiry() time.Duration { return tm.accessTokenExpiry }

// RefreshTokenExpiry returns the configured refresh-token validity window.
func (tm *TokenManager) RefreshTokenExpiry() time.Duration { return tm.refreshTokenExpiry }

// Issue creates a signed token of the given type for the subject. The expiry
// is derived from the type: access tokens get the short window, refresh tokens
// the long one.
func (tm *TokenManager) Issue(userID string, tokenType models.TokenType) (string, error) {
	var expiry time.Duration
	switch tokenType {
	case models.TokenTypeAccess:
		expiry = tm.accessTokenExpiry
	case models.TokenTypeRefresh:
		expiry = tm.refreshTokenExpiry
	default:
		return "", fmt.Errorf("unknown token type: %s", tokenType)
	}

	now := time.Now()
	claims := &models.TokenClaims{
		Type:   tokenType,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}

	return tokenString, nil
}

// Verify checks the signature and expiry of a token and returns its claims.
// Fails with models.ErrTokenExpired for outdated tokens and
// models.ErrInvalidSignature for anything malformed or tampered.
func (tm *TokenManager) Verify(tokenString string) (*models.TokenClaims, error) {
	claims := &models.TokenClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, models.ErrTokenExpired
		}
		return nil, models.ErrInvalidSignature
	}

	if !token.Valid {
		return nil, models.ErrInvalidSignature
	}

	if claims.Type != models.TokenTypeAccess && claims.Type != models.TokenTypeRefresh {
		return nil, models.ErrInvalidTokenType
	}

	return claims, nil
}

// VerifyTyped verifies a token and additionally asserts its type tag. A
// refresh token presented where an access token is expected (or vice versa)
// fails with models.ErrInvalidTokenType.
func (tm *TokenManager) VerifyTyped(tokenString string, want models.TokenType) (*models.TokenClaims, error) {
	claims, err := tm.Verify(tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Type != want {
		return nil, models.ErrInvalidTokenType
	}
	return claims, nil
}
