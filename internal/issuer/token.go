// Package issuer implements the trading-API session service.
package issuer

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned when a token fails signature verification.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the signed token payload referencing a session record.
type Claims struct {
	SessionID string `json:"session_id"`
	Login     int64  `json:"login"`
	jwt.RegisteredClaims
}

// TokenCodec mints and verifies HS256 session tokens.
//
// The embedded expiry reflects the session lifetime at mint time and is
// informational only: the session table is the authority on expiry, since
// renewal slides the table record forward without re-signing the token.
type TokenCodec struct {
	secret []byte
	parser *jwt.Parser
}

// NewTokenCodec creates a TokenCodec with the given signing secret.
func NewTokenCodec(secret string) *TokenCodec {
	return &TokenCodec{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{"HS256"}),
			// Expiry is enforced against the session table, not the claim.
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Mint signs a token embedding the session reference.
func (c *TokenCodec) Mint(sessionID string, login int64, expiresAt time.Time) (string, error) {
	claims := Claims{
		SessionID: sessionID,
		Login:     login,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

// Verify checks the token signature and returns its claims.
func (c *TokenCodec) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := c.parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.SessionID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateSessionID creates a cryptographically secure session ID.
func GenerateSessionID() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating session id: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
