// Package auth is the token-based authentication core of the LMS backend:
// bcrypt credential hashing, HS256 access/refresh token issuance and strict
// token verification.
//
// Every type here is immutable after construction and safe for concurrent
// use. Nothing in this package touches the database; token validity is a
// function of the token bytes, the secret key and the current time.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// IssuerName is the fixed "iss" claim stamped on and required from every token.
const IssuerName = "LMS-Backend"

const (
	DefaultAccessTTL  = 60 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// TokenType distinguishes short-lived access tokens from refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

func (t TokenType) Valid() bool {
	return t == TokenTypeAccess || t == TokenTypeRefresh
}

// Claims is the payload carried by a signed token. Subject, IssuedAt,
// ExpiresAt and Issuer live in the embedded registered claims.
type Claims struct {
	// Email mirrors Subject; browser clients read it to display the user.
	Email     string    `json:"email,omitempty"`
	TokenType TokenType `json:"token_type"`
	jwt.RegisteredClaims
}

// Identity returns the subject the token was issued for.
func (c *Claims) Identity() string {
	return c.Subject
}

// ExpiresAtTime returns the expiry, or the zero time when the claim is absent.
func (c *Claims) ExpiresAtTime() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	// AccessExpiresAt lets clients schedule a refresh before the access token lapses.
	AccessExpiresAt time.Time
}
