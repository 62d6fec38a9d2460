package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSessionTTL is the lifetime of a session token when none is configured.
const DefaultSessionTTL = 60 * time.Minute

// Claims are the session-token claims. The subject is the account ID.
type Claims struct {
	jwt.RegisteredClaims

	// Display name of the account at the time the token was issued.
	Name string `json:"name,omitempty"`

	// Email of the account at the time the token was issued.
	Email string `json:"email,omitempty"`

	// Role is the account's resolved role ("Admin", "Manager", "User").
	Role string `json:"role,omitempty"`
}

// NewSessionClaims builds the claims for a freshly authenticated account.
func NewSessionClaims(
	subject, name, email, role string,
	issuer, audience string,
	ttl time.Duration,
	now time.Time,
) Claims {
	now = now.UTC()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Name:  name,
		Email: email,
		Role:  role,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}

// ValidateIssuer checks if the issuer matches expected value.
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateAudience checks that the expected audience is present.
func (c *Claims) ValidateAudience(expected string) error {
	if expected == "" {
		return nil
	}
	if !slices.Contains(c.Audience, expected) {
		return ErrAudience
	}
	return nil
}

// ValidateExpiryAt checks exp and nbf against now with no clock-skew
// allowance. A token without exp is rejected.
func (c *Claims) ValidateExpiryAt(now time.Time) error {
	if c.ExpiresAt == nil {
		return ErrInvalidClaim
	}
	if now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrNotYetValid
	}
	return nil
}
