package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verifier validates a JWT and gives you back the claims if it's legit.
// Every failure wraps ErrInvalidToken.
type Verifier interface {
	Verify(token string) (Claims, error)
}

var (
	// ErrInvalidToken is the umbrella error for any token that fails
	// verification. The wrapped cause says which check failed.
	ErrInvalidToken = errors.New("jwtx: invalid token")

	ErrMalformed    = errors.New("jwtx: malformed token")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrAudience     = errors.New("jwtx: audience mismatch")
	ErrExpired      = errors.New("jwtx: token expired")
	ErrNotYetValid  = errors.New("jwtx: token not yet valid")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// HS256Verifier validates tokens produced by HS256Signer.
type HS256Verifier struct {
	key      []byte
	issuer   string
	audience string

	// Now is the clock used for expiry checks. Defaults to time.Now.
	Now func() time.Time
}

// NewVerifierHS256 creates a verifier that enforces the given issuer and audience.
func NewVerifierHS256(key []byte, issuer, audience string) (*HS256Verifier, error) {
	if len(key) < MinKeyLength {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrWeakKey, len(key), MinKeyLength)
	}
	return &HS256Verifier{
		key:      append([]byte(nil), key...),
		issuer:   issuer,
		audience: audience,
		Now:      time.Now,
	}, nil
}

// Verify validates the JWT string and returns its parsed Claims. It never
// panics on malformed input.
func (v *HS256Verifier) Verify(tokenStr string) (Claims, error) {
	if tokenStr == "" {
		return Claims{}, invalid(ErrMalformed)
	}

	// Time-based checks run below against v.Now so tests can move the clock.
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return v.key, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenMalformed) {
			return Claims{}, invalid(ErrMalformed)
		}
		return Claims{}, invalid(err)
	}
	if !token.Valid {
		return Claims{}, invalid(ErrInvalidClaim)
	}

	if claims.Subject == "" {
		return Claims{}, invalid(ErrInvalidClaim)
	}
	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, invalid(err)
	}
	if err := claims.ValidateAudience(v.audience); err != nil {
		return Claims{}, invalid(err)
	}
	if err := claims.ValidateExpiryAt(v.now()); err != nil {
		return Claims{}, invalid(err)
	}

	return claims, nil
}

func (v *HS256Verifier) now() time.Time {
	if v.Now == nil {
		return time.Now().UTC()
	}
	return v.Now().UTC()
}

func invalid(cause error) error {
	return fmt.Errorf("%w: %w", ErrInvalidToken, cause)
}
