package jwtx

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeyLength is the smallest accepted HMAC key, matching the SHA-256 block
// output size.
const MinKeyLength = 32

// ErrWeakKey is returned when an HMAC key is shorter than MinKeyLength.
var ErrWeakKey = errors.New("jwtx: signing key too short")

// Signer is our interface for anything that can sign JWTs.
type Signer interface {
	Alg() string
	Sign(Claims) (string, error)
}

// HS256Signer signs session tokens with a server-held symmetric key.
type HS256Signer struct {
	key []byte
}

// NewSignerHS256 creates an HS256 signer. The key is copied.
func NewSignerHS256(key []byte) (*HS256Signer, error) {
	if len(key) < MinKeyLength {
		return nil, fmt.Errorf("%w: got %d bytes, need %d", ErrWeakKey, len(key), MinKeyLength)
	}
	return &HS256Signer{key: append([]byte(nil), key...)}, nil
}

func (s *HS256Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign takes the claims and turns them into a signed JWT string.
func (s *HS256Signer) Sign(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("jwtx: sign: %w", err)
	}
	return signed, nil
}
