package jwtx

import (
	"fmt"
	"time"
)

// SessionCodec issues and verifies session tokens for one issuer/audience
// pair. It is immutable after construction and safe for concurrent use.
type SessionCodec struct {
	signer   Signer
	verifier Verifier
	issuer   string
	audience string
	ttl      time.Duration
}

// CodecConfig configures NewSessionCodec.
type CodecConfig struct {
	Key      []byte
	Issuer   string
	Audience string
	TTL      time.Duration
}

// NewSessionCodec builds an HS256 codec from cfg.
func NewSessionCodec(cfg CodecConfig) (*SessionCodec, error) {
	signer, err := NewSignerHS256(cfg.Key)
	if err != nil {
		return nil, err
	}
	verifier, err := NewVerifierHS256(cfg.Key, cfg.Issuer, cfg.Audience)
	if err != nil {
		return nil, err
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	return &SessionCodec{
		signer:   signer,
		verifier: verifier,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
	}, nil
}

// Issue signs a session token for the given account and returns it with its
// expiry.
func (c *SessionCodec) Issue(subject, name, email, role string, now time.Time) (string, time.Time, error) {
	claims := NewSessionClaims(subject, name, email, role, c.issuer, c.audience, c.ttl, now)

	token, err := c.signer.Sign(claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwtx: issue session: %w", err)
	}
	return token, claims.ExpiresAt.Time, nil
}

// Verify validates a session token. Failures wrap ErrInvalidToken.
func (c *SessionCodec) Verify(token string) (Claims, error) {
	return c.verifier.Verify(token)
}
