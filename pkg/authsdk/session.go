package authsdk

import (
	"context"
	"net/http"
	"sync"
	"time"
)

// Session is an authenticated session holding a bearer token. Session
// tokens cannot be refreshed; log in again once Expired reports true.
type Session struct {
	client *SDKClient

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
	user      User
}

func newSession(client *SDKClient, resp SessionResponse) *Session {
	return &Session{
		client:    client,
		token:     resp.Token,
		expiresAt: resp.ExpiresAt,
		user:      resp.User,
	}
}

// Token returns the bearer token.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// ExpiresAt returns the token expiry.
func (s *Session) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}

// Expired reports whether the token has expired.
func (s *Session) Expired() bool {
	return !time.Now().Before(s.ExpiresAt())
}

// User returns the account the session was issued for, as of issuance.
func (s *Session) User() User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// setUser records a fresher view of the session's own account.
func (s *Session) setUser(u User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user.ID == "" || s.user.ID == u.ID {
		s.user = u
	}
}

// doAuthRequest performs a request carrying the session token.
func (s *Session) doAuthRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	return s.client.doRequest(ctx, method, path, body, s.Token())
}
