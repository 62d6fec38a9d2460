package authsdk

import (
	"context"
	"net/http"
	"net/url"
)

// ============================================================================
// Accounts
// ============================================================================

// ListUsers lists every account.
// Requires: Admin role and read permission on User Management.
func (s *Session) ListUsers(ctx context.Context) ([]User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/users", nil)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope[[]User](resp, http.StatusOK)
}

// GetUser fetches one account.
// Requires: the session's own account, or Admin role.
func (s *Session) GetUser(ctx context.Context, id string) (*User, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	user, err := decodeEnvelope[User](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	s.setUser(user)
	return &user, nil
}

// UpdateUser changes the name and/or email of an account. Changing the email
// marks the account unverified and sends a new verification token.
// Requires: the session's own account, or Admin role.
func (s *Session) UpdateUser(ctx context.Context, id string, req UpdateUserRequest) (*User, error) {
	if err := s.client.validate(req); err != nil {
		return nil, err
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/users/"+url.PathEscape(id), req)
	if err != nil {
		return nil, err
	}

	user, err := decodeEnvelope[User](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	s.setUser(user)
	return &user, nil
}

// DeleteUser hard-deletes an account. Its activity trail is kept.
// Requires: Admin role and delete permission on User Management.
func (s *Session) DeleteUser(ctx context.Context, id string) error {
	resp, err := s.doAuthRequest(ctx, http.MethodDelete, "/users/"+url.PathEscape(id), nil)
	if err != nil {
		return err
	}
	_, err = decodeEnvelope[struct{}](resp, http.StatusOK)
	return err
}

// AssignRole replaces an account's role. The account's existing session
// tokens keep the old role until they expire.
// Requires: Admin role and update permission on User Management.
func (s *Session) AssignRole(ctx context.Context, id string, req AssignRoleRequest) (*User, error) {
	if err := s.client.validate(req); err != nil {
		return nil, err
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/users/"+url.PathEscape(id)+"/role", req)
	if err != nil {
		return nil, err
	}

	user, err := decodeEnvelope[User](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListActivity returns an account's audit trail, oldest first. The trail of
// a deleted account stays readable by admins.
// Requires: the session's own account, or Admin role.
func (s *Session) ListActivity(ctx context.Context, id string) ([]Activity, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/users/"+url.PathEscape(id)+"/activity", nil)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope[[]Activity](resp, http.StatusOK)
}
