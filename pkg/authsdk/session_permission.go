package authsdk

import (
	"context"
	"net/http"
)

// ListPermissions returns the whole permission matrix ordered by role then module.
// Requires: Admin role.
func (s *Session) ListPermissions(ctx context.Context) ([]Permission, error) {
	resp, err := s.doAuthRequest(ctx, http.MethodGet, "/permissions", nil)
	if err != nil {
		return nil, err
	}
	return decodeEnvelope[[]Permission](resp, http.StatusOK)
}

// SetPermission creates or fully replaces one matrix cell.
// Requires: Admin role.
func (s *Session) SetPermission(ctx context.Context, req SetPermissionRequest) (*Permission, error) {
	if err := s.client.validate(req); err != nil {
		return nil, err
	}

	resp, err := s.doAuthRequest(ctx, http.MethodPut, "/permissions", req)
	if err != nil {
		return nil, err
	}

	p, err := decodeEnvelope[Permission](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
