package authsdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// SDKClient is a client for the usermgmt identity service.
// It provides access to unauthenticated operations and creates authenticated Sessions.
type SDKClient struct {
	BaseURL    string
	HTTPClient *http.Client

	// ValidateRequests runs the request's Validate before sending it and
	// returns a 400 *APIError without a round trip when it fails. Set to
	// false in tests that exercise server-side validation.
	// Default: true
	ValidateRequests bool
}

// NewSDKClient creates a new client with request validation enabled.
func NewSDKClient(baseURL string) *SDKClient {
	return &SDKClient{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		ValidateRequests: true,
	}
}

type validator interface {
	Validate() map[string]string
}

func (c *SDKClient) validate(req validator) error {
	if !c.ValidateRequests {
		return nil
	}
	if fields := req.Validate(); fields != nil {
		return NewValidationError("validation failed", fields)
	}
	return nil
}

// Register creates a new, unverified account. A verification token is sent
// to the email address; no session is returned.
func (c *SDKClient) Register(ctx context.Context, req RegisterRequest) (*User, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/register", req, "")
	if err != nil {
		return nil, err
	}

	user, err := decodeEnvelope[User](resp, http.StatusCreated)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// Login authenticates with email and password and returns a Session.
// Unverified accounts get ErrForbidden.
func (c *SDKClient) Login(ctx context.Context, req LoginRequest) (*Session, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/login", req, "")
	if err != nil {
		return nil, err
	}

	sess, err := decodeEnvelope[SessionResponse](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newSession(c, sess), nil
}

// VerifyEmail consumes a verification token. Verification doubles as the
// first login, so a Session is returned.
func (c *SDKClient) VerifyEmail(ctx context.Context, req VerifyEmailRequest) (*Session, error) {
	if err := c.validate(req); err != nil {
		return nil, err
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/auth/verify-email", req, "")
	if err != nil {
		return nil, err
	}

	sess, err := decodeEnvelope[SessionResponse](resp, http.StatusOK)
	if err != nil {
		return nil, err
	}
	return newSession(c, sess), nil
}

// NewSessionFromToken wraps an existing session token, e.g. one stored by a
// previous process. The user view is empty until fetched.
func (c *SDKClient) NewSessionFromToken(token string, expiresAt time.Time) *Session {
	return &Session{client: c, token: token, expiresAt: expiresAt}
}
