package authsdk

import "time"

// Envelope is the body of every API response. Data is decoded into the
// operation's result type.
type Envelope[T any] struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    T                 `json:"data,omitempty"`
	Errors  map[string]string `json:"errors,omitempty"`
}

// ============================================================================
// Account Types
// ============================================================================

// RegisterRequest creates a new, unverified account.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`

	// Role is one of Admin, Manager or User (case-insensitive). Defaults to User.
	Role string `json:"role,omitempty"`
}

// LoginRequest authenticates with email and password.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyEmailRequest proves ownership of an email address.
type VerifyEmailRequest struct {
	Email string `json:"email"`
	Token string `json:"token"`
}

// UpdateUserRequest changes profile fields. Nil fields are left untouched.
// Changing the email requires verifying it again.
type UpdateUserRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

// AssignRoleRequest replaces an account's role.
type AssignRoleRequest struct {
	Role string `json:"role"`
}

// User is the public view of an account.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Name          string    `json:"name"`
	EmailVerified bool      `json:"email_verified"`
	Role          string    `json:"role"`
	CreatedAt     time.Time `json:"created_at"`
}

// SessionResponse is returned by login and email verification.
type SessionResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Activity is one audit trail entry.
type Activity struct {
	ID        string    `json:"id"`
	Activity  string    `json:"activity"`
	CreatedAt time.Time `json:"created_at"`
}

// ============================================================================
// Permission Types
// ============================================================================

// Permission is one (role, module) cell of the permission matrix.
type Permission struct {
	Role   string `json:"role"`
	Module string `json:"module"`
	Create bool   `json:"create"`
	Read   bool   `json:"read"`
	Update bool   `json:"update"`
	Delete bool   `json:"delete"`
}

// SetPermissionRequest replaces all four flags of a matrix cell.
type SetPermissionRequest struct {
	Role   string `json:"role"`
	Module string `json:"module"`
	Create bool   `json:"create"`
	Read   bool   `json:"read"`
	Update bool   `json:"update"`
	Delete bool   `json:"delete"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse is returned by the liveness and readiness probes.
type HealthResponse struct {
	Status  string            `json:"status"`
	Uptime  string            `json:"uptime"`
	Version string            `json:"version"`
	Checks  map[string]string `json:"checks,omitempty"`
}
