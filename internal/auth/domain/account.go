package domain

import "time"

type Account struct {
	ID            string
	Email         string // lower-cased, unique
	Name          string
	PasswordHash  string // argon2 encoded
	EmailVerified bool

	// Pending verification. Both are set or both are nil; only the
	// fingerprint of the token is stored.
	VerificationTokenHash *string
	VerificationExpiresAt *time.Time

	RoleID    string // Foreign key to roles table, empty when unassigned
	Version   int64  // Incremented on every update
	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasPendingVerification reports whether a verification token is outstanding.
func (a Account) HasPendingVerification() bool {
	return a.VerificationTokenHash != nil && a.VerificationExpiresAt != nil
}

// SetVerification replaces any outstanding token with a new one and marks
// the email unverified.
func (a *Account) SetVerification(tokenHash string, expiresAt time.Time) {
	a.EmailVerified = false
	a.VerificationTokenHash = &tokenHash
	a.VerificationExpiresAt = &expiresAt
}

// ClearVerification marks the email verified and drops the token.
func (a *Account) ClearVerification() {
	a.EmailVerified = true
	a.VerificationTokenHash = nil
	a.VerificationExpiresAt = nil
}

// AccountView is the public projection of an account. It never carries
// credentials or verification secrets.
type AccountView struct {
	ID            string
	Email         string
	Name          string
	EmailVerified bool
	Role          RoleName
	CreatedAt     time.Time
}

// Session is the result of a successful login or email verification.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   AccountView
}

// VerificationEmail is what the mail notifier needs to deliver a token.
type VerificationEmail struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Token string `json:"token"`
}
