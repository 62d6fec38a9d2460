package domain

import "time"

// Activity labels written to the audit trail.
const (
	ActivityRegistered     = "User registered"
	ActivityLoggedIn       = "User logged in"
	ActivityEmailVerified  = "Email verified"
	ActivityProfileUpdated = "User profile updated"
	ActivityRoleChanged    = "User role changed"
	ActivityDeleted        = "User deleted"
)

// ActivityRecord is an append-only audit entry. AccountID is not a foreign
// key, so records outlive the account they describe.
type ActivityRecord struct {
	ID        string
	AccountID string
	Activity  string
	CreatedAt time.Time
}
