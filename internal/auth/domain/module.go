package domain

import "time"

// Well-known modules seeded at bootstrap.
const (
	ModuleUserManagement  = "User Management"
	ModuleAssetManagement = "Asset Management"
	ModuleReports         = "Reports"
)

// Module is a named protected resource area.
type Module struct {
	ID        string
	Name      string
	CreatedAt time.Time
}
