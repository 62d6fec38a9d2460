package domain

import (
	"strings"
	"time"
)

// Action is one of the four matrix columns.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// ParseAction matches s case-insensitively. Unknown actions report false.
func ParseAction(s string) (Action, bool) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionCreate:
		return ActionCreate, true
	case ActionRead:
		return ActionRead, true
	case ActionUpdate:
		return ActionUpdate, true
	case ActionDelete:
		return ActionDelete, true
	}
	return "", false
}

// Grants are the four independent flags of a matrix cell.
type Grants struct {
	Create bool
	Read   bool
	Update bool
	Delete bool
}

// Allows returns the flag for a.
func (g Grants) Allows(a Action) bool {
	switch a {
	case ActionCreate:
		return g.Create
	case ActionRead:
		return g.Read
	case ActionUpdate:
		return g.Update
	case ActionDelete:
		return g.Delete
	}
	return false
}

// RolePermission is one (role, module) cell of the authorization matrix.
type RolePermission struct {
	ID       string
	RoleID   string
	ModuleID string
	Grants
	UpdatedAt time.Time
}

// PermissionEntry is a matrix cell flattened for display.
type PermissionEntry struct {
	Role   RoleName
	Module string
	Grants
}
