package domain

import (
	"strings"
	"time"
)

// RoleName is the closed set of grantable roles.
type RoleName string

const (
	RoleAdmin   RoleName = "Admin"
	RoleManager RoleName = "Manager"
	RoleUser    RoleName = "User"
)

// RoleNames lists every grantable role in display order.
var RoleNames = []RoleName{RoleAdmin, RoleManager, RoleUser}

// ParseRoleName matches s case-insensitively against the grantable roles.
func ParseRoleName(s string) (RoleName, bool) {
	s = strings.TrimSpace(s)
	for _, r := range RoleNames {
		if strings.EqualFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

func (r RoleName) String() string { return string(r) }

type Role struct {
	ID        string
	Name      RoleName
	CreatedAt time.Time
}
