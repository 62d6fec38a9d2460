package http

import (
	"github.com/aussiebroadwan/usermgmt/internal/auth/domain"
	"github.com/aussiebroadwan/usermgmt/pkg/authsdk"
)

func toUser(v domain.AccountView) authsdk.User {
	return authsdk.User{
		ID:            v.ID,
		Email:         v.Email,
		Name:          v.Name,
		EmailVerified: v.EmailVerified,
		Role:          string(v.Role),
		CreatedAt:     v.CreatedAt,
	}
}

func toSession(s domain.Session) authsdk.SessionResponse {
	return authsdk.SessionResponse{
		Token:     s.Token,
		TokenType: "Bearer",
		ExpiresAt: s.ExpiresAt,
		User:      toUser(s.Account),
	}
}

func toPermission(e domain.PermissionEntry) authsdk.Permission {
	return authsdk.Permission{
		Role:   string(e.Role),
		Module: e.Module,
		Create: e.Create,
		Read:   e.Read,
		Update: e.Update,
		Delete: e.Delete,
	}
}

func toActivity(r domain.ActivityRecord) authsdk.Activity {
	return authsdk.Activity{
		ID:        r.ID,
		Activity:  r.Activity,
		CreatedAt: r.CreatedAt,
	}
}
