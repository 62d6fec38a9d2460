package httpx

import (
	"context"
	"net/http"

	"github.com/aussiebroadwan/usermgmt/pkg/slogx"
)

// PermissionChecker answers fine-grained permission questions for an account.
type PermissionChecker interface {
	HasPermission(ctx context.Context, accountID, module, action string) (bool, error)
}

// RequireRole lets the request through only when the session role is one of
// roles. Must run after AuthnMiddleware.
func RequireRole(roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !hasRole(r.Context(), roles) {
				writeForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireSelfOrRole allows the request when the path parameter param names
// the authenticated account, or when the caller holds one of roles.
func RequireSelfOrRole(param string, roles ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			id, ok := AccountIDFromContext(ctx)
			if !ok {
				writeForbidden(w)
				return
			}
			if id != r.PathValue(param) && !hasRole(ctx, roles) {
				writeForbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequirePermission consults checker for (account, module, action) on every
// request. A denial answers 403; an evaluation error answers 500 and never
// reaches next.
func RequirePermission(checker PermissionChecker, module, action string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			id, ok := AccountIDFromContext(ctx)
			if !ok {
				writeForbidden(w)
				return
			}

			allowed, err := checker.HasPermission(ctx, id, module, action)
			if err != nil {
				log.Error("permission check failed",
					"module", module,
					"action", action,
					"err", err,
				)
				WriteError(w, http.StatusInternalServerError, "internal server error")
				return
			}
			if !allowed {
				log.Info("permission denied", "module", module, "action", action)
				writeForbidden(w)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func hasRole(ctx context.Context, roles []string) bool {
	have := roleFromCtx(ctx)
	if have == "" {
		return false
	}
	for _, want := range roles {
		if have == want {
			return true
		}
	}
	return false
}

// Every authorization failure gets the same body.
func writeForbidden(w http.ResponseWriter) {
	WriteError(w, http.StatusForbidden, "forbidden")
}
