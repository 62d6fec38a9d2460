package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/usermgmt/pkg/jwtx"
	"github.com/aussiebroadwan/usermgmt/pkg/slogx"
)

// AuthnMiddleware verifies the bearer session token (signature, issuer,
// audience, expiry) and injects its claims into the request context.
func AuthnMiddleware(v jwtx.Verifier) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			scheme, raw, ok := strings.Cut(authz, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
				writeBearerError(w, "missing bearer token")
				return
			}

			claims, err := v.Verify(strings.TrimSpace(raw))
			if err != nil {
				log.Warn("session token rejected", "err", err)
				writeBearerError(w, "token verification failed")
				return
			}

			ctx = ContextWithClaims(ctx, claims)
			ctx = slogx.WithAccountID(ctx, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, "unauthorized")
}
