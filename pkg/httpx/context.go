package httpx

import (
	"context"

	"github.com/aussiebroadwan/usermgmt/pkg/jwtx"
)

type ctxKey string

const CtxKeyClaims ctxKey = "claims"

// ContextWithClaims stores verified session claims on ctx.
func ContextWithClaims(ctx context.Context, c jwtx.Claims) context.Context {
	return context.WithValue(ctx, CtxKeyClaims, c)
}

// ClaimsFromContext returns the verified session claims, if any.
func ClaimsFromContext(ctx context.Context) (jwtx.Claims, bool) {
	c, ok := ctx.Value(CtxKeyClaims).(jwtx.Claims)
	return c, ok
}

// AccountIDFromContext returns the authenticated account ID, if any.
func AccountIDFromContext(ctx context.Context) (string, bool) {
	c, ok := ClaimsFromContext(ctx)
	return c.Subject, ok && c.Subject != ""
}

func roleFromCtx(ctx context.Context) string {
	c, _ := ClaimsFromContext(ctx)
	return c.Role
}
