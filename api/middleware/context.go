package middleware

import (
	"context"

	pkgAuth "github.com/mvalverde/agrolink-backend/pkg/auth"
)

type contextKey string

const (
	ctxUserID    contextKey = "user_id"
	ctxRole      contextKey = "actor_role"
	ctxStoreID   contextKey = "store_id"
	ctxPrincipal contextKey = "principal"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func StoreIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxStoreID).(string); ok {
		return v
	}
	return ""
}

// PrincipalFromContext returns the authenticated principal seeded by Auth.
func PrincipalFromContext(ctx context.Context) (pkgAuth.Principal, bool) {
	if ctx == nil {
		return pkgAuth.Principal{}, false
	}
	v, ok := ctx.Value(ctxPrincipal).(pkgAuth.Principal)
	return v, ok
}

// WithPrincipal injects the authenticated principal into the context along
// with the string user ID and role used by logging and rate limiting.
func WithPrincipal(ctx context.Context, principal pkgAuth.Principal) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx = context.WithValue(ctx, ctxUserID, principal.UserID.String())
	ctx = context.WithValue(ctx, ctxRole, string(principal.Role))
	return context.WithValue(ctx, ctxPrincipal, principal)
}
