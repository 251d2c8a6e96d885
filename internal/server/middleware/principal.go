package middleware

import (
	"context"

	"github.com/DragaoTI/auth-service/internal/security"
)

// Principal is the authenticated caller extracted from a bearer token.
// Kind tells a panel administrator apart from an end user.
type Principal struct {
	ID   string
	Role string
	Kind security.Kind
}

type ctxKey int

const principalKey ctxKey = iota

// WithPrincipal returns ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the authenticated principal, if any.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
