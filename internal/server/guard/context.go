package guard

import (
	"context"

	"github.com/dmitrijs2005/filmkeeper/internal/server/models"
)

// Principal is the caller identity established by the guard, taken from
// the user record as it was at authorization time.
type Principal struct {
	UserID string
	Email  string
	Role   models.Role
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext returns the principal stored by the transport
// middleware. ok is false for public operations.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
