package auth

import (
	"context"

	"ms-events/internal/errs"
	"ms-events/internal/models"
)

// Principal is the verified identity a request acts as. TenantID is
// resolved from the token's tenant claim before any handler runs, so
// services only ever see row ids.
type Principal struct {
	UserID   int64  `json:"user_id"`
	TenantID int64  `json:"tenant_id"`
	Tenant   string `json:"tenant"`
	Role     string `json:"role"`
}

func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

type contextKey string

const principalKey contextKey = "principal"

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// FromContext returns the request principal. Handlers behind the auth
// middleware can rely on ok being true.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}

// MustPrincipal is FromContext with the UNAUTHENTICATED error already
// shaped for the boundary.
func MustPrincipal(ctx context.Context) (Principal, error) {
	p, ok := FromContext(ctx)
	if !ok {
		return Principal{}, errs.ErrUnauthenticated
	}
	return p, nil
}
