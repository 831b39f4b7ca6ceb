package auth

import (
	"context"
	"fmt"
	"net/http"

	"github.com/coreos/go-oidc/v3/oidc"

	"ms-events/internal/errs"
)

// TenantResolver maps the token's tenant claim (the tenant name) to the
// tenant row id. Unknown tenants are treated as authentication
// failures, not as probes into tenant existence.
type TenantResolver interface {
	TenantIDByName(ctx context.Context, name string) (int64, error)
}

// TokenVerifier validates a raw bearer token and returns its claims.
type TokenVerifier interface {
	VerifyAccess(raw string) (Claims, error)
}

// oidcVerifier adapts an external OIDC issuer to TokenVerifier. Used
// when OIDC_ISSUER is configured; otherwise tokens are verified with
// the local HMAC secret.
type oidcVerifier struct {
	verifier *oidc.IDTokenVerifier
}

func NewOIDCVerifier(issuer string) (TokenVerifier, error) {
	provider, err := oidc.NewProvider(context.Background(), issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}
	return &oidcVerifier{
		verifier: provider.Verifier(&oidc.Config{SkipClientIDCheck: true}),
	}, nil
}

func (v *oidcVerifier) VerifyAccess(raw string) (Claims, error) {
	idToken, err := v.verifier.Verify(context.Background(), raw)
	if err != nil {
		return Claims{}, fmt.Errorf("invalid token: %w", err)
	}

	var c struct {
		Sub    string `json:"sub"`
		Tenant string `json:"tenant"`
		Role   string `json:"role"`
	}
	if err := idToken.Claims(&c); err != nil {
		return Claims{}, fmt.Errorf("failed to parse claims: %w", err)
	}
	claims, err := claimsFromMap(map[string]interface{}{
		"sub":    c.Sub,
		"tenant": c.Tenant,
		"role":   c.Role,
	})
	if err != nil {
		return Claims{}, err
	}
	claims.ExpiresAt = idToken.Expiry
	return claims, nil
}

// Middleware authenticates every request in its group: it extracts the
// bearer token, verifies it (consulting the principal cache first),
// resolves the tenant claim to a row id, and stores the Principal in
// the request context.
func Middleware(verifier TokenVerifier, resolver TenantResolver, cache *PrincipalCache) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				errs.Write(w, errs.ErrUnauthenticated)
				return
			}

			if cached, err := cache.Get(r.Context(), rawToken); err == nil && cached != nil {
				next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), *cached)))
				return
			}

			claims, err := verifier.VerifyAccess(rawToken)
			if err != nil {
				errs.Write(w, errs.ErrUnauthenticated)
				return
			}

			tenantID, err := resolver.TenantIDByName(r.Context(), claims.Tenant)
			if err != nil {
				errs.Write(w, errs.ErrUnauthenticated)
				return
			}

			p := Principal{
				UserID:   claims.Subject,
				TenantID: tenantID,
				Tenant:   claims.Tenant,
				Role:     claims.Role,
			}
			_ = cache.Set(r.Context(), rawToken, p, claims.ExpiresAt)

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAdmin gates the tenant CRUD surface: only platform admins pass.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := FromContext(r.Context())
		if !ok {
			errs.Write(w, errs.ErrUnauthenticated)
			return
		}
		if !p.IsAdmin() {
			errs.Write(w, errs.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
