package auth_test

import (
	"testing"
	"time"

	"ms-events/internal/auth"
	"ms-events/internal/models"
)

func newIssuer() *auth.TokenIssuer {
	return auth.NewTokenIssuer("test-secret-key", 15*time.Minute, 24*time.Hour)
}

func TestIssueAndVerifyAccess(t *testing.T) {
	issuer := newIssuer()
	user := models.User{ID: 42, Role: models.RoleAdmin}

	pair, err := issuer.Issue(user, "acme")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if pair.Access == "" || pair.Refresh == "" {
		t.Fatal("Issue returned empty tokens")
	}

	claims, err := issuer.VerifyAccess(pair.Access)
	if err != nil {
		t.Fatalf("VerifyAccess failed: %v", err)
	}
	if claims.Subject != 42 {
		t.Errorf("Subject = %d, want 42", claims.Subject)
	}
	if claims.Tenant != "acme" {
		t.Errorf("Tenant = %q, want acme", claims.Tenant)
	}
	if claims.Role != models.RoleAdmin {
		t.Errorf("Role = %q, want admin", claims.Role)
	}
	remaining := time.Until(claims.ExpiresAt)
	if remaining <= 0 || remaining > 15*time.Minute {
		t.Errorf("ExpiresAt %v not within the access TTL", claims.ExpiresAt)
	}
}

func TestVerifyAccessRejectsRefreshToken(t *testing.T) {
	issuer := newIssuer()
	pair, err := issuer.Issue(models.User{ID: 1, Role: models.RoleUser}, "acme")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := issuer.VerifyAccess(pair.Refresh); err == nil {
		t.Error("VerifyAccess accepted a refresh token")
	}
}

func TestVerifyAccessRejectsWrongSecret(t *testing.T) {
	pair, err := newIssuer().Issue(models.User{ID: 1, Role: models.RoleUser}, "acme")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	other := auth.NewTokenIssuer("a-different-secret", 15*time.Minute, 24*time.Hour)
	if _, err := other.VerifyAccess(pair.Access); err == nil {
		t.Error("VerifyAccess accepted a token signed with a different secret")
	}
}

func TestVerifyAccessRejectsExpiredToken(t *testing.T) {
	issuer := auth.NewTokenIssuer("test-secret-key", -time.Minute, 24*time.Hour)
	pair, err := issuer.Issue(models.User{ID: 1, Role: models.RoleUser}, "acme")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := issuer.VerifyAccess(pair.Access); err == nil {
		t.Error("VerifyAccess accepted an expired token")
	}
}

func TestRefreshRotatesPair(t *testing.T) {
	issuer := newIssuer()
	pair, err := issuer.Issue(models.User{ID: 7, Role: models.RoleUser}, "acme")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	rotated, err := issuer.Refresh(pair.Refresh)
	if err != nil {
		t.Fatalf("Refresh failed: %v", err)
	}

	claims, err := issuer.VerifyAccess(rotated.Access)
	if err != nil {
		t.Fatalf("VerifyAccess on rotated pair failed: %v", err)
	}
	if claims.Subject != 7 || claims.Tenant != "acme" {
		t.Errorf("rotated claims = %+v, want subject 7 tenant acme", claims)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	issuer := newIssuer()
	pair, err := issuer.Issue(models.User{ID: 7, Role: models.RoleUser}, "acme")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := issuer.Refresh(pair.Access); err == nil {
		t.Error("Refresh accepted an access token")
	}
}
