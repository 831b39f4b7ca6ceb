package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"ms-events/internal/errs"
	"ms-events/internal/models"
)

// Claims is the verified content of a bearer token: who, which tenant,
// which role, and how long any derived state may be trusted.
type Claims struct {
	Subject   int64
	Tenant    string
	Role      string
	ExpiresAt time.Time
}

// TokenIssuer signs access and refresh tokens with the service's HMAC
// secret. Claims mirror what the platform has always issued: sub is the
// user id, tenant is the tenant name, role is admin or user.
type TokenIssuer struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenIssuer(secret string, accessTTL, refreshTTL time.Duration) *TokenIssuer {
	return &TokenIssuer{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

func (i *TokenIssuer) Issue(user models.User, tenantName string) (models.TokenPair, error) {
	access, err := i.sign(user.ID, tenantName, user.Role, "access", i.accessTTL)
	if err != nil {
		return models.TokenPair{}, err
	}
	refresh, err := i.sign(user.ID, tenantName, user.Role, "refresh", i.refreshTTL)
	if err != nil {
		return models.TokenPair{}, err
	}
	return models.TokenPair{Access: access, Refresh: refresh}, nil
}

// Refresh exchanges a valid refresh token for a new pair.
func (i *TokenIssuer) Refresh(refreshToken string) (models.TokenPair, error) {
	claims, typ, err := i.parse(refreshToken)
	if err != nil {
		return models.TokenPair{}, errs.ErrUnauthenticated
	}
	if typ != "refresh" {
		return models.TokenPair{}, errs.ErrUnauthenticated
	}
	return i.Issue(models.User{ID: claims.Subject, Role: claims.Role}, claims.Tenant)
}

// VerifyAccess validates an access token and returns its claims.
func (i *TokenIssuer) VerifyAccess(raw string) (Claims, error) {
	claims, typ, err := i.parse(raw)
	if err != nil {
		return Claims{}, err
	}
	if typ != "access" {
		return Claims{}, errors.New("not an access token")
	}
	return claims, nil
}

func (i *TokenIssuer) sign(userID int64, tenant, role, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    strconv.FormatInt(userID, 10),
		"tenant": tenant,
		"role":   role,
		"typ":    typ,
		"iat":    now.Unix(),
		"exp":    now.Add(ttl).Unix(),
	})
	return token.SignedString(i.secret)
}

func (i *TokenIssuer) parse(raw string) (Claims, string, error) {
	token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return i.secret, nil
	})
	if err != nil {
		return Claims{}, "", fmt.Errorf("failed to parse token: %w", err)
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Claims{}, "", errors.New("invalid token claims")
	}
	claims, err := claimsFromMap(mapClaims)
	if err != nil {
		return Claims{}, "", err
	}
	typ, _ := mapClaims["typ"].(string)
	return claims, typ, nil
}

func claimsFromMap(m jwt.MapClaims) (Claims, error) {
	sub, ok := m["sub"].(string)
	if !ok || sub == "" {
		return Claims{}, errors.New("subject claim not found in token")
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil {
		return Claims{}, fmt.Errorf("subject claim is not a user id: %w", err)
	}
	tenant, ok := m["tenant"].(string)
	if !ok || tenant == "" {
		return Claims{}, errors.New("tenant claim not found in token")
	}
	role, _ := m["role"].(string)
	if role == "" {
		role = models.RoleUser
	}
	var expiresAt time.Time
	if exp, ok := m["exp"].(float64); ok {
		expiresAt = time.Unix(int64(exp), 0)
	}
	return Claims{Subject: userID, Tenant: tenant, Role: role, ExpiresAt: expiresAt}, nil
}

// ExtractTokenFromRequest pulls the bearer token out of the
// Authorization header.
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}
	return parts[1], nil
}
