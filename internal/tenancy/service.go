package tenancy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"ms-events/internal/auth"
	"ms-events/internal/errs"
	"ms-events/internal/models"
)

const maxNameLen = 100

type DBLayer interface {
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	GetTenantByID(ctx context.Context, id int64) (*models.Tenant, error)
	TenantIDByName(ctx context.Context, name string) (int64, error)
	ListTenants(ctx context.Context) ([]models.Tenant, error)
	UpdateTenant(ctx context.Context, tenant models.Tenant) error
	DeleteTenant(ctx context.Context, id int64) error

	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, tenantID, id int64) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	ListUsers(ctx context.Context, tenantID int64) ([]models.User, error)
	UpdateUser(ctx context.Context, user models.User) error
	DeleteUser(ctx context.Context, tenantID, id int64) error
}

type Service struct {
	DB     DBLayer
	Issuer *auth.TokenIssuer
}

func NewService(db DBLayer, issuer *auth.TokenIssuer) *Service {
	return &Service{DB: db, Issuer: issuer}
}

// TenantIDByName implements auth.TenantResolver for the middleware.
func (s *Service) TenantIDByName(ctx context.Context, name string) (int64, error) {
	return s.DB.TenantIDByName(ctx, name)
}

// ---------------- TENANTS (platform admin only) ----------------

func (s *Service) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	if tenant.Name == "" || len(tenant.Name) > maxNameLen {
		return errs.ErrInvalidIDs
	}
	if tenant.Domain == "" || len(tenant.Domain) > maxNameLen {
		return errs.ErrInvalidIDs
	}
	if err := s.DB.CreateTenant(ctx, tenant); err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

func (s *Service) GetTenant(ctx context.Context, id int64) (*models.Tenant, error) {
	tenant, err := s.DB.GetTenantByID(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return tenant, nil
}

func (s *Service) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	return s.DB.ListTenants(ctx)
}

func (s *Service) UpdateTenant(ctx context.Context, tenant models.Tenant) error {
	if _, err := s.GetTenant(ctx, tenant.ID); err != nil {
		return err
	}
	return s.DB.UpdateTenant(ctx, tenant)
}

func (s *Service) DeleteTenant(ctx context.Context, id int64) error {
	if _, err := s.GetTenant(ctx, id); err != nil {
		return err
	}
	return s.DB.DeleteTenant(ctx, id)
}

// ---------------- USERS (tenant scoped) ----------------

func (s *Service) CreateUser(ctx context.Context, p auth.Principal, req models.CreateUserRequest) (*models.User, error) {
	if req.Username == "" || req.Password == "" {
		return nil, errs.ErrInvalidIDs
	}

	role := models.RoleUser
	// Only admins may mint other admins.
	if req.Role == models.RoleAdmin && p.IsAdmin() {
		role = models.RoleAdmin
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
		TenantID:     p.TenantID,
	}
	if err := s.DB.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *Service) GetUser(ctx context.Context, p auth.Principal, id int64) (*models.User, error) {
	user, err := s.DB.GetUserByID(ctx, p.TenantID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *Service) ListUsers(ctx context.Context, p auth.Principal) ([]models.User, error) {
	return s.DB.ListUsers(ctx, p.TenantID)
}

func (s *Service) UpdateUser(ctx context.Context, p auth.Principal, user models.User) error {
	if _, err := s.GetUser(ctx, p, user.ID); err != nil {
		return err
	}
	user.TenantID = p.TenantID
	return s.DB.UpdateUser(ctx, user)
}

func (s *Service) DeleteUser(ctx context.Context, p auth.Principal, id int64) error {
	if _, err := s.GetUser(ctx, p, id); err != nil {
		return err
	}
	return s.DB.DeleteUser(ctx, p.TenantID, id)
}

// ---------------- AUTH ----------------

// Login checks the credential and issues a token pair with the user's
// tenant name and role baked into the claims.
func (s *Service) Login(ctx context.Context, username, password string) (models.TokenPair, error) {
	user, err := s.DB.GetUserByUsername(ctx, username)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TokenPair{}, errs.ErrUnauthenticated
	}
	if err != nil {
		return models.TokenPair{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return models.TokenPair{}, errs.ErrUnauthenticated
	}

	tenant, err := s.DB.GetTenantByID(ctx, user.TenantID)
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("failed to resolve tenant for user %d: %w", user.ID, err)
	}

	return s.Issuer.Issue(*user, tenant.Name)
}

func (s *Service) Refresh(refreshToken string) (models.TokenPair, error) {
	return s.Issuer.Refresh(refreshToken)
}
