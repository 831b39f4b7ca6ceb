package tenancy_test

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"ms-events/internal/auth"
	"ms-events/internal/errs"
	"ms-events/internal/models"
	"ms-events/internal/tenancy"
)

type mockTenancyDB struct {
	tenants map[int64]*models.Tenant
	users   map[int64]*models.User
	nextID  int64
}

func newMockTenancyDB() *mockTenancyDB {
	return &mockTenancyDB{
		tenants: make(map[int64]*models.Tenant),
		users:   make(map[int64]*models.User),
		nextID:  1,
	}
}

func (m *mockTenancyDB) CreateTenant(_ context.Context, tenant *models.Tenant) error {
	tenant.ID = m.nextID
	m.nextID++
	m.tenants[tenant.ID] = tenant
	return nil
}

func (m *mockTenancyDB) GetTenantByID(_ context.Context, id int64) (*models.Tenant, error) {
	tenant, ok := m.tenants[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return tenant, nil
}

func (m *mockTenancyDB) TenantIDByName(_ context.Context, name string) (int64, error) {
	for _, t := range m.tenants {
		if t.Name == name {
			return t.ID, nil
		}
	}
	return 0, sql.ErrNoRows
}

func (m *mockTenancyDB) ListTenants(_ context.Context) ([]models.Tenant, error) {
	var out []models.Tenant
	for _, t := range m.tenants {
		out = append(out, *t)
	}
	return out, nil
}

func (m *mockTenancyDB) UpdateTenant(_ context.Context, tenant models.Tenant) error {
	m.tenants[tenant.ID] = &tenant
	return nil
}

func (m *mockTenancyDB) DeleteTenant(_ context.Context, id int64) error {
	delete(m.tenants, id)
	return nil
}

func (m *mockTenancyDB) CreateUser(_ context.Context, user *models.User) error {
	user.ID = m.nextID
	m.nextID++
	m.users[user.ID] = user
	return nil
}

func (m *mockTenancyDB) GetUserByID(_ context.Context, tenantID, id int64) (*models.User, error) {
	user, ok := m.users[id]
	if !ok || user.TenantID != tenantID {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockTenancyDB) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockTenancyDB) ListUsers(_ context.Context, tenantID int64) ([]models.User, error) {
	var out []models.User
	for _, u := range m.users {
		if u.TenantID == tenantID {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (m *mockTenancyDB) UpdateUser(_ context.Context, user models.User) error {
	m.users[user.ID] = &user
	return nil
}

func (m *mockTenancyDB) DeleteUser(_ context.Context, tenantID, id int64) error {
	user, ok := m.users[id]
	if ok && user.TenantID == tenantID {
		delete(m.users, id)
	}
	return nil
}

func newService(db *mockTenancyDB) *tenancy.Service {
	issuer := auth.NewTokenIssuer("test-secret-key", 15*time.Minute, 24*time.Hour)
	return tenancy.NewService(db, issuer)
}

func seedTenantWithUser(t *testing.T, db *mockTenancyDB, password string) (*models.Tenant, *models.User) {
	t.Helper()

	tenant := &models.Tenant{Name: "acme", Domain: "acme.example.com"}
	if err := db.CreateTenant(context.Background(), tenant); err != nil {
		t.Fatalf("failed to seed tenant: %v", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}
	user := &models.User{
		Username:     "ana",
		Email:        "ana@acme.example.com",
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		TenantID:     tenant.ID,
	}
	if err := db.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return tenant, user
}

func TestCreateTenantValidation(t *testing.T) {
	svc := newService(newMockTenancyDB())

	bad := []models.Tenant{
		{Name: "", Domain: "acme.example.com"},
		{Name: "acme", Domain: ""},
		{Name: strings.Repeat("x", 101), Domain: "acme.example.com"},
		{Name: "acme", Domain: strings.Repeat("x", 101)},
	}
	for _, tenant := range bad {
		tenant := tenant
		if err := svc.CreateTenant(context.Background(), &tenant); !errors.Is(err, errs.ErrInvalidIDs) {
			t.Errorf("CreateTenant(%q,%q) err = %v, want Invalid IDs", tenant.Name, tenant.Domain, err)
		}
	}

	good := models.Tenant{Name: "acme", Domain: "acme.example.com"}
	if err := svc.CreateTenant(context.Background(), &good); err != nil {
		t.Errorf("valid CreateTenant failed: %v", err)
	}
}

func TestLoginIssuesTenantScopedTokens(t *testing.T) {
	db := newMockTenancyDB()
	_, user := seedTenantWithUser(t, db, "hunter2")
	svc := newService(db)

	pair, err := svc.Login(context.Background(), "ana", "hunter2")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	issuer := auth.NewTokenIssuer("test-secret-key", 15*time.Minute, 24*time.Hour)
	claims, err := issuer.VerifyAccess(pair.Access)
	if err != nil {
		t.Fatalf("issued token did not verify: %v", err)
	}
	if claims.Subject != user.ID {
		t.Errorf("Subject = %d, want %d", claims.Subject, user.ID)
	}
	if claims.Tenant != "acme" {
		t.Errorf("Tenant = %q, want acme", claims.Tenant)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	db := newMockTenancyDB()
	seedTenantWithUser(t, db, "hunter2")
	svc := newService(db)

	if _, err := svc.Login(context.Background(), "ana", "wrong"); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Errorf("bad password: err = %v, want unauthenticated", err)
	}
	if _, err := svc.Login(context.Background(), "ghost", "hunter2"); !errors.Is(err, errs.ErrUnauthenticated) {
		t.Errorf("unknown user: err = %v, want unauthenticated", err)
	}
}

func TestCreateUserRoleMinting(t *testing.T) {
	db := newMockTenancyDB()
	tenant, _ := seedTenantWithUser(t, db, "hunter2")
	svc := newService(db)

	// A regular user asking for admin gets user.
	regular := auth.Principal{UserID: 1, TenantID: tenant.ID, Role: models.RoleUser}
	user, err := svc.CreateUser(context.Background(), regular, models.CreateUserRequest{
		Username: "ben", Password: "pw", Role: models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.Role != models.RoleUser {
		t.Errorf("non-admin minted role %q", user.Role)
	}

	// An admin asking for admin gets admin.
	admin := auth.Principal{UserID: 1, TenantID: tenant.ID, Role: models.RoleAdmin}
	user, err = svc.CreateUser(context.Background(), admin, models.CreateUserRequest{
		Username: "cal", Password: "pw", Role: models.RoleAdmin,
	})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.Role != models.RoleAdmin {
		t.Errorf("admin minted role %q, want admin", user.Role)
	}

	if user.TenantID != tenant.ID {
		t.Errorf("user created in tenant %d, want %d", user.TenantID, tenant.ID)
	}
}

func TestCreateUserHashesPassword(t *testing.T) {
	db := newMockTenancyDB()
	tenant, _ := seedTenantWithUser(t, db, "hunter2")
	svc := newService(db)

	p := auth.Principal{UserID: 1, TenantID: tenant.ID, Role: models.RoleUser}
	user, err := svc.CreateUser(context.Background(), p, models.CreateUserRequest{Username: "ben", Password: "pw"})
	if err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	if user.PasswordHash == "pw" || user.PasswordHash == "" {
		t.Error("password stored unhashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("pw")); err != nil {
		t.Errorf("stored hash does not match password: %v", err)
	}
}

func TestGetUserScopedToTenant(t *testing.T) {
	db := newMockTenancyDB()
	tenant, user := seedTenantWithUser(t, db, "hunter2")
	svc := newService(db)

	inside := auth.Principal{UserID: 99, TenantID: tenant.ID}
	if _, err := svc.GetUser(context.Background(), inside, user.ID); err != nil {
		t.Errorf("same-tenant lookup failed: %v", err)
	}

	outside := auth.Principal{UserID: 99, TenantID: tenant.ID + 1}
	if _, err := svc.GetUser(context.Background(), outside, user.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("cross-tenant lookup: err = %v, want not found", err)
	}
}
