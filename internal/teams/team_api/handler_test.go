package team_api_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/uptrace/bun"

	"ms-events/internal/auth"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/teams"
	"ms-events/internal/teams/team_api"
)

type fakeTeamDB struct {
	team    models.Team
	members map[int64]bool
}

func newFakeTeamDB() *fakeTeamDB {
	return &fakeTeamDB{
		team:    models.Team{ID: 1, Name: "Alpha", EventID: 10, MinSize: 1, MaxSize: 2},
		members: make(map[int64]bool),
	}
}

func (f *fakeTeamDB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return fn(ctx, bun.Tx{})
}

func (f *fakeTeamDB) EventExists(_ context.Context, tenantID, eventID int64) (bool, error) {
	return tenantID == 1 && eventID == 10, nil
}

func (f *fakeTeamDB) CreateTeam(_ context.Context, team *models.Team) error {
	team.ID = 2
	return nil
}

func (f *fakeTeamDB) GetTeamByID(_ context.Context, tenantID, id int64) (*models.Team, error) {
	if tenantID != 1 || id != f.team.ID {
		return nil, sql.ErrNoRows
	}
	return &f.team, nil
}

func (f *fakeTeamDB) TeamForUpdate(ctx context.Context, _ bun.IDB, tenantID, id int64) (*models.Team, error) {
	return f.GetTeamByID(ctx, tenantID, id)
}

func (f *fakeTeamDB) ListTeams(_ context.Context, tenantID int64) ([]models.Team, error) {
	if tenantID != 1 {
		return nil, nil
	}
	return []models.Team{f.team}, nil
}

func (f *fakeTeamDB) UpdateTeam(_ context.Context, team models.Team) error {
	f.team = team
	return nil
}

func (f *fakeTeamDB) DeleteTeam(_ context.Context, _ int64) error { return nil }

func (f *fakeTeamDB) MemberCount(_ context.Context, _ bun.IDB, _ int64) (int, error) {
	return len(f.members), nil
}

func (f *fakeTeamDB) IsMember(_ context.Context, _ bun.IDB, _, userID int64) (bool, error) {
	return f.members[userID], nil
}

func (f *fakeTeamDB) AddMember(_ context.Context, _ bun.IDB, member *models.TeamMember) error {
	f.members[member.UserID] = true
	return nil
}

func (f *fakeTeamDB) ListMembers(_ context.Context, _ int64) ([]models.User, error) {
	var out []models.User
	for id := range f.members {
		out = append(out, models.User{ID: id})
	}
	return out, nil
}

func newRouter(db *fakeTeamDB, userID int64) chi.Router {
	handler := team_api.NewHandler(teams.NewService(db, nil), logger.NewLogger())

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := auth.Principal{UserID: userID, TenantID: 1, Tenant: "acme", Role: models.RoleUser}
			next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
		})
	})
	r.Route("/api", handler.RegisterRoutes)
	return r
}

func TestJoinTeamEndpoint(t *testing.T) {
	r := newRouter(newFakeTeamDB(), 7)

	req := httptest.NewRequest(http.MethodPost, "/api/teams/1/join_team", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["message"] != "Joined team successfully" {
		t.Errorf("message = %q, want Joined team successfully", body["message"])
	}
}

func TestJoinTeamEndpointFull(t *testing.T) {
	db := newFakeTeamDB()
	db.members[1] = true
	db.members[2] = true
	r := newRouter(db, 7)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/teams/1/join_team", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] != "Team is full" {
		t.Errorf("body = %v, want error=Team is full", body)
	}
}

func TestJoinTeamEndpointAlreadyMember(t *testing.T) {
	db := newFakeTeamDB()
	db.members[7] = true
	r := newRouter(db, 7)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/teams/1/join_team", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if body["error"] != "Already a member" {
		t.Errorf("body = %v, want error=Already a member", body)
	}
}

func TestJoinUnknownTeamEndpoint(t *testing.T) {
	r := newRouter(newFakeTeamDB(), 7)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/teams/99/join_team", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if _, ok := body["detail"]; !ok {
		t.Errorf("404 body must carry a detail field: %v", body)
	}
}

func TestJoinTeamEndpointBadID(t *testing.T) {
	r := newRouter(newFakeTeamDB(), 7)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/teams/abc/join_team", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}
