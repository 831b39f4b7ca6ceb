package team_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/auth"
	"ms-events/internal/errs"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/teams"
)

type Handler struct {
	TeamService *teams.Service
	Logger      *logger.Logger
}

func NewHandler(teamService *teams.Service, log *logger.Logger) *Handler {
	return &Handler{TeamService: teamService, Logger: log}
}

func parseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.ErrInvalidIDs
	}
	return id, nil
}

func (h *Handler) CreateTeam(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	var team models.Team
	if err := json.NewDecoder(r.Body).Decode(&team); err != nil {
		errs.Write(w, errs.ErrInvalidIDs)
		return
	}

	if err := h.TeamService.CreateTeam(r.Context(), p, &team); err != nil {
		errs.Write(w, err)
		return
	}

	h.Logger.LogTeam("create", team.ID, fmt.Sprintf("created by user %d for event %d", p.UserID, team.EventID))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(team)
}

func (h *Handler) GetTeam(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "teamID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	team, err := h.TeamService.GetTeam(r.Context(), p, id)
	if err != nil {
		errs.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(team)
}

func (h *Handler) ListTeams(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	list, err := h.TeamService.ListTeams(r.Context(), p)
	if err != nil {
		errs.Write(w, err)
		return
	}
	if list == nil {
		list = []models.Team{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func (h *Handler) UpdateTeam(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "teamID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	var team models.Team
	if err := json.NewDecoder(r.Body).Decode(&team); err != nil {
		errs.Write(w, errs.ErrInvalidIDs)
		return
	}
	team.ID = id

	if err := h.TeamService.UpdateTeam(r.Context(), p, team); err != nil {
		errs.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(team)
}

func (h *Handler) DeleteTeam(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "teamID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	if err := h.TeamService.DeleteTeam(r.Context(), p, id); err != nil {
		errs.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "teamID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	members, err := h.TeamService.ListMembers(r.Context(), p, id)
	if err != nil {
		errs.Write(w, err)
		return
	}
	if members == nil {
		members = []models.User{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(members)
}

// JoinTeam handles POST /api/teams/{teamID}/join_team for the calling user.
func (h *Handler) JoinTeam(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "teamID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	if _, err := h.TeamService.Join(r.Context(), p, id); err != nil {
		h.Logger.LogTeam("join", id, fmt.Sprintf("user %d rejected: %v", p.UserID, err))
		errs.Write(w, err)
		return
	}

	h.Logger.LogTeam("join", id, fmt.Sprintf("user %d joined", p.UserID))
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Joined team successfully"})
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/teams", func(r chi.Router) {
		r.Get("/", h.ListTeams)
		r.Post("/", h.CreateTeam)
		r.Get("/{teamID}", h.GetTeam)
		r.Put("/{teamID}", h.UpdateTeam)
		r.Delete("/{teamID}", h.DeleteTeam)
		r.Get("/{teamID}/members", h.ListMembers)
		r.Post("/{teamID}/join_team", h.JoinTeam)
	})
}
