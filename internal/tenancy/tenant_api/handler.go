package tenant_api

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
	"ms-events/internal/tenancy"
)

type Handler struct {
	TenantService *tenancy.Service
	Logger        *logger.Logger
}

func NewHandler(tenantService *tenancy.Service, log *logger.Logger) *Handler {
	return &Handler{TenantService: tenantService, Logger: log}
}

func parseID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errs.ErrInvalidIDs
	}
	return id, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) CreateTenant(w http.ResponseWriter, r *http.Request) {
	var tenant models.Tenant
	if err := json.NewDecoder(r.Body).Decode(&tenant); err != nil {
		errs.Write(w, errs.ErrInvalidIDs)
		return
	}

	if err := h.TenantService.CreateTenant(r.Context(), &tenant); err != nil {
		errs.Write(w, err)
		return
	}

	h.Logger.Info("TENANT", fmt.Sprintf("tenant %q created", tenant.Name))
	writeJSON(w, http.StatusCreated, tenant)
}

func (h *Handler) GetTenant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "tenantID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	tenant, err := h.TenantService.GetTenant(r.Context(), id)
	if err != nil {
		errs.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

func (h *Handler) ListTenants(w http.ResponseWriter, r *http.Request) {
	list, err := h.TenantService.ListTenants(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}
	if list == nil {
		list = []models.Tenant{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "tenantID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	var tenant models.Tenant
	if err := json.NewDecoder(r.Body).Decode(&tenant); err != nil {
		errs.Write(w, errs.ErrInvalidIDs)
		return
	}
	tenant.ID = id

	if err := h.TenantService.UpdateTenant(r.Context(), tenant); err != nil {
		errs.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

func (h *Handler) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "tenantID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	if err := h.TenantService.DeleteTenant(r.Context(), id); err != nil {
		errs.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	var req models.CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errs.Write(w, errs.ErrInvalidIDs)
		return
	}

	user, err := h.TenantService.CreateUser(r.Context(), p, req)
	if err != nil {
		errs.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "userID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	user, err := h.TenantService.GetUser(r.Context(), p, id)
	if err != nil {
		errs.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	list, err := h.TenantService.ListUsers(r.Context(), p)
	if err != nil {
		errs.Write(w, err)
		return
	}
	if list == nil {
		list = []models.User{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "userID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	var user models.User
	if err := json.NewDecoder(r.Body).Decode(&user); err != nil {
		errs.Write(w, errs.ErrInvalidIDs)
		return
	}
	user.ID = id

	if err := h.TenantService.UpdateUser(r.Context(), p, user); err != nil {
		errs.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "userID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	if err := h.TenantService.DeleteUser(r.Context(), p, id); err != nil {
		errs.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Login exchanges credentials for an access/refresh token pair.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errs.Write(w, errs.ErrUnauthenticated)
		return
	}

	pair, err := h.TenantService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.Logger.LogAuth(req.Username, fmt.Sprintf("login rejected: %v", err))
		errs.Write(w, err)
		return
	}

	h.Logger.LogAuth(req.Username, "login succeeded")
	writeJSON(w, http.StatusOK, pair)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req models.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errs.Write(w, errs.ErrUnauthenticated)
		return
	}

	pair, err := h.TenantService.Refresh(req.RefreshToken)
	if err != nil {
		errs.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pair)
}

// RegisterAuthRoutes mounts the unauthenticated login surface.
func (h *Handler) RegisterAuthRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/refresh", h.Refresh)
	})
}

// RegisterTenantRoutes mounts the tenant CRUD surface; callers are
// expected to gate it behind an admin check.
func (h *Handler) RegisterTenantRoutes(r chi.Router) {
	r.Route("/tenants", func(r chi.Router) {
		r.Get("/", h.ListTenants)
		r.Post("/", h.CreateTenant)
		r.Get("/{tenantID}", h.GetTenant)
		r.Put("/{tenantID}", h.UpdateTenant)
		r.Delete("/{tenantID}", h.DeleteTenant)
	})
}

// RegisterUserRoutes mounts user management inside the caller's tenant.
func (h *Handler) RegisterUserRoutes(r chi.Router) {
	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Get("/{userID}", h.GetUser)
		r.Put("/{userID}", h.UpdateUser)
		r.Delete("/{userID}", h.DeleteUser)
	})
}
