package event_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/auth"
	"ms-events/internal/errs"
	"ms-events/internal/events"
	"ms-events/internal/logger"
	"ms-events/internal/models"
)

type Handler struct {
	EventService *events.Service
	Logger       *logger.Logger
}

func NewHandler(eventService *events.Service, log *logger.Logger) *Handler {
	return &Handler{EventService: eventService, Logger: log}
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

func (h *Handler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		errs.Write(w, errs.ErrInvalidIDs)
		return
	}

	if err := h.EventService.CreateEvent(r.Context(), p, &event); err != nil {
		errs.Write(w, err)
		return
	}

	h.Logger.Info("EVENT", fmt.Sprintf("event %d created by user %d", event.ID, p.UserID))
	writeJSON(w, http.StatusCreated, event)
}

func (h *Handler) GetEvent(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "eventID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	event, err := h.EventService.GetEvent(r.Context(), p, id)
	if err != nil {
		errs.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	list, err := h.EventService.ListEvents(r.Context(), p)
	if err != nil {
		errs.Write(w, err)
		return
	}
	if list == nil {
		list = []models.Event{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "eventID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	var event models.Event
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		errs.Write(w, errs.ErrInvalidIDs)
		return
	}
	event.ID = id

	if err := h.EventService.UpdateEvent(r.Context(), p, event); err != nil {
		errs.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, event)
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "eventID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	if err := h.EventService.DeleteEvent(r.Context(), p, id); err != nil {
		errs.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateSubEvent(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	var subEvent models.SubEvent
	if err := json.NewDecoder(r.Body).Decode(&subEvent); err != nil {
		errs.Write(w, errs.ErrInvalidIDs)
		return
	}

	if err := h.EventService.CreateSubEvent(r.Context(), p, &subEvent); err != nil {
		errs.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, subEvent)
}

func (h *Handler) GetSubEvent(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "subEventID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	subEvent, err := h.EventService.GetSubEvent(r.Context(), p, id)
	if err != nil {
		errs.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subEvent)
}

func (h *Handler) ListSubEvents(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	list, err := h.EventService.ListSubEvents(r.Context(), p)
	if err != nil {
		errs.Write(w, err)
		return
	}
	if list == nil {
		list = []models.SubEvent{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateSubEvent(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "subEventID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	var subEvent models.SubEvent
	if err := json.NewDecoder(r.Body).Decode(&subEvent); err != nil {
		errs.Write(w, errs.ErrInvalidIDs)
		return
	}
	subEvent.ID = id

	if err := h.EventService.UpdateSubEvent(r.Context(), p, subEvent); err != nil {
		errs.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subEvent)
}

func (h *Handler) DeleteSubEvent(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "subEventID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	if err := h.EventService.DeleteSubEvent(r.Context(), p, id); err != nil {
		errs.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	var a models.Announcement
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		errs.Write(w, errs.ErrInvalidIDs)
		return
	}

	if err := h.EventService.CreateAnnouncement(r.Context(), p, &a); err != nil {
		errs.Write(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (h *Handler) GetAnnouncement(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "announcementID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	a, err := h.EventService.GetAnnouncement(r.Context(), p, id)
	if err != nil {
		errs.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) ListAnnouncements(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	list, err := h.EventService.ListAnnouncements(r.Context(), p)
	if err != nil {
		errs.Write(w, err)
		return
	}
	if list == nil {
		list = []models.Announcement{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) UpdateAnnouncement(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "announcementID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	var a models.Announcement
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		errs.Write(w, errs.ErrInvalidIDs)
		return
	}
	a.ID = id

	if err := h.EventService.UpdateAnnouncement(r.Context(), p, a); err != nil {
		errs.Write(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func (h *Handler) DeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	id, err := parseID(r, "announcementID")
	if err != nil {
		errs.Write(w, err)
		return
	}

	if err := h.EventService.DeleteAnnouncement(r.Context(), p, id); err != nil {
		errs.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Post("/", h.CreateEvent)
		r.Get("/{eventID}", h.GetEvent)
		r.Put("/{eventID}", h.UpdateEvent)
		r.Delete("/{eventID}", h.DeleteEvent)
	})
	r.Route("/sub-events", func(r chi.Router) {
		r.Get("/", h.ListSubEvents)
		r.Post("/", h.CreateSubEvent)
		r.Get("/{subEventID}", h.GetSubEvent)
		r.Put("/{subEventID}", h.UpdateSubEvent)
		r.Delete("/{subEventID}", h.DeleteSubEvent)
	})
	r.Route("/announcements", func(r chi.Router) {
		r.Get("/", h.ListAnnouncements)
		r.Post("/", h.CreateAnnouncement)
		r.Get("/{announcementID}", h.GetAnnouncement)
		r.Put("/{announcementID}", h.UpdateAnnouncement)
		r.Delete("/{announcementID}", h.DeleteAnnouncement)
	})
}
