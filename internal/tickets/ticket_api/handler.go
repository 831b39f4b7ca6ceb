package ticket_api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ms-events/internal/auth"
	"ms-events/internal/errs"
	"ms-events/internal/logger"
	"ms-events/internal/models"
	"ms-events/internal/tickets"
)

type Handler struct {
	TicketService *tickets.Service
	QRGenerator   *tickets.QRGenerator
	Logger        *logger.Logger
}

func NewHandler(ticketService *tickets.Service, qrGenerator *tickets.QRGenerator, log *logger.Logger) *Handler {
	return &Handler{
		TicketService: ticketService,
		QRGenerator:   qrGenerator,
		Logger:        log,
	}
}

// Purchase handles POST /api/tickets/purchase. The caller can only buy
// for themselves; the tenant comes from the token.
func (h *Handler) Purchase(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	var req models.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errs.Write(w, errs.ErrInvalidIDs)
		return
	}
	if req.UserID != nil {
		if err := auth.CanCreateTicketFor(p, *req.UserID); err != nil {
			errs.Write(w, err)
			return
		}
	}

	ticket, err := h.TicketService.Purchase(r.Context(), p, req)
	if err != nil {
		h.Logger.Error("PURCHASE", fmt.Sprintf("purchase failed for user %d event %d: %v", p.UserID, req.EventID, err))
		errs.Write(w, err)
		return
	}

	h.Logger.LogPurchase(ticket.TicketID, fmt.Sprintf("issued to user %d for event %d", p.UserID, ticket.EventID))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(ticket)
}

func (h *Handler) ListTickets(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	list, err := h.TicketService.ListTickets(r.Context(), p)
	if err != nil {
		errs.Write(w, err)
		return
	}
	if list == nil {
		list = []models.Ticket{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(list)
}

func (h *Handler) ViewTicket(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	ticket, err := h.TicketService.GetTicket(r.Context(), p, chi.URLParam(r, "ticketID"))
	if err != nil {
		errs.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(ticket)
}

func (h *Handler) DeleteTicket(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	if err := h.TicketService.CancelTicket(r.Context(), p, chi.URLParam(r, "ticketID")); err != nil {
		errs.Write(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TicketQR renders the caller's ticket as a PNG QR code.
func (h *Handler) TicketQR(w http.ResponseWriter, r *http.Request) {
	p, err := auth.MustPrincipal(r.Context())
	if err != nil {
		errs.Write(w, err)
		return
	}

	ticket, err := h.TicketService.GetTicket(r.Context(), p, chi.URLParam(r, "ticketID"))
	if err != nil {
		errs.Write(w, err)
		return
	}

	png, err := h.QRGenerator.TicketQR(*ticket)
	if err != nil {
		h.Logger.Error("QR", fmt.Sprintf("failed to render QR for ticket %s: %v", ticket.TicketID, err))
		errs.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Write(png)
}

// RegisterRoutes mounts the ticket surface under /tickets.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/tickets", func(r chi.Router) {
		r.Get("/", h.ListTickets)
		r.Post("/purchase", h.Purchase)
		r.Get("/{ticketID}", h.ViewTicket)
		r.Get("/{ticketID}/qr", h.TicketQR)
		r.Delete("/{ticketID}", h.DeleteTicket)
	})
}
