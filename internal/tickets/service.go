package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"ms-events/internal/auth"
	"ms-events/internal/errs"
	"ms-events/internal/models"
)

// purchaseRetries bounds how often a purchase is replayed after a
// serialization failure before CONFLICT is surfaced.
const purchaseRetries = 3

type DBLayer interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error

	EventForUpdate(ctx context.Context, tx bun.IDB, tenantID, eventID int64) (*models.Event, error)
	SubEventForUpdate(ctx context.Context, tx bun.IDB, eventID, subEventID int64) (*models.SubEvent, error)
	TeamForUpdate(ctx context.Context, tx bun.IDB, eventID, teamID int64) (*models.Team, error)
	TeamMemberCount(ctx context.Context, tx bun.IDB, teamID int64) (int, error)
	CountByEvent(ctx context.Context, tx bun.IDB, eventID int64) (int, error)
	CountBySubEvent(ctx context.Context, tx bun.IDB, subEventID int64) (int, error)
	InsertTicket(ctx context.Context, tx bun.IDB, ticket *models.Ticket) error

	GetTicketByID(ctx context.Context, userID int64, ticketID string) (*models.Ticket, error)
	ListTicketsByUser(ctx context.Context, userID int64) ([]models.Ticket, error)
	DeleteTicket(ctx context.Context, userID int64, ticketID string) (int64, error)
}

type Publisher interface {
	PublishTicketPurchased(ticket models.Ticket) error
}

type Service struct {
	DB        DBLayer
	Publisher Publisher
}

func NewService(db DBLayer, publisher Publisher) *Service {
	return &Service{DB: db, Publisher: publisher}
}

// Purchase issues a ticket for the caller. All checks and the insert
// run inside one transaction with the event (and sub-event, team) rows
// locked, so the capacity snapshot cannot go stale between the check
// and the insert. Serialization failures are replayed up to three
// times before CONFLICT is returned.
func (s *Service) Purchase(ctx context.Context, p auth.Principal, req models.PurchaseRequest) (*models.Ticket, error) {
	var ticket *models.Ticket
	var err error

	for attempt := 0; attempt < purchaseRetries; attempt++ {
		ticket, err = s.purchaseOnce(ctx, p, req)
		if err == nil {
			break
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, errs.ErrTimeout
		}
		if !isSerializationFailure(err) {
			return nil, err
		}
	}
	if err != nil {
		return nil, errs.ErrConflict
	}

	if s.Publisher != nil {
		if pubErr := s.Publisher.PublishTicketPurchased(*ticket); pubErr != nil {
			// The ticket is committed; the stream catches up later.
			fmt.Printf("Kafka publish error (ticket purchased): %v\n", pubErr)
		}
	}
	return ticket, nil
}

func (s *Service) purchaseOnce(ctx context.Context, p auth.Principal, req models.PurchaseRequest) (*models.Ticket, error) {
	var ticket *models.Ticket

	err := s.DB.RunInTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		event, err := s.DB.EventForUpdate(ctx, tx, p.TenantID, req.EventID)
		if errors.Is(err, sql.ErrNoRows) {
			return errs.ErrInvalidIDs
		}
		if err != nil {
			return err
		}

		var subEvent *models.SubEvent
		if req.SubEventID != nil {
			subEvent, err = s.DB.SubEventForUpdate(ctx, tx, event.ID, *req.SubEventID)
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrInvalidIDs
			}
			if err != nil {
				return err
			}
		}

		var team *models.Team
		if req.TeamID != nil {
			team, err = s.DB.TeamForUpdate(ctx, tx, event.ID, *req.TeamID)
			if errors.Is(err, sql.ErrNoRows) {
				return errs.ErrInvalidIDs
			}
			if err != nil {
				return err
			}
			members, err := s.DB.TeamMemberCount(ctx, tx, team.ID)
			if err != nil {
				return err
			}
			if members < team.MinSize {
				return errs.ErrTeamBelowMin
			}
		}

		if subEvent != nil {
			ok, err := s.subEventAvailable(ctx, tx, *subEvent, 1)
			if err != nil {
				return err
			}
			if !ok {
				return errs.ErrSubEventFull
			}
		}

		ok, err := s.eventAvailable(ctx, tx, *event, 1)
		if err != nil {
			return err
		}
		if !ok {
			return errs.ErrEventFull
		}

		ticket = &models.Ticket{
			TicketID:    uuid.NewString(),
			UserID:      p.UserID,
			EventID:     event.ID,
			SubEventID:  req.SubEventID,
			TeamID:      req.TeamID,
			PurchasedAt: time.Now(),
		}
		return s.DB.InsertTicket(ctx, tx, ticket)
	})
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

// eventAvailable is the capacity accountant for events: true iff n more
// tickets still fit. The count is read under the event row lock.
func (s *Service) eventAvailable(ctx context.Context, tx bun.IDB, event models.Event, n int) (bool, error) {
	count, err := s.DB.CountByEvent(ctx, tx, event.ID)
	if err != nil {
		return false, err
	}
	return count+n <= event.Capacity, nil
}

func (s *Service) subEventAvailable(ctx context.Context, tx bun.IDB, subEvent models.SubEvent, n int) (bool, error) {
	count, err := s.DB.CountBySubEvent(ctx, tx, subEvent.ID)
	if err != nil {
		return false, err
	}
	return count+n <= subEvent.Capacity, nil
}

// ---------------- READS / CANCELLATION ----------------

// GetTicket returns the caller's ticket. Another user's ticket id, even
// inside the same tenant, looks exactly like a missing one.
func (s *Service) GetTicket(ctx context.Context, p auth.Principal, ticketID string) (*models.Ticket, error) {
	ticket, err := s.DB.GetTicketByID(ctx, p.UserID, ticketID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return ticket, nil
}

func (s *Service) ListTickets(ctx context.Context, p auth.Principal) ([]models.Ticket, error) {
	return s.DB.ListTicketsByUser(ctx, p.UserID)
}

// CancelTicket deletes the caller's ticket. Tickets have no update
// surface; cancellation is the only transition after issuance.
func (s *Service) CancelTicket(ctx context.Context, p auth.Principal, ticketID string) error {
	affected, err := s.DB.DeleteTicket(ctx, p.UserID, ticketID)
	if err != nil {
		return err
	}
	if affected == 0 {
		return errs.ErrNotFound
	}
	return nil
}

func isSerializationFailure(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "could not serialize") ||
		strings.Contains(msg, "deadlock detected") ||
		strings.Contains(msg, "40001") ||
		strings.Contains(msg, "40p01")
}
