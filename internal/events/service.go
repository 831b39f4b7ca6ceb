package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"ms-events/internal/auth"
	"ms-events/internal/errs"
	"ms-events/internal/models"
)

type DBLayer interface {
	CreateEvent(ctx context.Context, event *models.Event) error
	GetEventByID(ctx context.Context, tenantID, id int64) (*models.Event, error)
	ListEvents(ctx context.Context, tenantID int64) ([]models.Event, error)
	UpdateEvent(ctx context.Context, event models.Event) error
	DeleteEventCascade(ctx context.Context, eventID int64) error

	CreateSubEvent(ctx context.Context, subEvent *models.SubEvent) error
	GetSubEventByID(ctx context.Context, tenantID, id int64) (*models.SubEvent, error)
	ListSubEvents(ctx context.Context, tenantID int64) ([]models.SubEvent, error)
	UpdateSubEvent(ctx context.Context, subEvent models.SubEvent) error
	DeleteSubEvent(ctx context.Context, id int64) error

	CreateAnnouncement(ctx context.Context, a *models.Announcement) error
	GetAnnouncementByID(ctx context.Context, tenantID, id int64) (*models.Announcement, error)
	ListAnnouncements(ctx context.Context, tenantID int64) ([]models.Announcement, error)
	UpdateAnnouncement(ctx context.Context, a models.Announcement) error
	DeleteAnnouncement(ctx context.Context, id int64) error
}

// Publisher receives announcement events after they are stored.
type Publisher interface {
	PublishAnnouncementCreated(a models.Announcement) error
}

type Service struct {
	DB        DBLayer
	Publisher Publisher
}

func NewService(db DBLayer, publisher Publisher) *Service {
	return &Service{DB: db, Publisher: publisher}
}

func notFoundOr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return errs.ErrNotFound
	}
	return err
}

// ---------------- EVENTS ----------------

// CreateEvent stores a new event owned by the caller. The tenant and
// creator always come from the principal, never from the payload.
func (s *Service) CreateEvent(ctx context.Context, p auth.Principal, event *models.Event) error {
	if event.Capacity < 0 {
		return errs.ErrInvalidIDs
	}
	event.TenantID = p.TenantID
	event.CreatedBy = p.UserID
	if err := s.DB.CreateEvent(ctx, event); err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}
	return nil
}

func (s *Service) GetEvent(ctx context.Context, p auth.Principal, id int64) (*models.Event, error) {
	event, err := s.DB.GetEventByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return event, nil
}

func (s *Service) ListEvents(ctx context.Context, p auth.Principal) ([]models.Event, error) {
	return s.DB.ListEvents(ctx, p.TenantID)
}

// UpdateEvent requires the caller to be the event's creator.
func (s *Service) UpdateEvent(ctx context.Context, p auth.Principal, event models.Event) error {
	existing, err := s.GetEvent(ctx, p, event.ID)
	if err != nil {
		return err
	}
	if err := auth.CanModifyEvent(p, *existing); err != nil {
		return err
	}
	if event.Capacity < 0 {
		return errs.ErrInvalidIDs
	}
	event.TenantID = p.TenantID
	return s.DB.UpdateEvent(ctx, event)
}

func (s *Service) DeleteEvent(ctx context.Context, p auth.Principal, id int64) error {
	existing, err := s.GetEvent(ctx, p, id)
	if err != nil {
		return err
	}
	if err := auth.CanModifyEvent(p, *existing); err != nil {
		return err
	}
	return s.DB.DeleteEventCascade(ctx, id)
}

// ---------------- SUB-EVENTS ----------------

func (s *Service) CreateSubEvent(ctx context.Context, p auth.Principal, subEvent *models.SubEvent) error {
	// Parent must exist inside the caller's tenant.
	if _, err := s.GetEvent(ctx, p, subEvent.EventID); err != nil {
		return err
	}
	if subEvent.Capacity < 0 || subEvent.StartTime.After(subEvent.EndTime) {
		return errs.ErrInvalidIDs
	}
	if err := s.DB.CreateSubEvent(ctx, subEvent); err != nil {
		return fmt.Errorf("failed to create sub-event: %w", err)
	}
	return nil
}

func (s *Service) GetSubEvent(ctx context.Context, p auth.Principal, id int64) (*models.SubEvent, error) {
	subEvent, err := s.DB.GetSubEventByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return subEvent, nil
}

func (s *Service) ListSubEvents(ctx context.Context, p auth.Principal) ([]models.SubEvent, error) {
	return s.DB.ListSubEvents(ctx, p.TenantID)
}

func (s *Service) UpdateSubEvent(ctx context.Context, p auth.Principal, subEvent models.SubEvent) error {
	existing, err := s.GetSubEvent(ctx, p, subEvent.ID)
	if err != nil {
		return err
	}
	if subEvent.Capacity < 0 || subEvent.StartTime.After(subEvent.EndTime) {
		return errs.ErrInvalidIDs
	}
	subEvent.EventID = existing.EventID
	return s.DB.UpdateSubEvent(ctx, subEvent)
}

func (s *Service) DeleteSubEvent(ctx context.Context, p auth.Principal, id int64) error {
	if _, err := s.GetSubEvent(ctx, p, id); err != nil {
		return err
	}
	return s.DB.DeleteSubEvent(ctx, id)
}

// ---------------- ANNOUNCEMENTS ----------------

func (s *Service) CreateAnnouncement(ctx context.Context, p auth.Principal, a *models.Announcement) error {
	if _, err := s.GetEvent(ctx, p, a.EventID); err != nil {
		return err
	}
	a.CreatedBy = p.UserID
	if err := s.DB.CreateAnnouncement(ctx, a); err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}
	if s.Publisher != nil {
		if err := s.Publisher.PublishAnnouncementCreated(*a); err != nil {
			// Best effort; the announcement row is already committed.
			fmt.Printf("Kafka publish error (announcement created): %v\n", err)
		}
	}
	return nil
}

func (s *Service) GetAnnouncement(ctx context.Context, p auth.Principal, id int64) (*models.Announcement, error) {
	a, err := s.DB.GetAnnouncementByID(ctx, p.TenantID, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return a, nil
}

func (s *Service) ListAnnouncements(ctx context.Context, p auth.Principal) ([]models.Announcement, error) {
	return s.DB.ListAnnouncements(ctx, p.TenantID)
}

func (s *Service) UpdateAnnouncement(ctx context.Context, p auth.Principal, a models.Announcement) error {
	if _, err := s.GetAnnouncement(ctx, p, a.ID); err != nil {
		return err
	}
	return s.DB.UpdateAnnouncement(ctx, a)
}

func (s *Service) DeleteAnnouncement(ctx context.Context, p auth.Principal, id int64) error {
	if _, err := s.GetAnnouncement(ctx, p, id); err != nil {
		return err
	}
	return s.DB.DeleteAnnouncement(ctx, id)
}
