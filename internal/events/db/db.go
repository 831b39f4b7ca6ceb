package db

import (
	"context"
	"time"

	"github.com/uptrace/bun"

	"ms-events/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// Every query here carries the caller's tenant predicate. Sub-events
// and announcements reach their tenant through the parent event, so
// those queries join events to apply it.

// ---------------- EVENTS ----------------

func (d *DB) CreateEvent(ctx context.Context, event *models.Event) error {
	_, err := d.Bun.NewInsert().Model(event).Exec(ctx)
	return err
}

func (d *DB) GetEventByID(ctx context.Context, tenantID, id int64) (*models.Event, error) {
	var event models.Event
	err := d.Bun.NewSelect().
		Model(&event).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) ListEvents(ctx context.Context, tenantID int64) ([]models.Event, error) {
	var events []models.Event
	err := d.Bun.NewSelect().
		Model(&events).
		Where("tenant_id = ?", tenantID).
		Order("date").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (d *DB) UpdateEvent(ctx context.Context, event models.Event) error {
	event.UpdatedAt = time.Now()
	_, err := d.Bun.NewUpdate().
		Model(&event).
		Column("title", "description", "date", "location", "capacity", "updated_at").
		Where("id = ?", event.ID).
		Where("tenant_id = ?", event.TenantID).
		Exec(ctx)
	return err
}

// DeleteEventCascade removes an event and everything hanging off it in
// one transaction, matching the ownership lifecycle: sub-events, teams
// and their memberships, tickets, and announcements go with the event.
func (d *DB) DeleteEventCascade(ctx context.Context, eventID int64) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewDelete().Model((*models.Ticket)(nil)).Where("event_id = ?", eventID).Exec(ctx); err != nil {
			return err
		}
		var teamIDs []int64
		err := tx.NewSelect().
			Column("id").
			Table("teams").
			Where("event_id = ?", eventID).
			Scan(ctx, &teamIDs)
		if err != nil {
			return err
		}
		if len(teamIDs) > 0 {
			if _, err := tx.NewDelete().Model((*models.TeamMember)(nil)).Where("team_id IN (?)", bun.In(teamIDs)).Exec(ctx); err != nil {
				return err
			}
		}
		if _, err := tx.NewDelete().Model((*models.Team)(nil)).Where("event_id = ?", eventID).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.SubEvent)(nil)).Where("event_id = ?", eventID).Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.Announcement)(nil)).Where("event_id = ?", eventID).Exec(ctx); err != nil {
			return err
		}
		_, err = tx.NewDelete().Model((*models.Event)(nil)).Where("id = ?", eventID).Exec(ctx)
		return err
	})
}

// ---------------- SUB-EVENTS ----------------

func (d *DB) CreateSubEvent(ctx context.Context, subEvent *models.SubEvent) error {
	_, err := d.Bun.NewInsert().Model(subEvent).Exec(ctx)
	return err
}

func (d *DB) GetSubEventByID(ctx context.Context, tenantID, id int64) (*models.SubEvent, error) {
	var subEvent models.SubEvent
	err := d.Bun.NewSelect().
		Model(&subEvent).
		Join("JOIN events AS e ON e.id = sub_event.event_id").
		Where("sub_event.id = ?", id).
		Where("e.tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &subEvent, nil
}

func (d *DB) ListSubEvents(ctx context.Context, tenantID int64) ([]models.SubEvent, error) {
	var subEvents []models.SubEvent
	err := d.Bun.NewSelect().
		Model(&subEvents).
		Join("JOIN events AS e ON e.id = sub_event.event_id").
		Where("e.tenant_id = ?", tenantID).
		Order("sub_event.start_time").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return subEvents, nil
}

func (d *DB) UpdateSubEvent(ctx context.Context, subEvent models.SubEvent) error {
	_, err := d.Bun.NewUpdate().
		Model(&subEvent).
		Column("title", "description", "start_time", "end_time", "capacity").
		Where("id = ?", subEvent.ID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteSubEvent(ctx context.Context, id int64) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		// Tickets keep their sub-event link for as long as it exists;
		// removing the sub-event detaches them (SET NULL lifecycle).
		_, err := tx.NewUpdate().
			Model((*models.Ticket)(nil)).
			Set("sub_event_id = NULL").
			Where("sub_event_id = ?", id).
			Exec(ctx)
		if err != nil {
			return err
		}
		_, err = tx.NewDelete().Model((*models.SubEvent)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
}

// ---------------- ANNOUNCEMENTS ----------------

func (d *DB) CreateAnnouncement(ctx context.Context, a *models.Announcement) error {
	_, err := d.Bun.NewInsert().Model(a).Exec(ctx)
	return err
}

func (d *DB) GetAnnouncementByID(ctx context.Context, tenantID, id int64) (*models.Announcement, error) {
	var a models.Announcement
	err := d.Bun.NewSelect().
		Model(&a).
		Join("JOIN events AS e ON e.id = announcement.event_id").
		Where("announcement.id = ?", id).
		Where("e.tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (d *DB) ListAnnouncements(ctx context.Context, tenantID int64) ([]models.Announcement, error) {
	var announcements []models.Announcement
	err := d.Bun.NewSelect().
		Model(&announcements).
		Join("JOIN events AS e ON e.id = announcement.event_id").
		Where("e.tenant_id = ?", tenantID).
		Order("announcement.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return announcements, nil
}

func (d *DB) UpdateAnnouncement(ctx context.Context, a models.Announcement) error {
	_, err := d.Bun.NewUpdate().
		Model(&a).
		Column("title", "content").
		Where("id = ?", a.ID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteAnnouncement(ctx context.Context, id int64) error {
	_, err := d.Bun.NewDelete().
		Model((*models.Announcement)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	return err
}
