package db

import (
	"context"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"

	"ms-events/internal/models"
)

type DB struct {
	Bun *bun.DB
}

func (d *DB) lockRows() bool {
	return d.Bun.Dialect().Name() == dialect.PG
}

func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return d.Bun.RunInTx(ctx, nil, fn)
}

// ---------------- PURCHASE RESOLUTION (inside tx) ----------------

// EventForUpdate resolves the event inside the caller's tenant and
// locks its row. Every capacity count that follows in the same
// transaction reads under this lock. SQLite serializes writers on its
// own, so the lock clause is applied only where the dialect needs it.
func (d *DB) EventForUpdate(ctx context.Context, tx bun.IDB, tenantID, eventID int64) (*models.Event, error) {
	var event models.Event
	q := tx.NewSelect().
		Model(&event).
		Where("id = ?", eventID).
		Where("tenant_id = ?", tenantID).
		Limit(1)
	if d.lockRows() {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return &event, nil
}

func (d *DB) SubEventForUpdate(ctx context.Context, tx bun.IDB, eventID, subEventID int64) (*models.SubEvent, error) {
	var subEvent models.SubEvent
	q := tx.NewSelect().
		Model(&subEvent).
		Where("id = ?", subEventID).
		Where("event_id = ?", eventID).
		Limit(1)
	if d.lockRows() {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return &subEvent, nil
}

func (d *DB) TeamForUpdate(ctx context.Context, tx bun.IDB, eventID, teamID int64) (*models.Team, error) {
	var team models.Team
	q := tx.NewSelect().
		Model(&team).
		Where("id = ?", teamID).
		Where("event_id = ?", eventID).
		Limit(1)
	if d.lockRows() {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return &team, nil
}

func (d *DB) TeamMemberCount(ctx context.Context, tx bun.IDB, teamID int64) (int, error) {
	return tx.NewSelect().
		Model((*models.TeamMember)(nil)).
		Where("team_id = ?", teamID).
		Count(ctx)
}

// CountByEvent is a snapshot under the enclosing transaction's
// isolation; callers must hold the event row lock before trusting it.
func (d *DB) CountByEvent(ctx context.Context, tx bun.IDB, eventID int64) (int, error) {
	return tx.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("event_id = ?", eventID).
		Count(ctx)
}

func (d *DB) CountBySubEvent(ctx context.Context, tx bun.IDB, subEventID int64) (int, error) {
	return tx.NewSelect().
		Model((*models.Ticket)(nil)).
		Where("sub_event_id = ?", subEventID).
		Count(ctx)
}

func (d *DB) InsertTicket(ctx context.Context, tx bun.IDB, ticket *models.Ticket) error {
	_, err := tx.NewInsert().Model(ticket).Exec(ctx)
	return err
}

// ---------------- READS / CANCELLATION (owner scoped) ----------------

func (d *DB) GetTicketByID(ctx context.Context, userID int64, ticketID string) (*models.Ticket, error) {
	var ticket models.Ticket
	err := d.Bun.NewSelect().
		Model(&ticket).
		Where("ticket_id = ?", ticketID).
		Where("user_id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &ticket, nil
}

func (d *DB) ListTicketsByUser(ctx context.Context, userID int64) ([]models.Ticket, error) {
	var tickets []models.Ticket
	err := d.Bun.NewSelect().
		Model(&tickets).
		Where("user_id = ?", userID).
		Order("purchased_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tickets, nil
}

func (d *DB) DeleteTicket(ctx context.Context, userID int64, ticketID string) (int64, error) {
	res, err := d.Bun.NewDelete().
		Model((*models.Ticket)(nil)).
		Where("ticket_id = ?", ticketID).
		Where("user_id = ?", userID).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
