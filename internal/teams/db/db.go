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

// lockRows reports whether the dialect supports SELECT ... FOR UPDATE.
// SQLite serializes writers on its own, so skipping the clause there is
// safe; Postgres needs it to pin the row for the check-and-insert.
func (d *DB) lockRows() bool {
	return d.Bun.Dialect().Name() == dialect.PG
}

func (d *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, tx bun.Tx) error) error {
	return d.Bun.RunInTx(ctx, nil, fn)
}

// ---------------- TEAMS ----------------

// EventExists reports whether the event is visible inside the tenant.
func (d *DB) EventExists(ctx context.Context, tenantID, eventID int64) (bool, error) {
	return d.Bun.NewSelect().
		Model((*models.Event)(nil)).
		Where("id = ?", eventID).
		Where("tenant_id = ?", tenantID).
		Exists(ctx)
}

func (d *DB) CreateTeam(ctx context.Context, team *models.Team) error {
	_, err := d.Bun.NewInsert().Model(team).Exec(ctx)
	return err
}

func (d *DB) GetTeamByID(ctx context.Context, tenantID, id int64) (*models.Team, error) {
	var team models.Team
	err := d.Bun.NewSelect().
		Model(&team).
		Join("JOIN events AS e ON e.id = team.event_id").
		Where("team.id = ?", id).
		Where("e.tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &team, nil
}

// TeamForUpdate resolves a team inside tx and locks its row for the
// remainder of the transaction.
func (d *DB) TeamForUpdate(ctx context.Context, tx bun.IDB, tenantID, id int64) (*models.Team, error) {
	var team models.Team
	q := tx.NewSelect().
		Model(&team).
		Where("team.id = ?", id).
		Where("EXISTS (SELECT 1 FROM events e WHERE e.id = team.event_id AND e.tenant_id = ?)", tenantID).
		Limit(1)
	if d.lockRows() {
		q = q.For("UPDATE")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return &team, nil
}

func (d *DB) ListTeams(ctx context.Context, tenantID int64) ([]models.Team, error) {
	var teams []models.Team
	err := d.Bun.NewSelect().
		Model(&teams).
		Join("JOIN events AS e ON e.id = team.event_id").
		Where("e.tenant_id = ?", tenantID).
		Order("team.id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return teams, nil
}

func (d *DB) UpdateTeam(ctx context.Context, team models.Team) error {
	_, err := d.Bun.NewUpdate().
		Model(&team).
		Column("name", "min_size", "max_size").
		Where("id = ?", team.ID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteTeam(ctx context.Context, id int64) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewUpdate().
			Model((*models.Ticket)(nil)).
			Set("team_id = NULL").
			Where("team_id = ?", id).
			Exec(ctx); err != nil {
			return err
		}
		if _, err := tx.NewDelete().Model((*models.TeamMember)(nil)).Where("team_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		_, err := tx.NewDelete().Model((*models.Team)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
}

// ---------------- MEMBERSHIP ----------------

func (d *DB) MemberCount(ctx context.Context, tx bun.IDB, teamID int64) (int, error) {
	return tx.NewSelect().
		Model((*models.TeamMember)(nil)).
		Where("team_id = ?", teamID).
		Count(ctx)
}

func (d *DB) IsMember(ctx context.Context, tx bun.IDB, teamID, userID int64) (bool, error) {
	return tx.NewSelect().
		Model((*models.TeamMember)(nil)).
		Where("team_id = ?", teamID).
		Where("user_id = ?", userID).
		Exists(ctx)
}

// AddMember inserts the membership row. The unique (team_id, user_id)
// constraint backs up the in-transaction IsMember check.
func (d *DB) AddMember(ctx context.Context, tx bun.IDB, member *models.TeamMember) error {
	_, err := tx.NewInsert().Model(member).Exec(ctx)
	return err
}

func (d *DB) ListMembers(ctx context.Context, teamID int64) ([]models.User, error) {
	var users []models.User
	err := d.Bun.NewSelect().
		Model(&users).
		Join("JOIN team_members AS tm ON tm.user_id = \"user\".id").
		Where("tm.team_id = ?", teamID).
		Order("tm.joined_at").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return users, nil
}
