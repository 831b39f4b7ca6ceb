package db

import (
	"context"

	"github.com/uptrace/bun"

	"ms-events/internal/models"
)

type DB struct {
	Bun *bun.DB
}

// ---------------- TENANTS ----------------

func (d *DB) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	_, err := d.Bun.NewInsert().Model(tenant).Exec(ctx)
	return err
}

func (d *DB) GetTenantByID(ctx context.Context, id int64) (*models.Tenant, error) {
	var tenant models.Tenant
	err := d.Bun.NewSelect().
		Model(&tenant).
		Where("id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (d *DB) TenantIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := d.Bun.NewSelect().
		Column("id").
		Table("tenants").
		Where("name = ?", name).
		Limit(1).
		Scan(ctx, &id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (d *DB) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	var tenants []models.Tenant
	err := d.Bun.NewSelect().
		Model(&tenants).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return tenants, nil
}

func (d *DB) UpdateTenant(ctx context.Context, tenant models.Tenant) error {
	_, err := d.Bun.NewUpdate().
		Model(&tenant).
		Column("name", "domain").
		Where("id = ?", tenant.ID).
		Exec(ctx)
	return err
}

// DeleteTenant removes a tenant and everything it owns in one
// transaction. Cascades are explicit so the behavior is identical on
// every dialect the service runs against.
func (d *DB) DeleteTenant(ctx context.Context, id int64) error {
	return d.Bun.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var eventIDs []int64
		err := tx.NewSelect().
			Column("id").
			Table("events").
			Where("tenant_id = ?", id).
			Scan(ctx, &eventIDs)
		if err != nil {
			return err
		}

		for _, eventID := range eventIDs {
			if err := deleteEventRows(ctx, tx, eventID); err != nil {
				return err
			}
		}

		if _, err := tx.NewDelete().Model((*models.User)(nil)).Where("tenant_id = ?", id).Exec(ctx); err != nil {
			return err
		}
		_, err = tx.NewDelete().Model((*models.Tenant)(nil)).Where("id = ?", id).Exec(ctx)
		return err
	})
}

// deleteEventRows removes an event's dependents and then the event
// itself. Shared by tenant and event deletion.
func deleteEventRows(ctx context.Context, tx bun.Tx, eventID int64) error {
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
}

// ---------------- USERS ----------------

func (d *DB) CreateUser(ctx context.Context, user *models.User) error {
	_, err := d.Bun.NewInsert().Model(user).Exec(ctx)
	return err
}

func (d *DB) GetUserByID(ctx context.Context, tenantID, id int64) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername is unscoped: usernames are globally unique and this
// lookup backs login, which happens before any tenant is known.
func (d *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	err := d.Bun.NewSelect().
		Model(&user).
		Where("username = ?", username).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (d *DB) ListUsers(ctx context.Context, tenantID int64) ([]models.User, error) {
	var users []models.User
	err := d.Bun.NewSelect().
		Model(&users).
		Where("tenant_id = ?", tenantID).
		Order("id").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (d *DB) UpdateUser(ctx context.Context, user models.User) error {
	_, err := d.Bun.NewUpdate().
		Model(&user).
		Column("email", "role").
		Where("id = ?", user.ID).
		Where("tenant_id = ?", user.TenantID).
		Exec(ctx)
	return err
}

func (d *DB) DeleteUser(ctx context.Context, tenantID, id int64) error {
	_, err := d.Bun.NewDelete().
		Model((*models.User)(nil)).
		Where("id = ?", id).
		Where("tenant_id = ?", tenantID).
		Exec(ctx)
	return err
}
