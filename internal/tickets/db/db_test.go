package db_test

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	"ms-events/internal/auth"
	"ms-events/internal/errs"
	"ms-events/internal/models"
	"ms-events/internal/tickets"
	"ms-events/internal/tickets/db"
)

func setupTestDB(t *testing.T) *db.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, "file::memory:?cache=shared&_pragma=busy_timeout(5000)")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	// A single connection keeps the shared in-memory database alive and
	// serializes concurrent transactions the way a row lock would.
	sqldb.SetMaxOpenConns(1)

	bunDB := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { bunDB.Close() })

	ctx := context.Background()
	for _, m := range []interface{}{
		(*models.Tenant)(nil), (*models.User)(nil), (*models.Event)(nil),
		(*models.SubEvent)(nil), (*models.Team)(nil), (*models.TeamMember)(nil),
		(*models.Ticket)(nil),
	} {
		if err := bunDB.ResetModel(ctx, m); err != nil {
			t.Fatalf("failed to create table for %T: %v", m, err)
		}
	}

	return &db.DB{Bun: bunDB}
}

func seedEvent(t *testing.T, d *db.DB, tenantID int64, capacity int) *models.Event {
	t.Helper()
	event := &models.Event{Title: "Launch Day", Capacity: capacity, TenantID: tenantID, CreatedBy: 1}
	if _, err := d.Bun.NewInsert().Model(event).Exec(context.Background()); err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
	return event
}

func TestEventForUpdateScopedToTenant(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	event := seedEvent(t, d, 1, 100)

	got, err := d.EventForUpdate(ctx, d.Bun, 1, event.ID)
	if err != nil {
		t.Fatalf("lookup inside tenant failed: %v", err)
	}
	if got.ID != event.ID {
		t.Errorf("got event %d, want %d", got.ID, event.ID)
	}

	if _, err := d.EventForUpdate(ctx, d.Bun, 2, event.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("cross-tenant lookup: err = %v, want sql.ErrNoRows", err)
	}
}

func TestSubEventForUpdateScopedToEvent(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	event := seedEvent(t, d, 1, 100)
	other := seedEvent(t, d, 1, 100)

	subEvent := &models.SubEvent{EventID: event.ID, Title: "Workshop", Capacity: 10}
	if _, err := d.Bun.NewInsert().Model(subEvent).Exec(ctx); err != nil {
		t.Fatalf("failed to seed sub-event: %v", err)
	}

	if _, err := d.SubEventForUpdate(ctx, d.Bun, event.ID, subEvent.ID); err != nil {
		t.Fatalf("lookup under parent failed: %v", err)
	}
	if _, err := d.SubEventForUpdate(ctx, d.Bun, other.ID, subEvent.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("lookup under wrong parent: err = %v, want sql.ErrNoRows", err)
	}
}

func TestTicketCountsAndInsert(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	event := seedEvent(t, d, 1, 100)

	count, err := d.CountByEvent(ctx, d.Bun, event.ID)
	if err != nil {
		t.Fatalf("CountByEvent failed: %v", err)
	}
	if count != 0 {
		t.Errorf("empty event count = %d, want 0", count)
	}

	for i := 0; i < 3; i++ {
		ticket := &models.Ticket{TicketID: uuid.NewString(), UserID: int64(i + 1), EventID: event.ID}
		if err := d.InsertTicket(ctx, d.Bun, ticket); err != nil {
			t.Fatalf("InsertTicket failed: %v", err)
		}
	}

	count, err = d.CountByEvent(ctx, d.Bun, event.ID)
	if err != nil {
		t.Fatalf("CountByEvent failed: %v", err)
	}
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestTicketOwnerScope(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	event := seedEvent(t, d, 1, 100)

	ticket := &models.Ticket{TicketID: uuid.NewString(), UserID: 7, EventID: event.ID}
	if err := d.InsertTicket(ctx, d.Bun, ticket); err != nil {
		t.Fatalf("InsertTicket failed: %v", err)
	}

	if _, err := d.GetTicketByID(ctx, 7, ticket.TicketID); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, err := d.GetTicketByID(ctx, 8, ticket.TicketID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("foreign lookup: err = %v, want sql.ErrNoRows", err)
	}

	affected, err := d.DeleteTicket(ctx, 8, ticket.TicketID)
	if err != nil {
		t.Fatalf("DeleteTicket failed: %v", err)
	}
	if affected != 0 {
		t.Errorf("foreign delete affected %d rows, want 0", affected)
	}

	affected, err = d.DeleteTicket(ctx, 7, ticket.TicketID)
	if err != nil {
		t.Fatalf("DeleteTicket failed: %v", err)
	}
	if affected != 1 {
		t.Errorf("owner delete affected %d rows, want 1", affected)
	}
}

func TestDuplicateTicketIDRejected(t *testing.T) {
	d := setupTestDB(t)
	ctx := context.Background()
	event := seedEvent(t, d, 1, 100)

	id := uuid.NewString()
	if err := d.InsertTicket(ctx, d.Bun, &models.Ticket{TicketID: id, UserID: 1, EventID: event.ID}); err != nil {
		t.Fatalf("first insert failed: %v", err)
	}
	if err := d.InsertTicket(ctx, d.Bun, &models.Ticket{TicketID: id, UserID: 2, EventID: event.ID}); err == nil {
		t.Error("duplicate ticket_id accepted")
	}
}

// Concurrent buyers racing for the last seats must never oversell. The
// single-connection pool forces the same one-at-a-time transaction
// ordering the row locks provide in production.
func TestConcurrentPurchasesNeverOversell(t *testing.T) {
	d := setupTestDB(t)
	event := seedEvent(t, d, 1, 5)
	svc := tickets.NewService(d, nil)

	const buyers = 20
	var wg sync.WaitGroup
	results := make(chan error, buyers)

	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			p := auth.Principal{UserID: userID, TenantID: 1}
			_, err := svc.Purchase(context.Background(), p, models.PurchaseRequest{EventID: event.ID})
			results <- err
		}(int64(i + 1))
	}
	wg.Wait()
	close(results)

	issued, rejected := 0, 0
	for err := range results {
		switch {
		case err == nil:
			issued++
		case errors.Is(err, errs.ErrEventFull):
			rejected++
		default:
			t.Errorf("unexpected purchase error: %v", err)
		}
	}

	if issued != 5 {
		t.Errorf("issued %d tickets for capacity 5", issued)
	}
	if issued+rejected != buyers {
		t.Errorf("issued %d + rejected %d != %d buyers", issued, rejected, buyers)
	}

	count, err := d.CountByEvent(context.Background(), d.Bun, event.ID)
	if err != nil {
		t.Fatalf("CountByEvent failed: %v", err)
	}
	if count != 5 {
		t.Errorf("stored %d tickets, want 5", count)
	}
}
