// Command migrate applies or rolls back the service schema against the
// database named by POSTGRES_DSN. It also carries a dev-only seed mode
// that loads a small fixture tenant for local testing.
package main

import (
	"context"
	"database/sql"
	"flag"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"golang.org/x/crypto/bcrypt"

	"ms-events/internal/database/migrations"
	"ms-events/internal/models"
)

func main() {
	var (
		dir   = flag.String("dir", "./migrations", "migrations directory")
		down  = flag.Bool("down", false, "roll back all migrations")
		seed  = flag.Bool("seed", false, "insert dev fixture data after migrating")
		force = flag.Int("force", -1, "force schema version (recover from dirty state)")
	)
	flag.Parse()

	_ = godotenv.Load()

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN not set")
	}

	sqldb, err := sql.Open("postgres", dsn)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	db := bun.NewDB(sqldb, pgdialect.New())
	runner := migrations.NewRunner(db, migrations.Options{Dir: *dir})
	defer runner.Close()

	switch {
	case *force >= 0:
		if err := runner.Force(*force); err != nil {
			log.Fatalf("Force failed: %v", err)
		}
		log.Printf("Schema version forced to %d", *force)
	case *down:
		log.Println("Rolling back migrations...")
		if err := runner.MigrateDown(); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
	default:
		log.Println("Applying migrations...")
		if err := runner.MigrateUp(); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
	}

	version, dirty, err := runner.Version()
	if err != nil {
		log.Fatalf("Failed to read schema version: %v", err)
	}
	log.Printf("Schema version: %d (dirty: %v)", version, dirty)

	if *seed {
		log.Println("Seeding dev fixture data...")
		if err := seedData(context.Background(), db); err != nil {
			log.Fatalf("Seed failed: %v", err)
		}
	}

	log.Println("Done.")
}

func seedData(ctx context.Context, db *bun.DB) error {
	tenant := &models.Tenant{Name: "acme", Domain: "acme.example.com"}
	if _, err := db.NewInsert().Model(tenant).On("CONFLICT (name) DO UPDATE").Set("domain = EXCLUDED.domain").Returning("id").Exec(ctx); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("changeme"), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username:     "admin",
		Email:        "admin@acme.example.com",
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
		TenantID:     tenant.ID,
	}
	if _, err := db.NewInsert().Model(admin).On("CONFLICT (username) DO NOTHING").Returning("id").Exec(ctx); err != nil {
		return err
	}

	event := &models.Event{
		Title:     "Launch Day",
		Date:      time.Now().AddDate(0, 1, 0),
		Location:  "Main Hall",
		Capacity:  100,
		TenantID:  tenant.ID,
		CreatedBy: admin.ID,
	}
	if _, err := db.NewInsert().Model(event).Exec(ctx); err != nil {
		return err
	}

	log.Printf("Seeded tenant %q with admin user %q", tenant.Name, admin.Username)
	return nil
}
