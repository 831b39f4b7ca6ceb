package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"ms-events/internal/auth"
	"ms-events/internal/config"
	"ms-events/internal/database/migrations"
	"ms-events/internal/errs"
	"ms-events/internal/events"
	"ms-events/internal/events/event_api"
	events_db "ms-events/internal/events/db"
	"ms-events/internal/kafka"
	"ms-events/internal/logger"
	"ms-events/internal/teams"
	teams_db "ms-events/internal/teams/db"
	"ms-events/internal/teams/team_api"
	"ms-events/internal/tenancy"
	tenancy_db "ms-events/internal/tenancy/db"
	"ms-events/internal/tenancy/tenant_api"
	"ms-events/internal/tickets"
	tickets_db "ms-events/internal/tickets/db"
	"ms-events/internal/tickets/ticket_api"
)

func connectPostgres(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	if cfg.DSN == "" {
		log.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			log.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Addr))
	return client
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting Events Service initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB := connectPostgres(cfg.Database, log)
	defer bunDB.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.MigrateUp(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
	}
	log.Info("DATABASE", "Schema migrations applied")

	var redisClient *redis.Client
	var principalCache *auth.PrincipalCache
	if cfg.Redis.Enabled {
		redisClient = connectRedis(ctx, cfg.Redis, log)
		defer redisClient.Close()
		principalCache = auth.NewPrincipalCache(redisClient)
	} else {
		log.Warn("REDIS", "Redis disabled, principal cache off")
	}

	var producer *kafka.Producer
	var ticketsPublisher tickets.Publisher
	var teamsPublisher teams.Publisher
	var eventsPublisher events.Publisher
	if cfg.Kafka.Enabled {
		topics := kafka.Topics{
			TicketPurchased:     cfg.Kafka.Topics.TicketPurchased,
			TeamMemberJoined:    cfg.Kafka.Topics.TeamMemberJoined,
			AnnouncementCreated: cfg.Kafka.Topics.AnnouncementCreated,
		}
		producer = kafka.NewProducer(cfg.Kafka.Brokers, topics)
		defer producer.Close()
		log.Info("KAFKA", "Kafka producer initialized successfully")

		required := []string{
			cfg.Kafka.Topics.TicketPurchased,
			cfg.Kafka.Topics.TeamMemberJoined,
			cfg.Kafka.Topics.AnnouncementCreated,
		}
		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, required); err != nil {
			log.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			log.Info("KAFKA", "Required topics ensured successfully")
		}

		ticketsPublisher = producer
		teamsPublisher = producer
		eventsPublisher = producer
	} else {
		log.Warn("KAFKA", "Kafka disabled, domain events will not be published")
	}

	issuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)

	tenantService := tenancy.NewService(&tenancy_db.DB{Bun: bunDB}, issuer)
	eventService := events.NewService(&events_db.DB{Bun: bunDB}, eventsPublisher)
	teamService := teams.NewService(&teams_db.DB{Bun: bunDB}, teamsPublisher)
	ticketService := tickets.NewService(&tickets_db.DB{Bun: bunDB}, ticketsPublisher)
	qrGenerator := tickets.NewQRGenerator(cfg.Auth.JWTSecret)

	var verifier auth.TokenVerifier = issuer
	if cfg.Auth.OIDCIssuer != "" {
		oidc, err := auth.NewOIDCVerifier(cfg.Auth.OIDCIssuer)
		if err != nil {
			log.Fatal("AUTH", fmt.Sprintf("Failed to initialize OIDC verifier: %v", err))
		}
		verifier = oidc
		log.Info("AUTH", fmt.Sprintf("Token verification delegated to OIDC issuer %s", cfg.Auth.OIDCIssuer))
	}

	tenantHandler := tenant_api.NewHandler(tenantService, log)
	eventHandler := event_api.NewHandler(eventService, log)
	teamHandler := team_api.NewHandler(teamService, log)
	ticketHandler := ticket_api.NewHandler(ticketService, qrGenerator, log)

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(errs.RequestTimeout(cfg.Server.RequestTimeout))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// --- Public Routes ---
	r.Route("/api", func(r chi.Router) {
		tenantHandler.RegisterAuthRoutes(r)
	})
	log.Info("ROUTER", "Auth routes registered under /api/auth")

	// --- Protected Routes ---
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(verifier, tenantService, principalCache))
		log.Info("AUTH", "JWT middleware applied to protected API routes")

		r.Route("/api", func(r chi.Router) {
			eventHandler.RegisterRoutes(r)
			teamHandler.RegisterRoutes(r)
			ticketHandler.RegisterRoutes(r)
			tenantHandler.RegisterUserRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)
				tenantHandler.RegisterTenantRoutes(r)
			})
		})
	})
	log.Info("ROUTER", "API routes registered under /api")

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", fmt.Sprintf("Events Service running on :%s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "Events Service shutdown complete")
	}
}
