package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"

	"fiscal/internal/audit"
	"fiscal/internal/authority"
	"fiscal/internal/platform/config"
	"fiscal/internal/platform/httpserver"
	"fiscal/internal/platform/logger"
	"fiscal/internal/platform/metrics"
	"fiscal/internal/platform/middleware"
	platformredis "fiscal/internal/platform/redis"
	"fiscal/internal/receipt"
	"fiscal/internal/refdata"
	"fiscal/internal/ticket"
	httptransport "fiscal/internal/transport/http"
	"fiscal/internal/workflow"
)

// main wires dependencies and owns the process lifecycle. Stores degrade to
// in-memory implementations when their backing services are not configured,
// which keeps local development free of infrastructure.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cred, err := authority.LoadCredentialPEM(cfg.CertPath, cfg.KeyPath)
	if err != nil {
		log.Error("loading authority credential", "error", err.Error())
		os.Exit(1)
	}

	client := authority.NewClient(authority.Config{
		LoginURL: cfg.LoginURL,
		WSFEURL:  cfg.WSFEURL,
		CUIT:     cfg.CUIT,
	})

	ticketStore, cleanupRedis := buildTicketStore(cfg, log)
	defer cleanupRedis()

	receiptStore, refdataStore, cleanupPG := buildPostgresStores(ctx, cfg, log)
	defer cleanupPG()

	auditor, auditCleanup := buildAudit(ctx, cfg, log)
	defer auditCleanup()

	appMetrics := metrics.New()

	authenticator := ticket.NewAuthenticator(ticketStore, client, cred, cfg.CUIT, log)
	allocator := receipt.NewAllocator(client)
	reconciler := receipt.NewReconciler(receiptStore, log)
	batcher := receipt.NewBatcher(allocator, client, reconciler, log)
	orchestrator := workflow.NewOrchestrator(authenticator, allocator, batcher, client, auditor, appMetrics, cfg.CUIT)

	refdataService := refdata.NewService(refdataStore, client, log)
	refreshReferenceTables(ctx, authenticator, refdataService, log)

	handler := httptransport.NewHandler(orchestrator, log)
	validator := middleware.NewJWTValidator(cfg.JWTSigningKey)
	router := httptransport.NewRouter(handler, validator, log)

	srv := httpserver.New(cfg.Addr, router)
	go func() {
		log.Info("starting fiscal gateway", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err.Error())
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err.Error())
	}
}

func buildTicketStore(cfg config.Config, log *slog.Logger) (ticket.Store, func()) {
	if cfg.Redis.URL == "" {
		return ticket.NewInMemoryStore(), func() {}
	}
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Warn("redis unavailable, using in-memory ticket store", "error", err.Error())
		return ticket.NewInMemoryStore(), func() {}
	}
	return ticket.NewRedisStore(redisClient.Client), func() { _ = redisClient.Close() }
}

func buildPostgresStores(ctx context.Context, cfg config.Config, log *slog.Logger) (receipt.Store, refdata.Store, func()) {
	if cfg.Postgres.DSN == "" {
		return receipt.NewInMemoryStore(), refdata.NewInMemoryStore(), func() {}
	}
	pool, err := pgxpool.New(ctx, cfg.Postgres.DSN)
	if err != nil {
		log.Warn("postgres unavailable, using in-memory stores", "error", err.Error())
		return receipt.NewInMemoryStore(), refdata.NewInMemoryStore(), func() {}
	}
	return receipt.NewPostgresStore(pool), refdata.NewPostgresStore(pool), pool.Close
}

func buildAudit(ctx context.Context, cfg config.Config, log *slog.Logger) (*audit.Service, func()) {
	var publisher *audit.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		var err error
		publisher, err = audit.NewPublisher(ctx, cfg.Kafka.Brokers, cfg.Kafka.AuditTopic, log)
		if err != nil {
			log.Warn("kafka unavailable, audit events stay local", "error", err.Error())
			publisher = nil
		}
	}
	service := audit.NewService(256, publisher, log)

	store := buildAuditStore(cfg, log)
	worker := audit.NewWorker(store, service.Inbox())
	go func() { _ = worker.Run(ctx) }()

	cleanup := func() {
		if publisher != nil {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := publisher.Close(flushCtx); err != nil {
				log.Warn("audit publisher close", "error", err.Error())
			}
		}
	}
	return service, cleanup
}

func buildAuditStore(cfg config.Config, log *slog.Logger) audit.Store {
	if cfg.Postgres.DSN == "" {
		return audit.NewInMemoryStore()
	}
	db, err := sql.Open("postgres", cfg.Postgres.DSN)
	if err != nil {
		log.Warn("audit store falling back to memory", "error", err.Error())
		return audit.NewInMemoryStore()
	}
	return audit.NewPostgresStore(db)
}

// refreshReferenceTables loads the authority's lookup tables at startup. A
// failure is logged but not fatal; validation does not depend on the tables.
func refreshReferenceTables(ctx context.Context, auth *ticket.Authenticator, svc *refdata.Service, log *slog.Logger) {
	loadCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()

	t, err := auth.Ticket(loadCtx, workflow.ServiceWSFE)
	if err != nil {
		log.Warn("skipping reference table load", "error", err.Error())
		return
	}
	if err := svc.LoadAll(loadCtx, t); err != nil {
		log.Warn("reference table load failed", "error", err.Error())
	}
}
