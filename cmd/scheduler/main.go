package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"realty_portal_backend/internal/adapters"
	"realty_portal_backend/internal/events"
	leadsrepo "realty_portal_backend/internal/leads/repository"
	leadsservice "realty_portal_backend/internal/leads/service"
	"realty_portal_backend/internal/notification"
	"realty_portal_backend/internal/notification/webhook"
	queuerepo "realty_portal_backend/internal/queue/repository"
	queueservice "realty_portal_backend/internal/queue/service"
	"realty_portal_backend/internal/scheduler"
	"realty_portal_backend/platform/config"
	"realty_portal_backend/platform/db"
	"realty_portal_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	notifier := notification.New(pool, webhook.NewSender(cfg), log)
	notifier.Subscribe(eventBus)

	// Worker-side distribution wiring (no HTTP handlers required). The
	// expiry worker re-runs distribution, so it needs the full leads
	// service and queue gateway.
	queueSvc := queueservice.New(queuerepo.New(pool), eventBus, log)
	queueGateway := adapters.NewQueueGateway(queueSvc)

	expiryClient, err := scheduler.NewClient(cfg)
	var expiryScheduler leadsservice.ExpiryScheduler = leadsservice.NoopExpiryScheduler{}
	if err != nil {
		log.Warn("expiry client unavailable; redistributed leads rely on the sweep", "error", err)
	} else {
		defer func() { _ = expiryClient.Close() }()
		expiryScheduler = expiryClient
	}

	leadsSvc := leadsservice.New(leadsrepo.New(pool), queueGateway, expiryScheduler, eventBus, cfg, log)

	dispatcher, err := scheduler.NewNotificationOutboxDispatcher(cfg, pool, log)
	if err != nil {
		log.Error("failed to initialize outbox dispatcher", "error", err)
		panic("failed to initialize outbox dispatcher: " + err.Error())
	}
	defer func() { _ = dispatcher.Close() }()
	go dispatcher.Run(ctx)

	sweeper := scheduler.NewReservationSweeper(cfg, leadsSvc, log)
	go sweeper.Run(ctx)

	reconcileInterval := getDurationEnv("LEDGER_RECONCILE_INTERVAL", time.Hour)
	reconciler := scheduler.NewLedgerReconciler(queueSvc, log, reconcileInterval)
	go reconciler.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, leadsSvc, notifier, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(raw)
	if err != nil || parsed <= 0 {
		return fallback
	}

	return parsed
}
