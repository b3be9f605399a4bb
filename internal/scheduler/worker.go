package scheduler

import (
	"context"
	"fmt"

	leadsservice "realty_portal_backend/internal/leads/service"
	"realty_portal_backend/internal/notification"
	"realty_portal_backend/platform/config"
	"realty_portal_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes scheduled tasks: per-reservation expiries and due outbox
// notifications.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	leads    *leadsservice.Service
	notifier *notification.Service
	log      *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, leads *leadsservice.Service, notifier *notification.Service, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		leads:    leads,
		notifier: notifier,
		log:      log,
	}

	mux.HandleFunc(TaskReservationExpire, w.handleReservationExpire)
	mux.HandleFunc(TaskNotificationOutboxDue, w.handleNotificationOutboxDue)

	return w, nil
}

// handleReservationExpire processes the precise expiry task. ExpireReservation
// is idempotent, so a reservation the sweep already handled is a no-op here.
func (w *Worker) handleReservationExpire(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseReservationExpirePayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	_, err = w.leads.ExpireReservation(ctx, leadID)
	return err
}

func (w *Worker) handleNotificationOutboxDue(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseNotificationOutboxDuePayload(task)
	if err != nil {
		return err
	}

	outboxID, err := uuid.Parse(payload.OutboxID)
	if err != nil {
		return err
	}

	return w.notifier.Deliver(ctx, outboxID)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
