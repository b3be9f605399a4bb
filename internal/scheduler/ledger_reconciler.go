package scheduler

import (
	"context"
	"time"

	queueservice "realty_portal_backend/internal/queue/service"
	"realty_portal_backend/platform/logger"
)

const defaultReconcileInterval = time.Hour

// LedgerReconciler periodically compares every cached agent score against
// its ledger sum and reports divergence. It only detects; repair stays an
// explicit administrative action.
type LedgerReconciler struct {
	queue    *queueservice.Service
	log      *logger.Logger
	interval time.Duration
}

func NewLedgerReconciler(queue *queueservice.Service, log *logger.Logger, interval time.Duration) *LedgerReconciler {
	if interval <= 0 {
		interval = defaultReconcileInterval
	}

	return &LedgerReconciler{
		queue:    queue,
		log:      log,
		interval: interval,
	}
}

func (r *LedgerReconciler) Run(ctx context.Context) {
	if r == nil || r.queue == nil {
		return
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.reconcile(ctx)
		}
	}
}

func (r *LedgerReconciler) reconcile(ctx context.Context) {
	diverged, err := r.queue.Reconcile(ctx)
	if err != nil {
		r.log.Warn("ledger reconcile failed", "error", err)
		return
	}
	if len(diverged) > 0 {
		r.log.Error("ledger reconcile found diverged scores", "count", len(diverged))
	}
}
