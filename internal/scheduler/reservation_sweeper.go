package scheduler

import (
	"context"
	"time"

	leadsservice "realty_portal_backend/internal/leads/service"
	"realty_portal_backend/platform/config"
	"realty_portal_backend/platform/logger"
)

const defaultSweepInterval = 30 * time.Second

// ReservationSweeper is the backstop behind the per-reservation expiry
// tasks: it periodically force-expires lapsed reservations and ages out
// stale pool leads, so missed or dropped tasks never leave a lead stuck.
type ReservationSweeper struct {
	leads    *leadsservice.Service
	log      *logger.Logger
	interval time.Duration
}

func NewReservationSweeper(cfg config.DistributionConfig, leads *leadsservice.Service, log *logger.Logger) *ReservationSweeper {
	interval := cfg.GetSweepInterval()
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	return &ReservationSweeper{
		leads:    leads,
		log:      log,
		interval: interval,
	}
}

func (s *ReservationSweeper) Run(ctx context.Context) {
	if s == nil || s.leads == nil {
		return
	}

	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *ReservationSweeper) sweep(ctx context.Context) {
	expired, err := s.leads.SweepDueReservations(ctx)
	if err != nil {
		s.log.Warn("reservation sweep failed", "error", err)
	} else if expired > 0 {
		s.log.Info("reservation sweep expired lapsed reservations", "expired", expired)
	}

	abandoned, err := s.leads.AbandonStale(ctx)
	if err != nil {
		s.log.Warn("stale lead abandonment failed", "error", err)
	} else if abandoned > 0 {
		s.log.Info("stale leads abandoned", "abandoned", abandoned)
	}
}
