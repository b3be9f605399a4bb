// Package service computes distribution metrics from the read-side
// aggregates. All rates tolerate empty windows: zero denominators yield
// zero rates, never errors.
package service

import (
	"context"
	"time"

	"realty_portal_backend/internal/metrics/repository"
	"realty_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultWindow is the reporting window when the caller gives none.
	DefaultWindow = 30 * 24 * time.Hour
	// MaxWindow bounds how far back an aggregate may reach.
	MaxWindow = 365 * 24 * time.Hour

	defaultTopLimit = 10
	maxTopLimit     = 50
)

// Service provides distribution metrics.
type Service struct {
	store        Store
	stalledAfter time.Duration
}

// Store is the aggregate query surface the service needs.
type Store interface {
	Overview(ctx context.Context, organizationID uuid.UUID, since time.Time, source *string) (repository.OverviewRow, error)
	StatusCounts(ctx context.Context, organizationID uuid.UUID) (map[string]int, error)
	TopAgents(ctx context.Context, organizationID uuid.UUID, since time.Time, limit int, stalledBefore time.Time) ([]repository.AgentRow, error)
	AgentDetail(ctx context.Context, agentID, organizationID uuid.UUID, since time.Time, stalledBefore time.Time) (repository.AgentRow, bool, error)
}

// New creates the metrics service. stalledAfter is the staleness threshold
// for the per-agent stalled-lead count.
func New(store Store, stalledAfter time.Duration) *Service {
	if stalledAfter <= 0 {
		stalledAfter = 48 * time.Hour
	}
	return &Service{store: store, stalledAfter: stalledAfter}
}

func (s *Service) stalledCutoff() time.Time {
	return time.Now().Add(-s.stalledAfter)
}

// Overview is the organization-wide funnel for one window.
type Overview struct {
	Window         time.Duration
	LeadsCreated   int
	LeadsCompleted int
	LeadsAbandoned int
	OffersMade     int
	OffersAccepted int
	OffersRejected int
	OffersExpired  int
	AcceptanceRate float64
	ConversionRate float64
	ResponseRate   float64
	AvgResponse    time.Duration
	StatusCounts   map[string]int
}

// GetOverview aggregates the funnel for leads created within the window.
// A non-nil source restricts the funnel to leads from that source.
func (s *Service) GetOverview(ctx context.Context, organizationID uuid.UUID, window time.Duration, source *string) (Overview, error) {
	window = clampWindow(window)
	since := time.Now().Add(-window)

	var (
		row    repository.OverviewRow
		counts map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		row, err = s.store.Overview(gctx, organizationID, since, source)
		return err
	})
	g.Go(func() error {
		var err error
		counts, err = s.store.StatusCounts(gctx, organizationID)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, apperr.StorageFault("metrics.overview", err)
	}

	return Overview{
		Window:         window,
		LeadsCreated:   row.LeadsCreated,
		LeadsCompleted: row.LeadsCompleted,
		LeadsAbandoned: row.LeadsAbandoned,
		OffersMade:     row.OffersMade,
		OffersAccepted: row.OffersAccepted,
		OffersRejected: row.OffersRejected,
		OffersExpired:  row.OffersExpired,
		AcceptanceRate: rate(row.OffersAccepted, row.OffersMade),
		ConversionRate: rate(row.LeadsConverted, row.LeadsCreated),
		ResponseRate:   rate(row.LeadsResponded, row.LeadsCreated),
		AvgResponse:    time.Duration(row.AvgResponseMs) * time.Millisecond,
		StatusCounts:   counts,
	}, nil
}

// AgentMetrics is the per-agent window aggregate with derived rates and
// current workload counts.
type AgentMetrics struct {
	AgentID        uuid.UUID
	Score          int
	OffersMade     int
	OffersAccepted int
	OffersRejected int
	OffersExpired  int
	AcceptanceRate float64
	AvgResponse    time.Duration
	ActiveLeads    int
	PendingReply   int
	StalledLeads   int
}

// TopAgents returns the best performing agents for the window.
func (s *Service) TopAgents(ctx context.Context, organizationID uuid.UUID, window time.Duration, limit int) ([]AgentMetrics, error) {
	window = clampWindow(window)
	if limit < 1 {
		limit = defaultTopLimit
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}

	rows, err := s.store.TopAgents(ctx, organizationID, time.Now().Add(-window), limit, s.stalledCutoff())
	if err != nil {
		return nil, apperr.StorageFault("metrics.top_agents", err)
	}

	agents := make([]AgentMetrics, 0, len(rows))
	for _, row := range rows {
		agents = append(agents, toAgentMetrics(row))
	}
	return agents, nil
}

// AgentDetail returns one agent's window aggregate.
func (s *Service) AgentDetail(ctx context.Context, agentID, organizationID uuid.UUID, window time.Duration) (AgentMetrics, error) {
	window = clampWindow(window)

	row, found, err := s.store.AgentDetail(ctx, agentID, organizationID, time.Now().Add(-window), s.stalledCutoff())
	if err != nil {
		return AgentMetrics{}, apperr.StorageFault("metrics.agent_detail", err)
	}
	if !found {
		return AgentMetrics{}, apperr.NotFound("agent not found")
	}
	return toAgentMetrics(row), nil
}

func toAgentMetrics(row repository.AgentRow) AgentMetrics {
	return AgentMetrics{
		AgentID:        row.AgentID,
		Score:          row.Score,
		OffersMade:     row.OffersMade,
		OffersAccepted: row.OffersAccepted,
		OffersRejected: row.OffersRejected,
		OffersExpired:  row.OffersExpired,
		AcceptanceRate: rate(row.OffersAccepted, row.OffersMade),
		AvgResponse:    time.Duration(row.AvgResponseMs) * time.Millisecond,
		ActiveLeads:    row.ActiveLeads,
		PendingReply:   row.PendingReply,
		StalledLeads:   row.StalledLeads,
	}
}

func rate(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole)
}

func clampWindow(window time.Duration) time.Duration {
	if window <= 0 {
		return DefaultWindow
	}
	if window > MaxWindow {
		return MaxWindow
	}
	return window
}
