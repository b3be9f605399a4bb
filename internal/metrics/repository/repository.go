// Package repository provides read-only aggregate queries for the metrics
// API. Everything is computed from the leads, offers and agents tables;
// nothing here writes.
package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides aggregate database queries for metrics.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new metrics repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// OverviewRow is the raw funnel aggregate for one organization and window.
type OverviewRow struct {
	LeadsCreated int
	// LeadsConverted counts leads that reached ACCEPTED or COMPLETED.
	LeadsConverted int
	// LeadsResponded counts leads any agent answered, whatever the answer.
	LeadsResponded int
	LeadsCompleted int
	LeadsAbandoned int
	OffersMade     int
	OffersAccepted int
	OffersRejected int
	OffersExpired  int
	// AvgResponseMs is NULL-free: zero when no lead in the window
	// received a response.
	AvgResponseMs int64
}

// overviewLeadQuery averages response time from lead creation to first
// agent answer, over every responded lead whatever the answer was.
const overviewLeadQuery = `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('ACCEPTED', 'COMPLETED')),
			COUNT(*) FILTER (WHERE responded_at IS NOT NULL),
			COUNT(*) FILTER (WHERE status = 'COMPLETED'),
			COUNT(*) FILTER (WHERE status = 'ABANDONED'),
			COALESCE(AVG(EXTRACT(EPOCH FROM (responded_at - created_at)) * 1000)
				FILTER (WHERE responded_at IS NOT NULL), 0)::BIGINT
		FROM leads
		WHERE organization_id = $1 AND created_at >= $2
			AND ($3::TEXT IS NULL OR source = $3)`

// Overview aggregates the lead funnel for leads created since the cutoff.
// A non-nil source restricts both sides of the funnel to leads from that
// source.
func (r *Repository) Overview(ctx context.Context, organizationID uuid.UUID, since time.Time, source *string) (OverviewRow, error) {
	var row OverviewRow

	err := r.pool.QueryRow(ctx, overviewLeadQuery, organizationID, since, source).Scan(
		&row.LeadsCreated, &row.LeadsConverted, &row.LeadsResponded,
		&row.LeadsCompleted, &row.LeadsAbandoned, &row.AvgResponseMs,
	)
	if err != nil {
		return OverviewRow{}, fmt.Errorf("failed to aggregate leads: %w", err)
	}

	offerQuery := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE o.outcome = 'ACCEPTED'),
			COUNT(*) FILTER (WHERE o.outcome = 'REJECTED'),
			COUNT(*) FILTER (WHERE o.outcome = 'EXPIRED')
		FROM lead_offers o
		JOIN leads l ON l.id = o.lead_id
		WHERE l.organization_id = $1 AND o.offered_at >= $2
			AND ($3::TEXT IS NULL OR l.source = $3)`

	err = r.pool.QueryRow(ctx, offerQuery, organizationID, since, source).Scan(
		&row.OffersMade, &row.OffersAccepted, &row.OffersRejected, &row.OffersExpired,
	)
	if err != nil {
		return OverviewRow{}, fmt.Errorf("failed to aggregate offers: %w", err)
	}
	return row, nil
}

// StatusCounts returns the current lead population per status, regardless
// of window. The snapshot view, not the funnel view.
func (r *Repository) StatusCounts(ctx context.Context, organizationID uuid.UUID) (map[string]int, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM leads WHERE organization_id = $1 GROUP BY status`, organizationID)
	if err != nil {
		return nil, fmt.Errorf("failed to count leads by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// AgentRow is the raw per-agent aggregate for one window, plus snapshot
// counts over the agent's current workload.
type AgentRow struct {
	AgentID        uuid.UUID
	Score          int
	OffersMade     int
	OffersAccepted int
	OffersRejected int
	OffersExpired  int
	AvgResponseMs  int64
	// ActiveLeads counts ACCEPTED leads not yet completed.
	ActiveLeads int
	// PendingReply counts live reservations awaiting this agent's answer.
	PendingReply int
	// StalledLeads counts ACCEPTED leads whose response predates the
	// staleness cutoff.
	StalledLeads int
}

const agentAggregate = `
	SELECT
		a.id,
		a.score,
		COUNT(o.id),
		COUNT(o.id) FILTER (WHERE o.outcome = 'ACCEPTED'),
		COUNT(o.id) FILTER (WHERE o.outcome = 'REJECTED'),
		COUNT(o.id) FILTER (WHERE o.outcome = 'EXPIRED'),
		COALESCE(AVG(EXTRACT(EPOCH FROM (l.responded_at - l.reserved_at)) * 1000)
			FILTER (WHERE o.outcome = 'ACCEPTED' AND l.responded_at IS NOT NULL AND l.reserved_at IS NOT NULL), 0)::BIGINT,
		(SELECT COUNT(*) FROM leads w WHERE w.assigned_agent_id = a.id AND w.status = 'ACCEPTED'),
		(SELECT COUNT(*) FROM leads w WHERE w.reserved_agent_id = a.id AND w.status = 'RESERVED'),
		(SELECT COUNT(*) FROM leads w WHERE w.assigned_agent_id = a.id AND w.status = 'ACCEPTED' AND w.responded_at < $3)
	FROM agents a
	LEFT JOIN lead_offers o ON o.agent_id = a.id AND o.offered_at >= $2
	LEFT JOIN leads l ON l.id = o.lead_id
	WHERE a.organization_id = $1`

func scanAgentRow(rows pgx.Rows) (AgentRow, error) {
	var a AgentRow
	err := rows.Scan(&a.AgentID, &a.Score, &a.OffersMade, &a.OffersAccepted, &a.OffersRejected, &a.OffersExpired,
		&a.AvgResponseMs, &a.ActiveLeads, &a.PendingReply, &a.StalledLeads)
	if err != nil {
		return AgentRow{}, fmt.Errorf("failed to scan agent aggregate: %w", err)
	}
	return a, nil
}

// TopAgents returns per-agent aggregates ordered by acceptances, then score.
func (r *Repository) TopAgents(ctx context.Context, organizationID uuid.UUID, since time.Time, limit int, stalledBefore time.Time) ([]AgentRow, error) {
	query := agentAggregate + `
	GROUP BY a.id, a.score
	ORDER BY COUNT(o.id) FILTER (WHERE o.outcome = 'ACCEPTED') DESC, a.score DESC, a.id
	LIMIT $4`

	rows, err := r.pool.Query(ctx, query, organizationID, since, stalledBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top agents: %w", err)
	}
	defer rows.Close()

	var agents []AgentRow
	for rows.Next() {
		a, err := scanAgentRow(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, rows.Err()
}

// AgentDetail returns the window aggregate for one agent, or false when the
// agent does not belong to the organization.
func (r *Repository) AgentDetail(ctx context.Context, agentID, organizationID uuid.UUID, since time.Time, stalledBefore time.Time) (AgentRow, bool, error) {
	query := agentAggregate + ` AND a.id = $4
	GROUP BY a.id, a.score`

	rows, err := r.pool.Query(ctx, query, organizationID, since, stalledBefore, agentID)
	if err != nil {
		return AgentRow{}, false, fmt.Errorf("failed to aggregate agent: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return AgentRow{}, false, rows.Err()
	}
	a, err := scanAgentRow(rows)
	if err != nil {
		return AgentRow{}, false, err
	}
	return a, true, nil
}
