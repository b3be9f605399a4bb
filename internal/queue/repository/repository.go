package repository

import (
	"context"
	"errors"
	"time"

	"realty_portal_backend/internal/queue/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	ErrNotFound      = errors.New("agent not found")
	ErrAlreadyJoined = errors.New("agent already participates in distribution")
)

const uniqueViolation = "23505"

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Agent is one queue entry. Score and the counters are caches maintained in
// the same transaction as their ledger writes; position is never stored.
type Agent struct {
	ID                  uuid.UUID
	OrganizationID      uuid.UUID
	UserRef             uuid.UUID
	Status              domain.AgentStatus
	Score               int
	ActiveLeadCount     int
	BonusLeadCount      int
	TotalAccepted       int
	TotalRejected       int
	TotalExpired        int
	ResponseTimeMsTotal int64
	ResponseCount       int
	LastActivityAt      time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// AvgResponseTime derives the mean response duration, or 0 with no data.
func (a Agent) AvgResponseTime() time.Duration {
	if a.ResponseCount == 0 {
		return 0
	}
	return time.Duration(a.ResponseTimeMsTotal/int64(a.ResponseCount)) * time.Millisecond
}

const agentColumns = `id, organization_id, user_ref, status, score, active_lead_count, bonus_lead_count,
	total_accepted, total_rejected, total_expired, response_time_ms_total, response_count,
	last_activity_at, created_at, updated_at`

func scanAgent(row pgx.Row) (Agent, error) {
	var a Agent
	err := row.Scan(
		&a.ID, &a.OrganizationID, &a.UserRef, &a.Status, &a.Score, &a.ActiveLeadCount, &a.BonusLeadCount,
		&a.TotalAccepted, &a.TotalRejected, &a.TotalExpired, &a.ResponseTimeMsTotal, &a.ResponseCount,
		&a.LastActivityAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Agent{}, ErrNotFound
	}
	return a, err
}

type CreateAgentParams struct {
	OrganizationID uuid.UUID
	UserRef        uuid.UUID
}

// Create opts an agent into distribution. Joining twice is a conflict;
// entries are never hard-deleted so historical counters survive.
func (r *Repository) Create(ctx context.Context, params CreateAgentParams) (Agent, error) {
	agent, err := scanAgent(r.pool.QueryRow(ctx, `
		INSERT INTO agents (organization_id, user_ref)
		VALUES ($1, $2)
		RETURNING `+agentColumns,
		params.OrganizationID, params.UserRef,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return Agent{}, ErrAlreadyJoined
		}
		return Agent{}, err
	}
	return agent, nil
}

func (r *Repository) GetByID(ctx context.Context, id, organizationID uuid.UUID) (Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx, `
		SELECT `+agentColumns+`
		FROM agents
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID))
}

func (r *Repository) GetByUserRef(ctx context.Context, userRef, organizationID uuid.UUID) (Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx, `
		SELECT `+agentColumns+`
		FROM agents
		WHERE user_ref = $1 AND organization_id = $2
	`, userRef, organizationID))
}

func (r *Repository) ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]Agent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+agentColumns+`
		FROM agents
		WHERE organization_id = $1
		ORDER BY created_at ASC
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agents := make([]Agent, 0)
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}
	return agents, rows.Err()
}

// ListActiveRankEntries returns the ranking projection for all ACTIVE agents
// of the organization. Ordering is applied by the domain layer; this read is
// non-blocking against ledger writers.
func (r *Repository) ListActiveRankEntries(ctx context.Context, organizationID uuid.UUID) ([]domain.RankEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, score, last_activity_at, active_lead_count
		FROM agents
		WHERE organization_id = $1 AND status = 'ACTIVE'
	`, organizationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.RankEntry, 0)
	for rows.Next() {
		var entry domain.RankEntry
		if err := rows.Scan(&entry.AgentID, &entry.Score, &entry.LastActivityAt, &entry.ActiveLeadCount); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// SetStatus flips an agent ACTIVE/INACTIVE.
func (r *Repository) SetStatus(ctx context.Context, id, organizationID uuid.UUID, status domain.AgentStatus) (Agent, error) {
	return scanAgent(r.pool.QueryRow(ctx, `
		UPDATE agents
		SET status = $3, updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+agentColumns,
		id, organizationID, status,
	))
}

// AdjustActiveLeads moves the reservation-holding counter. Reservations are
// bookkeeping, not ledger events, so this runs outside the ledger path.
func (r *Repository) AdjustActiveLeads(ctx context.Context, id uuid.UUID, delta int) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE agents
		SET active_lead_count = GREATEST(active_lead_count + $2, 0),
		    last_activity_at = now(),
		    updated_at = now()
		WHERE id = $1
	`, id, delta)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
