package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"realty_portal_backend/internal/leads/domain"
	"realty_portal_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const leadNotFoundMsg = "lead not found"

// Repository provides database operations for leads, offers and
// distribution settings.
type Repository struct {
	pool *pgxpool.Pool
}

// New creates a new leads repository
func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const leadColumns = `
	id, organization_id, property_ref, contact_ref, status, distribution_mode,
	referrer_agent_id, reserved_agent_id, reserved_at, reserved_until, assigned_agent_id,
	source, created_at, responded_at, completed_at, updated_at`

func scanLead(row pgx.Row) (Lead, error) {
	var l Lead
	err := row.Scan(
		&l.ID, &l.OrganizationID, &l.PropertyRef, &l.ContactRef, &l.Status, &l.DistributionMode,
		&l.ReferrerAgentID, &l.ReservedAgentID, &l.ReservedAt, &l.ReservedUntil, &l.AssignedAgentID,
		&l.Source, &l.CreatedAt, &l.RespondedAt, &l.CompletedAt, &l.UpdatedAt,
	)
	return l, err
}

// Create inserts a new lead in PENDING status.
func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	query := `
		INSERT INTO leads (
			id, organization_id, property_ref, contact_ref, status, distribution_mode,
			referrer_agent_id, source
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING` + leadColumns

	lead, err := scanLead(r.pool.QueryRow(ctx, query,
		uuid.New(), params.OrganizationID, params.PropertyRef, params.ContactRef,
		domain.StatusPending, params.DistributionMode, params.ReferrerAgentID, params.Source,
	))
	if err != nil {
		return Lead{}, fmt.Errorf("failed to create lead: %w", err)
	}
	return lead, nil
}

// GetByID fetches a lead scoped to its organization.
func (r *Repository) GetByID(ctx context.Context, id, organizationID uuid.UUID) (Lead, error) {
	query := `SELECT` + leadColumns + ` FROM leads WHERE id = $1 AND organization_id = $2`

	lead, err := scanLead(r.pool.QueryRow(ctx, query, id, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, apperr.NotFound(leadNotFoundMsg)
		}
		return Lead{}, fmt.Errorf("failed to get lead: %w", err)
	}
	return lead, nil
}

// List returns a page of leads plus the total count for the filter.
func (r *Repository) List(ctx context.Context, params ListLeadsParams) ([]Lead, int, error) {
	conditions := []string{"organization_id = $1"}
	args := []any{params.OrganizationID}

	if params.Status != nil {
		args = append(args, *params.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.AgentID != nil {
		args = append(args, *params.AgentID)
		conditions = append(conditions, fmt.Sprintf(
			"(reserved_agent_id = $%d OR assigned_agent_id = $%d)", len(args), len(args)))
	}

	where := strings.Join(conditions, " AND ")

	var total int
	countQuery := `SELECT COUNT(*) FROM leads WHERE ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count leads: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	args = append(args, params.PageSize, offset)
	listQuery := fmt.Sprintf(`SELECT %s FROM leads WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		leadColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list leads: %w", err)
	}
	defer rows.Close()

	var leads []Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate leads: %w", err)
	}
	return leads, total, nil
}

// TryReserve grants the reservation with a conditional update. The status
// list in the WHERE clause is the single source of truth for which states
// a reservation may start from; losing the race returns false, no error.
func (r *Repository) TryReserve(ctx context.Context, leadID, agentID uuid.UUID, until time.Time) (Lead, bool, error) {
	query := `
		UPDATE leads
		SET status = 'RESERVED', reserved_agent_id = $2, reserved_at = now(), reserved_until = $3, updated_at = now()
		WHERE id = $1 AND status IN ('PENDING', 'AVAILABLE', 'REJECTED', 'EXPIRED')
		RETURNING` + leadColumns

	lead, err := scanLead(r.pool.QueryRow(ctx, query, leadID, agentID, until))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, false, nil
		}
		return Lead{}, false, fmt.Errorf("failed to reserve lead: %w", err)
	}
	return lead, true, nil
}

// Accept resolves the reservation. The holder check and the lapse check
// live in the WHERE clause so a stale or foreign accept simply misses.
func (r *Repository) Accept(ctx context.Context, leadID, agentID uuid.UUID) (Lead, bool, error) {
	query := `
		UPDATE leads
		SET status = 'ACCEPTED', assigned_agent_id = reserved_agent_id,
		    responded_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'RESERVED' AND reserved_agent_id = $2 AND reserved_until > now()
		RETURNING` + leadColumns

	lead, err := scanLead(r.pool.QueryRow(ctx, query, leadID, agentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, false, nil
		}
		return Lead{}, false, fmt.Errorf("failed to accept lead: %w", err)
	}
	return lead, true, nil
}

// Reject resolves the reservation under the same holder and lapse guards
// as Accept. The reservation fields are cleared so the lead can be
// re-reserved by the next candidate.
func (r *Repository) Reject(ctx context.Context, leadID, agentID uuid.UUID) (Lead, bool, error) {
	query := `
		UPDATE leads
		SET status = 'REJECTED', reserved_agent_id = NULL, reserved_at = NULL, reserved_until = NULL,
		    responded_at = now(), updated_at = now()
		WHERE id = $1 AND status = 'RESERVED' AND reserved_agent_id = $2 AND reserved_until > now()
		RETURNING` + leadColumns

	lead, err := scanLead(r.pool.QueryRow(ctx, query, leadID, agentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, false, nil
		}
		return Lead{}, false, fmt.Errorf("failed to reject lead: %w", err)
	}
	return lead, true, nil
}

// ForceExpire moves a lapsed reservation to EXPIRED and reports which agent
// held it. Safe to call twice for the same lead: the second call misses.
func (r *Repository) ForceExpire(ctx context.Context, leadID uuid.UUID) (Lead, uuid.UUID, bool, error) {
	query := `
		WITH due AS (
			SELECT id, reserved_agent_id
			FROM leads
			WHERE id = $1 AND status = 'RESERVED' AND reserved_until <= now()
			FOR UPDATE
		)
		UPDATE leads l
		SET status = 'EXPIRED', reserved_agent_id = NULL, reserved_at = NULL, reserved_until = NULL, updated_at = now()
		FROM due
		WHERE l.id = due.id
		RETURNING due.reserved_agent_id,` + leadColumns

	var agentID uuid.UUID
	var l Lead
	err := r.pool.QueryRow(ctx, query, leadID).Scan(
		&agentID,
		&l.ID, &l.OrganizationID, &l.PropertyRef, &l.ContactRef, &l.Status, &l.DistributionMode,
		&l.ReferrerAgentID, &l.ReservedAgentID, &l.ReservedAt, &l.ReservedUntil, &l.AssignedAgentID,
		&l.Source, &l.CreatedAt, &l.RespondedAt, &l.CompletedAt, &l.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, uuid.Nil, false, nil
		}
		return Lead{}, uuid.Nil, false, fmt.Errorf("failed to expire reservation: %w", err)
	}
	return l, agentID, true, nil
}

// MarkAvailable parks an unreserved lead in the public pool.
func (r *Repository) MarkAvailable(ctx context.Context, leadID uuid.UUID) (Lead, bool, error) {
	query := `
		UPDATE leads
		SET status = 'AVAILABLE', reserved_agent_id = NULL, reserved_at = NULL, reserved_until = NULL, updated_at = now()
		WHERE id = $1 AND status IN ('PENDING', 'REJECTED', 'EXPIRED')
		RETURNING` + leadColumns

	lead, err := scanLead(r.pool.QueryRow(ctx, query, leadID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, false, nil
		}
		return Lead{}, false, fmt.Errorf("failed to mark lead available: %w", err)
	}
	return lead, true, nil
}

// Complete records the completion signal on an ACCEPTED lead.
func (r *Repository) Complete(ctx context.Context, leadID, organizationID uuid.UUID) (Lead, bool, error) {
	query := `
		UPDATE leads
		SET status = 'COMPLETED', completed_at = now(), updated_at = now()
		WHERE id = $1 AND organization_id = $2 AND status = 'ACCEPTED'
		RETURNING` + leadColumns

	lead, err := scanLead(r.pool.QueryRow(ctx, query, leadID, organizationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Lead{}, false, nil
		}
		return Lead{}, false, fmt.Errorf("failed to complete lead: %w", err)
	}
	return lead, true, nil
}

// AbandonStale ages out AVAILABLE leads created before the cutoff.
func (r *Repository) AbandonStale(ctx context.Context, cutoff time.Time, limit int) ([]AbandonedLead, error) {
	query := `
		WITH stale AS (
			SELECT id FROM leads
			WHERE status = 'AVAILABLE' AND created_at < $1
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		UPDATE leads l
		SET status = 'ABANDONED', updated_at = now()
		FROM stale
		WHERE l.id = stale.id
		RETURNING l.id, l.organization_id`

	rows, err := r.pool.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to abandon stale leads: %w", err)
	}
	defer rows.Close()

	var abandoned []AbandonedLead
	for rows.Next() {
		var a AbandonedLead
		if err := rows.Scan(&a.LeadID, &a.OrganizationID); err != nil {
			return nil, fmt.Errorf("failed to scan abandoned lead: %w", err)
		}
		abandoned = append(abandoned, a)
	}
	return abandoned, rows.Err()
}

// ListDueReservations finds lapsed reservations. Read-only: the actual
// transition goes through ForceExpire so concurrent sweepers stay safe.
func (r *Repository) ListDueReservations(ctx context.Context, limit int) ([]DueReservation, error) {
	query := `
		SELECT id, organization_id, reserved_agent_id, reserved_until
		FROM leads
		WHERE status = 'RESERVED' AND reserved_until <= now()
		ORDER BY reserved_until
		LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list due reservations: %w", err)
	}
	defer rows.Close()

	var due []DueReservation
	for rows.Next() {
		var d DueReservation
		if err := rows.Scan(&d.LeadID, &d.OrganizationID, &d.AgentID, &d.ReservedUntil); err != nil {
			return nil, fmt.Errorf("failed to scan due reservation: %w", err)
		}
		due = append(due, d)
	}
	return due, rows.Err()
}
