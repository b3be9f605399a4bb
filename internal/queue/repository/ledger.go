package repository

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"realty_portal_backend/internal/queue/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// LedgerEntry is immutable once written.
type LedgerEntry struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	AgentID        uuid.UUID
	Action         domain.Action
	Points         int
	Description    *string
	CreatedAt      time.Time
}

type RecordEventParams struct {
	OrganizationID uuid.UUID
	AgentID        uuid.UUID
	Action         domain.Action
	Points         int
	Description    *string
	// ResponseTimeMs feeds the avg-response-time cache on ACCEPTED events.
	ResponseTimeMs *int64
}

// RecordEvent appends a ledger entry and maintains the cached score and
// per-action counters in the same transaction, so the cache can only
// diverge through external interference, which Reconcile detects.
// Returns the entry and the agent's new cached score.
func (r *Repository) RecordEvent(ctx context.Context, params RecordEventParams) (LedgerEntry, int, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return LedgerEntry{}, 0, err
	}
	defer tx.Rollback(ctx)

	var entry LedgerEntry
	err = tx.QueryRow(ctx, `
		INSERT INTO score_ledger (organization_id, agent_id, action, points, description)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, organization_id, agent_id, action, points, description, created_at
	`, params.OrganizationID, params.AgentID, params.Action, params.Points, params.Description).Scan(
		&entry.ID, &entry.OrganizationID, &entry.AgentID, &entry.Action, &entry.Points, &entry.Description, &entry.CreatedAt,
	)
	if err != nil {
		return LedgerEntry{}, 0, err
	}

	acceptedDelta, rejectedDelta, expiredDelta := 0, 0, 0
	switch params.Action {
	case domain.ActionAccepted:
		acceptedDelta = 1
	case domain.ActionRejected:
		rejectedDelta = 1
	case domain.ActionExpired:
		expiredDelta = 1
	}

	responseMs := int64(0)
	responseCountDelta := 0
	if params.ResponseTimeMs != nil {
		responseMs = *params.ResponseTimeMs
		responseCountDelta = 1
	}

	var newScore int
	err = tx.QueryRow(ctx, `
		UPDATE agents
		SET score = score + $2,
		    total_accepted = total_accepted + $3,
		    total_rejected = total_rejected + $4,
		    total_expired = total_expired + $5,
		    response_time_ms_total = response_time_ms_total + $6,
		    response_count = response_count + $7,
		    last_activity_at = now(),
		    updated_at = now()
		WHERE id = $1
		RETURNING score
	`, params.AgentID, params.Points, acceptedDelta, rejectedDelta, expiredDelta, responseMs, responseCountDelta).Scan(&newScore)
	if errors.Is(err, pgx.ErrNoRows) {
		return LedgerEntry{}, 0, ErrNotFound
	}
	if err != nil {
		return LedgerEntry{}, 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return LedgerEntry{}, 0, err
	}
	return entry, newScore, nil
}

// SumPoints computes the agent's true score from the ledger alone.
func (r *Repository) SumPoints(ctx context.Context, agentID uuid.UUID) (int, error) {
	var sum int
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(points), 0)
		FROM score_ledger
		WHERE agent_id = $1
	`, agentID).Scan(&sum)
	return sum, err
}

// DivergedScore is one agent whose cached score no longer matches the ledger.
type DivergedScore struct {
	AgentID        uuid.UUID
	OrganizationID uuid.UUID
	Cached         int
	Computed       int
}

// ListDivergedScores finds every agent whose score cache disagrees with the
// ledger sum. A non-empty result is an integrity fault to surface, never to
// silently repair.
func (r *Repository) ListDivergedScores(ctx context.Context) ([]DivergedScore, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.organization_id, a.score, COALESCE(SUM(l.points), 0) AS computed
		FROM agents a
		LEFT JOIN score_ledger l ON l.agent_id = a.id
		GROUP BY a.id, a.organization_id, a.score
		HAVING a.score <> COALESCE(SUM(l.points), 0)
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	diverged := make([]DivergedScore, 0)
	for rows.Next() {
		var d DivergedScore
		if err := rows.Scan(&d.AgentID, &d.OrganizationID, &d.Cached, &d.Computed); err != nil {
			return nil, err
		}
		diverged = append(diverged, d)
	}
	return diverged, rows.Err()
}

// RepairScore resets the cached score to the ledger sum and writes a
// SCORE_RECONCILED audit entry (points 0) in the same transaction.
func (r *Repository) RepairScore(ctx context.Context, agentID, organizationID uuid.UUID, cached, computed int) (LedgerEntry, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return LedgerEntry{}, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE agents
		SET score = $2, updated_at = now()
		WHERE id = $1
	`, agentID, computed)
	if err != nil {
		return LedgerEntry{}, err
	}
	if tag.RowsAffected() == 0 {
		return LedgerEntry{}, ErrNotFound
	}

	description := fmt.Sprintf("score cache repaired: cached=%d ledger=%d", cached, computed)
	var entry LedgerEntry
	err = tx.QueryRow(ctx, `
		INSERT INTO score_ledger (organization_id, agent_id, action, points, description)
		VALUES ($1, $2, $3, 0, $4)
		RETURNING id, organization_id, agent_id, action, points, description, created_at
	`, organizationID, agentID, domain.ActionReconciled, description).Scan(
		&entry.ID, &entry.OrganizationID, &entry.AgentID, &entry.Action, &entry.Points, &entry.Description, &entry.CreatedAt,
	)
	if err != nil {
		return LedgerEntry{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return LedgerEntry{}, err
	}
	return entry, nil
}

// History returns ledger entries newest first, keyset-paginated. An empty
// cursor starts at the newest entry; the returned cursor is empty when the
// sequence is exhausted.
func (r *Repository) History(ctx context.Context, agentID uuid.UUID, limit int, cursor string) ([]LedgerEntry, string, error) {
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := `
		SELECT id, organization_id, agent_id, action, points, description, created_at
		FROM score_ledger
		WHERE agent_id = $1`
	args := []interface{}{agentID}

	if cursor != "" {
		at, id, err := decodeHistoryCursor(cursor)
		if err != nil {
			return nil, "", err
		}
		query += ` AND (created_at, id) < ($2, $3)`
		args = append(args, at, id)
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id DESC LIMIT %d`, limit+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	entries := make([]LedgerEntry, 0, limit)
	for rows.Next() {
		var e LedgerEntry
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.AgentID, &e.Action, &e.Points, &e.Description, &e.CreatedAt); err != nil {
			return nil, "", err
		}
		entries = append(entries, e)
	}
	if rows.Err() != nil {
		return nil, "", rows.Err()
	}

	next := ""
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		next = encodeHistoryCursor(last.CreatedAt, last.ID)
	}
	return entries, next, nil
}

var errBadCursor = errors.New("malformed history cursor")

func encodeHistoryCursor(at time.Time, id uuid.UUID) string {
	raw := at.UTC().Format(time.RFC3339Nano) + "|" + id.String()
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

func decodeHistoryCursor(cursor string) (time.Time, uuid.UUID, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, uuid.Nil, errBadCursor
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, uuid.Nil, errBadCursor
	}
	at, err := time.Parse(time.RFC3339Nano, parts[0])
	if err != nil {
		return time.Time{}, uuid.Nil, errBadCursor
	}
	id, err := uuid.Parse(parts[1])
	if err != nil {
		return time.Time{}, uuid.Nil, errBadCursor
	}
	return at, id, nil
}
