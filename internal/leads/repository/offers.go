package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// RecordOffer remembers that the agent was given a shot at the lead. The
// unique constraint makes a repeat offer a no-op rather than an error.
func (r *Repository) RecordOffer(ctx context.Context, leadID, agentID uuid.UUID) error {
	query := `
		INSERT INTO lead_offers (id, lead_id, agent_id, outcome)
		VALUES ($1, $2, $3, 'OFFERED')
		ON CONFLICT (lead_id, agent_id) DO NOTHING`

	if _, err := r.pool.Exec(ctx, query, uuid.New(), leadID, agentID); err != nil {
		return fmt.Errorf("failed to record offer: %w", err)
	}
	return nil
}

// ResolveOffer stamps how the offer ended.
func (r *Repository) ResolveOffer(ctx context.Context, leadID, agentID uuid.UUID, outcome OfferOutcome) error {
	query := `
		UPDATE lead_offers
		SET outcome = $3, resolved_at = now()
		WHERE lead_id = $1 AND agent_id = $2`

	if _, err := r.pool.Exec(ctx, query, leadID, agentID, outcome); err != nil {
		return fmt.Errorf("failed to resolve offer: %w", err)
	}
	return nil
}

// OfferedAgentIDs returns the exclusion set for the next distribution pass.
func (r *Repository) OfferedAgentIDs(ctx context.Context, leadID uuid.UUID) (map[uuid.UUID]struct{}, error) {
	rows, err := r.pool.Query(ctx, `SELECT agent_id FROM lead_offers WHERE lead_id = $1`, leadID)
	if err != nil {
		return nil, fmt.Errorf("failed to load offered agents: %w", err)
	}
	defer rows.Close()

	offered := make(map[uuid.UUID]struct{})
	for rows.Next() {
		var agentID uuid.UUID
		if err := rows.Scan(&agentID); err != nil {
			return nil, fmt.Errorf("failed to scan offered agent: %w", err)
		}
		offered[agentID] = struct{}{}
	}
	return offered, rows.Err()
}
