package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// GetSettings returns the organization's distribution settings, or false
// when the organization has never customized them.
func (r *Repository) GetSettings(ctx context.Context, organizationID uuid.UUID) (Settings, bool, error) {
	query := `
		SELECT organization_id, mode, reservation_ttl_seconds, max_active_leads, updated_at
		FROM distribution_settings
		WHERE organization_id = $1`

	var s Settings
	var ttlSeconds *int64
	err := r.pool.QueryRow(ctx, query, organizationID).Scan(
		&s.OrganizationID, &s.Mode, &ttlSeconds, &s.MaxActiveLeads, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Settings{}, false, nil
		}
		return Settings{}, false, fmt.Errorf("failed to get distribution settings: %w", err)
	}
	if ttlSeconds != nil {
		ttl := time.Duration(*ttlSeconds) * time.Second
		s.ReservationTTL = &ttl
	}
	return s, true, nil
}

// UpsertSettings writes the organization's distribution settings.
func (r *Repository) UpsertSettings(ctx context.Context, settings Settings) (Settings, error) {
	var ttlSeconds *int64
	if settings.ReservationTTL != nil {
		secs := int64(settings.ReservationTTL.Seconds())
		ttlSeconds = &secs
	}

	query := `
		INSERT INTO distribution_settings (organization_id, mode, reservation_ttl_seconds, max_active_leads, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (organization_id) DO UPDATE SET
			mode = EXCLUDED.mode,
			reservation_ttl_seconds = EXCLUDED.reservation_ttl_seconds,
			max_active_leads = EXCLUDED.max_active_leads,
			updated_at = now()
		RETURNING organization_id, mode, reservation_ttl_seconds, max_active_leads, updated_at`

	var out Settings
	var outTTL *int64
	err := r.pool.QueryRow(ctx, query,
		settings.OrganizationID, settings.Mode, ttlSeconds, settings.MaxActiveLeads,
	).Scan(&out.OrganizationID, &out.Mode, &outTTL, &out.MaxActiveLeads, &out.UpdatedAt)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to upsert distribution settings: %w", err)
	}
	if outTTL != nil {
		ttl := time.Duration(*outTTL) * time.Second
		out.ReservationTTL = &ttl
	}
	return out, nil
}
