package service

import (
	"context"
	"time"

	queuedomain "realty_portal_backend/internal/queue/domain"

	"github.com/google/uuid"
)

// OutcomeParams is the ledger append the leads side owes the queue after a
// lead outcome. Points are decided here, from the scoring policy; the queue
// only records them.
type OutcomeParams struct {
	OrganizationID uuid.UUID
	AgentID        uuid.UUID
	Action         queuedomain.Action
	Points         int
	Description    *string
	ResponseTime   *time.Duration
}

// AgentQueue is the narrow view of the agent queue the distribution engine
// needs. The concrete wiring lives in internal/adapters.
type AgentQueue interface {
	RankEntries(ctx context.Context, organizationID uuid.UUID) ([]queuedomain.RankEntry, error)
	AgentIDByUserRef(ctx context.Context, userRef, organizationID uuid.UUID) (uuid.UUID, error)
	IsActive(ctx context.Context, agentID, organizationID uuid.UUID) (bool, error)
	RecordOutcome(ctx context.Context, params OutcomeParams) error
	AdjustActiveLeads(ctx context.Context, agentID uuid.UUID, delta int) error
}

// ExpiryScheduler schedules the precise per-reservation expiry task. The
// ticker sweep remains the backstop when scheduling fails, so implementations
// may be best-effort.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, leadID uuid.UUID, at time.Time) error
}

// NoopExpiryScheduler leaves expiry entirely to the sweep. Used in tests and
// in deployments without the background worker.
type NoopExpiryScheduler struct{}

func (NoopExpiryScheduler) ScheduleExpiry(context.Context, uuid.UUID, time.Time) error { return nil }
