package repository

import (
	"context"

	"realty_portal_backend/internal/queue/domain"

	"github.com/google/uuid"
)

// AgentStore provides agent queue entry operations.
type AgentStore interface {
	Create(ctx context.Context, params CreateAgentParams) (Agent, error)
	GetByID(ctx context.Context, id, organizationID uuid.UUID) (Agent, error)
	GetByUserRef(ctx context.Context, userRef, organizationID uuid.UUID) (Agent, error)
	ListByOrganization(ctx context.Context, organizationID uuid.UUID) ([]Agent, error)
	ListActiveRankEntries(ctx context.Context, organizationID uuid.UUID) ([]domain.RankEntry, error)
	SetStatus(ctx context.Context, id, organizationID uuid.UUID, status domain.AgentStatus) (Agent, error)
	AdjustActiveLeads(ctx context.Context, id uuid.UUID, delta int) error
}

// LedgerStore provides append-only score ledger operations.
type LedgerStore interface {
	RecordEvent(ctx context.Context, params RecordEventParams) (LedgerEntry, int, error)
	SumPoints(ctx context.Context, agentID uuid.UUID) (int, error)
	ListDivergedScores(ctx context.Context) ([]DivergedScore, error)
	RepairScore(ctx context.Context, agentID, organizationID uuid.UUID, cached, computed int) (LedgerEntry, error)
	History(ctx context.Context, agentID uuid.UUID, limit int, cursor string) ([]LedgerEntry, string, error)
}

// Store combines agent and ledger persistence.
type Store interface {
	AgentStore
	LedgerStore
}

// Compile-time check that the concrete repository satisfies the store.
var _ Store = (*Repository)(nil)
