// Package adapters wires bounded contexts together behind the narrow ports
// each context defines, keeping the modules free of direct dependencies on
// their neighbors' services.
package adapters

import (
	"context"

	leadsservice "realty_portal_backend/internal/leads/service"
	queuedomain "realty_portal_backend/internal/queue/domain"
	queueservice "realty_portal_backend/internal/queue/service"

	"github.com/google/uuid"
)

// QueueGateway adapts the queue service to the leads distribution port.
type QueueGateway struct {
	svc *queueservice.Service
}

func NewQueueGateway(svc *queueservice.Service) *QueueGateway {
	return &QueueGateway{svc: svc}
}

func (g *QueueGateway) RankEntries(ctx context.Context, organizationID uuid.UUID) ([]queuedomain.RankEntry, error) {
	return g.svc.Rank(ctx, organizationID)
}

func (g *QueueGateway) AgentIDByUserRef(ctx context.Context, userRef, organizationID uuid.UUID) (uuid.UUID, error) {
	agent, err := g.svc.AgentByUserRef(ctx, userRef, organizationID)
	if err != nil {
		return uuid.Nil, err
	}
	return agent.ID, nil
}

func (g *QueueGateway) IsActive(ctx context.Context, agentID, organizationID uuid.UUID) (bool, error) {
	return g.svc.IsActive(ctx, agentID, organizationID)
}

func (g *QueueGateway) RecordOutcome(ctx context.Context, params leadsservice.OutcomeParams) error {
	_, err := g.svc.RecordOutcome(ctx, queueservice.RecordOutcomeParams{
		OrganizationID: params.OrganizationID,
		AgentID:        params.AgentID,
		Action:         params.Action,
		Points:         params.Points,
		Description:    params.Description,
		ResponseTime:   params.ResponseTime,
	})
	return err
}

func (g *QueueGateway) AdjustActiveLeads(ctx context.Context, agentID uuid.UUID, delta int) error {
	return g.svc.AdjustActiveLeads(ctx, agentID, delta)
}

// Compile-time check against the leads port.
var _ leadsservice.AgentQueue = (*QueueGateway)(nil)
