// Package service provides business logic for the agent queue: score ledger,
// ranking, and queue membership.
package service

import (
	"context"
	"errors"
	"time"

	"realty_portal_backend/internal/events"
	"realty_portal_backend/internal/queue/domain"
	"realty_portal_backend/internal/queue/repository"
	"realty_portal_backend/platform/apperr"
	"realty_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type Service struct {
	store repository.Store
	bus   events.Bus
	log   *logger.Logger
}

func New(store repository.Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, bus: bus, log: log}
}

// Join opts an agent into distribution.
func (s *Service) Join(ctx context.Context, organizationID, userRef uuid.UUID) (repository.Agent, error) {
	agent, err := s.store.Create(ctx, repository.CreateAgentParams{
		OrganizationID: organizationID,
		UserRef:        userRef,
	})
	if errors.Is(err, repository.ErrAlreadyJoined) {
		return repository.Agent{}, apperr.Conflict("agent already in the distribution queue")
	}
	if err != nil {
		return repository.Agent{}, apperr.StorageFault("queue.join", err)
	}
	return agent, nil
}

func (s *Service) GetAgent(ctx context.Context, agentID, organizationID uuid.UUID) (repository.Agent, error) {
	agent, err := s.store.GetByID(ctx, agentID, organizationID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Agent{}, apperr.NotFound("agent not found")
	}
	if err != nil {
		return repository.Agent{}, apperr.StorageFault("queue.get_agent", err)
	}
	return agent, nil
}

// AgentByUserRef resolves the queue entry for an authenticated user.
func (s *Service) AgentByUserRef(ctx context.Context, userRef, organizationID uuid.UUID) (repository.Agent, error) {
	agent, err := s.store.GetByUserRef(ctx, userRef, organizationID)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Agent{}, apperr.NotFound("agent not found")
	}
	if err != nil {
		return repository.Agent{}, apperr.StorageFault("queue.get_agent", err)
	}
	return agent, nil
}

func (s *Service) ListAgents(ctx context.Context, organizationID uuid.UUID) ([]repository.Agent, error) {
	agents, err := s.store.ListByOrganization(ctx, organizationID)
	if err != nil {
		return nil, apperr.StorageFault("queue.list_agents", err)
	}
	return agents, nil
}

// SetStatus toggles distribution participation. The entry survives
// deactivation; only ranking eligibility changes.
func (s *Service) SetStatus(ctx context.Context, agentID, organizationID uuid.UUID, status domain.AgentStatus) (repository.Agent, error) {
	if !status.Valid() {
		return repository.Agent{}, apperr.Validation("status must be ACTIVE or INACTIVE")
	}

	agent, err := s.store.SetStatus(ctx, agentID, organizationID, status)
	if errors.Is(err, repository.ErrNotFound) {
		return repository.Agent{}, apperr.NotFound("agent not found")
	}
	if err != nil {
		return repository.Agent{}, apperr.StorageFault("queue.set_status", err)
	}

	s.bus.Publish(ctx, events.AgentStatusChanged{
		BaseEvent:      events.NewBaseEvent(),
		AgentID:        agent.ID,
		OrganizationID: agent.OrganizationID,
		Status:         string(agent.Status),
	})
	return agent, nil
}

// Rank returns the organization's ACTIVE agents in queue order. Positions
// are computed on demand from the snapshot, never read from storage.
func (s *Service) Rank(ctx context.Context, organizationID uuid.UUID) ([]domain.RankEntry, error) {
	entries, err := s.store.ListActiveRankEntries(ctx, organizationID)
	if err != nil {
		return nil, apperr.StorageFault("queue.rank", err)
	}
	return domain.Rank(entries), nil
}

// PositionOf returns the agent's 1-based queue position, or false when the
// agent is INACTIVE or unknown.
func (s *Service) PositionOf(ctx context.Context, agentID, organizationID uuid.UUID) (int, bool, error) {
	entries, err := s.store.ListActiveRankEntries(ctx, organizationID)
	if err != nil {
		return 0, false, apperr.StorageFault("queue.position_of", err)
	}
	pos, ok := domain.PositionOf(entries, agentID)
	return pos, ok, nil
}

// NextCandidate returns the highest-ranked eligible agent outside the
// exclusion set, honoring the reservation capacity cap when one is set.
// A false result is the normal NoEligibleAgent outcome.
func (s *Service) NextCandidate(ctx context.Context, organizationID uuid.UUID, excluded map[uuid.UUID]struct{}, maxActiveLeads int) (uuid.UUID, bool, error) {
	entries, err := s.store.ListActiveRankEntries(ctx, organizationID)
	if err != nil {
		return uuid.Nil, false, apperr.StorageFault("queue.next_candidate", err)
	}
	id, ok := domain.NextCandidate(entries, excluded, maxActiveLeads)
	return id, ok, nil
}

// IsActive reports whether the agent is currently eligible for distribution.
func (s *Service) IsActive(ctx context.Context, agentID, organizationID uuid.UUID) (bool, error) {
	agent, err := s.store.GetByID(ctx, agentID, organizationID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, apperr.StorageFault("queue.is_active", err)
	}
	return agent.Status == domain.StatusActive, nil
}

// AdjustActiveLeads moves the agent's reservation counter by delta. Called
// by the distribution engine on reserve, reject, expiry and completion.
func (s *Service) AdjustActiveLeads(ctx context.Context, agentID uuid.UUID, delta int) error {
	err := s.store.AdjustActiveLeads(ctx, agentID, delta)
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("agent not found")
	}
	if err != nil {
		return apperr.StorageFault("queue.adjust_active_leads", err)
	}
	return nil
}

// RecordOutcomeParams describes one ledger append driven by a lead outcome.
type RecordOutcomeParams struct {
	OrganizationID uuid.UUID
	AgentID        uuid.UUID
	Action         domain.Action
	Points         int
	Description    *string
	ResponseTime   *time.Duration
}

// RecordOutcome appends a ledger entry for a lead outcome. Automatic events
// and administrative adjustments share this single code path.
func (s *Service) RecordOutcome(ctx context.Context, params RecordOutcomeParams) (repository.LedgerEntry, error) {
	var responseMs *int64
	if params.ResponseTime != nil {
		ms := params.ResponseTime.Milliseconds()
		responseMs = &ms
	}

	entry, newScore, err := s.store.RecordEvent(ctx, repository.RecordEventParams{
		OrganizationID: params.OrganizationID,
		AgentID:        params.AgentID,
		Action:         params.Action,
		Points:         params.Points,
		Description:    params.Description,
		ResponseTimeMs: responseMs,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return repository.LedgerEntry{}, apperr.NotFound("agent not found")
	}
	if err != nil {
		return repository.LedgerEntry{}, apperr.StorageFault("queue.record_outcome", err)
	}

	s.log.LedgerEvent(params.AgentID.String(), string(params.Action), params.Points)
	s.bus.Publish(ctx, events.AgentScoreChanged{
		BaseEvent:      events.NewBaseEvent(),
		AgentID:        params.AgentID,
		OrganizationID: params.OrganizationID,
		Action:         string(params.Action),
		Points:         params.Points,
		NewScore:       newScore,
	})
	return entry, nil
}

// SetScore applies an administrative override by appending the exact
// MANUAL_ADJUSTMENT delta needed to reach the target score. There is no
// privileged bypass of the ledger.
func (s *Service) SetScore(ctx context.Context, agentID, organizationID uuid.UUID, newScore int, reason string) (repository.LedgerEntry, error) {
	if reason == "" {
		return repository.LedgerEntry{}, apperr.Validation("a reason is required for manual score adjustments")
	}

	agent, err := s.GetAgent(ctx, agentID, organizationID)
	if err != nil {
		return repository.LedgerEntry{}, err
	}

	delta := newScore - agent.Score
	if delta == 0 {
		return repository.LedgerEntry{}, apperr.Validation("agent already has the requested score")
	}

	return s.RecordOutcome(ctx, RecordOutcomeParams{
		OrganizationID: organizationID,
		AgentID:        agentID,
		Action:         domain.ActionManualAdjustment,
		Points:         delta,
		Description:    &reason,
	})
}

// CurrentScore computes the agent's score from the ledger alone, bypassing
// the cache.
func (s *Service) CurrentScore(ctx context.Context, agentID uuid.UUID) (int, error) {
	sum, err := s.store.SumPoints(ctx, agentID)
	if err != nil {
		return 0, apperr.StorageFault("queue.current_score", err)
	}
	return sum, nil
}

// History returns the agent's ledger entries newest first with a resumable
// cursor.
func (s *Service) History(ctx context.Context, agentID, organizationID uuid.UUID, limit int, cursor string) ([]repository.LedgerEntry, string, error) {
	// Scope check before paging through the ledger.
	if _, err := s.GetAgent(ctx, agentID, organizationID); err != nil {
		return nil, "", err
	}

	entries, next, err := s.store.History(ctx, agentID, limit, cursor)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindBadRequest, "ledger history", err)
	}
	return entries, next, nil
}

// Reconcile detects agents whose cached score diverged from the ledger sum.
// Divergence is reported as a fault; repair is a separate, audited action.
func (s *Service) Reconcile(ctx context.Context) ([]repository.DivergedScore, error) {
	diverged, err := s.store.ListDivergedScores(ctx)
	if err != nil {
		return nil, apperr.StorageFault("queue.reconcile", err)
	}
	for _, d := range diverged {
		s.log.Error("ledger integrity fault",
			"agent_id", d.AgentID,
			"cached", d.Cached,
			"computed", d.Computed,
		)
	}
	return diverged, nil
}

// RepairScore resets a diverged cache to the ledger sum, writing an audit
// entry. Returns an error when the cache already matches.
func (s *Service) RepairScore(ctx context.Context, agentID, organizationID uuid.UUID) (repository.LedgerEntry, error) {
	agent, err := s.GetAgent(ctx, agentID, organizationID)
	if err != nil {
		return repository.LedgerEntry{}, err
	}

	computed, err := s.store.SumPoints(ctx, agentID)
	if err != nil {
		return repository.LedgerEntry{}, apperr.StorageFault("queue.repair_score", err)
	}
	if computed == agent.Score {
		return repository.LedgerEntry{}, apperr.Validation("score cache matches the ledger; nothing to repair")
	}

	entry, err := s.store.RepairScore(ctx, agentID, organizationID, agent.Score, computed)
	if err != nil {
		return repository.LedgerEntry{}, apperr.StorageFault("queue.repair_score", err)
	}
	return entry, nil
}
