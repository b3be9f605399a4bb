package service

import (
	"context"
	"testing"
	"time"

	"realty_portal_backend/internal/events"
	"realty_portal_backend/internal/queue/domain"
	"realty_portal_backend/internal/queue/repository"
	"realty_portal_backend/platform/apperr"
	"realty_portal_backend/platform/logger"

	"github.com/google/uuid"
)

type fakeQueueStore struct {
	agents  map[uuid.UUID]repository.Agent
	ledger  []repository.RecordEventParams
	entries []domain.RankEntry
}

func newFakeQueueStore() *fakeQueueStore {
	return &fakeQueueStore{agents: make(map[uuid.UUID]repository.Agent)}
}

func (s *fakeQueueStore) addAgent(organizationID uuid.UUID, score int, status domain.AgentStatus) repository.Agent {
	agent := repository.Agent{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		UserRef:        uuid.New(),
		Status:         status,
		Score:          score,
		LastActivityAt: time.Now(),
		CreatedAt:      time.Now(),
	}
	s.agents[agent.ID] = agent
	if status == domain.StatusActive {
		s.entries = append(s.entries, domain.RankEntry{
			AgentID:        agent.ID,
			Score:          score,
			LastActivityAt: agent.LastActivityAt,
		})
	}
	return agent
}

func (s *fakeQueueStore) Create(_ context.Context, params repository.CreateAgentParams) (repository.Agent, error) {
	for _, agent := range s.agents {
		if agent.UserRef == params.UserRef && agent.OrganizationID == params.OrganizationID {
			return repository.Agent{}, repository.ErrAlreadyJoined
		}
	}
	agent := repository.Agent{
		ID:             uuid.New(),
		OrganizationID: params.OrganizationID,
		UserRef:        params.UserRef,
		Status:         domain.StatusActive,
	}
	s.agents[agent.ID] = agent
	return agent, nil
}

func (s *fakeQueueStore) GetByID(_ context.Context, id, organizationID uuid.UUID) (repository.Agent, error) {
	agent, ok := s.agents[id]
	if !ok || agent.OrganizationID != organizationID {
		return repository.Agent{}, repository.ErrNotFound
	}
	return agent, nil
}

func (s *fakeQueueStore) GetByUserRef(_ context.Context, userRef, organizationID uuid.UUID) (repository.Agent, error) {
	for _, agent := range s.agents {
		if agent.UserRef == userRef && agent.OrganizationID == organizationID {
			return agent, nil
		}
	}
	return repository.Agent{}, repository.ErrNotFound
}

func (s *fakeQueueStore) ListByOrganization(_ context.Context, organizationID uuid.UUID) ([]repository.Agent, error) {
	var out []repository.Agent
	for _, agent := range s.agents {
		if agent.OrganizationID == organizationID {
			out = append(out, agent)
		}
	}
	return out, nil
}

func (s *fakeQueueStore) ListActiveRankEntries(context.Context, uuid.UUID) ([]domain.RankEntry, error) {
	return append([]domain.RankEntry(nil), s.entries...), nil
}

func (s *fakeQueueStore) SetStatus(_ context.Context, id, organizationID uuid.UUID, status domain.AgentStatus) (repository.Agent, error) {
	agent, ok := s.agents[id]
	if !ok || agent.OrganizationID != organizationID {
		return repository.Agent{}, repository.ErrNotFound
	}
	agent.Status = status
	s.agents[id] = agent
	return agent, nil
}

func (s *fakeQueueStore) AdjustActiveLeads(_ context.Context, id uuid.UUID, delta int) error {
	agent, ok := s.agents[id]
	if !ok {
		return repository.ErrNotFound
	}
	agent.ActiveLeadCount += delta
	s.agents[id] = agent
	return nil
}

func (s *fakeQueueStore) RecordEvent(_ context.Context, params repository.RecordEventParams) (repository.LedgerEntry, int, error) {
	agent, ok := s.agents[params.AgentID]
	if !ok {
		return repository.LedgerEntry{}, 0, repository.ErrNotFound
	}
	s.ledger = append(s.ledger, params)
	agent.Score += params.Points
	s.agents[params.AgentID] = agent
	return repository.LedgerEntry{
		ID:             uuid.New(),
		OrganizationID: params.OrganizationID,
		AgentID:        params.AgentID,
		Action:         params.Action,
		Points:         params.Points,
	}, agent.Score, nil
}

func (s *fakeQueueStore) SumPoints(_ context.Context, agentID uuid.UUID) (int, error) {
	sum := 0
	for _, entry := range s.ledger {
		if entry.AgentID == agentID {
			sum += entry.Points
		}
	}
	return sum, nil
}

func (s *fakeQueueStore) ListDivergedScores(context.Context) ([]repository.DivergedScore, error) {
	var out []repository.DivergedScore
	for _, agent := range s.agents {
		sum, _ := s.SumPoints(context.Background(), agent.ID)
		if sum != agent.Score {
			out = append(out, repository.DivergedScore{
				AgentID:        agent.ID,
				OrganizationID: agent.OrganizationID,
				Cached:         agent.Score,
				Computed:       sum,
			})
		}
	}
	return out, nil
}

func (s *fakeQueueStore) RepairScore(_ context.Context, agentID, organizationID uuid.UUID, cached, computed int) (repository.LedgerEntry, error) {
	agent := s.agents[agentID]
	agent.Score = computed
	s.agents[agentID] = agent
	return repository.LedgerEntry{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		AgentID:        agentID,
		Action:         domain.ActionReconciled,
	}, nil
}

func (s *fakeQueueStore) History(context.Context, uuid.UUID, int, string) ([]repository.LedgerEntry, string, error) {
	return nil, "", nil
}

type dropBus struct{}

func (dropBus) Publish(context.Context, events.Event)           {}
func (dropBus) PublishSync(context.Context, events.Event) error { return nil }
func (dropBus) Subscribe(string, events.Handler)                {}

func newQueueService(store *fakeQueueStore) *Service {
	return New(store, dropBus{}, logger.New("test"))
}

func TestJoinTwiceConflicts(t *testing.T) {
	store := newFakeQueueStore()
	svc := newQueueService(store)

	orgID := uuid.New()
	userRef := uuid.New()
	if _, err := svc.Join(context.Background(), orgID, userRef); err != nil {
		t.Fatalf("first join: %v", err)
	}
	if _, err := svc.Join(context.Background(), orgID, userRef); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("expected conflict on duplicate join, got %v", err)
	}
}

func TestSetStatusRejectsUnknownValue(t *testing.T) {
	store := newFakeQueueStore()
	svc := newQueueService(store)
	agent := store.addAgent(uuid.New(), 0, domain.StatusActive)

	_, err := svc.SetStatus(context.Background(), agent.ID, agent.OrganizationID, "SLEEPING")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestIsActiveUnknownAgentIsFalse(t *testing.T) {
	svc := newQueueService(newFakeQueueStore())

	active, err := svc.IsActive(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("is active: %v", err)
	}
	if active {
		t.Fatal("unknown agent must not be active")
	}
}

func TestRecordOutcomeConvertsResponseTime(t *testing.T) {
	store := newFakeQueueStore()
	svc := newQueueService(store)
	orgID := uuid.New()
	agent := store.addAgent(orgID, 0, domain.StatusActive)

	responseTime := 90 * time.Second
	_, err := svc.RecordOutcome(context.Background(), RecordOutcomeParams{
		OrganizationID: orgID,
		AgentID:        agent.ID,
		Action:         domain.ActionAccepted,
		Points:         10,
		ResponseTime:   &responseTime,
	})
	if err != nil {
		t.Fatalf("record outcome: %v", err)
	}

	if len(store.ledger) != 1 {
		t.Fatalf("expected 1 ledger append, got %d", len(store.ledger))
	}
	recorded := store.ledger[0]
	if recorded.ResponseTimeMs == nil || *recorded.ResponseTimeMs != 90000 {
		t.Fatalf("expected 90000ms response time, got %v", recorded.ResponseTimeMs)
	}
}

func TestSetScoreAppendsExactDelta(t *testing.T) {
	store := newFakeQueueStore()
	svc := newQueueService(store)
	orgID := uuid.New()
	agent := store.addAgent(orgID, 40, domain.StatusActive)

	entry, err := svc.SetScore(context.Background(), agent.ID, orgID, 25, "manual correction")
	if err != nil {
		t.Fatalf("set score: %v", err)
	}
	if entry.Action != domain.ActionManualAdjustment {
		t.Fatalf("expected MANUAL_ADJUSTMENT, got %s", entry.Action)
	}
	if entry.Points != -15 {
		t.Fatalf("expected delta -15, got %d", entry.Points)
	}
	if store.agents[agent.ID].Score != 25 {
		t.Fatalf("expected cached score 25, got %d", store.agents[agent.ID].Score)
	}
}

func TestSetScoreRequiresReason(t *testing.T) {
	store := newFakeQueueStore()
	svc := newQueueService(store)
	agent := store.addAgent(uuid.New(), 10, domain.StatusActive)

	_, err := svc.SetScore(context.Background(), agent.ID, agent.OrganizationID, 20, "")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSetScoreNoopDeltaRejected(t *testing.T) {
	store := newFakeQueueStore()
	svc := newQueueService(store)
	agent := store.addAgent(uuid.New(), 10, domain.StatusActive)

	_, err := svc.SetScore(context.Background(), agent.ID, agent.OrganizationID, 10, "no change")
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestReconcileReportsDivergence(t *testing.T) {
	store := newFakeQueueStore()
	svc := newQueueService(store)
	orgID := uuid.New()
	agent := store.addAgent(orgID, 50, domain.StatusActive) // cached 50, empty ledger

	diverged, err := svc.Reconcile(context.Background())
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(diverged) != 1 {
		t.Fatalf("expected 1 diverged agent, got %d", len(diverged))
	}
	if diverged[0].AgentID != agent.ID || diverged[0].Cached != 50 || diverged[0].Computed != 0 {
		t.Fatalf("unexpected divergence report: %+v", diverged[0])
	}
	// Detection never mutates the cache.
	if store.agents[agent.ID].Score != 50 {
		t.Fatal("reconcile must not repair silently")
	}
}

func TestRepairScoreResetsToLedgerSum(t *testing.T) {
	store := newFakeQueueStore()
	svc := newQueueService(store)
	orgID := uuid.New()
	agent := store.addAgent(orgID, 50, domain.StatusActive)

	entry, err := svc.RepairScore(context.Background(), agent.ID, orgID)
	if err != nil {
		t.Fatalf("repair: %v", err)
	}
	if entry.Action != domain.ActionReconciled {
		t.Fatalf("expected audit action, got %s", entry.Action)
	}
	if store.agents[agent.ID].Score != 0 {
		t.Fatalf("expected cache reset to ledger sum, got %d", store.agents[agent.ID].Score)
	}
}

func TestRepairScoreMatchingCacheRejected(t *testing.T) {
	store := newFakeQueueStore()
	svc := newQueueService(store)
	agent := store.addAgent(uuid.New(), 0, domain.StatusActive)

	_, err := svc.RepairScore(context.Background(), agent.ID, agent.OrganizationID)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRankReturnsActiveAgentsInOrder(t *testing.T) {
	store := newFakeQueueStore()
	svc := newQueueService(store)
	orgID := uuid.New()
	low := store.addAgent(orgID, 10, domain.StatusActive)
	high := store.addAgent(orgID, 90, domain.StatusActive)
	store.addAgent(orgID, 100, domain.StatusInactive)

	entries, err := svc.Rank(context.Background(), orgID)
	if err != nil {
		t.Fatalf("rank: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected only active agents, got %d entries", len(entries))
	}
	if entries[0].AgentID != high.ID || entries[1].AgentID != low.ID {
		t.Fatal("expected score-descending order")
	}
}
