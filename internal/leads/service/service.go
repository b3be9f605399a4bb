package service

import (
	"context"
	"fmt"
	"time"

	"realty_portal_backend/internal/events"
	"realty_portal_backend/internal/leads/domain"
	"realty_portal_backend/internal/leads/repository"
	queuedomain "realty_portal_backend/internal/queue/domain"
	"realty_portal_backend/platform/apperr"
	"realty_portal_backend/platform/config"
	"realty_portal_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100

	// sweepBatchSize bounds one sweep pass so a backlog of lapsed
	// reservations cannot starve the ticker loop.
	sweepBatchSize = 200
)

// Service implements lead intake, distribution and the reservation
// lifecycle.
type Service struct {
	store     repository.Store
	queue     AgentQueue
	scheduler ExpiryScheduler
	bus       events.Bus
	cfg       config.DistributionConfig
	log       *logger.Logger
}

// New creates the leads service.
func New(store repository.Store, queue AgentQueue, scheduler ExpiryScheduler, bus events.Bus, cfg config.DistributionConfig, log *logger.Logger) *Service {
	return &Service{store: store, queue: queue, scheduler: scheduler, bus: bus, cfg: cfg, log: log}
}

// CreateParams describes a new lead entering the engine. DistributionMode,
// when set, overrides the organization's configured mode for this lead.
type CreateParams struct {
	OrganizationID   uuid.UUID
	PropertyRef      string
	ContactRef       string
	ReferrerAgentID  *uuid.UUID
	Source           *string
	DistributionMode *domain.Mode
}

// Create registers a lead, snapshots the distribution mode onto it, and
// immediately runs one distribution pass. The returned lead reflects the
// post-distribution state: RESERVED when a candidate was found, AVAILABLE
// otherwise. Later settings edits never touch the snapshotted mode.
func (s *Service) Create(ctx context.Context, params CreateParams) (repository.Lead, error) {
	settings, err := s.effectiveSettings(ctx, params.OrganizationID)
	if err != nil {
		return repository.Lead{}, err
	}

	mode := settings.Mode
	if params.DistributionMode != nil {
		if !params.DistributionMode.Valid() {
			return repository.Lead{}, apperr.Validation("unknown distribution mode")
		}
		mode = *params.DistributionMode
	}

	lead, err := s.store.Create(ctx, repository.CreateLeadParams{
		OrganizationID:   params.OrganizationID,
		PropertyRef:      params.PropertyRef,
		ContactRef:       params.ContactRef,
		DistributionMode: mode,
		ReferrerAgentID:  params.ReferrerAgentID,
		Source:           params.Source,
	})
	if err != nil {
		return repository.Lead{}, apperr.StorageFault("leads.create", err)
	}

	s.bus.Publish(ctx, events.LeadCreated{
		BaseEvent:        events.NewBaseEvent(),
		LeadID:           lead.ID,
		OrganizationID:   lead.OrganizationID,
		PropertyRef:      lead.PropertyRef,
		ContactRef:       lead.ContactRef,
		DistributionMode: string(lead.DistributionMode),
		ReferrerAgentID:  lead.ReferrerAgentID,
	})

	return s.distribute(ctx, lead, settings)
}

// AgentForUser resolves the caller's queue entry for agent-facing actions.
func (s *Service) AgentForUser(ctx context.Context, userRef, organizationID uuid.UUID) (uuid.UUID, error) {
	return s.queue.AgentIDByUserRef(ctx, userRef, organizationID)
}

// Get returns a lead scoped to the caller's organization.
func (s *Service) Get(ctx context.Context, leadID, organizationID uuid.UUID) (repository.Lead, error) {
	return s.store.GetByID(ctx, leadID, organizationID)
}

// ListResult is a page of leads.
type ListResult struct {
	Items      []repository.Lead
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}

// List returns leads for an organization, optionally filtered by status or
// by the agent currently holding or assigned to them.
func (s *Service) List(ctx context.Context, params repository.ListLeadsParams) (ListResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = defaultPageSize
	}
	if params.PageSize > maxPageSize {
		params.PageSize = maxPageSize
	}

	items, total, err := s.store.List(ctx, params)
	if err != nil {
		return ListResult{}, apperr.StorageFault("leads.list", err)
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize
	return ListResult{
		Items:      items,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// Accept resolves a reservation in the holding agent's favor. A lapsed
// reservation is expired first and the accept fails: the exclusivity window
// is over even if the sweep has not caught up yet.
func (s *Service) Accept(ctx context.Context, leadID, organizationID, agentID uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, leadID, organizationID)
	if err != nil {
		return repository.Lead{}, err
	}

	if lead.Status == domain.StatusReserved && !lead.HasLiveReservation(time.Now()) {
		if _, err := s.ExpireReservation(ctx, lead.ID); err != nil {
			return repository.Lead{}, err
		}
		return repository.Lead{}, apperr.AlreadyResolved(leadID.String())
	}

	updated, ok, err := s.store.Accept(ctx, leadID, agentID)
	if err != nil {
		return repository.Lead{}, apperr.StorageFault("leads.accept", err)
	}
	if !ok {
		return repository.Lead{}, s.resolveConflict(ctx, leadID, organizationID, agentID)
	}

	var responseTime *time.Duration
	if updated.ReservedAt != nil && updated.RespondedAt != nil {
		d := updated.RespondedAt.Sub(*updated.ReservedAt)
		responseTime = &d
	}

	if err := s.store.ResolveOffer(ctx, leadID, agentID, repository.OfferAccepted); err != nil {
		s.log.DatabaseError("leads.resolve_offer", err)
	}

	policy := s.cfg.GetScoringPolicy()
	s.recordOutcome(ctx, OutcomeParams{
		OrganizationID: organizationID,
		AgentID:        agentID,
		Action:         queuedomain.ActionAccepted,
		Points:         policy.AcceptPoints,
		Description:    describe("accepted lead %s", leadID),
		ResponseTime:   responseTime,
	})

	s.log.LeadTransition(leadID.String(), string(domain.StatusReserved), string(domain.StatusAccepted), agentID.String())
	s.publishStatusChanged(ctx, updated, domain.StatusReserved, &agentID)
	s.bus.Publish(ctx, events.LeadAccepted{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		OrganizationID: organizationID,
		AgentID:        agentID,
		ResponseTime:   derefDuration(responseTime),
	})
	return updated, nil
}

// Reject resolves a reservation as a decline, scores the penalty, and
// immediately re-runs distribution. The rejecting agent is already in the
// offer exclusion set, so the lead never bounces back to them.
func (s *Service) Reject(ctx context.Context, leadID, organizationID, agentID uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, leadID, organizationID)
	if err != nil {
		return repository.Lead{}, err
	}

	if lead.Status == domain.StatusReserved && !lead.HasLiveReservation(time.Now()) {
		if _, err := s.ExpireReservation(ctx, lead.ID); err != nil {
			return repository.Lead{}, err
		}
		return repository.Lead{}, apperr.AlreadyResolved(leadID.String())
	}

	updated, ok, err := s.store.Reject(ctx, leadID, agentID)
	if err != nil {
		return repository.Lead{}, apperr.StorageFault("leads.reject", err)
	}
	if !ok {
		return repository.Lead{}, s.resolveConflict(ctx, leadID, organizationID, agentID)
	}

	if err := s.store.ResolveOffer(ctx, leadID, agentID, repository.OfferRejected); err != nil {
		s.log.DatabaseError("leads.resolve_offer", err)
	}

	policy := s.cfg.GetScoringPolicy()
	s.recordOutcome(ctx, OutcomeParams{
		OrganizationID: organizationID,
		AgentID:        agentID,
		Action:         queuedomain.ActionRejected,
		Points:         policy.RejectPoints,
		Description:    describe("rejected lead %s", leadID),
	})
	if err := s.queue.AdjustActiveLeads(ctx, agentID, -1); err != nil {
		s.log.DatabaseError("leads.adjust_active", err)
	}

	s.log.LeadTransition(leadID.String(), string(domain.StatusReserved), string(domain.StatusRejected), agentID.String())
	s.publishStatusChanged(ctx, updated, domain.StatusReserved, &agentID)
	s.bus.Publish(ctx, events.LeadRejected{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		OrganizationID: organizationID,
		AgentID:        agentID,
	})

	settings, err := s.effectiveSettings(ctx, organizationID)
	if err != nil {
		return repository.Lead{}, err
	}
	return s.distribute(ctx, updated, settings)
}

// Claim lets an active agent take an AVAILABLE lead from the public pool.
// The claim grants a normal reservation: the agent still has to accept
// within the window.
func (s *Service) Claim(ctx context.Context, leadID, organizationID, agentID uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, leadID, organizationID)
	if err != nil {
		return repository.Lead{}, err
	}
	if lead.Status != domain.StatusAvailable {
		if lead.HasLiveReservation(time.Now()) {
			return repository.Lead{}, apperr.AlreadyReserved(leadID.String())
		}
		return repository.Lead{}, apperr.InvalidTransition(string(lead.Status), string(domain.StatusReserved))
	}

	active, err := s.queue.IsActive(ctx, agentID, organizationID)
	if err != nil {
		return repository.Lead{}, err
	}
	if !active {
		return repository.Lead{}, apperr.Conflict("agent is not active in the queue")
	}

	settings, err := s.effectiveSettings(ctx, organizationID)
	if err != nil {
		return repository.Lead{}, err
	}
	return s.reserve(ctx, lead, agentID, settings)
}

// ManualAssign hands the lead to a specific agent, bypassing policy
// selection. Used by administrators and required for the MANUAL mode.
func (s *Service) ManualAssign(ctx context.Context, leadID, organizationID, agentID uuid.UUID) (repository.Lead, error) {
	lead, err := s.store.GetByID(ctx, leadID, organizationID)
	if err != nil {
		return repository.Lead{}, err
	}
	if lead.HasLiveReservation(time.Now()) {
		return repository.Lead{}, apperr.AlreadyReserved(leadID.String())
	}
	if !domain.Reservable(lead.Status) {
		return repository.Lead{}, apperr.InvalidTransition(string(lead.Status), string(domain.StatusReserved))
	}

	active, err := s.queue.IsActive(ctx, agentID, organizationID)
	if err != nil {
		return repository.Lead{}, err
	}
	if !active {
		return repository.Lead{}, apperr.Conflict("agent is not active in the queue")
	}

	settings, err := s.effectiveSettings(ctx, organizationID)
	if err != nil {
		return repository.Lead{}, err
	}
	return s.reserve(ctx, lead, agentID, settings)
}

// Complete records the external signal that an accepted lead converted.
func (s *Service) Complete(ctx context.Context, leadID, organizationID uuid.UUID) (repository.Lead, error) {
	updated, ok, err := s.store.Complete(ctx, leadID, organizationID)
	if err != nil {
		return repository.Lead{}, apperr.StorageFault("leads.complete", err)
	}
	if !ok {
		lead, err := s.store.GetByID(ctx, leadID, organizationID)
		if err != nil {
			return repository.Lead{}, err
		}
		return repository.Lead{}, apperr.InvalidTransition(string(lead.Status), string(domain.StatusCompleted))
	}

	if updated.AssignedAgentID != nil {
		if err := s.queue.AdjustActiveLeads(ctx, *updated.AssignedAgentID, -1); err != nil {
			s.log.DatabaseError("leads.adjust_active", err)
		}
	}

	s.log.LeadTransition(leadID.String(), string(domain.StatusAccepted), string(domain.StatusCompleted), agentRef(updated.AssignedAgentID))
	s.publishStatusChanged(ctx, updated, domain.StatusAccepted, updated.AssignedAgentID)
	s.bus.Publish(ctx, events.LeadCompleted{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		OrganizationID: organizationID,
		AgentID:        updated.AssignedAgentID,
	})
	return updated, nil
}

// ExpireReservation force-expires one lapsed reservation, scores the
// penalty, and re-runs distribution. Idempotent: a second call for the same
// lead finds nothing to do.
func (s *Service) ExpireReservation(ctx context.Context, leadID uuid.UUID) (repository.Lead, error) {
	lead, agentID, ok, err := s.store.ForceExpire(ctx, leadID)
	if err != nil {
		return repository.Lead{}, apperr.StorageFault("leads.expire", err)
	}
	if !ok {
		// Already resolved or still live. Either way, nothing to expire.
		return repository.Lead{}, nil
	}

	if err := s.store.ResolveOffer(ctx, leadID, agentID, repository.OfferExpired); err != nil {
		s.log.DatabaseError("leads.resolve_offer", err)
	}

	policy := s.cfg.GetScoringPolicy()
	s.recordOutcome(ctx, OutcomeParams{
		OrganizationID: lead.OrganizationID,
		AgentID:        agentID,
		Action:         queuedomain.ActionExpired,
		Points:         policy.ExpirePoints,
		Description:    describe("let reservation expire on lead %s", leadID),
	})
	if err := s.queue.AdjustActiveLeads(ctx, agentID, -1); err != nil {
		s.log.DatabaseError("leads.adjust_active", err)
	}

	s.log.LeadTransition(leadID.String(), string(domain.StatusReserved), string(domain.StatusExpired), agentID.String())
	s.publishStatusChanged(ctx, lead, domain.StatusReserved, &agentID)
	s.bus.Publish(ctx, events.ReservationExpired{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         leadID,
		OrganizationID: lead.OrganizationID,
		AgentID:        agentID,
	})

	settings, err := s.effectiveSettings(ctx, lead.OrganizationID)
	if err != nil {
		return repository.Lead{}, err
	}
	return s.distribute(ctx, lead, settings)
}

// SweepDueReservations expires every lapsed reservation it can find. It is
// the backstop behind the per-reservation scheduled tasks and runs on a
// ticker. Returns the number of reservations expired.
func (s *Service) SweepDueReservations(ctx context.Context) (int, error) {
	due, err := s.store.ListDueReservations(ctx, sweepBatchSize)
	if err != nil {
		return 0, apperr.StorageFault("leads.sweep", err)
	}

	expired := 0
	for _, d := range due {
		overdue := time.Since(d.ReservedUntil).Milliseconds()
		s.log.ReservationExpired(d.LeadID.String(), d.AgentID.String(), overdue)
		if _, err := s.ExpireReservation(ctx, d.LeadID); err != nil {
			s.log.DatabaseError("leads.sweep_expire", err)
			continue
		}
		expired++
	}
	return expired, nil
}

// AbandonStale ages out AVAILABLE leads older than the configured horizon.
// A zero horizon disables abandonment entirely.
func (s *Service) AbandonStale(ctx context.Context) (int, error) {
	horizon := s.cfg.GetAbandonAfter()
	if horizon <= 0 {
		return 0, nil
	}

	abandoned, err := s.store.AbandonStale(ctx, time.Now().Add(-horizon), sweepBatchSize)
	if err != nil {
		return 0, apperr.StorageFault("leads.abandon", err)
	}
	for _, a := range abandoned {
		s.log.LeadTransition(a.LeadID.String(), string(domain.StatusAvailable), string(domain.StatusAbandoned), "")
		s.bus.Publish(ctx, events.LeadAbandoned{
			BaseEvent:      events.NewBaseEvent(),
			LeadID:         a.LeadID,
			OrganizationID: a.OrganizationID,
		})
		s.bus.Publish(ctx, events.LeadStatusChanged{
			BaseEvent:      events.NewBaseEvent(),
			LeadID:         a.LeadID,
			OrganizationID: a.OrganizationID,
			OldStatus:      string(domain.StatusAvailable),
			NewStatus:      string(domain.StatusAbandoned),
		})
	}
	return len(abandoned), nil
}

// ── Settings ──────────────────────────────────────────────────────────────────

// GetSettings returns the organization's distribution settings, materialized
// from deployment defaults when never customized.
func (s *Service) GetSettings(ctx context.Context, organizationID uuid.UUID) (repository.Settings, error) {
	return s.effectiveSettings(ctx, organizationID)
}

// UpdateSettings replaces the organization's distribution settings. The new
// mode applies to leads created afterwards only.
func (s *Service) UpdateSettings(ctx context.Context, settings repository.Settings) (repository.Settings, error) {
	if !settings.Mode.Valid() {
		return repository.Settings{}, apperr.Validation("unknown distribution mode")
	}
	if settings.ReservationTTL != nil && *settings.ReservationTTL < time.Minute {
		return repository.Settings{}, apperr.Validation("reservation ttl must be at least one minute")
	}
	if settings.MaxActiveLeads < 0 {
		return repository.Settings{}, apperr.Validation("max active leads cannot be negative")
	}

	out, err := s.store.UpsertSettings(ctx, settings)
	if err != nil {
		return repository.Settings{}, apperr.StorageFault("leads.update_settings", err)
	}
	return out, nil
}

func (s *Service) effectiveSettings(ctx context.Context, organizationID uuid.UUID) (repository.Settings, error) {
	settings, found, err := s.store.GetSettings(ctx, organizationID)
	if err != nil {
		return repository.Settings{}, apperr.StorageFault("leads.get_settings", err)
	}
	if !found {
		return repository.Settings{
			OrganizationID: organizationID,
			Mode:           domain.ModeRoundRobin,
			MaxActiveLeads: s.cfg.GetScoringPolicy().MaxActiveLeads,
		}, nil
	}
	return settings, nil
}

func (s *Service) reservationTTL(settings repository.Settings) time.Duration {
	if settings.ReservationTTL != nil {
		return *settings.ReservationTTL
	}
	return s.cfg.GetReservationTTL()
}

// ── Distribution ──────────────────────────────────────────────────────────────

// distribute runs one policy pass over the current ranking snapshot. The
// loop exists because TryReserve can lose to a concurrent writer: on a lost
// race for the lead itself we stop (someone else resolved it), and a
// NoEligibleAgent outcome parks the lead in the public pool.
func (s *Service) distribute(ctx context.Context, lead repository.Lead, settings repository.Settings) (repository.Lead, error) {
	if lead.DistributionMode == domain.ModeManual {
		return s.parkAvailable(ctx, lead)
	}

	entries, err := s.queue.RankEntries(ctx, lead.OrganizationID)
	if err != nil {
		return repository.Lead{}, err
	}
	excluded, err := s.store.OfferedAgentIDs(ctx, lead.ID)
	if err != nil {
		return repository.Lead{}, apperr.StorageFault("leads.offered_agents", err)
	}

	policy := domain.PolicyFor(lead.DistributionMode)
	agentID, found := policy.SelectNext(domain.Offer{ReferrerAgentID: lead.ReferrerAgentID}, entries, excluded, settings.MaxActiveLeads)
	if !found {
		return s.parkAvailable(ctx, lead)
	}
	return s.reserve(ctx, lead, agentID, settings)
}

// reserve grants the reservation via compare-and-swap and performs the
// bookkeeping a successful grant implies.
func (s *Service) reserve(ctx context.Context, lead repository.Lead, agentID uuid.UUID, settings repository.Settings) (repository.Lead, error) {
	until := time.Now().Add(s.reservationTTL(settings))

	updated, ok, err := s.store.TryReserve(ctx, lead.ID, agentID, until)
	if err != nil {
		return repository.Lead{}, apperr.StorageFault("leads.reserve", err)
	}
	if !ok {
		// Lost the race: a concurrent claim or assignment got there first.
		return repository.Lead{}, apperr.AlreadyReserved(lead.ID.String())
	}

	if err := s.store.RecordOffer(ctx, lead.ID, agentID); err != nil {
		s.log.DatabaseError("leads.record_offer", err)
	}
	if err := s.queue.AdjustActiveLeads(ctx, agentID, 1); err != nil {
		s.log.DatabaseError("leads.adjust_active", err)
	}
	if err := s.scheduler.ScheduleExpiry(ctx, lead.ID, until); err != nil {
		// The sweep will catch it.
		s.log.DatabaseError("leads.schedule_expiry", err)
	}

	s.log.LeadTransition(lead.ID.String(), string(lead.Status), string(domain.StatusReserved), agentID.String())
	s.publishStatusChanged(ctx, updated, lead.Status, &agentID)
	s.bus.Publish(ctx, events.LeadReserved{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		AgentID:        agentID,
		ReservedUntil:  until,
	})
	return updated, nil
}

func (s *Service) parkAvailable(ctx context.Context, lead repository.Lead) (repository.Lead, error) {
	if lead.Status == domain.StatusAvailable {
		return lead, nil
	}
	updated, ok, err := s.store.MarkAvailable(ctx, lead.ID)
	if err != nil {
		return repository.Lead{}, apperr.StorageFault("leads.park", err)
	}
	if !ok {
		// Concurrent writer moved the lead on. Report what it is now.
		return s.store.GetByID(ctx, lead.ID, lead.OrganizationID)
	}

	s.log.LeadTransition(lead.ID.String(), string(lead.Status), string(domain.StatusAvailable), "")
	s.publishStatusChanged(ctx, updated, lead.Status, nil)
	return updated, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// resolveConflict explains a failed Accept/Reject compare-and-swap.
func (s *Service) resolveConflict(ctx context.Context, leadID, organizationID, agentID uuid.UUID) error {
	lead, err := s.store.GetByID(ctx, leadID, organizationID)
	if err != nil {
		return err
	}
	if lead.Status == domain.StatusReserved && lead.ReservedAgentID != nil && *lead.ReservedAgentID != agentID {
		return apperr.AlreadyReserved(leadID.String())
	}
	return apperr.AlreadyResolved(leadID.String())
}

func (s *Service) recordOutcome(ctx context.Context, params OutcomeParams) {
	if err := s.queue.RecordOutcome(ctx, params); err != nil {
		s.log.DatabaseError("leads.record_outcome", err)
	}
}

func (s *Service) publishStatusChanged(ctx context.Context, lead repository.Lead, from domain.Status, agentID *uuid.UUID) {
	s.bus.Publish(ctx, events.LeadStatusChanged{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID,
		OrganizationID: lead.OrganizationID,
		OldStatus:      string(from),
		NewStatus:      string(lead.Status),
		AgentID:        agentID,
	})
}

func describe(format string, args ...any) *string {
	msg := fmt.Sprintf(format, args...)
	return &msg
}

func derefDuration(d *time.Duration) time.Duration {
	if d == nil {
		return 0
	}
	return *d
}

func agentRef(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
