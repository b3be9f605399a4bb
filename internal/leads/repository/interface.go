package repository

import (
	"context"
	"time"

	"realty_portal_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Lead is the unit of work being routed.
type Lead struct {
	ID               uuid.UUID
	OrganizationID   uuid.UUID
	PropertyRef      string
	ContactRef       string
	Status           domain.Status
	DistributionMode domain.Mode
	ReferrerAgentID  *uuid.UUID
	ReservedAgentID  *uuid.UUID
	ReservedAt       *time.Time
	ReservedUntil    *time.Time
	AssignedAgentID  *uuid.UUID
	Source           *string
	CreatedAt        time.Time
	RespondedAt      *time.Time
	CompletedAt      *time.Time
	UpdatedAt        time.Time
}

// HasLiveReservation reports whether the lead currently grants exclusivity.
func (l Lead) HasLiveReservation(now time.Time) bool {
	return l.Status == domain.StatusReserved && l.ReservedUntil != nil && l.ReservedUntil.After(now)
}

type CreateLeadParams struct {
	OrganizationID   uuid.UUID
	PropertyRef      string
	ContactRef       string
	DistributionMode domain.Mode
	ReferrerAgentID  *uuid.UUID
	Source           *string
}

type ListLeadsParams struct {
	OrganizationID uuid.UUID
	Status         *domain.Status
	AgentID        *uuid.UUID
	Page           int
	PageSize       int
}

// DueReservation is one lapsed reservation found by the sweep.
type DueReservation struct {
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
	AgentID        uuid.UUID
	ReservedUntil  time.Time
}

// AbandonedLead is one lead aged out of the public pool.
type AbandonedLead struct {
	LeadID         uuid.UUID
	OrganizationID uuid.UUID
}

// OfferOutcome records how an offer to one agent ended.
type OfferOutcome string

const (
	OfferOffered  OfferOutcome = "OFFERED"
	OfferAccepted OfferOutcome = "ACCEPTED"
	OfferRejected OfferOutcome = "REJECTED"
	OfferExpired  OfferOutcome = "EXPIRED"
)

// LeadStore provides lead persistence with conditional, atomic state
// transitions. All reservation-affecting updates are compare-and-swap on
// the current status, never read-then-write.
type LeadStore interface {
	Create(ctx context.Context, params CreateLeadParams) (Lead, error)
	GetByID(ctx context.Context, id, organizationID uuid.UUID) (Lead, error)
	List(ctx context.Context, params ListLeadsParams) ([]Lead, int, error)

	// TryReserve grants the reservation iff the lead is currently in a
	// reservable status. Returns false when a concurrent caller won.
	TryReserve(ctx context.Context, leadID, agentID uuid.UUID, until time.Time) (Lead, bool, error)
	// Accept resolves the reservation iff held by agentID and not lapsed.
	Accept(ctx context.Context, leadID, agentID uuid.UUID) (Lead, bool, error)
	// Reject resolves the reservation iff held by agentID and not lapsed.
	Reject(ctx context.Context, leadID, agentID uuid.UUID) (Lead, bool, error)
	// ForceExpire transitions a lapsed reservation to EXPIRED and reports
	// the agent who let it lapse. Returns false when another caller already
	// resolved the lead.
	ForceExpire(ctx context.Context, leadID uuid.UUID) (Lead, uuid.UUID, bool, error)
	// MarkAvailable parks the lead in the public pool.
	MarkAvailable(ctx context.Context, leadID uuid.UUID) (Lead, bool, error)
	// Complete records the external completion signal on an ACCEPTED lead.
	Complete(ctx context.Context, leadID, organizationID uuid.UUID) (Lead, bool, error)
	// AbandonStale ages AVAILABLE leads created before the cutoff.
	AbandonStale(ctx context.Context, cutoff time.Time, limit int) ([]AbandonedLead, error)
	// ListDueReservations finds lapsed reservations for the expiry sweep.
	ListDueReservations(ctx context.Context, limit int) ([]DueReservation, error)
}

// OfferStore records which agents have been offered a lead. The rows double
// as the distribution exclusion set.
type OfferStore interface {
	RecordOffer(ctx context.Context, leadID, agentID uuid.UUID) error
	ResolveOffer(ctx context.Context, leadID, agentID uuid.UUID, outcome OfferOutcome) error
	OfferedAgentIDs(ctx context.Context, leadID uuid.UUID) (map[uuid.UUID]struct{}, error)
}

// Settings is per-organization distribution configuration, captured into
// each lead at creation time.
type Settings struct {
	OrganizationID uuid.UUID
	Mode           domain.Mode
	// ReservationTTL overrides the deployment default when non-nil.
	ReservationTTL *time.Duration
	MaxActiveLeads int
	UpdatedAt      time.Time
}

type SettingsStore interface {
	GetSettings(ctx context.Context, organizationID uuid.UUID) (Settings, bool, error)
	UpsertSettings(ctx context.Context, settings Settings) (Settings, error)
}

// Store combines all leads persistence.
type Store interface {
	LeadStore
	OfferStore
	SettingsStore
}

// Compile-time check that the concrete repository satisfies the store.
var _ Store = (*Repository)(nil)
