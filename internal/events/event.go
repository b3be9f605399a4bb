// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"time"

	"realty_portal_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Lead Lifecycle Events
// =============================================================================

// LeadCreated is published when a new lead enters the engine.
type LeadCreated struct {
	BaseEvent
	LeadID           uuid.UUID  `json:"leadId"`
	OrganizationID   uuid.UUID  `json:"organizationId"`
	PropertyRef      string     `json:"propertyRef"`
	ContactRef       string     `json:"contactRef"`
	DistributionMode string     `json:"distributionMode"`
	ReferrerAgentID  *uuid.UUID `json:"referrerAgentId,omitempty"`
}

func (e LeadCreated) EventName() string { return "leads.lead.created" }

// LeadStatusChanged is published on every lead state machine transition.
// It is the fire-and-forget signal consumed by notification subsystems.
type LeadStatusChanged struct {
	BaseEvent
	LeadID         uuid.UUID  `json:"leadId"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	OldStatus      string     `json:"oldStatus"`
	NewStatus      string     `json:"newStatus"`
	AgentID        *uuid.UUID `json:"agentId,omitempty"`
}

func (e LeadStatusChanged) EventName() string { return "leads.lead.status_changed" }

// LeadReserved is published when an agent is granted first refusal on a lead.
type LeadReserved struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	AgentID        uuid.UUID `json:"agentId"`
	ReservedUntil  time.Time `json:"reservedUntil"`
}

func (e LeadReserved) EventName() string { return "leads.lead.reserved" }

// LeadAccepted is published when the reserved agent accepts within the window.
type LeadAccepted struct {
	BaseEvent
	LeadID         uuid.UUID     `json:"leadId"`
	OrganizationID uuid.UUID     `json:"organizationId"`
	AgentID        uuid.UUID     `json:"agentId"`
	ResponseTime   time.Duration `json:"responseTime"`
}

func (e LeadAccepted) EventName() string { return "leads.lead.accepted" }

// LeadRejected is published when the reserved agent explicitly declines.
type LeadRejected struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	AgentID        uuid.UUID `json:"agentId"`
}

func (e LeadRejected) EventName() string { return "leads.lead.rejected" }

// ReservationExpired is published when the sweep force-expires a lapsed
// reservation.
type ReservationExpired struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	AgentID        uuid.UUID `json:"agentId"`
}

func (e ReservationExpired) EventName() string { return "leads.reservation.expired" }

// LeadCompleted is published on the external completion signal.
type LeadCompleted struct {
	BaseEvent
	LeadID         uuid.UUID  `json:"leadId"`
	OrganizationID uuid.UUID  `json:"organizationId"`
	AgentID        *uuid.UUID `json:"agentId,omitempty"`
}

func (e LeadCompleted) EventName() string { return "leads.lead.completed" }

// LeadAbandoned is published when an unclaimed lead passes the long-horizon
// abandonment timeout.
type LeadAbandoned struct {
	BaseEvent
	LeadID         uuid.UUID `json:"leadId"`
	OrganizationID uuid.UUID `json:"organizationId"`
}

func (e LeadAbandoned) EventName() string { return "leads.lead.abandoned" }

// =============================================================================
// Agent Queue Events
// =============================================================================

// AgentScoreChanged is published after any score ledger append.
type AgentScoreChanged struct {
	BaseEvent
	AgentID        uuid.UUID `json:"agentId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Action         string    `json:"action"`
	Points         int       `json:"points"`
	NewScore       int       `json:"newScore"`
}

func (e AgentScoreChanged) EventName() string { return "queue.agent.score_changed" }

// AgentStatusChanged is published when an agent toggles ACTIVE/INACTIVE.
type AgentStatusChanged struct {
	BaseEvent
	AgentID        uuid.UUID `json:"agentId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Status         string    `json:"status"`
}

func (e AgentStatusChanged) EventName() string { return "queue.agent.status_changed" }
