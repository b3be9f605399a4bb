package domain

import (
	queuedomain "realty_portal_backend/internal/queue/domain"

	"github.com/google/uuid"
)

// Mode is the distribution strategy snapshotted onto a lead at creation.
// Later settings changes never retroactively alter in-flight leads.
type Mode string

const (
	ModeRoundRobin    Mode = "ROUND_ROBIN"
	ModeCapturerFirst Mode = "CAPTURER_FIRST"
	ModeManual        Mode = "MANUAL"
)

// Valid reports whether the mode is a known value.
func (m Mode) Valid() bool {
	return m == ModeRoundRobin || m == ModeCapturerFirst || m == ModeManual
}

// Offer describes the lead fields a policy needs to pick the next agent.
type Offer struct {
	ReferrerAgentID *uuid.UUID
}

// Policy selects the next agent to receive a reservation. Policies are pure:
// they operate on a ranking snapshot and an exclusion set, and report false
// when nobody is eligible (the normal NoEligibleAgent outcome).
type Policy interface {
	SelectNext(offer Offer, entries []queuedomain.RankEntry, excluded map[uuid.UUID]struct{}, maxActiveLeads int) (uuid.UUID, bool)
}

// PolicyFor returns the strategy for a distribution mode.
func PolicyFor(mode Mode) Policy {
	switch mode {
	case ModeCapturerFirst:
		return capturerFirst{}
	case ModeManual:
		return manual{}
	default:
		return roundRobin{}
	}
}

// roundRobin delegates to the ranking order: fair rotation weighted by
// performance, since accepting raises score and recent activity lowers
// priority among equals.
type roundRobin struct{}

func (roundRobin) SelectNext(_ Offer, entries []queuedomain.RankEntry, excluded map[uuid.UUID]struct{}, maxActiveLeads int) (uuid.UUID, bool) {
	return queuedomain.NextCandidate(entries, excluded, maxActiveLeads)
}

// capturerFirst offers the lead to the agent whose own listing produced it,
// regardless of rank, then falls back to rotation among the rest.
type capturerFirst struct{}

func (capturerFirst) SelectNext(offer Offer, entries []queuedomain.RankEntry, excluded map[uuid.UUID]struct{}, maxActiveLeads int) (uuid.UUID, bool) {
	if offer.ReferrerAgentID != nil {
		referrer := *offer.ReferrerAgentID
		if _, skip := excluded[referrer]; !skip {
			for _, entry := range entries {
				if entry.AgentID != referrer {
					continue
				}
				if maxActiveLeads > 0 && entry.ActiveLeadCount >= maxActiveLeads {
					break
				}
				return referrer, true
			}
		}
	}
	return roundRobin{}.SelectNext(offer, entries, excluded, maxActiveLeads)
}

// manual never selects: leads stay AVAILABLE until an administrator assigns
// them or an agent claims from the pool.
type manual struct{}

func (manual) SelectNext(Offer, []queuedomain.RankEntry, map[uuid.UUID]struct{}, int) (uuid.UUID, bool) {
	return uuid.Nil, false
}
