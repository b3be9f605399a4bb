// Package domain provides core business rules for the agent queue bounded
// context: ledger actions, agent statuses, and the ranking order.
package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AgentStatus is the distribution participation state of an agent.
type AgentStatus string

const (
	StatusActive   AgentStatus = "ACTIVE"
	StatusInactive AgentStatus = "INACTIVE"
)

// Valid reports whether the status is a known value.
func (s AgentStatus) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

// Action is the reason code attached to a score ledger entry.
type Action string

const (
	ActionAccepted         Action = "ACCEPTED"
	ActionRejected         Action = "REJECTED"
	ActionExpired          Action = "EXPIRED"
	ActionManualAdjustment Action = "MANUAL_ADJUSTMENT"
	// ActionReconciled is the audit entry written when an admin repairs a
	// diverged score cache. Points are always 0; the cache fix is recorded,
	// never silent.
	ActionReconciled Action = "SCORE_RECONCILED"
)

// RankEntry is the minimal agent projection the ranking order is computed
// from. Position is never stored; it is always derived from these fields.
type RankEntry struct {
	AgentID         uuid.UUID
	Score           int
	LastActivityAt  time.Time
	ActiveLeadCount int
}

// Less implements the queue order: score desc, last activity asc (least
// recently active first among equals), then agent id asc. The id tiebreak
// guarantees a strict total order, so rank() never exposes ties.
func Less(a, b RankEntry) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.LastActivityAt.Equal(b.LastActivityAt) {
		return a.LastActivityAt.Before(b.LastActivityAt)
	}
	return strings.Compare(a.AgentID.String(), b.AgentID.String()) < 0
}

// Rank returns the entries in queue order. The input slice is not modified.
func Rank(entries []RankEntry) []RankEntry {
	ranked := append([]RankEntry(nil), entries...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return Less(ranked[i], ranked[j])
	})
	return ranked
}

// PositionOf returns the 1-based queue position of the agent, or false when
// the agent is not among the entries.
func PositionOf(entries []RankEntry, agentID uuid.UUID) (int, bool) {
	for i, entry := range Rank(entries) {
		if entry.AgentID == agentID {
			return i + 1, true
		}
	}
	return 0, false
}

// NextCandidate returns the highest-ranked entry not in the exclusion set
// and, when maxActiveLeads > 0, not at its reservation capacity. Returns
// false when no eligible agent remains; callers treat that as the normal
// NoEligibleAgent outcome, not an error.
func NextCandidate(entries []RankEntry, excluded map[uuid.UUID]struct{}, maxActiveLeads int) (uuid.UUID, bool) {
	for _, entry := range Rank(entries) {
		if _, skip := excluded[entry.AgentID]; skip {
			continue
		}
		if maxActiveLeads > 0 && entry.ActiveLeadCount >= maxActiveLeads {
			continue
		}
		return entry.AgentID, true
	}
	return uuid.Nil, false
}
