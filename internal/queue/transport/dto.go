package transport

import (
	"time"

	"github.com/google/uuid"
)

// SetAgentStatusRequest toggles distribution participation.
type SetAgentStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=ACTIVE INACTIVE"`
}

// SetScoreRequest is the administrative score override.
type SetScoreRequest struct {
	Score  int    `json:"score"`
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// AgentResponse represents a queue entry in API responses.
type AgentResponse struct {
	ID                uuid.UUID  `json:"id"`
	OrganizationID    uuid.UUID  `json:"organizationId"`
	UserRef           uuid.UUID  `json:"userRef"`
	Status            string     `json:"status"`
	Score             int        `json:"score"`
	Position          *int       `json:"position,omitempty"`
	ActiveLeadCount   int        `json:"activeLeadCount"`
	BonusLeadCount    int        `json:"bonusLeadCount"`
	TotalAccepted     int        `json:"totalAccepted"`
	TotalRejected     int        `json:"totalRejected"`
	TotalExpired      int        `json:"totalExpired"`
	AvgResponseTimeMs int64      `json:"avgResponseTimeMs"`
	LastActivityAt    time.Time  `json:"lastActivityAt"`
	CreatedAt         time.Time  `json:"createdAt"`
}

// RankEntryResponse is one row of the queue order.
type RankEntryResponse struct {
	Position        int       `json:"position"`
	AgentID         uuid.UUID `json:"agentId"`
	Score           int       `json:"score"`
	ActiveLeadCount int       `json:"activeLeadCount"`
	LastActivityAt  time.Time `json:"lastActivityAt"`
}

// RankResponse wraps the full queue order.
type RankResponse struct {
	Items []RankEntryResponse `json:"items"`
}

// LedgerEntryResponse represents an immutable score ledger entry.
type LedgerEntryResponse struct {
	ID          uuid.UUID `json:"id"`
	AgentID     uuid.UUID `json:"agentId"`
	Action      string    `json:"action"`
	Points      int       `json:"points"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LedgerHistoryResponse is a page of ledger entries, newest first.
type LedgerHistoryResponse struct {
	Items      []LedgerEntryResponse `json:"items"`
	NextCursor string                `json:"nextCursor,omitempty"`
}

// IntegrityFaultResponse reports one diverged score cache.
type IntegrityFaultResponse struct {
	AgentID  uuid.UUID `json:"agentId"`
	Cached   int       `json:"cached"`
	Computed int       `json:"computed"`
}

// IntegrityReportResponse wraps the ledger reconciliation result.
type IntegrityReportResponse struct {
	Faults []IntegrityFaultResponse `json:"faults"`
}
