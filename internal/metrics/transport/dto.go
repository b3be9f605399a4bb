// Package transport defines response DTOs for the metrics API.
package transport

import "github.com/google/uuid"

// OverviewResponse is the organization funnel for one window.
type OverviewResponse struct {
	WindowDays     int            `json:"windowDays"`
	LeadsCreated   int            `json:"leadsCreated"`
	LeadsCompleted int            `json:"leadsCompleted"`
	LeadsAbandoned int            `json:"leadsAbandoned"`
	OffersMade     int            `json:"offersMade"`
	OffersAccepted int            `json:"offersAccepted"`
	OffersRejected int            `json:"offersRejected"`
	OffersExpired  int            `json:"offersExpired"`
	AcceptanceRate float64        `json:"acceptanceRate"`
	ConversionRate float64        `json:"conversionRate"`
	ResponseRate   float64        `json:"responseRate"`
	AvgResponseMs  int64          `json:"avgResponseMs"`
	StatusCounts   map[string]int `json:"statusCounts"`
}

// AgentMetricsResponse is one agent's window aggregate.
type AgentMetricsResponse struct {
	AgentID        uuid.UUID `json:"agentId"`
	Score          int       `json:"score"`
	OffersMade     int       `json:"offersMade"`
	OffersAccepted int       `json:"offersAccepted"`
	OffersRejected int       `json:"offersRejected"`
	OffersExpired  int       `json:"offersExpired"`
	AcceptanceRate float64   `json:"acceptanceRate"`
	AvgResponseMs  int64     `json:"avgResponseMs"`
	ActiveLeads    int       `json:"activeLeads"`
	PendingReply   int       `json:"pendingReply"`
	StalledLeads   int       `json:"stalledLeads"`
}

// TopAgentsResponse wraps the leaderboard.
type TopAgentsResponse struct {
	WindowDays int                    `json:"windowDays"`
	Items      []AgentMetricsResponse `json:"items"`
}
