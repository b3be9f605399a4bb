// Package transport defines request and response DTOs for the leads API.
package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateLeadRequest registers a new lead for distribution. Property and
// contact are references into the wider platform, not embedded records.
type CreateLeadRequest struct {
	PropertyRef     string  `json:"propertyRef" validate:"required,min=1,max=255"`
	ContactRef      string  `json:"contactRef" validate:"required,min=1,max=255"`
	ReferrerAgentID *string `json:"referrerAgentId,omitempty" validate:"omitempty,uuid"`
	Source          *string `json:"source,omitempty" validate:"omitempty,max=100"`

	// DistributionMode overrides the organization's configured mode for
	// this lead only.
	DistributionMode *string `json:"distributionMode,omitempty" validate:"omitempty,oneof=ROUND_ROBIN CAPTURER_FIRST MANUAL"`
}

// AssignLeadRequest is the administrative manual assignment.
type AssignLeadRequest struct {
	AgentID string `json:"agentId" validate:"required,uuid"`
}

// UpdateSettingsRequest replaces an organization's distribution settings.
type UpdateSettingsRequest struct {
	Mode                  string `json:"mode" validate:"required,oneof=ROUND_ROBIN CAPTURER_FIRST MANUAL"`
	ReservationTTLSeconds *int64 `json:"reservationTtlSeconds,omitempty" validate:"omitempty,min=60"`
	MaxActiveLeads        int    `json:"maxActiveLeads" validate:"min=0"`
}

// LeadResponse represents a lead in API responses.
type LeadResponse struct {
	ID               uuid.UUID  `json:"id"`
	OrganizationID   uuid.UUID  `json:"organizationId"`
	PropertyRef      string     `json:"propertyRef"`
	ContactRef       string     `json:"contactRef"`
	Status           string     `json:"status"`
	DistributionMode string     `json:"distributionMode"`
	ReferrerAgentID  *uuid.UUID `json:"referrerAgentId,omitempty"`
	ReservedAgentID  *uuid.UUID `json:"reservedAgentId,omitempty"`
	ReservedUntil    *time.Time `json:"reservedUntil,omitempty"`
	AssignedAgentID  *uuid.UUID `json:"assignedAgentId,omitempty"`
	Source           *string    `json:"source,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	RespondedAt      *time.Time `json:"respondedAt,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// LeadListResponse is a page of leads.
type LeadListResponse struct {
	Items      []LeadResponse `json:"items"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"pageSize"`
	TotalPages int            `json:"totalPages"`
}

// SettingsResponse represents distribution settings in API responses.
type SettingsResponse struct {
	OrganizationID        uuid.UUID `json:"organizationId"`
	Mode                  string    `json:"mode"`
	ReservationTTLSeconds *int64    `json:"reservationTtlSeconds,omitempty"`
	MaxActiveLeads        int       `json:"maxActiveLeads"`
	UpdatedAt             time.Time `json:"updatedAt"`
}
