package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"realty_portal_backend/internal/leads/domain"
	"realty_portal_backend/internal/leads/repository"
	"realty_portal_backend/internal/leads/service"
	"realty_portal_backend/internal/leads/transport"
	"realty_portal_backend/platform/httpkit"
	"realty_portal_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid lead ID"
)

// Handler handles HTTP requests for leads and distribution.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts lead routes on the protected group. Intake gets its
// own rate limit since it is driven by listing traffic.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup, intakeLimit gin.HandlerFunc) {
	group.POST("", intakeLimit, h.Create)
	group.GET("", h.List)
	group.GET("/settings", h.GetSettings)
	group.GET("/:id", h.Get)
	group.POST("/:id/accept", h.Accept)
	group.POST("/:id/reject", h.Reject)
	group.POST("/:id/claim", h.Claim)
}

// RegisterAdminRoutes mounts administrative lead routes.
func (h *Handler) RegisterAdminRoutes(group *gin.RouterGroup) {
	group.PUT("/settings", h.UpdateSettings)
	group.POST("/:id/assign", h.Assign)
	group.POST("/:id/complete", h.Complete)
}

// Create registers a new lead and runs the first distribution pass.
// POST /api/v1/leads
func (h *Handler) Create(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	var referrer *uuid.UUID
	if req.ReferrerAgentID != nil {
		id, err := uuid.Parse(*req.ReferrerAgentID)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid referrer agent ID", nil)
			return
		}
		referrer = &id
	}
	var mode *domain.Mode
	if req.DistributionMode != nil {
		m := domain.Mode(*req.DistributionMode)
		mode = &m
	}

	lead, err := h.svc.Create(c.Request.Context(), service.CreateParams{
		OrganizationID:   tenantID,
		PropertyRef:      req.PropertyRef,
		ContactRef:       req.ContactRef,
		ReferrerAgentID:  referrer,
		Source:           req.Source,
		DistributionMode: mode,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, toLeadResponse(lead))
}

// List returns the organization's leads.
// GET /api/v1/leads?status=&agentId=&page=&pageSize=
func (h *Handler) List(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("pageSize", "20"))
	params := repository.ListLeadsParams{
		OrganizationID: tenantID,
		Page:           page,
		PageSize:       pageSize,
	}
	if raw := c.Query("status"); raw != "" {
		status := domain.Status(raw)
		params.Status = &status
	}
	if raw := c.Query("agentId"); raw != "" {
		agentID, err := uuid.Parse(raw)
		if err != nil {
			httpkit.Error(c, http.StatusBadRequest, "invalid agent ID", nil)
			return
		}
		params.AgentID = &agentID
	}

	result, err := h.svc.List(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.LeadResponse, 0, len(result.Items))
	for _, lead := range result.Items {
		items = append(items, toLeadResponse(lead))
	}
	httpkit.OK(c, transport.LeadListResponse{
		Items:      items,
		Total:      result.Total,
		Page:       result.Page,
		PageSize:   result.PageSize,
		TotalPages: result.TotalPages,
	})
}

// Get returns one lead.
// GET /api/v1/leads/:id
func (h *Handler) Get(c *gin.Context) {
	leadID, tenantID, ok := h.leadScope(c)
	if !ok {
		return
	}

	lead, err := h.svc.Get(c.Request.Context(), leadID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toLeadResponse(lead))
}

// Accept resolves the caller's reservation in their favor.
// POST /api/v1/leads/:id/accept
func (h *Handler) Accept(c *gin.Context) {
	h.respond(c, h.svc.Accept)
}

// Reject declines the caller's reservation and passes the lead on.
// POST /api/v1/leads/:id/reject
func (h *Handler) Reject(c *gin.Context) {
	h.respond(c, h.svc.Reject)
}

// Claim takes an AVAILABLE lead from the public pool.
// POST /api/v1/leads/:id/claim
func (h *Handler) Claim(c *gin.Context) {
	h.respond(c, h.svc.Claim)
}

// respond implements the shared agent-action flow: resolve the caller's
// queue entry, run the action, return the updated lead.
func (h *Handler) respond(c *gin.Context, action func(ctx context.Context, leadID, tenantID, agentID uuid.UUID) (repository.Lead, error)) {
	leadID, tenantID, ok := h.leadScope(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	agentID, err := h.svc.AgentForUser(c.Request.Context(), identity.UserID(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	lead, err := action(c.Request.Context(), leadID, tenantID, agentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toLeadResponse(lead))
}

// Assign hands the lead to a specific agent.
// POST /api/v1/admin/leads/:id/assign
func (h *Handler) Assign(c *gin.Context) {
	leadID, tenantID, ok := h.leadScope(c)
	if !ok {
		return
	}

	var req transport.AssignLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	agentID, err := uuid.Parse(req.AgentID)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid agent ID", nil)
		return
	}

	lead, err := h.svc.ManualAssign(c.Request.Context(), leadID, tenantID, agentID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toLeadResponse(lead))
}

// Complete records the external conversion signal.
// POST /api/v1/admin/leads/:id/complete
func (h *Handler) Complete(c *gin.Context) {
	leadID, tenantID, ok := h.leadScope(c)
	if !ok {
		return
	}

	lead, err := h.svc.Complete(c.Request.Context(), leadID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toLeadResponse(lead))
}

// GetSettings returns the organization's distribution settings.
// GET /api/v1/leads/settings
func (h *Handler) GetSettings(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	settings, err := h.svc.GetSettings(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toSettingsResponse(settings))
}

// UpdateSettings replaces the organization's distribution settings.
// PUT /api/v1/admin/leads/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	var req transport.UpdateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	settings := repository.Settings{
		OrganizationID: tenantID,
		Mode:           domain.Mode(req.Mode),
		MaxActiveLeads: req.MaxActiveLeads,
	}
	if req.ReservationTTLSeconds != nil {
		ttl := time.Duration(*req.ReservationTTLSeconds) * time.Second
		settings.ReservationTTL = &ttl
	}

	updated, err := h.svc.UpdateSettings(c.Request.Context(), settings)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toSettingsResponse(updated))
}

func (h *Handler) leadScope(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return uuid.Nil, uuid.Nil, false
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return uuid.Nil, uuid.Nil, false
	}
	return leadID, tenantID, true
}

func toLeadResponse(lead repository.Lead) transport.LeadResponse {
	return transport.LeadResponse{
		ID:               lead.ID,
		OrganizationID:   lead.OrganizationID,
		PropertyRef:      lead.PropertyRef,
		ContactRef:       lead.ContactRef,
		Status:           string(lead.Status),
		DistributionMode: string(lead.DistributionMode),
		ReferrerAgentID:  lead.ReferrerAgentID,
		ReservedAgentID:  lead.ReservedAgentID,
		ReservedUntil:    lead.ReservedUntil,
		AssignedAgentID:  lead.AssignedAgentID,
		Source:           lead.Source,
		CreatedAt:        lead.CreatedAt,
		RespondedAt:      lead.RespondedAt,
		CompletedAt:      lead.CompletedAt,
		UpdatedAt:        lead.UpdatedAt,
	}
}

func toSettingsResponse(settings repository.Settings) transport.SettingsResponse {
	resp := transport.SettingsResponse{
		OrganizationID: settings.OrganizationID,
		Mode:           string(settings.Mode),
		MaxActiveLeads: settings.MaxActiveLeads,
		UpdatedAt:      settings.UpdatedAt,
	}
	if settings.ReservationTTL != nil {
		secs := int64(settings.ReservationTTL.Seconds())
		resp.ReservationTTLSeconds = &secs
	}
	return resp
}
