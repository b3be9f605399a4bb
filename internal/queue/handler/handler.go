package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"realty_portal_backend/internal/queue/domain"
	"realty_portal_backend/internal/queue/repository"
	"realty_portal_backend/internal/queue/service"
	"realty_portal_backend/internal/queue/transport"
	"realty_portal_backend/platform/httpkit"
	"realty_portal_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid agent ID"
)

// Handler handles HTTP requests for the agent queue.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes mounts queue routes on the protected group.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("", h.Rank)
	group.POST("/agents", h.Join)
	group.GET("/agents", h.ListAgents)
	group.GET("/agents/:id", h.GetAgent)
	group.GET("/agents/:id/ledger", h.Ledger)
	group.PATCH("/agents/:id/status", h.SetStatus)
}

// RegisterAdminRoutes mounts administrative queue routes.
func (h *Handler) RegisterAdminRoutes(group *gin.RouterGroup) {
	group.PUT("/agents/:id/score", h.SetScore)
	group.POST("/agents/:id/score/repair", h.RepairScore)
	group.GET("/integrity", h.Integrity)
}

// Join opts the authenticated user into distribution.
// POST /api/v1/queue/agents
func (h *Handler) Join(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	agent, err := h.svc.Join(c.Request.Context(), tenantID, identity.UserID())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, toAgentResponse(agent, nil))
}

// Rank returns the organization's queue order.
// GET /api/v1/queue
func (h *Handler) Rank(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	entries, err := h.svc.Rank(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.RankEntryResponse, 0, len(entries))
	for i, entry := range entries {
		items = append(items, transport.RankEntryResponse{
			Position:        i + 1,
			AgentID:         entry.AgentID,
			Score:           entry.Score,
			ActiveLeadCount: entry.ActiveLeadCount,
			LastActivityAt:  entry.LastActivityAt,
		})
	}
	httpkit.OK(c, transport.RankResponse{Items: items})
}

// ListAgents returns all queue entries including INACTIVE ones.
// GET /api/v1/queue/agents
func (h *Handler) ListAgents(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	agents, err := h.svc.ListAgents(c.Request.Context(), tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.AgentResponse, 0, len(agents))
	for _, agent := range agents {
		items = append(items, toAgentResponse(agent, nil))
	}
	httpkit.OK(c, gin.H{"items": items})
}

// GetAgent returns one queue entry with its derived position.
// GET /api/v1/queue/agents/:id
func (h *Handler) GetAgent(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	agent, err := h.svc.GetAgent(c.Request.Context(), agentID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}

	var position *int
	if pos, active, err := h.svc.PositionOf(c.Request.Context(), agentID, tenantID); err == nil && active {
		position = &pos
	}
	httpkit.OK(c, toAgentResponse(agent, position))
}

// Ledger pages through the agent's score ledger, newest first.
// GET /api/v1/queue/agents/:id/ledger?limit=&cursor=
func (h *Handler) Ledger(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	var query struct {
		Limit  int    `form:"limit"`
		Cursor string `form:"cursor"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	entries, next, err := h.svc.History(c.Request.Context(), agentID, tenantID, query.Limit, query.Cursor)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.LedgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, transport.LedgerEntryResponse{
			ID:          entry.ID,
			AgentID:     entry.AgentID,
			Action:      string(entry.Action),
			Points:      entry.Points,
			Description: entry.Description,
			CreatedAt:   entry.CreatedAt,
		})
	}
	httpkit.OK(c, transport.LedgerHistoryResponse{Items: items, NextCursor: next})
}

// SetStatus toggles an agent's participation. Agents may toggle their own
// entry; administrators may toggle anyone's.
// PATCH /api/v1/queue/agents/:id/status
func (h *Handler) SetStatus(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	var req transport.SetAgentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	if !identity.HasRole(httpkit.RoleAdmin) {
		agent, err := h.svc.GetAgent(c.Request.Context(), agentID, tenantID)
		if httpkit.HandleError(c, err) {
			return
		}
		if agent.UserRef != identity.UserID() {
			httpkit.Error(c, http.StatusForbidden, "agents may only change their own status", nil)
			return
		}
	}

	agent, err := h.svc.SetStatus(c.Request.Context(), agentID, tenantID, domain.AgentStatus(req.Status))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toAgentResponse(agent, nil))
}

// SetScore applies an administrative score override through the ledger.
// PUT /api/v1/admin/queue/agents/:id/score
func (h *Handler) SetScore(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	var req transport.SetScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	entry, err := h.svc.SetScore(c.Request.Context(), agentID, tenantID, req.Score, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.LedgerEntryResponse{
		ID:          entry.ID,
		AgentID:     entry.AgentID,
		Action:      string(entry.Action),
		Points:      entry.Points,
		Description: entry.Description,
		CreatedAt:   entry.CreatedAt,
	})
}

// RepairScore resets a diverged score cache with an audit ledger entry.
// POST /api/v1/admin/queue/agents/:id/score/repair
func (h *Handler) RepairScore(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	entry, err := h.svc.RepairScore(c.Request.Context(), agentID, tenantID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.LedgerEntryResponse{
		ID:          entry.ID,
		AgentID:     entry.AgentID,
		Action:      string(entry.Action),
		Points:      entry.Points,
		Description: entry.Description,
		CreatedAt:   entry.CreatedAt,
	})
}

// Integrity lists agents whose cached score diverged from the ledger.
// GET /api/v1/admin/queue/integrity
func (h *Handler) Integrity(c *gin.Context) {
	diverged, err := h.svc.Reconcile(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}

	faults := make([]transport.IntegrityFaultResponse, 0, len(diverged))
	for _, d := range diverged {
		faults = append(faults, transport.IntegrityFaultResponse{
			AgentID:  d.AgentID,
			Cached:   d.Cached,
			Computed: d.Computed,
		})
	}
	httpkit.OK(c, transport.IntegrityReportResponse{Faults: faults})
}

func toAgentResponse(agent repository.Agent, position *int) transport.AgentResponse {
	return transport.AgentResponse{
		ID:                agent.ID,
		OrganizationID:    agent.OrganizationID,
		UserRef:           agent.UserRef,
		Status:            string(agent.Status),
		Score:             agent.Score,
		Position:          position,
		ActiveLeadCount:   agent.ActiveLeadCount,
		BonusLeadCount:    agent.BonusLeadCount,
		TotalAccepted:     agent.TotalAccepted,
		TotalRejected:     agent.TotalRejected,
		TotalExpired:      agent.TotalExpired,
		AvgResponseTimeMs: agent.AvgResponseTime().Milliseconds(),
		LastActivityAt:    agent.LastActivityAt,
		CreatedAt:         agent.CreatedAt,
	}
}
