package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"realty_portal_backend/internal/metrics/service"
	"realty_portal_backend/internal/metrics/transport"
	"realty_portal_backend/platform/httpkit"
)

// Handler handles HTTP requests for distribution metrics.
type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes mounts metrics routes on the protected group.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/overview", h.Overview)
	group.GET("/agents/top", h.TopAgents)
	group.GET("/agents/:id", h.AgentDetail)
}

// Overview returns the organization funnel.
// GET /api/v1/metrics/overview?windowDays=30&source=organic
func (h *Handler) Overview(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	window := windowParam(c)
	var source *string
	if raw := c.Query("source"); raw != "" {
		source = &raw
	}

	overview, err := h.svc.GetOverview(c.Request.Context(), tenantID, window, source)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.OverviewResponse{
		WindowDays:     int(overview.Window.Hours() / 24),
		LeadsCreated:   overview.LeadsCreated,
		LeadsCompleted: overview.LeadsCompleted,
		LeadsAbandoned: overview.LeadsAbandoned,
		OffersMade:     overview.OffersMade,
		OffersAccepted: overview.OffersAccepted,
		OffersRejected: overview.OffersRejected,
		OffersExpired:  overview.OffersExpired,
		AcceptanceRate: overview.AcceptanceRate,
		ConversionRate: overview.ConversionRate,
		ResponseRate:   overview.ResponseRate,
		AvgResponseMs:  overview.AvgResponse.Milliseconds(),
		StatusCounts:   overview.StatusCounts,
	})
}

// TopAgents returns the window leaderboard.
// GET /api/v1/metrics/agents/top?windowDays=30&limit=10
func (h *Handler) TopAgents(c *gin.Context) {
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}
	window := windowParam(c)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	agents, err := h.svc.TopAgents(c.Request.Context(), tenantID, window, limit)
	if httpkit.HandleError(c, err) {
		return
	}

	items := make([]transport.AgentMetricsResponse, 0, len(agents))
	for _, a := range agents {
		items = append(items, toAgentMetricsResponse(a))
	}
	httpkit.OK(c, transport.TopAgentsResponse{
		WindowDays: int(windowOrDefault(window).Hours() / 24),
		Items:      items,
	})
}

// AgentDetail returns one agent's window aggregate.
// GET /api/v1/metrics/agents/:id?windowDays=30
func (h *Handler) AgentDetail(c *gin.Context) {
	agentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid agent ID", nil)
		return
	}
	tenantID, ok := httpkit.MustGetTenantID(c)
	if !ok {
		return
	}

	metrics, err := h.svc.AgentDetail(c.Request.Context(), agentID, tenantID, windowParam(c))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, toAgentMetricsResponse(metrics))
}

func windowParam(c *gin.Context) time.Duration {
	days, err := strconv.Atoi(c.DefaultQuery("windowDays", "0"))
	if err != nil || days <= 0 {
		return 0
	}
	return time.Duration(days) * 24 * time.Hour
}

func windowOrDefault(window time.Duration) time.Duration {
	if window <= 0 {
		return service.DefaultWindow
	}
	return window
}

func toAgentMetricsResponse(a service.AgentMetrics) transport.AgentMetricsResponse {
	return transport.AgentMetricsResponse{
		AgentID:        a.AgentID,
		Score:          a.Score,
		OffersMade:     a.OffersMade,
		OffersAccepted: a.OffersAccepted,
		OffersRejected: a.OffersRejected,
		OffersExpired:  a.OffersExpired,
		AcceptanceRate: a.AcceptanceRate,
		AvgResponseMs:  a.AvgResponse.Milliseconds(),
		ActiveLeads:    a.ActiveLeads,
		PendingReply:   a.PendingReply,
		StalledLeads:   a.StalledLeads,
	}
}
