// Package leads provides the lead distribution bounded context module:
// intake, the lead state machine, reservations, and distribution policies.
package leads

import (
	"realty_portal_backend/internal/events"
	apphttp "realty_portal_backend/internal/http"
	"realty_portal_backend/internal/leads/handler"
	"realty_portal_backend/internal/leads/repository"
	"realty_portal_backend/internal/leads/service"
	"realty_portal_backend/platform/config"
	"realty_portal_backend/platform/logger"
	"realty_portal_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the leads module with all its
// dependencies. The queue gateway and expiry scheduler are ports wired by
// the caller so the module carries no direct dependency on its neighbors.
func NewModule(pool *pgxpool.Pool, queue service.AgentQueue, scheduler service.ExpiryScheduler, eventBus events.Bus, cfg config.DistributionConfig, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, queue, scheduler, eventBus, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the leads service for cross-module wiring.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/leads"), ctx.IntakeRateLimiter.RateLimit())
	m.handler.RegisterAdminRoutes(ctx.Admin.Group("/leads"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
