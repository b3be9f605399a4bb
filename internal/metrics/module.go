// Package metrics provides the distribution metrics bounded context module:
// read-only funnel and per-agent aggregates.
package metrics

import (
	apphttp "realty_portal_backend/internal/http"
	"realty_portal_backend/internal/metrics/handler"
	"realty_portal_backend/internal/metrics/repository"
	"realty_portal_backend/internal/metrics/service"
	"realty_portal_backend/platform/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the metrics bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates and initializes the metrics module.
func NewModule(pool *pgxpool.Pool, cfg config.DistributionConfig) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, cfg.GetStalledAfter())
	return &Module{handler: handler.New(svc)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "metrics"
}

// RegisterRoutes mounts metrics routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/metrics"))
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
