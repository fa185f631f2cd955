// Package v1 implements the REST API: batch query execution (plain and
// streaming) and usage reporting.
package v1

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/davag/ragquery/ai/metrics"
	"github.com/davag/ragquery/ai/query"
	"github.com/davag/ragquery/internal/profile"
	"github.com/davag/ragquery/store"
)

// BatchRunner executes one batch request. Satisfied by query.Dispatcher;
// handler tests substitute a stub.
type BatchRunner interface {
	RunBatch(ctx context.Context, req *query.BatchRequest) (*query.BatchResult, error)
}

type APIV1Service struct {
	Profile    *profile.Profile
	Store      *store.Store
	Dispatcher BatchRunner
	Exporter   *metrics.PrometheusExporter
}

func NewAPIV1Service(profile *profile.Profile, store *store.Store, dispatcher BatchRunner, exporter *metrics.PrometheusExporter) *APIV1Service {
	return &APIV1Service{
		Profile:    profile,
		Store:      store,
		Dispatcher: dispatcher,
		Exporter:   exporter,
	}
}

// RegisterRoutes mounts the v1 API on the echo server.
func (s *APIV1Service) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api/v1")
	g.POST("/query", s.HandleQuery)
	g.POST("/query/stream", s.HandleQueryStream)
	g.GET("/usage", s.HandleListUsage)
}
