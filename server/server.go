// Package server hosts the HTTP surface: the v1 query API, health and
// metrics endpoints, all served by a single echo instance.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/davag/ragquery/ai"
	"github.com/davag/ragquery/ai/core/llm"
	"github.com/davag/ragquery/ai/metrics"
	"github.com/davag/ragquery/ai/query"
	"github.com/davag/ragquery/internal/profile"
	apiv1 "github.com/davag/ragquery/server/router/api/v1"
	"github.com/davag/ragquery/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store

	echoServer *echo.Echo
	apiService *apiv1.APIV1Service
}

// NewServer assembles the full serving stack: model client factory,
// dispatcher with both cost sinks, Prometheus exporter, and the echo
// router.
func NewServer(_ context.Context, instanceProfile *profile.Profile, storeInstance *store.Store) (*Server, error) {
	e := echo.New()
	e.Debug = instanceProfile.IsDev()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.POST, echo.OPTIONS},
	}))

	exporter := metrics.NewPrometheusExporter(metrics.DefaultConfig())

	factory := llm.NewFactory(ai.NewConfigFromProfile(instanceProfile))
	dispatcherConfig := &query.DispatcherConfig{
		DefaultTemperature: instanceProfile.DefaultTemperature,
	}
	if instanceProfile.SequentialRPS > 0 {
		dispatcherConfig.Limiter = rate.NewLimiter(rate.Limit(instanceProfile.SequentialRPS), 1)
	}
	dispatcher := query.NewDispatcher(
		query.NewAdapter(factory),
		query.MultiSink{store.NewCostSink(storeInstance), exporter},
		dispatcherConfig,
	)

	s := &Server{
		Profile:    instanceProfile,
		Store:      storeInstance,
		echoServer: e,
		apiService: apiv1.NewAPIV1Service(instanceProfile, storeInstance, dispatcher, exporter),
	}

	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": instanceProfile.Version,
		})
	})
	e.GET("/metrics", echo.WrapHandler(exporter.Handler()))

	s.apiService.RegisterRoutes(e)

	return s, nil
}

// Start begins serving in a background goroutine; startup errors other
// than a clean close are logged, not returned.
func (s *Server) Start(_ context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	go func() {
		if err := s.echoServer.Start(address); err != nil {
			slog.Error("failed to start echo server", "error", err)
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := s.echoServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", "error", err)
	}

	if err := s.Store.Close(); err != nil {
		slog.Error("failed to close database", "error", err)
	}

	slog.Info("ragquery stopped properly")
}
