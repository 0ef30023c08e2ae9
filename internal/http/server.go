// Package http provides the HTTP API for chatscand.
package http

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/draftdesk/chatscan/internal/connection"
	"github.com/draftdesk/chatscan/internal/importer"
	"github.com/draftdesk/chatscan/internal/logging"
	"github.com/draftdesk/chatscan/internal/provider"
	"github.com/draftdesk/chatscan/internal/scan"
)

// Server provides the HTTP endpoints for the scan pipeline.
type Server struct {
	echo     *echo.Echo
	registry *provider.Registry
	conns    connection.Store
	scans    *scan.Service
	resolver *importer.Resolver
	logger   *logging.Logger
	config   *Config
}

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// NewServer creates the API server with its middleware chain and routes.
func NewServer(registry *provider.Registry, conns connection.Store, scans *scan.Service, resolver *importer.Resolver, logger *logging.Logger, cfg *Config) (*Server, error) {
	if registry == nil {
		return nil, fmt.Errorf("provider registry cannot be nil")
	}
	if conns == nil {
		return nil, fmt.Errorf("connection store cannot be nil")
	}
	if scans == nil {
		return nil, fmt.Errorf("scan service cannot be nil")
	}
	if resolver == nil {
		return nil, fmt.Errorf("import resolver cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{Host: "localhost", Port: 9480}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	metrics := NewHTTPMetrics(logger.Underlying())
	e.Use(metrics.MetricsMiddleware())

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			duration := time.Since(start)

			ctx := c.Request().Context()
			logger.Info(ctx, "http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", duration),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:     e,
		registry: registry,
		conns:    conns,
		scans:    scans,
		resolver: resolver,
		logger:   logger,
		config:   cfg,
	}

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := s.echo.Group("/api/v1")
	v1.GET("/connect/:provider", s.handleAuthorizationURL)
	v1.POST("/connect/:provider/callback", s.handleConnectCallback)
	v1.GET("/connections", s.handleListConnections)
	v1.GET("/connections/:id/channels", s.handleListChannels)
	v1.DELETE("/connections/:id", s.handleDisconnect)
	v1.POST("/scans", s.handleStartScan)
	v1.GET("/scans/:id", s.handleGetScan)
	v1.POST("/scans/:id/import", s.handleCommitImport)
	v1.POST("/scans/:id/recover", s.handleRecoverScan)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info(context.Background(), "starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "shutting down http server")
	return s.echo.Shutdown(ctx)
}
