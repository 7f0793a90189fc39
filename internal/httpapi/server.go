// Package httpapi exposes the query engine over HTTP.
package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/agentd/internal/engine"
)

// Config holds HTTP server configuration.
type Config struct {
	Host string
	Port int
}

// Server serves the query API.
type Server struct {
	echo   *echo.Echo
	engine *engine.Engine
	logger *zap.Logger
	config *Config
}

// NewServer creates the HTTP server.
func NewServer(eng *engine.Engine, logger *zap.Logger, cfg *Config) (*Server, error) {
	if eng == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{
			Host: "127.0.0.1",
			Port: 8787,
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			logger.Info("http request",
				zap.String("method", c.Request().Method),
				zap.String("uri", c.Request().RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", c.Response().Header().Get(echo.HeaderXRequestID)),
			)

			return err
		}
	})

	s := &Server{
		echo:   e,
		engine: eng,
		logger: logger,
		config: cfg,
	}
	s.registerRoutes()

	return s, nil
}

func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)

	v1 := s.echo.Group("/api/v1")
	v1.POST("/query", s.handleQuery)
}

// QueryRequest is the request body for POST /api/v1/query.
type QueryRequest struct {
	Query string `json:"query"`
}

// QueryResponse is the response body for POST /api/v1/query.
type QueryResponse struct {
	ResponseText     string   `json:"response_text"`
	ToolsExecuted    []string `json:"tools_executed,omitempty"`
	ProcessingTimeMS int64    `json:"processing_time_ms"`
	Complete         bool     `json:"complete"`
	Errors           []string `json:"errors,omitempty"`
	WorkflowID       string   `json:"workflow_id,omitempty"`
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// handleQuery runs one query through the engine. The engine contains its own
// failures, so this always answers 200 with Complete reporting the outcome;
// only malformed request bodies get a 4xx.
func (s *Server) handleQuery(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		s.logger.Warn("invalid query request", zap.Error(err))
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Query == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query field is required")
	}

	resp := s.engine.ProcessQuery(c.Request().Context(), req.Query)

	return c.JSON(http.StatusOK, QueryResponse{
		ResponseText:     resp.ResponseText,
		ToolsExecuted:    resp.ToolsExecuted,
		ProcessingTimeMS: resp.ProcessingTime.Milliseconds(),
		Complete:         resp.Complete,
		Errors:           resp.Errors,
		WorkflowID:       resp.WorkflowID,
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	s.logger.Info("starting http server", zap.String("addr", addr))
	return s.echo.Start(addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.echo.Shutdown(ctx)
}
