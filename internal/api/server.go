package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/aosanya/agentforge/internal/eventbus"
	"github.com/aosanya/agentforge/internal/execution"
	"github.com/aosanya/agentforge/internal/orchestrator"
	"github.com/aosanya/agentforge/internal/store"
)

// ServerConfig holds the HTTP server's own configuration, separate from
// the services it exposes.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Environment  string
	MaxBodyBytes int64
}

// Services bundles the application components the route handlers call
// into. All fields are required.
type Services struct {
	Store   store.Gateway
	Bus     *eventbus.Bus
	Engine  *execution.Engine
	Core    *orchestrator.Core
	Logger  *log.Logger
	Version string
}

// Server wraps a gin router and the http.Server that serves it.
type Server struct {
	router    *gin.Engine
	server    *http.Server
	config    ServerConfig
	services  Services
	startedAt time.Time
}

// NewServer builds a Server with its middleware chain and routes wired,
// but does not start listening.
func NewServer(config ServerConfig, services Services) *Server {
	gin.SetMode(ginMode(config.Environment))

	s := &Server{
		router:    gin.New(),
		config:    config,
		services:  services,
		startedAt: time.Now().UTC(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}

	return s
}

func ginMode(environment string) string {
	if environment == "production" {
		return gin.ReleaseMode
	}
	return gin.DebugMode
}

func (s *Server) setupMiddleware() {
	s.router.Use(RecoveryMiddleware(s.services.Logger))
	s.router.Use(RequestIDMiddleware())
	s.router.Use(LoggingMiddleware(s.services.Logger))
	s.router.Use(SecurityHeadersMiddleware())
	s.router.Use(CORSMiddleware())
	s.router.Use(ValidateContentTypeMiddleware())
	if s.config.MaxBodyBytes > 0 {
		s.router.Use(RequestSizeLimitMiddleware(s.config.MaxBodyBytes))
	}
	s.router.Use(HealthCheckMiddleware())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/system/info", s.systemInfo)

		s.setupAgentRoutes(v1)
		s.setupTaskRoutes(v1)
		s.setupPatternRoutes(v1)
		s.setupExecutionRoutes(v1)
		s.setupWorkflowRoutes(v1)
		s.setupAnalysisRoutes(v1)
		s.setupEventsRoutes(v1)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, HealthStatus{
		Status:    "ok",
		Version:   s.services.Version,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(s.startedAt).String(),
	})
}

func (s *Server) systemInfo(c *gin.Context) {
	SuccessResponse(c, SystemInfo{
		Name:        "agentforge",
		Version:     s.services.Version,
		Environment: s.config.Environment,
		Features:    []string{"agents", "tasks", "patterns", "executions", "workflows", "analysis"},
	})
}

// GetRouter returns the underlying router, primarily for tests.
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// Start begins serving. It blocks until the server stops or errors.
func (s *Server) Start() error {
	s.services.Logger.WithField("addr", s.server.Addr).Info("http server listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop gracefully shuts the server down, honoring ctx's deadline.
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
