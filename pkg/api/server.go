// Package api exposes the HTTP surface: incident submission and retrieval,
// the health endpoint, and system introspection (MCP servers, warnings,
// knowledge graph).
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/inquest/pkg/config"
	"github.com/codeready-toolchain/inquest/pkg/mcp"
	"github.com/codeready-toolchain/inquest/pkg/scheduler"
	"github.com/codeready-toolchain/inquest/pkg/services"
)

// Server represents the API server.
type Server struct {
	echo *echo.Echo

	incidentService *services.IncidentService
	scheduler       *scheduler.Scheduler

	// Optional components, wired via setters before Start.
	warningService *services.SystemWarningsService
	healthMonitor  *mcp.HealthMonitor
	registry       *mcp.Registry
	knowledgeGraph *config.KnowledgeGraph

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates a new API server with all routes registered.
func NewServer(incidentService *services.IncidentService, sched *scheduler.Scheduler) *Server {
	if incidentService == nil {
		panic("NewServer: incidentService must not be nil")
	}
	if sched == nil {
		panic("NewServer: sched must not be nil")
	}
	s := &Server{
		echo:            echo.New(),
		incidentService: incidentService,
		scheduler:       sched,
	}
	s.registerRoutes()
	return s
}

// SetWarningsService wires the system warnings source.
func (s *Server) SetWarningsService(svc *services.SystemWarningsService) {
	s.warningService = svc
}

// SetHealthMonitor wires the MCP health monitor.
func (s *Server) SetHealthMonitor(monitor *mcp.HealthMonitor) {
	s.healthMonitor = monitor
}

// SetMCPRegistry wires the MCP registry for tool inventory reporting.
func (s *Server) SetMCPRegistry(registry *mcp.Registry) {
	s.registry = registry
}

// SetKnowledgeGraph wires the infrastructure knowledge graph.
func (s *Server) SetKnowledgeGraph(graph *config.KnowledgeGraph) {
	s.knowledgeGraph = graph
}

func (s *Server) registerRoutes() {
	s.echo.Use(securityHeaders())

	s.echo.GET("/health", s.healthHandler)

	s.echo.POST("/api/v1/incidents", s.submitIncidentHandler)
	s.echo.GET("/api/v1/incidents", s.listIncidentsHandler)
	s.echo.GET("/api/v1/incidents/:id", s.getIncidentHandler)

	s.echo.GET("/api/v1/system/mcp-servers", s.mcpServersHandler)
	s.echo.GET("/api/v1/system/warnings", s.systemWarningsHandler)
	s.echo.GET("/api/v1/system/knowledge-graph", s.knowledgeGraphHandler)
}

// Handler returns the routed HTTP handler, used by in-process tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves HTTP on addr and blocks until shutdown or listener failure.
func (s *Server) Start(addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.echo,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()
	return srv.ListenAndServe()
}

// Shutdown stops the HTTP server, waiting for in-flight requests up to the
// context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
