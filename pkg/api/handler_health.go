package api

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/inquest/pkg/mcp"
	"github.com/codeready-toolchain/inquest/pkg/version"
)

const (
	healthStatusHealthy   = "healthy"
	healthStatusDegraded  = "degraded"
	healthStatusUnhealthy = "unhealthy"
)

// healthHandler handles GET /health.
// Only the service's own components decide healthy vs unhealthy; external
// MCP servers merely degrade the status so an orchestrator never restarts
// this process because a dependency is down.
func (s *Server) healthHandler(c *echo.Context) error {
	checks := make(map[string]HealthCheck)
	status := healthStatusHealthy

	poolHealth := s.scheduler.Health()
	if poolHealth.Accepting {
		checks["scheduler"] = HealthCheck{
			Status:  healthStatusHealthy,
			Message: fmt.Sprintf("%d/%d investigations running", poolHealth.Active, poolHealth.Capacity),
		}
	} else {
		status = healthStatusUnhealthy
		checks["scheduler"] = HealthCheck{
			Status:  healthStatusUnhealthy,
			Message: "not accepting new investigations",
		}
	}

	if s.healthMonitor != nil {
		if s.healthMonitor.IsHealthy() {
			checks["mcp"] = HealthCheck{Status: healthStatusHealthy}
		} else {
			if status == healthStatusHealthy {
				status = healthStatusDegraded
			}
			checks["mcp"] = HealthCheck{
				Status:  healthStatusDegraded,
				Message: unhealthyServersMessage(s.healthMonitor.GetStatuses()),
			}
		}
	}

	response := &HealthResponse{
		Status:  status,
		Version: version.GitCommit,
		Checks:  checks,
	}
	if s.warningService != nil {
		response.Warnings = s.warningService.GetWarnings()
	}

	httpStatus := http.StatusOK
	if status == healthStatusUnhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	return c.JSON(httpStatus, response)
}

// unhealthyServersMessage names the failing servers for the health report.
func unhealthyServersMessage(statuses map[string]*mcp.HealthStatus) string {
	ids := make([]string, 0, len(statuses))
	for id, st := range statuses {
		if !st.Healthy {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return "no MCP servers checked yet"
	}
	sort.Strings(ids)
	return "unhealthy servers: " + strings.Join(ids, ", ")
}
