package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/inquest/pkg/config"
	"github.com/codeready-toolchain/inquest/pkg/mcp"
	"github.com/codeready-toolchain/inquest/pkg/services"
)

// newIdleMonitor returns a health monitor that has never run a check.
// With no recorded statuses it reports unhealthy, which the health
// endpoint surfaces as degraded.
func newIdleMonitor() *mcp.HealthMonitor {
	registry := mcp.NewRegistry(config.NewMCPServerRegistry(nil), nil)
	return mcp.NewHealthMonitor(registry, services.NewSystemWarningsService())
}

func TestHealthHandler(t *testing.T) {
	server, _, _ := newTestServer(t)

	rec := getPath(t, server, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.NotEmpty(t, resp.Version)

	require.Contains(t, resp.Checks, "scheduler")
	assert.Equal(t, "healthy", resp.Checks["scheduler"].Status)
	assert.Contains(t, resp.Checks["scheduler"].Message, "0/2 investigations running")

	// No MCP monitor wired: no mcp check reported.
	assert.NotContains(t, resp.Checks, "mcp")
}

func TestHealthHandler_SchedulerStopped(t *testing.T) {
	server, _, sched := newTestServer(t)
	sched.Stop()

	rec := getPath(t, server, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.Equal(t, "unhealthy", resp.Checks["scheduler"].Status)
	assert.Contains(t, resp.Checks["scheduler"].Message, "not accepting")
}

func TestHealthHandler_MCPDegraded(t *testing.T) {
	server, _, _ := newTestServer(t)
	server.SetHealthMonitor(newIdleMonitor())

	rec := getPath(t, server, "/health")

	// Degraded, not unhealthy: an MCP dependency being down must not make
	// an orchestrator restart this process.
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "degraded", resp.Status)
	assert.Equal(t, "healthy", resp.Checks["scheduler"].Status)
	assert.Equal(t, "degraded", resp.Checks["mcp"].Status)
	assert.Contains(t, resp.Checks["mcp"].Message, "no MCP servers checked yet")
}

func TestHealthHandler_SchedulerStoppedTrumpsDegraded(t *testing.T) {
	server, _, sched := newTestServer(t)
	server.SetHealthMonitor(newIdleMonitor())
	sched.Stop()

	rec := getPath(t, server, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
}

func TestHealthHandler_WarningsIncluded(t *testing.T) {
	server, _, _ := newTestServer(t)

	warnings := services.NewSystemWarningsService()
	warnings.AddWarning(services.WarningCategoryMCPHealth, "MCP server \"kubernetes\" is unhealthy", "connection refused", "kubernetes")
	server.SetWarningsService(warnings)

	rec := getPath(t, server, "/health")

	// Warnings inform, they never change the status.
	require.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0].Message, "kubernetes")
}

func TestUnhealthyServersMessage(t *testing.T) {
	tests := []struct {
		name     string
		statuses map[string]*mcp.HealthStatus
		expected string
	}{
		{
			name:     "no checks yet",
			statuses: map[string]*mcp.HealthStatus{},
			expected: "no MCP servers checked yet",
		},
		{
			name: "single unhealthy server",
			statuses: map[string]*mcp.HealthStatus{
				"kubernetes": {ServerID: "kubernetes", Healthy: false},
			},
			expected: "unhealthy servers: kubernetes",
		},
		{
			name: "unhealthy servers sorted, healthy omitted",
			statuses: map[string]*mcp.HealthStatus{
				"prometheus": {ServerID: "prometheus", Healthy: false},
				"kubernetes": {ServerID: "kubernetes", Healthy: false},
				"grafana":    {ServerID: "grafana", Healthy: true},
			},
			expected: "unhealthy servers: kubernetes, prometheus",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, unhealthyServersMessage(tt.statuses))
		})
	}
}
