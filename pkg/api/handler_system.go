package api

import (
	"net/http"
	"sort"
	"time"

	echo "github.com/labstack/echo/v5"

	"github.com/codeready-toolchain/inquest/pkg/agent"
	"github.com/codeready-toolchain/inquest/pkg/config"
	"github.com/codeready-toolchain/inquest/pkg/mcp"
)

// --- Response types ---

// SystemWarningsResponse is returned by GET /api/v1/system/warnings.
type SystemWarningsResponse struct {
	Warnings []SystemWarningItem `json:"warnings"`
}

// SystemWarningItem is a single system warning.
type SystemWarningItem struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Message   string `json:"message"`
	Details   string `json:"details"`
	ServerID  string `json:"server_id,omitempty"`
	CreatedAt string `json:"created_at"`
}

// MCPServersResponse is returned by GET /api/v1/system/mcp-servers.
type MCPServersResponse struct {
	Servers []MCPServerStatus `json:"servers"`
}

// MCPToolInfo describes a single tool from an MCP server.
type MCPToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// MCPServerStatus describes the health and tools of a single MCP server.
type MCPServerStatus struct {
	ID        string        `json:"id"`
	Healthy   bool          `json:"healthy"`
	LastCheck string        `json:"last_check"`
	ToolCount int           `json:"tool_count"`
	Tools     []MCPToolInfo `json:"tools"`
	Error     *string       `json:"error"`
}

// KnowledgeGraphResponse is returned by GET /api/v1/system/knowledge-graph.
type KnowledgeGraphResponse struct {
	Components []config.Component `json:"components"`
}

// --- Handlers ---

// systemWarningsHandler handles GET /api/v1/system/warnings.
func (s *Server) systemWarningsHandler(c *echo.Context) error {
	response := SystemWarningsResponse{
		Warnings: []SystemWarningItem{},
	}

	if s.warningService != nil {
		for _, w := range s.warningService.GetWarnings() {
			response.Warnings = append(response.Warnings, SystemWarningItem{
				ID:        w.ID,
				Category:  w.Category,
				Message:   w.Message,
				Details:   w.Details,
				ServerID:  w.ServerID,
				CreatedAt: w.CreatedAt.Format(time.RFC3339),
			})
		}
	}

	return c.JSON(http.StatusOK, response)
}

// mcpServersHandler handles GET /api/v1/system/mcp-servers.
func (s *Server) mcpServersHandler(c *echo.Context) error {
	response := MCPServersResponse{
		Servers: []MCPServerStatus{},
	}

	if s.healthMonitor == nil {
		return c.JSON(http.StatusOK, response)
	}

	var serverTools map[string][]agent.ToolDefinition
	if s.registry != nil {
		serverTools = s.registry.ServerTools()
	}

	response.Servers = buildMCPServerStatuses(s.healthMonitor.GetStatuses(), serverTools)
	return c.JSON(http.StatusOK, response)
}

// buildMCPServerStatuses merges health check results with the tool inventory
// into per-server status entries, sorted by server ID for deterministic output.
func buildMCPServerStatuses(statuses map[string]*mcp.HealthStatus, serverTools map[string][]agent.ToolDefinition) []MCPServerStatus {
	servers := make([]MCPServerStatus, 0, len(statuses))

	for serverID, status := range statuses {
		server := MCPServerStatus{
			ID:        serverID,
			Healthy:   status.Healthy,
			LastCheck: status.LastCheck.Format(time.RFC3339),
			ToolCount: status.ToolCount,
			Tools:     []MCPToolInfo{},
		}

		if status.Error != "" {
			server.Error = &status.Error
		}

		for _, def := range serverTools[serverID] {
			server.Tools = append(server.Tools, MCPToolInfo{
				Name:        def.Name,
				Description: def.Description,
			})
		}

		servers = append(servers, server)
	}

	sort.Slice(servers, func(i, j int) bool {
		return servers[i].ID < servers[j].ID
	})
	return servers
}

// knowledgeGraphHandler handles GET /api/v1/system/knowledge-graph.
func (s *Server) knowledgeGraphHandler(c *echo.Context) error {
	response := KnowledgeGraphResponse{
		Components: []config.Component{},
	}

	if s.knowledgeGraph != nil {
		response.Components = append(response.Components, s.knowledgeGraph.Components...)
	}

	return c.JSON(http.StatusOK, response)
}
