// Package config loads and validates service configuration: MCP server
// definitions and the knowledge graph from YAML, everything else from
// environment variables.
package config

// Config is the umbrella configuration object that encapsulates
// all registries and settings.
// This is the primary object returned by Initialize() and used throughout the application.
type Config struct {
	LLM       *LLMConfig
	Scheduler *SchedulerConfig
	Retention *RetentionConfig

	MCPServerRegistry *MCPServerRegistry
	KnowledgeGraph    *KnowledgeGraph
}

// Initialize is defined in loader.go

// Stats contains statistics about loaded configuration
type Stats struct {
	MCPServers          int
	KnowledgeComponents int
}

// Stats returns configuration statistics for logging/monitoring
func (c *Config) Stats() Stats {
	s := Stats{}
	if c.MCPServerRegistry != nil {
		s.MCPServers = c.MCPServerRegistry.Len()
	}
	if c.KnowledgeGraph != nil {
		s.KnowledgeComponents = c.KnowledgeGraph.Len()
	}
	return s
}

// GetMCPServer retrieves an MCP server configuration by ID.
// This is a convenience method that wraps MCPServerRegistry.Get().
func (c *Config) GetMCPServer(serverID string) (*MCPServerConfig, error) {
	return c.MCPServerRegistry.Get(serverID)
}

// AllMCPServerIDs returns a sorted list of all configured MCP server IDs.
func (c *Config) AllMCPServerIDs() []string {
	return c.MCPServerRegistry.ServerIDs()
}
