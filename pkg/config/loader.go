package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
)

// Config file environment variable names and default paths.
const (
	EnvMCPConfigPath      = "MCP_CONFIG_PATH"
	EnvKnowledgeGraphPath = "KNOWLEDGE_GRAPH_PATH"

	DefaultMCPConfigPath      = "config/mcp_servers.yaml"
	DefaultKnowledgeGraphPath = "config/knowledge_graph.yaml"
)

// Options overrides config file locations. Zero values fall back to the
// corresponding environment variable, then the built-in default path.
type Options struct {
	MCPConfigPath      string
	KnowledgeGraphPath string
}

// Initialize loads, validates, and returns ready-to-use configuration.
// This is the primary entry point for configuration loading.
//
// Steps performed:
//  1. Load LLM, scheduler, and retention settings from environment
//  2. Load mcp_servers.yaml (env-expanded, validated per transport)
//  3. Load knowledge_graph.yaml (optional)
//  4. Return Config ready for use
func Initialize(_ context.Context, opts Options) (*Config, error) {
	mcpPath := resolvePath(opts.MCPConfigPath, EnvMCPConfigPath, DefaultMCPConfigPath)
	kgPath := resolvePath(opts.KnowledgeGraphPath, EnvKnowledgeGraphPath, DefaultKnowledgeGraphPath)

	log := slog.With("mcp_config", mcpPath, "knowledge_graph", kgPath)
	log.Info("Initializing configuration")

	llmCfg, err := LoadLLMConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load LLM configuration: %w", err)
	}

	schedulerCfg, err := LoadSchedulerConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load scheduler configuration: %w", err)
	}

	retentionCfg, err := LoadRetentionConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load retention configuration: %w", err)
	}

	// A missing MCP config file is tolerated: the service still accepts
	// incidents and the agent reasons without tools.
	var mcpRegistry *MCPServerRegistry
	if _, statErr := os.Stat(mcpPath); os.IsNotExist(statErr) {
		log.Warn("MCP config file not found, starting with no MCP servers")
		mcpRegistry = NewMCPServerRegistry(nil)
	} else {
		mcpRegistry, err = LoadMCPServers(mcpPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load configuration: %w", err)
		}
	}

	knowledgeGraph, err := LoadKnowledgeGraph(kgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg := &Config{
		LLM:               llmCfg,
		Scheduler:         schedulerCfg,
		Retention:         retentionCfg,
		MCPServerRegistry: mcpRegistry,
		KnowledgeGraph:    knowledgeGraph,
	}

	stats := cfg.Stats()
	log.Info("Configuration initialized successfully",
		"mcp_servers", stats.MCPServers,
		"knowledge_components", stats.KnowledgeComponents,
		"model", llmCfg.Model)

	return cfg, nil
}

// resolvePath picks the first non-empty of: explicit option, environment
// variable, built-in default.
func resolvePath(explicit, envVar, fallback string) string {
	if explicit != "" {
		return explicit
	}
	if fromEnv := os.Getenv(envVar); fromEnv != "" {
		return fromEnv
	}
	return fallback
}
