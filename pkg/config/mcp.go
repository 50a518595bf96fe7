package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Supported MCP transport types.
const (
	// TransportStdio launches the server as a subprocess and speaks
	// JSON-RPC over stdin/stdout.
	TransportStdio = "stdio"
	// TransportStreamableHTTP connects to a remote server over the
	// MCP streamable HTTP transport.
	TransportStreamableHTTP = "streamable_http"
)

// MCPServerConfig defines one MCP server entry from mcp_servers.yaml.
// Exactly one transport's fields apply: Command/Args/Env for stdio,
// URL/Headers for streamable_http.
type MCPServerConfig struct {
	Transport string `yaml:"transport"`

	// stdio transport
	Command string            `yaml:"command,omitempty"`
	Args    []string          `yaml:"args,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`

	// streamable_http transport
	URL     string            `yaml:"url,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`

	// DataMasking scrubs secrets from this server's tool results before
	// they reach the LLM or the incident record. Nil means no masking.
	DataMasking *MaskingConfig `yaml:"data_masking,omitempty"`
}

// MaskingConfig selects which masking rules apply to a server's tool
// results. Groups and individual pattern names refer to the built-in
// rules in pkg/masking; custom patterns are ad-hoc regexes.
type MaskingConfig struct {
	Enabled        bool                   `yaml:"enabled"`
	PatternGroups  []string               `yaml:"pattern_groups,omitempty"`
	Patterns       []string               `yaml:"patterns,omitempty"`
	CustomPatterns []CustomMaskingPattern `yaml:"custom_patterns,omitempty"`
}

// CustomMaskingPattern is a user-supplied regex and its replacement.
// Replacements may reference capture groups with ${n}.
type CustomMaskingPattern struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// validate checks the per-transport required fields.
func (c *MCPServerConfig) validate(serverID string) error {
	switch c.Transport {
	case TransportStdio:
		if c.Command == "" {
			return NewValidationError("mcp_server", serverID, "command", ErrMissingRequiredField)
		}
		if c.Args == nil {
			return NewValidationError("mcp_server", serverID, "args", ErrMissingRequiredField)
		}
	case TransportStreamableHTTP:
		if c.URL == "" {
			return NewValidationError("mcp_server", serverID, "url", ErrMissingRequiredField)
		}
	case "":
		return NewValidationError("mcp_server", serverID, "transport", ErrMissingRequiredField)
	default:
		return NewValidationError("mcp_server", serverID, "transport",
			fmt.Errorf("%w: %s", ErrUnknownTransport, c.Transport))
	}

	if c.DataMasking != nil {
		for _, custom := range c.DataMasking.CustomPatterns {
			if _, err := regexp.Compile(custom.Pattern); err != nil {
				return NewValidationError("mcp_server", serverID, "data_masking",
					fmt.Errorf("invalid custom pattern %q: %v", custom.Pattern, err))
			}
		}
	}
	return nil
}

// expandEnv applies ${VAR} expansion to every string-valued field.
// DataMasking is deliberately left alone: regex replacements use ${n}
// capture references that expansion would eat.
func (c *MCPServerConfig) expandEnv() {
	c.Command = ExpandEnv(c.Command)
	for i, arg := range c.Args {
		c.Args[i] = ExpandEnv(arg)
	}
	for k, v := range c.Env {
		c.Env[k] = ExpandEnv(v)
	}
	c.URL = ExpandEnv(c.URL)
	for k, v := range c.Headers {
		c.Headers[k] = ExpandEnv(v)
	}
}

// mcpServersFile mirrors the top-level structure of mcp_servers.yaml.
type mcpServersFile struct {
	MCPServers map[string]yaml.Node `yaml:"mcp_servers"`
}

// LoadMCPServers reads, expands, and validates the MCP server config file.
// Returns an empty registry when the file declares no servers.
func LoadMCPServers(path string) (*MCPServerRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, NewLoadError(path, fmt.Errorf("%w: %s", ErrConfigNotFound, path))
		}
		return nil, NewLoadError(path, err)
	}
	return ParseMCPServers(path, data)
}

// ParseMCPServers parses mcp_servers.yaml content.
// Split from LoadMCPServers so tests can feed YAML directly.
func ParseMCPServers(path string, data []byte) (*MCPServerRegistry, error) {
	var file mcpServersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, NewLoadError(path, fmt.Errorf("%w: %v", ErrInvalidYAML, err))
	}

	servers := make(map[string]*MCPServerConfig, len(file.MCPServers))
	for serverID, node := range file.MCPServers {
		if node.Kind != yaml.MappingNode {
			return nil, NewLoadError(path,
				NewValidationError("mcp_server", serverID, "",
					fmt.Errorf("%w: server entry must be a mapping", ErrInvalidYAML)))
		}

		var cfg MCPServerConfig
		if err := node.Decode(&cfg); err != nil {
			return nil, NewLoadError(path,
				NewValidationError("mcp_server", serverID, "",
					fmt.Errorf("%w: %v", ErrInvalidYAML, err)))
		}

		cfg.expandEnv()
		if err := cfg.validate(serverID); err != nil {
			return nil, NewLoadError(path, err)
		}
		servers[serverID] = &cfg
	}

	return NewMCPServerRegistry(servers), nil
}

// MCPServerRegistry stores MCP server configurations in memory with thread-safe access
type MCPServerRegistry struct {
	servers map[string]*MCPServerConfig
	mu      sync.RWMutex
}

// NewMCPServerRegistry creates a new MCP server registry
func NewMCPServerRegistry(servers map[string]*MCPServerConfig) *MCPServerRegistry {
	if servers == nil {
		servers = make(map[string]*MCPServerConfig)
	}
	return &MCPServerRegistry{
		servers: servers,
	}
}

// Get retrieves an MCP server configuration by ID (thread-safe)
func (r *MCPServerRegistry) Get(serverID string) (*MCPServerConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	server, exists := r.servers[serverID]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrMCPServerNotFound, serverID)
	}
	return server, nil
}

// GetAll returns all MCP server configurations (thread-safe, returns copy)
func (r *MCPServerRegistry) GetAll() map[string]*MCPServerConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Return a copy to prevent external modification
	result := make(map[string]*MCPServerConfig, len(r.servers))
	for k, v := range r.servers {
		result[k] = v
	}
	return result
}

// Has checks if an MCP server exists in the registry (thread-safe)
func (r *MCPServerRegistry) Has(serverID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, exists := r.servers[serverID]
	return exists
}

// ServerIDs returns all server IDs in deterministic (sorted) order.
func (r *MCPServerRegistry) ServerIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.servers))
	for id := range r.servers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered servers.
func (r *MCPServerRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.servers)
}
