// Package mcp provides MCP (Model Context Protocol) client infrastructure
// for connecting to and executing tools on MCP servers.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codeready-toolchain/inquest/pkg/agent"
	"github.com/codeready-toolchain/inquest/pkg/config"
	"github.com/codeready-toolchain/inquest/pkg/version"
)

// Compile-time check that Registry implements agent.ToolExecutor.
var _ agent.ToolExecutor = (*Registry)(nil)

// ResultMasker scrubs secrets from tool result text before it reaches
// the LLM conversation. Implemented by pkg/masking; declared here so
// this package does not depend on the masking implementation.
type ResultMasker interface {
	MaskToolResult(content, serverID string) string
}

// Registry manages MCP SDK sessions for all configured servers and routes
// tool calls to the server that advertises each tool. One long-lived instance
// is shared by all investigations.
// Thread-safe: sessions are accessed from concurrent investigation goroutines.
type Registry struct {
	servers *config.MCPServerRegistry

	mu            sync.RWMutex
	sessions      map[string]*mcpsdk.ClientSession // serverID → session
	clients       map[string]*mcpsdk.Client        // serverID → client (for reconnection)
	failedServers map[string]string                // serverID → error message

	// Tool index built during Initialize. Tool names are advertised to the
	// LLM bare (no server prefix), so names must be unique across servers.
	toolServer    map[string]string                 // tool name → serverID
	toolsByServer map[string][]agent.ToolDefinition // serverID → definitions
	toolDefs      []agent.ToolDefinition            // flat union, server order
	initialized   bool

	// Per-server mutex for session recreation to prevent thundering herd
	reinitMu sync.Map // serverID → *sync.Mutex

	// Transport constructor, overridable in tests (in-memory transports).
	transportFor func(*config.MCPServerConfig) (mcpsdk.Transport, error)

	// Optional result masking, applied to every tool result (error results
	// included) before the text leaves this package.
	masker ResultMasker

	logger *slog.Logger
}

// NewRegistry creates a Registry over the configured servers.
// Call Initialize before executing tools.
func NewRegistry(servers *config.MCPServerRegistry, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		servers:       servers,
		sessions:      make(map[string]*mcpsdk.ClientSession),
		clients:       make(map[string]*mcpsdk.Client),
		failedServers: make(map[string]string),
		toolServer:    make(map[string]string),
		toolsByServer: make(map[string][]agent.ToolDefinition),
		transportFor:  createTransport,
		logger:        logger,
	}
}

// SetResultMasker installs a masker for tool result text. Call before
// Initialize; Execute reads the field under the registry lock.
func (r *Registry) SetResultMasker(m ResultMasker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.masker = m
}

// Initialize connects to every configured server and builds the tool index.
// Servers that fail to connect or list tools are recorded in failedServers
// and skipped; the caller decides whether failures are fatal. A tool name
// advertised by two servers is fatal: the index would be ambiguous.
// Idempotent: a second call returns the cached definitions.
func (r *Registry) Initialize(ctx context.Context) ([]agent.ToolDefinition, error) {
	r.mu.RLock()
	if r.initialized {
		defs := cloneDefs(r.toolDefs)
		r.mu.RUnlock()
		return defs, nil
	}
	r.mu.RUnlock()

	for _, serverID := range r.servers.ServerIDs() {
		if err := r.initializeServer(ctx, serverID); err != nil {
			r.mu.Lock()
			r.failedServers[serverID] = err.Error()
			r.mu.Unlock()
			r.logger.Warn("MCP server failed to initialize",
				"server", serverID, "error", err)
			continue
		}

		tools, err := r.listServerTools(ctx, serverID)
		if err != nil {
			r.mu.Lock()
			r.failedServers[serverID] = err.Error()
			r.mu.Unlock()
			r.logger.Warn("MCP server failed to list tools",
				"server", serverID, "error", err)
			continue
		}

		if err := r.indexTools(serverID, tools); err != nil {
			_ = r.Close()
			return nil, err
		}

		r.logger.Info("MCP server connected",
			"server", serverID, "tools", len(tools))
	}

	r.mu.Lock()
	r.initialized = true
	defs := cloneDefs(r.toolDefs)
	r.mu.Unlock()
	return defs, nil
}

// indexTools adds a server's tools to the registry index.
// Fails on a bare-name collision with a previously indexed server.
func (r *Registry) indexTools(serverID string, tools []*mcpsdk.Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, tool := range tools {
		if existing, ok := r.toolServer[tool.Name]; ok && existing != serverID {
			return fmt.Errorf("tool %q is advertised by both %q and %q: tool names must be unique across MCP servers",
				tool.Name, existing, serverID)
		}
		def := agent.ToolDefinition{
			Name:             tool.Name,
			Description:      tool.Description,
			ParametersSchema: marshalSchema(tool.InputSchema),
		}
		r.toolServer[tool.Name] = serverID
		r.toolsByServer[serverID] = append(r.toolsByServer[serverID], def)
		r.toolDefs = append(r.toolDefs, def)
	}
	return nil
}

// listServerTools fetches the live tool list from a connected server.
func (r *Registry) listServerTools(ctx context.Context, serverID string) ([]*mcpsdk.Tool, error) {
	r.mu.RLock()
	session, exists := r.sessions[serverID]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("no session for server %q", serverID)
	}

	opCtx, cancel := context.WithTimeout(ctx, OperationTimeout)
	defer cancel()

	result, err := session.ListTools(opCtx, nil)
	if err != nil {
		return nil, fmt.Errorf("list tools from %q: %w", serverID, err)
	}
	return result.Tools, nil
}

// initializeServer connects to a single MCP server.
// Returns nil if already connected. Uses per-server mutex to prevent
// concurrent initialization of the same server.
func (r *Registry) initializeServer(ctx context.Context, serverID string) error {
	muI, _ := r.reinitMu.LoadOrStore(serverID, &sync.Mutex{})
	mu := muI.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	return r.initializeServerLocked(ctx, serverID)
}

// initializeServerLocked performs the actual server initialization.
// Caller must hold the per-server reinitMu lock.
func (r *Registry) initializeServerLocked(ctx context.Context, serverID string) error {
	// Check if already connected (under per-server lock, no TOCTOU race)
	r.mu.RLock()
	if _, exists := r.sessions[serverID]; exists {
		r.mu.RUnlock()
		return nil
	}
	r.mu.RUnlock()

	serverCfg, err := r.servers.Get(serverID)
	if err != nil {
		return fmt.Errorf("server %q not found in registry: %w", serverID, err)
	}

	transport, err := r.transportFor(serverCfg)
	if err != nil {
		return fmt.Errorf("failed to create transport for %q: %w", serverID, err)
	}

	initCtx, cancel := context.WithTimeout(ctx, MCPInitTimeout)
	defer cancel()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{
		Name:    version.AppName,
		Version: version.GitCommit,
	}, nil)

	session, err := client.Connect(initCtx, transport, nil)
	if err != nil {
		// Close the transport if it implements io.Closer to avoid leaking
		// resources (e.g., stdio child processes). The SDK closes the
		// underlying connection on most failure paths, but this guards
		// against edge cases and future transport types.
		if closer, ok := transport.(io.Closer); ok {
			_ = closer.Close()
		}
		return fmt.Errorf("failed to connect to %q: %w", serverID, err)
	}

	r.mu.Lock()
	r.sessions[serverID] = session
	r.clients[serverID] = client
	delete(r.failedServers, serverID)
	r.mu.Unlock()

	return nil
}

// Execute runs a tool call on the server that advertises it.
// Implements agent.ToolExecutor. Transport failures are retried once with a
// jittered backoff and a recreated session. A result with IsError set is
// returned as a Go error so the caller can relay it to the LLM.
func (r *Registry) Execute(ctx context.Context, call agent.ToolCall, correlationID string) (string, error) {
	r.mu.RLock()
	initialized := r.initialized
	serverID, known := r.toolServer[call.Name]
	masker := r.masker
	r.mu.RUnlock()

	if !initialized {
		return "", fmt.Errorf("MCP registry not initialized")
	}
	if !known {
		return "", fmt.Errorf("%w: %q", agent.ErrToolNotFound, call.Name)
	}

	r.logger.Info("Executing tool",
		"tool", call.Name,
		"server", serverID,
		"correlation_id", correlationID)

	start := time.Now()
	result, err := r.callToolWithRecovery(ctx, serverID, call.Name, call.Args)
	if err != nil {
		return "", err
	}

	text := extractTextContent(result)
	if masker != nil {
		// Masked before the IsError branch: error text is relayed to the
		// LLM too and can carry the same secrets a success payload can.
		text = masker.MaskToolResult(text, serverID)
	}
	if result.IsError {
		// MCP convention: the error is in the result content, not a Go error.
		// Surface it as an error so the agent loop relays it to the LLM.
		if text == "" {
			text = fmt.Sprintf("tool %q reported an error with no content", call.Name)
		}
		return "", fmt.Errorf("%s", text)
	}

	r.logger.Info("Tool execution completed",
		"tool", call.Name,
		"server", serverID,
		"correlation_id", correlationID,
		"duration_seconds", time.Since(start).Seconds(),
		"result_length", len(text))

	return text, nil
}

// callToolWithRecovery executes a tool call with at most one retry.
// Transport failures recreate the session before the second attempt.
func (r *Registry) callToolWithRecovery(ctx context.Context, serverID, toolName string, args map[string]any) (*mcpsdk.CallToolResult, error) {
	params := &mcpsdk.CallToolParams{
		Name:      toolName,
		Arguments: args,
	}

	// First attempt
	result, err := r.callToolOnce(ctx, serverID, params)
	if err == nil {
		return result, nil
	}

	action := ClassifyError(err)
	if action == NoRetry {
		return nil, err
	}

	r.logger.Info("MCP call failed, retrying",
		"server", serverID, "tool", toolName,
		"action", action, "error", err)

	select {
	case <-time.After(retryBackoff()):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if action == RetryNewSession {
		if err := r.recreateSession(ctx, serverID); err != nil {
			return nil, fmt.Errorf("session recreation failed for %q: %w", serverID, err)
		}
	}

	// Second attempt
	result, err = r.callToolOnce(ctx, serverID, params)
	if err != nil {
		return nil, fmt.Errorf("retry failed for %q.%s: %w", serverID, toolName, err)
	}
	return result, nil
}

// callToolOnce performs a single CallTool attempt.
func (r *Registry) callToolOnce(ctx context.Context, serverID string, params *mcpsdk.CallToolParams) (*mcpsdk.CallToolResult, error) {
	r.mu.RLock()
	session, exists := r.sessions[serverID]
	r.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("no session for server %q", serverID)
	}

	opCtx, cancel := context.WithTimeout(ctx, OperationTimeout)
	defer cancel()

	return session.CallTool(opCtx, params)
}

// recreateSession tears down and recreates the session for a server.
// Uses per-server mutex to prevent concurrent recreation.
//
// Note: if two goroutines race into recreateSession, the second will
// unnecessarily tear down the freshly recreated session and create another.
// The cost is an extra recreation, which is acceptable for simplicity.
func (r *Registry) recreateSession(ctx context.Context, serverID string) error {
	muI, _ := r.reinitMu.LoadOrStore(serverID, &sync.Mutex{})
	mu := muI.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()

	r.mu.Lock()
	if session, exists := r.sessions[serverID]; exists {
		_ = session.Close()
		delete(r.sessions, serverID)
		delete(r.clients, serverID)
	}
	r.mu.Unlock()

	reinitCtx, cancel := context.WithTimeout(ctx, ReinitTimeout)
	defer cancel()

	return r.initializeServerLocked(reinitCtx, serverID)
}

// ListTools returns the tool definitions built during Initialize.
// Implements agent.ToolExecutor.
func (r *Registry) ListTools(_ context.Context) ([]agent.ToolDefinition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if !r.initialized {
		return nil, fmt.Errorf("MCP registry not initialized")
	}
	return cloneDefs(r.toolDefs), nil
}

// ServerTools returns the per-server tool definitions built during Initialize.
func (r *Registry) ServerTools() map[string][]agent.ToolDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string][]agent.ToolDefinition, len(r.toolsByServer))
	for id, defs := range r.toolsByServer {
		result[id] = cloneDefs(defs)
	}
	return result
}

// probeServer performs a live ListTools against a server, bypassing the
// tool index. Used by the health monitor.
func (r *Registry) probeServer(ctx context.Context, serverID string) (int, error) {
	r.mu.RLock()
	session, exists := r.sessions[serverID]
	r.mu.RUnlock()
	if !exists {
		return 0, fmt.Errorf("no session for server %q", serverID)
	}

	result, err := session.ListTools(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("list tools from %q: %w", serverID, err)
	}
	return len(result.Tools), nil
}

// HasSession checks if a server has an active session.
func (r *Registry) HasSession(serverID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.sessions[serverID]
	return exists
}

// ServerIDs returns the configured server IDs in sorted order.
func (r *Registry) ServerIDs() []string {
	return r.servers.ServerIDs()
}

// FailedServers returns the map of servers that failed to initialize.
func (r *Registry) FailedServers() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make(map[string]string, len(r.failedServers))
	for k, v := range r.failedServers {
		result[k] = v
	}
	return result
}

// Close shuts down all sessions and transports gracefully.
// Implements agent.ToolExecutor.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for id, session := range r.sessions {
		if err := session.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close session %q: %w", id, err)
		}
	}

	r.sessions = make(map[string]*mcpsdk.ClientSession)
	r.clients = make(map[string]*mcpsdk.Client)
	r.failedServers = make(map[string]string)
	r.toolServer = make(map[string]string)
	r.toolsByServer = make(map[string][]agent.ToolDefinition)
	r.toolDefs = nil
	r.initialized = false

	return firstErr
}

// extractTextContent extracts text from an MCP CallToolResult.
// Concatenates all TextContent items. Non-text content (images, embedded
// resources) is logged at debug level and skipped.
func extractTextContent(result *mcpsdk.CallToolResult) string {
	var parts []string
	for _, c := range result.Content {
		if tc, ok := c.(*mcpsdk.TextContent); ok {
			parts = append(parts, tc.Text)
		} else {
			slog.Debug("MCP tool returned non-text content, skipping",
				"content_type", fmt.Sprintf("%T", c))
		}
	}
	return strings.Join(parts, "\n")
}

// marshalSchema serializes a tool's InputSchema to a JSON string.
func marshalSchema(schema any) string {
	if schema == nil {
		return ""
	}
	data, err := json.Marshal(schema)
	if err != nil {
		slog.Debug("Failed to marshal tool input schema", "error", err)
		return ""
	}
	return string(data)
}

func cloneDefs(defs []agent.ToolDefinition) []agent.ToolDefinition {
	out := make([]agent.ToolDefinition, len(defs))
	copy(out, defs)
	return out
}
