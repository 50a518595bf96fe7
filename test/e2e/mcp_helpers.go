package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/codeready-toolchain/inquest/pkg/config"
	"github.com/codeready-toolchain/inquest/pkg/mcp"
)

// emptySchema is a minimal valid JSON Schema for test tools.
var emptySchema = json.RawMessage(`{"type":"object"}`)

// SetupInMemoryMCP creates in-memory MCP servers with scripted tool handlers
// and returns an initialized *mcp.Registry backed by those servers.
//
// Every connect mints a fresh in-memory server with the same handlers, so
// the registry's session recreation path works against them too.
//
// servers maps serverID → (toolName → handler).
func SetupInMemoryMCP(t *testing.T, servers map[string]map[string]mcpsdk.ToolHandler) *mcp.Registry {
	t.Helper()

	cfgs := make(map[string]*config.MCPServerConfig, len(servers))
	for id := range servers {
		cfgs[id] = &config.MCPServerConfig{
			Transport: config.TransportStdio,
			// Carries the server ID through to the transport factory.
			Command: id,
			Args:    []string{},
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := mcp.NewRegistry(config.NewMCPServerRegistry(cfgs), logger)
	registry.SetTransportFactory(func(cfg *config.MCPServerConfig) (mcpsdk.Transport, error) {
		handlers, ok := servers[cfg.Command]
		if !ok || handlers == nil {
			return nil, errors.New("transport unavailable")
		}
		return startInMemoryServer(t, cfg.Command, handlers), nil
	})

	_, err := registry.Initialize(context.Background())
	require.NoError(t, err)
	require.Empty(t, registry.FailedServers())

	t.Cleanup(func() { _ = registry.Close() })
	return registry
}

// startInMemoryServer runs an MCP SDK server over an in-memory transport
// pair and returns the client end.
func startInMemoryServer(t *testing.T, name string, tools map[string]mcpsdk.ToolHandler) *mcpsdk.InMemoryTransport {
	t.Helper()

	server := mcpsdk.NewServer(&mcpsdk.Implementation{
		Name: name, Version: "test",
	}, nil)
	for toolName, handler := range tools {
		server.AddTool(&mcpsdk.Tool{
			Name:        toolName,
			Description: "test tool: " + toolName,
			InputSchema: emptySchema,
		}, handler)
	}

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()
	go func() {
		_ = server.Run(context.Background(), serverTransport)
	}()
	return clientTransport
}

// StaticToolHandler returns a handler that always returns the given text.
func StaticToolHandler(text string) mcpsdk.ToolHandler {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return &mcpsdk.CallToolResult{
			Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: text}},
		}, nil
	}
}

// ErrorToolHandler returns a handler that always fails with the given error.
func ErrorToolHandler(err error) mcpsdk.ToolHandler {
	return func(_ context.Context, _ *mcpsdk.CallToolRequest) (*mcpsdk.CallToolResult, error) {
		return nil, err
	}
}
