// Package e2e boots the full investigation service in process and drives
// it over HTTP: real store, scheduler, agent graph, and MCP registry, with
// a scripted LLM and in-memory MCP servers standing in for the network.
package e2e

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/codeready-toolchain/inquest/pkg/agent"
	"github.com/codeready-toolchain/inquest/pkg/api"
	"github.com/codeready-toolchain/inquest/pkg/config"
	"github.com/codeready-toolchain/inquest/pkg/correlate"
	"github.com/codeready-toolchain/inquest/pkg/mcp"
	"github.com/codeready-toolchain/inquest/pkg/scheduler"
	"github.com/codeready-toolchain/inquest/pkg/services"
	"github.com/codeready-toolchain/inquest/pkg/store"
)

// TestApp is a complete Inquest instance for e2e testing.
type TestApp struct {
	Store     *store.Store
	LLM       agent.LLMClient
	Registry  *mcp.Registry
	Scheduler *scheduler.Scheduler
	Warnings  *services.SystemWarningsService
	Server    *api.Server

	BaseURL string

	t *testing.T
}

// testAppConfig holds options accumulated before creating the TestApp.
type testAppConfig struct {
	llmClient      agent.LLMClient
	mcpServers     map[string]map[string]mcpsdk.ToolHandler
	knowledgeGraph *config.KnowledgeGraph
	schedulerCfg   *config.SchedulerConfig
}

// TestAppOption configures the test app.
type TestAppOption func(*testAppConfig)

// WithLLMClient sets the LLM client, typically an agent.ScriptedLLMClient.
func WithLLMClient(client agent.LLMClient) TestAppOption {
	return func(c *testAppConfig) { c.llmClient = client }
}

// WithScript is shorthand for a scripted LLM client over the given steps.
func WithScript(steps ...agent.ScriptStep) TestAppOption {
	return func(c *testAppConfig) { c.llmClient = agent.NewScriptedLLMClient(steps...) }
}

// WithMCPServers sets in-memory MCP servers.
// Maps serverID → (toolName → handler).
func WithMCPServers(servers map[string]map[string]mcpsdk.ToolHandler) TestAppOption {
	return func(c *testAppConfig) { c.mcpServers = servers }
}

// WithKnowledgeGraph wires an infrastructure graph for correlation.
func WithKnowledgeGraph(graph *config.KnowledgeGraph) TestAppOption {
	return func(c *testAppConfig) { c.knowledgeGraph = graph }
}

// WithSchedulerConfig overrides the scheduler settings.
func WithSchedulerConfig(cfg *config.SchedulerConfig) TestAppOption {
	return func(c *testAppConfig) { c.schedulerCfg = cfg }
}

// WithInvestigationTimeout overrides just the per-incident deadline.
func WithInvestigationTimeout(d time.Duration) TestAppOption {
	return func(c *testAppConfig) { c.schedulerCfg.InvestigationTimeout = d }
}

// NewTestApp creates and starts a full Inquest test instance.
// Shutdown is registered via t.Cleanup automatically.
func NewTestApp(t *testing.T, opts ...TestAppOption) *TestApp {
	t.Helper()

	tc := &testAppConfig{
		schedulerCfg: &config.SchedulerConfig{
			MaxConcurrentInvestigations: 4,
			InvestigationTimeout:        30 * time.Second,
			MaxIterations:               10,
			GracefulShutdownTimeout:     5 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(tc)
	}
	if tc.llmClient == nil {
		tc.llmClient = agent.NewScriptedLLMClient()
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// MCP: in-memory servers if configured, an empty registry otherwise.
	var registry *mcp.Registry
	if len(tc.mcpServers) > 0 {
		registry = SetupInMemoryMCP(t, tc.mcpServers)
	} else {
		registry = mcp.NewRegistry(config.NewMCPServerRegistry(nil), logger)
		_, err := registry.Initialize(context.Background())
		if err != nil {
			t.Fatalf("empty registry failed to initialize: %v", err)
		}
	}

	incidents := store.New()
	engine := correlate.NewEngine(tc.knowledgeGraph)
	sched := scheduler.New(incidents, tc.llmClient, registry, engine, tc.schedulerCfg, logger)

	warnings := services.NewSystemWarningsService()
	server := api.NewServer(services.NewIncidentService(sched, incidents), sched)
	server.SetWarningsService(warnings)
	server.SetMCPRegistry(registry)
	if tc.knowledgeGraph != nil {
		server.SetKnowledgeGraph(tc.knowledgeGraph)
	}

	httpServer := httptest.NewServer(server.Handler())

	app := &TestApp{
		Store:     incidents,
		LLM:       tc.llmClient,
		Registry:  registry,
		Scheduler: sched,
		Warnings:  warnings,
		Server:    server,
		BaseURL:   httpServer.URL,
		t:         t,
	}

	// Reverse-creation order: stop accepting HTTP, then drain investigations.
	t.Cleanup(func() {
		httpServer.Close()
		sched.Stop()
	})

	return app
}
