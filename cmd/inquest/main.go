// Inquest investigation server: accepts incident reports over HTTP and
// investigates them in the background with an LLM agent driving MCP tools.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/codeready-toolchain/inquest/pkg/api"
	"github.com/codeready-toolchain/inquest/pkg/cleanup"
	"github.com/codeready-toolchain/inquest/pkg/config"
	"github.com/codeready-toolchain/inquest/pkg/correlate"
	"github.com/codeready-toolchain/inquest/pkg/llm"
	"github.com/codeready-toolchain/inquest/pkg/masking"
	"github.com/codeready-toolchain/inquest/pkg/mcp"
	"github.com/codeready-toolchain/inquest/pkg/scheduler"
	"github.com/codeready-toolchain/inquest/pkg/services"
	"github.com/codeready-toolchain/inquest/pkg/store"
	"github.com/codeready-toolchain/inquest/pkg/version"
)

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func main() {
	// Parse command-line flags
	configDir := flag.String("config-dir",
		getEnv("CONFIG_DIR", "./config"),
		"Path to configuration directory")
	flag.Parse()

	// Load .env file from config directory. Values set there steer the
	// rest of configuration loading, including the config file paths.
	envPath := filepath.Join(*configDir, ".env")
	if err := godotenv.Load(envPath); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"path", envPath, "error", err)
	} else {
		slog.Info("Loaded environment", "path", envPath)
	}

	httpPort := getEnv("HTTP_PORT", "8080")

	slog.Info("Starting Inquest",
		"version", version.GitCommit,
		"http_port", httpPort,
		"config_dir", *configDir)

	ctx := context.Background()

	// 1. Initialize configuration
	cfg, err := config.Initialize(ctx, config.Options{})
	if err != nil {
		slog.Error("Failed to initialize configuration", "error", err)
		os.Exit(1)
	}

	// 2. Create LLM client
	llmClient, err := llm.NewClient(cfg.LLM, slog.Default())
	if err != nil {
		slog.Error("Failed to initialize LLM client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := llmClient.Close(); err != nil {
			slog.Error("Error closing LLM client", "error", err)
		}
	}()
	slog.Info("LLM client initialized", "model", cfg.LLM.Model)

	// 3. Connect MCP servers eagerly. A server that cannot connect at
	// startup is a broken config, and the process exits rather than
	// investigate with silently missing tools.
	registry := mcp.NewRegistry(cfg.MCPServerRegistry, slog.Default())
	if masker := masking.NewService(cfg.MCPServerRegistry, slog.Default()); masker.Enabled() {
		registry.SetResultMasker(masker)
	}
	toolDefs, err := registry.Initialize(ctx)
	if err != nil {
		slog.Error("MCP startup validation failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := registry.Close(); err != nil {
			slog.Error("Error closing MCP registry", "error", err)
		}
	}()
	if failed := registry.FailedServers(); len(failed) > 0 {
		slog.Error("MCP servers failed startup validation", "failed_servers", failed)
		os.Exit(1)
	}
	if cfg.MCPServerRegistry.Len() > 0 {
		slog.Info("MCP servers validated",
			"count", cfg.MCPServerRegistry.Len(), "tools", len(toolDefs))
	}

	// 4. Start MCP health monitor (background goroutine)
	warningsService := services.NewSystemWarningsService()
	var healthMonitor *mcp.HealthMonitor
	if cfg.MCPServerRegistry.Len() > 0 {
		healthMonitor = mcp.NewHealthMonitor(registry, warningsService)
		healthMonitor.Start(ctx)
		defer healthMonitor.Stop()
		slog.Info("MCP health monitor started")
	}

	// 5. Create incident store and scheduler
	incidents := store.New()
	engine := correlate.NewEngine(cfg.KnowledgeGraph)
	sched := scheduler.New(incidents, llmClient, registry, engine, cfg.Scheduler, slog.Default())
	incidentService := services.NewIncidentService(sched, incidents)
	slog.Info("Scheduler initialized",
		"max_concurrent", cfg.Scheduler.MaxConcurrentInvestigations,
		"investigation_timeout", cfg.Scheduler.InvestigationTimeout)

	// 6. Start retention sweeper
	var retention *cleanup.Service
	if cfg.Retention.Enabled {
		retention = cleanup.NewService(cfg.Retention, incidents, slog.Default())
		retention.Start(ctx)
	}

	// 7. Create HTTP server
	httpServer := api.NewServer(incidentService, sched)
	httpServer.SetWarningsService(warningsService)
	httpServer.SetMCPRegistry(registry)
	if healthMonitor != nil {
		httpServer.SetHealthMonitor(healthMonitor)
	}
	if cfg.KnowledgeGraph != nil {
		httpServer.SetKnowledgeGraph(cfg.KnowledgeGraph)
	}

	// 8. Start HTTP server (non-blocking)
	errCh := make(chan error, 1)
	go func() {
		addr := ":" + httpPort
		slog.Info("HTTP server listening", "addr", addr)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Inquest started successfully")

	// 9. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 10. Graceful shutdown. Stopping the scheduler first flips the health
	// endpoint to unhealthy and rejects new submissions while in-flight
	// investigations drain.
	sched.Stop()

	if retention != nil {
		retention.Stop()
	}

	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("Shutdown complete")
}
