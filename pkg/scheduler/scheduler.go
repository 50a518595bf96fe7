// Package scheduler runs investigations in the background on a bounded
// worker pool. Submission returns as soon as the pending record exists;
// a worker slot picks the incident up when one frees.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/inquest/pkg/agent"
	"github.com/codeready-toolchain/inquest/pkg/config"
	"github.com/codeready-toolchain/inquest/pkg/correlate"
	"github.com/codeready-toolchain/inquest/pkg/models"
	"github.com/codeready-toolchain/inquest/pkg/store"
)

// ErrNotReady rejects submissions while the scheduler is shutting down.
var ErrNotReady = errors.New("scheduler is not accepting investigations")

// Health is the scheduler's contribution to the health endpoint.
type Health struct {
	Active    int  `json:"active"`
	Capacity  int  `json:"capacity"`
	Accepting bool `json:"accepting"`
}

// Scheduler owns the investigation worker pool.
type Scheduler struct {
	incidents *store.Store
	llm       agent.LLMClient
	tools     agent.ToolExecutor
	engine    *correlate.Engine
	cfg       *config.SchedulerConfig

	sem      chan struct{}
	wg       sync.WaitGroup
	stopCh   chan struct{}
	stopOnce sync.Once

	mu     sync.Mutex
	active map[string]context.CancelFunc // incidentID → cancel

	logger *slog.Logger
}

// New creates a Scheduler. All dependencies except engine and logger are
// required.
func New(incidents *store.Store, llm agent.LLMClient, tools agent.ToolExecutor, engine *correlate.Engine, cfg *config.SchedulerConfig, logger *slog.Logger) *Scheduler {
	if incidents == nil {
		panic("scheduler.New: incidents must not be nil")
	}
	if llm == nil {
		panic("scheduler.New: llm must not be nil")
	}
	if tools == nil {
		panic("scheduler.New: tools must not be nil")
	}
	if cfg == nil {
		panic("scheduler.New: cfg must not be nil")
	}
	if engine == nil {
		engine = correlate.NewEngine(nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	capacity := cfg.MaxConcurrentInvestigations
	if capacity < 1 {
		capacity = 1
	}
	return &Scheduler{
		incidents: incidents,
		llm:       llm,
		tools:     tools,
		engine:    engine,
		cfg:       cfg,
		sem:       make(chan struct{}, capacity),
		stopCh:    make(chan struct{}),
		active:    make(map[string]context.CancelFunc),
		logger:    logger,
	}
}

// Submit creates a pending incident and schedules its investigation.
// Returns immediately even when every worker slot is busy; the incident
// stays pending until a slot frees. Returns ErrNotReady during shutdown.
func (s *Scheduler) Submit(_ context.Context, description string) (*models.Incident, error) {
	select {
	case <-s.stopCh:
		return nil, ErrNotReady
	default:
	}

	incident := s.incidents.CreatePending(description)
	s.logger.Info("Incident submitted", "incident_id", incident.ID)

	s.wg.Add(1)
	go s.runInvestigation(incident.ID, incident.Description, incident.ExtractedEntities)

	return incident, nil
}

func (s *Scheduler) runInvestigation(incidentID, description string, entities map[string]string) {
	defer s.wg.Done()

	// Wait for a worker slot. Shutdown abandons queued incidents.
	select {
	case s.sem <- struct{}{}:
	case <-s.stopCh:
		s.abandon(incidentID)
		return
	}
	defer func() { <-s.sem }()

	select {
	case <-s.stopCh:
		s.abandon(incidentID)
		return
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.InvestigationTimeout)
	defer cancel()
	s.track(incidentID, cancel)
	defer s.untrack(incidentID)

	correlationID := uuid.NewString()
	logger := s.logger.With("incident_id", incidentID, "correlation_id", correlationID)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("Investigation panicked", "panic", rec)
			if _, err := s.incidents.UpdateStatus(incidentID, models.StatusFailed,
				map[string]any{"error": fmt.Sprintf("internal error: %v", rec)}); err != nil {
				logger.Error("Failed to record panic failure", "error", err)
			}
		}
	}()

	if _, err := s.incidents.UpdateStatus(incidentID, models.StatusInProgress,
		map[string]any{"correlation_id": correlationID}); err != nil {
		logger.Error("Failed to mark incident in progress", "error", err)
		return
	}

	toolDefs, err := s.tools.ListTools(ctx)
	if err != nil {
		logger.Warn("Tool listing failed, investigating without tools", "error", err)
		toolDefs = nil
	}

	// Fresh graph per incident: conversation state never crosses incidents.
	graph := agent.NewGraph(s.llm, s.tools, toolDefs, s.cfg.MaxIterations, logger)
	runner := agent.NewRunner(graph, logger)

	result := runner.Investigate(ctx, incidentID, description, s.recordProgress, correlationID)

	s.finishIncident(logger, incidentID, entities, result, ctx.Err())
}

// abandon marks a never-started incident failed during shutdown.
func (s *Scheduler) abandon(incidentID string) {
	s.logger.Info("Abandoning queued incident on shutdown", "incident_id", incidentID)
	if _, err := s.incidents.UpdateStatus(incidentID, models.StatusFailed,
		map[string]any{"error": "service shutting down"}); err != nil {
		s.logger.Warn("Failed to abandon incident", "incident_id", incidentID, "error", err)
	}
}

// recordProgress is the runner's update callback; it appends progress steps
// to the incident's timeline.
func (s *Scheduler) recordProgress(incidentID, status string, details map[string]any) {
	if status != "investigating" {
		return
	}
	if err := s.incidents.AppendStep(incidentID, models.InvestigationStep{
		StepName: models.StepAgentInvestigating,
		Status:   models.StepStarted,
		Details:  details,
	}); err != nil {
		s.logger.Warn("Failed to record progress step", "incident_id", incidentID, "error", err)
	}
}

// finishIncident records the verdict and moves the incident to its terminal
// status. Failed investigations without a root cause consult the correlation
// rules on whatever evidence was gathered.
func (s *Scheduler) finishIncident(logger *slog.Logger, incidentID string, entities map[string]string, result *agent.InvestigationResult, ctxErr error) {
	completed := result.Status == agent.InvestigationCompleted

	rootCause := result.RootCause
	confidence := result.Confidence
	collected := result.Evidence

	if !completed && rootCause == "" {
		if suggestion, ok := s.engine.Correlate(correlate.EvidenceFromItems(collected), entities); ok {
			logger.Info("Correlation rules salvaged a root cause",
				"root_cause", suggestion.RootCause, "confidence", suggestion.Confidence)
			rootCause = suggestion.RootCause
			confidence = suggestion.Confidence
			if suggestion.Details != "" {
				collected = append(collected, models.EvidenceItem{
					Source:    "correlation_engine",
					Content:   suggestion.Details,
					Timestamp: time.Now().UTC(),
				})
			}
		}
	}

	evidence := &models.Evidence{
		ToolCalls:         result.ToolCalls,
		CollectedEvidence: collected,
		Reasoning:         result.Reasoning,
		Recommendations:   result.Recommendations,
		Partial:           !completed,
	}
	if err := s.incidents.SetInvestigationResult(incidentID, evidence, rootCause, confidence); err != nil {
		logger.Error("Failed to record investigation result", "error", err)
	}

	if completed {
		if _, err := s.incidents.UpdateStatus(incidentID, models.StatusCompleted, map[string]any{
			"root_cause": rootCause,
			"confidence": string(confidence),
		}); err != nil {
			logger.Error("Failed to complete incident", "error", err)
		}
	} else {
		errMsg := result.Error
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			errMsg = agent.ErrInvestigationTimeout.Error()
		}
		if errMsg == "" {
			errMsg = "investigation failed"
		}
		if _, err := s.incidents.UpdateStatus(incidentID, models.StatusFailed,
			map[string]any{"error": errMsg}); err != nil {
			logger.Error("Failed to mark incident failed", "error", err)
		}
	}

	logger.Info("Investigation finished",
		"status", result.Status,
		"root_cause", rootCause,
		"duration", result.Duration)
}

func (s *Scheduler) track(incidentID string, cancel context.CancelFunc) {
	s.mu.Lock()
	s.active[incidentID] = cancel
	s.mu.Unlock()
}

func (s *Scheduler) untrack(incidentID string) {
	s.mu.Lock()
	delete(s.active, incidentID)
	s.mu.Unlock()
}

// ActiveCount returns the number of investigations currently running.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Health reports pool occupancy and whether submissions are accepted.
func (s *Scheduler) Health() Health {
	accepting := true
	select {
	case <-s.stopCh:
		accepting = false
	default:
	}
	return Health{
		Active:    s.ActiveCount(),
		Capacity:  cap(s.sem),
		Accepting: accepting,
	}
}

// Stop drains the scheduler: submissions are rejected immediately, queued
// incidents are abandoned, and running investigations get the graceful
// shutdown budget before their contexts are cancelled.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Scheduler drained")
	case <-time.After(s.cfg.GracefulShutdownTimeout):
		s.logger.Warn("Shutdown budget exceeded, cancelling active investigations",
			"active", s.ActiveCount())
		s.cancelActive()
		<-done
	}
}

func (s *Scheduler) cancelActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, cancel := range s.active {
		cancel()
	}
}
