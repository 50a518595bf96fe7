package agent

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/codeready-toolchain/inquest/pkg/models"
)

// UpdateCallback receives progress notifications during an investigation.
// Implementations must not block; they run on the investigation goroutine.
type UpdateCallback func(incidentID, status string, details map[string]any)

// InvestigationResult is the structured outcome of one investigation.
type InvestigationResult struct {
	Status          InvestigationStatus
	RootCause       string
	Confidence      models.Confidence
	Reasoning       string
	Recommendations []string
	ToolCalls       []models.ToolCallRecord
	Evidence        []models.EvidenceItem
	Error           string
	CorrelationID   string
	Duration        time.Duration
}

// Runner executes investigations end to end: seeds the conversation,
// drives the graph (retrying transport-level failures), and extracts the
// structured verdict from the final report.
type Runner struct {
	graph  *Graph
	retry  RetryPolicy
	logger *slog.Logger
}

// NewRunner wraps a graph with the outer retry budget.
func NewRunner(graph *Graph, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	policy := DefaultRetryPolicy()
	policy.Classify = retryableGraphError
	return &Runner{
		graph:  graph,
		retry:  policy,
		logger: logger,
	}
}

// retryableGraphError excludes failures a rerun cannot fix: the
// iteration cap and context cancellation or expiry.
func retryableGraphError(err error) bool {
	if errors.Is(err, ErrMaxIterations) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

// Investigate runs one investigation. An empty correlationID mints a new
// one. The update callback, when set, is invoked with "investigating"
// before the agent starts. The returned result is never nil: failures
// carry whatever evidence the run had gathered, marked partial by the
// caller.
func (r *Runner) Investigate(ctx context.Context, incidentID, description string, update UpdateCallback, correlationID string) *InvestigationResult {
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	start := time.Now()
	logger := r.logger.With(
		"incident_id", incidentID,
		"correlation_id", correlationID)

	logger.Info("Starting investigation")

	if update != nil {
		update(incidentID, "investigating", map[string]any{
			"message":   "Investigation started",
			"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		})
	}

	// Each attempt runs on a fresh conversation; the last attempt's state
	// is kept so a terminal failure can still salvage partial evidence.
	var lastState *GraphState
	state, err := Retry(ctx, r.retry, logger, "investigation_graph", func(ctx context.Context) (*GraphState, error) {
		attemptState := NewGraphState(incidentID, correlationID, description)
		lastState = attemptState
		if runErr := r.graph.Run(ctx, attemptState); runErr != nil {
			return nil, runErr
		}
		return attemptState, nil
	})
	if err != nil {
		logger.Error("Investigation failed", "error", err)
		return r.failedResult(lastState, err, correlationID, start)
	}

	result, err := r.extractResult(state, correlationID, start)
	if err != nil {
		logger.Error("Investigation failed", "error", err)
		return r.failedResult(state, err, correlationID, start)
	}

	logger.Info("Investigation completed",
		"root_cause", result.RootCause,
		"confidence", result.Confidence,
		"tool_calls", len(result.ToolCalls),
		"duration", result.Duration)
	return result
}

// extractResult parses the completed conversation into a verdict.
func (r *Runner) extractResult(state *GraphState, correlationID string, start time.Time) (*InvestigationResult, error) {
	final := finalMessage(state.Messages)
	if final == nil {
		return nil, ErrNoResponse
	}

	now := time.Now().UTC()
	content := final.Content

	return &InvestigationResult{
		Status:          InvestigationCompleted,
		RootCause:       extractRootCause(content),
		Confidence:      extractConfidence(content),
		Reasoning:       content,
		Recommendations: extractRecommendations(content),
		ToolCalls:       collectToolCalls(state.Messages, now),
		Evidence:        extractEvidence(state.Messages, now),
		CorrelationID:   correlationID,
		Duration:        time.Since(start),
	}, nil
}

// failedResult salvages partial findings from an aborted run.
func (r *Runner) failedResult(state *GraphState, err error, correlationID string, start time.Time) *InvestigationResult {
	result := &InvestigationResult{
		Status:        InvestigationFailed,
		Confidence:    "",
		Error:         err.Error(),
		CorrelationID: correlationID,
		Duration:      time.Since(start),
	}

	if state != nil {
		now := time.Now().UTC()
		result.ToolCalls = collectToolCalls(state.Messages, now)
		result.Evidence = extractEvidence(state.Messages, now)
		if final := finalAssistantMessage(state.Messages); final != nil {
			result.Reasoning = final.Content
			result.RootCause = extractRootCause(final.Content)
		}
	}

	return result
}

// finalMessage returns the last message with non-empty content. Seed
// messages (system, user) never count as a report, so an agent that
// concludes without text still surfaces ErrNoResponse.
func finalMessage(messages []Message) *Message {
	for i := len(messages) - 1; i >= 0; i-- {
		msg := &messages[i]
		if msg.Role != RoleAssistant && msg.Role != RoleTool {
			continue
		}
		if msg.Content != "" {
			return msg
		}
	}
	return nil
}

// finalAssistantMessage returns the last assistant message with content.
func finalAssistantMessage(messages []Message) *Message {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleAssistant && messages[i].Content != "" {
			return &messages[i]
		}
	}
	return nil
}
