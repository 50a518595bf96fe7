package agent

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultMaxIterations caps agent invocations per investigation.
const DefaultMaxIterations = 20

// InvestigationStatus tracks the outcome of a graph run.
type InvestigationStatus string

const (
	InvestigationInProgress InvestigationStatus = "in_progress"
	InvestigationCompleted  InvestigationStatus = "completed"
	InvestigationFailed     InvestigationStatus = "failed"
)

// GraphState is the conversation state threaded through one run.
type GraphState struct {
	Messages      []Message
	IncidentID    string
	CorrelationID string
	Status        InvestigationStatus
}

// NewGraphState seeds state for a fresh investigation.
func NewGraphState(incidentID, correlationID, description string) *GraphState {
	return &GraphState{
		Messages:      initialMessages(description),
		IncidentID:    incidentID,
		CorrelationID: correlationID,
		Status:        InvestigationInProgress,
	}
}

// Graph drives the reasoning loop: the agent node calls the LLM, the
// tools node executes requested tools, and control alternates between
// them until the agent answers without tool calls.
type Graph struct {
	llm           LLMClient
	tools         ToolExecutor
	toolDefs      []ToolDefinition
	retry         RetryPolicy
	maxIterations int
	logger        *slog.Logger
}

// NewGraph builds an investigation graph. maxIterations <= 0 applies
// DefaultMaxIterations; a nil logger uses the default.
func NewGraph(llm LLMClient, tools ToolExecutor, toolDefs []ToolDefinition, maxIterations int, logger *slog.Logger) *Graph {
	if maxIterations <= 0 {
		maxIterations = DefaultMaxIterations
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{
		llm:           llm,
		tools:         tools,
		toolDefs:      toolDefs,
		retry:         DefaultRetryPolicy(),
		maxIterations: maxIterations,
		logger:        logger,
	}
}

// Run executes the loop until the agent concludes, the iteration cap is
// hit, or the LLM fails past its retry budget. On failure the state keeps
// every message appended so far and Status is set to failed; no partial
// assistant message is appended for the failing call.
func (g *Graph) Run(ctx context.Context, state *GraphState) error {
	logger := g.logger.With(
		"incident_id", state.IncidentID,
		"correlation_id", state.CorrelationID)

	if state.Status == "" {
		state.Status = InvestigationInProgress
	}

	for iteration := 1; ; iteration++ {
		if iteration > g.maxIterations {
			state.Status = InvestigationFailed
			return fmt.Errorf("%w: %d", ErrMaxIterations, g.maxIterations)
		}

		aiMsg, err := Retry(ctx, g.retry, logger, "llm_generate", func(ctx context.Context) (Message, error) {
			out, genErr := g.llm.Generate(ctx, &GenerateInput{
				Messages: state.Messages,
				Tools:    g.toolDefs,
			})
			if genErr != nil {
				return Message{}, genErr
			}
			return out.Message, nil
		})
		if err != nil {
			state.Status = InvestigationFailed
			return err
		}

		state.Messages = append(state.Messages, aiMsg)

		if !shouldContinue(state.Messages) {
			logger.Debug("Agent concluded", "iterations", iteration)
			state.Status = InvestigationCompleted
			return nil
		}

		logger.Debug("Agent requested tools",
			"iteration", iteration,
			"tool_calls", len(aiMsg.ToolCalls))
		g.runTools(ctx, state, aiMsg)
	}
}

// shouldContinue routes back to the tools node when the last message is
// an assistant message carrying tool calls.
func shouldContinue(messages []Message) bool {
	if len(messages) == 0 {
		return false
	}
	return messages[len(messages)-1].HasToolCalls()
}

// runTools executes each requested tool sequentially, in emission order,
// appending exactly one tool message per call. Execution errors never
// abort the run: the error text is surfaced to the agent instead.
func (g *Graph) runTools(ctx context.Context, state *GraphState, aiMsg Message) {
	for _, call := range aiMsg.ToolCalls {
		output, err := g.tools.Execute(ctx, call, state.CorrelationID)
		if err != nil {
			output = fmt.Sprintf("Error executing tool: %s", err)
		}
		state.Messages = append(state.Messages, ToolMessage(call.ID, call.Name, output))
	}
}
