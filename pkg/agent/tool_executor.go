package agent

import (
	"context"
	"fmt"
)

// ToolExecutor abstracts tool execution for the investigation graph.
// The MCP-backed implementation is in pkg/mcp.
type ToolExecutor interface {
	// Execute runs a single tool call and returns its text output.
	// The correlation ID ties execution logs to one investigation.
	Execute(ctx context.Context, call ToolCall, correlationID string) (string, error)

	// ListTools returns available tool definitions.
	// Returns nil if no tools are configured.
	ListTools(ctx context.Context) ([]ToolDefinition, error)

	// Close releases resources (MCP transports, subprocesses).
	Close() error
}

// StubToolExecutor returns canned responses for testing.
type StubToolExecutor struct {
	tools []ToolDefinition

	// Responses maps tool name to fixed output. Unlisted tools echo
	// their arguments.
	Responses map[string]string

	// Errors maps tool name to a forced execution error.
	Errors map[string]error
}

// NewStubToolExecutor creates a stub executor with the given tool definitions.
func NewStubToolExecutor(tools []ToolDefinition) *StubToolExecutor {
	return &StubToolExecutor{tools: tools}
}

func (s *StubToolExecutor) Execute(_ context.Context, call ToolCall, _ string) (string, error) {
	if err, ok := s.Errors[call.Name]; ok {
		return "", err
	}
	if out, ok := s.Responses[call.Name]; ok {
		return out, nil
	}
	return fmt.Sprintf("[stub] Tool %q called with args: %v", call.Name, call.Args), nil
}

func (s *StubToolExecutor) ListTools(_ context.Context) ([]ToolDefinition, error) {
	return s.tools, nil
}

func (s *StubToolExecutor) Close() error { return nil }
