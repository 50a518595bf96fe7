package agent

import "errors"

var (
	// ErrNoResponse indicates the conversation ended without any message
	// carrying content to report.
	ErrNoResponse = errors.New("No response from agent")

	// ErrMaxIterations indicates the reasoning loop hit its iteration cap
	// without reaching a conclusion.
	ErrMaxIterations = errors.New("investigation exceeded maximum iterations")

	// ErrInvestigationTimeout indicates the per-incident wall clock budget
	// expired before the agent concluded.
	ErrInvestigationTimeout = errors.New("investigation timeout")

	// ErrToolNotFound indicates the LLM requested a tool no MCP server provides.
	ErrToolNotFound = errors.New("tool not found")
)
