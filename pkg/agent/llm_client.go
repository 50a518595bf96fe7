package agent

import "context"

// LLMClient is the interface for calling the chat completions backend.
// The OpenAI-compatible implementation lives in pkg/llm.
type LLMClient interface {
	// Generate sends the conversation plus available tool definitions and
	// returns the model's next message.
	Generate(ctx context.Context, input *GenerateInput) (*GenerateOutput, error)

	// Close releases the underlying connection.
	Close() error
}

// GenerateInput is one chat completion request.
type GenerateInput struct {
	Messages []Message
	Tools    []ToolDefinition // nil = no tools
}

// GenerateOutput is the model's reply for one request.
type GenerateOutput struct {
	Message Message
	Usage   Usage
}

// Usage reports token consumption for one LLM call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ToolDefinition describes a tool available to the LLM.
type ToolDefinition struct {
	Name             string
	Description      string
	ParametersSchema string // JSON Schema
}
