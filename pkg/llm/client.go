// Package llm implements agent.LLMClient over an OpenAI-compatible Chat
// Completions API. It translates investigation conversations into
// ChatCompletion calls using github.com/sashabaranov/go-openai and maps
// responses back onto the agent message types.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/codeready-toolchain/inquest/pkg/agent"
	"github.com/codeready-toolchain/inquest/pkg/config"
)

// ChatClient captures the subset of the go-openai client the service uses.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (
		openai.ChatCompletionResponse, error)
}

// Client implements agent.LLMClient via the OpenAI Chat Completions API.
type Client struct {
	chat   ChatClient
	cfg    *config.LLMConfig
	logger *slog.Logger
}

// NewClient builds a client for the configured endpoint.
func NewClient(cfg *config.LLMConfig, logger *slog.Logger) (*Client, error) {
	if cfg == nil {
		return nil, errors.New("LLM config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	apiCfg.BaseURL = cfg.BaseURL
	return &Client{
		chat:   openai.NewClientWithConfig(apiCfg),
		cfg:    cfg,
		logger: logger,
	}, nil
}

// NewClientWithChat injects a ChatClient; used by tests.
func NewClientWithChat(chat ChatClient, cfg *config.LLMConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{chat: chat, cfg: cfg, logger: logger}
}

// Generate sends the conversation and returns the model's next message.
func (c *Client) Generate(ctx context.Context, input *agent.GenerateInput) (*agent.GenerateOutput, error) {
	if input == nil || len(input.Messages) == 0 {
		return nil, errors.New("messages are required")
	}

	request := openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    encodeMessages(input.Messages),
		Tools:       encodeTools(input.Tools),
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	}

	response, err := c.chat.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return nil, errors.New("chat completion returned no choices")
	}

	output := &agent.GenerateOutput{
		Message: decodeMessage(response.Choices[0].Message),
		Usage: agent.Usage{
			PromptTokens:     response.Usage.PromptTokens,
			CompletionTokens: response.Usage.CompletionTokens,
			TotalTokens:      response.Usage.TotalTokens,
		},
	}

	c.logger.Debug("Chat completion finished",
		"model", c.cfg.Model,
		"prompt_tokens", output.Usage.PromptTokens,
		"completion_tokens", output.Usage.CompletionTokens,
		"tool_calls", len(output.Message.ToolCalls))

	return output, nil
}

// Close releases client resources. The HTTP-backed client holds none.
func (c *Client) Close() error { return nil }

func encodeMessages(messages []agent.Message) []openai.ChatCompletionMessage {
	encoded := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msg := openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		}
		if m.Role == agent.RoleAssistant && len(m.ToolCalls) > 0 {
			msg.ToolCalls = encodeToolCalls(m.ToolCalls)
		}
		if m.Role == agent.RoleTool {
			msg.ToolCallID = m.ToolCallID
			msg.Name = m.ToolName
		}
		encoded = append(encoded, msg)
	}
	return encoded
}

func encodeToolCalls(calls []agent.ToolCall) []openai.ToolCall {
	encoded := make([]openai.ToolCall, 0, len(calls))
	for _, call := range calls {
		encoded = append(encoded, openai.ToolCall{
			ID:   call.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      call.Name,
				Arguments: marshalArguments(call.Args),
			},
		})
	}
	return encoded
}

func encodeTools(defs []agent.ToolDefinition) []openai.Tool {
	if len(defs) == 0 {
		return nil
	}
	tools := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		schema := def.ParametersSchema
		if schema == "" {
			schema = `{"type":"object"}`
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  json.RawMessage(schema),
			},
		})
	}
	return tools
}

func decodeMessage(msg openai.ChatCompletionMessage) agent.Message {
	decoded := agent.Message{
		Role:    agent.RoleAssistant,
		Content: msg.Content,
	}
	for _, call := range msg.ToolCalls {
		decoded.ToolCalls = append(decoded.ToolCalls, agent.ToolCall{
			ID:   call.ID,
			Name: call.Function.Name,
			Args: parseToolArguments(call.Function.Arguments),
		})
	}
	return decoded
}

// marshalArguments renders tool call args as the JSON string the wire
// format expects. Nil args become an empty object.
func marshalArguments(args map[string]any) string {
	if args == nil {
		return "{}"
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// parseToolArguments decodes the model's argument JSON. Malformed
// payloads are preserved under a "raw" key instead of being dropped.
func parseToolArguments(raw string) map[string]any {
	if raw == "" {
		return nil
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return map[string]any{"raw": raw}
	}
	return payload
}
