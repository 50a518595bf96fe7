package e2e

import (
	"context"

	"github.com/codeready-toolchain/inquest/pkg/agent"
)

// llmFunc adapts a plain function to agent.LLMClient, for tests where the
// response must be computed from the request rather than replayed from a
// fixed script.
type llmFunc func(ctx context.Context, input *agent.GenerateInput) (*agent.GenerateOutput, error)

func (f llmFunc) Generate(ctx context.Context, input *agent.GenerateInput) (*agent.GenerateOutput, error) {
	return f(ctx, input)
}

func (f llmFunc) Close() error { return nil }
