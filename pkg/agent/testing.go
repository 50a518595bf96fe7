package agent

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ScriptStep is one scripted LLM response for tests.
type ScriptStep struct {
	// Message is returned when Err is nil.
	Message Message

	// Err fails the call.
	Err error

	// Delay is waited (cancellable) before responding; used to simulate
	// slow backends in timeout tests.
	Delay time.Duration
}

// ScriptedLLMClient replays a fixed sequence of responses. Test-only.
// Safe for concurrent use; each Generate consumes the next step.
type ScriptedLLMClient struct {
	mu     sync.Mutex
	script []ScriptStep
	calls  int
	inputs []*GenerateInput

	// RepeatLast keeps returning the final step once the script is
	// exhausted instead of failing.
	RepeatLast bool

	closed bool
}

// NewScriptedLLMClient builds a scripted client from steps in order.
func NewScriptedLLMClient(steps ...ScriptStep) *ScriptedLLMClient {
	return &ScriptedLLMClient{script: steps}
}

// Generate pops the next scripted step.
func (c *ScriptedLLMClient) Generate(ctx context.Context, input *GenerateInput) (*GenerateOutput, error) {
	c.mu.Lock()
	idx := c.calls
	c.calls++
	c.inputs = append(c.inputs, input)
	if idx >= len(c.script) {
		if !c.RepeatLast || len(c.script) == 0 {
			c.mu.Unlock()
			return nil, errors.New("scripted LLM exhausted")
		}
		idx = len(c.script) - 1
	}
	step := c.script[idx]
	c.mu.Unlock()

	if step.Delay > 0 {
		timer := time.NewTimer(step.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if step.Err != nil {
		return nil, step.Err
	}
	return &GenerateOutput{Message: step.Message}, nil
}

// Close marks the client closed.
func (c *ScriptedLLMClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// CallCount returns how many Generate calls were made.
func (c *ScriptedLLMClient) CallCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Inputs returns the recorded Generate inputs in call order.
func (c *ScriptedLLMClient) Inputs() []*GenerateInput {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*GenerateInput(nil), c.inputs...)
}
