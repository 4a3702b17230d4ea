package agent

import (
	"context"
	"fmt"
	"sync"
)

// ScriptedStep is one canned response for a ScriptedClient: either a
// decision or an error to return in its place.
type ScriptedStep struct {
	Decision *Decision
	Err      error
}

// ScriptedClient replays a fixed response sequence. It makes the control
// loop testable without a model: the loop only ever sees the Client
// interface, so a script is indistinguishable from a live provider.
type ScriptedClient struct {
	mu    sync.Mutex
	steps []ScriptedStep
	next  int
}

func NewScriptedClient(steps ...ScriptedStep) *ScriptedClient {
	return &ScriptedClient{steps: steps}
}

// ScriptTool builds a step that requests a single tool invocation.
func ScriptTool(name string, args map[string]any) ScriptedStep {
	req := ToolRequest{
		ID:        fmt.Sprintf("call-%s", name),
		Name:      name,
		Arguments: args,
	}
	return ScriptedStep{Decision: &Decision{
		Tools:     []ToolRequest{req},
		Assistant: Message{Role: RoleAssistant, ToolCalls: []ToolRequest{req}},
	}}
}

// ScriptFinal builds a step that returns a final answer.
func ScriptFinal(content string) ScriptedStep {
	return ScriptedStep{Decision: &Decision{
		Final:     &FinalAnswer{Content: content},
		Assistant: Message{Role: RoleAssistant, Content: content},
	}}
}

// ScriptError builds a step that fails with a transient DecisionError.
func ScriptError(msg string) ScriptedStep {
	return ScriptedStep{Err: &DecisionError{Err: fmt.Errorf("%s", msg)}}
}

func (c *ScriptedClient) Decide(ctx context.Context, transcript []Message, tools []ToolDefinition) (*Decision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.next >= len(c.steps) {
		return nil, &DecisionError{Err: fmt.Errorf("script exhausted after %d steps", len(c.steps))}
	}
	step := c.steps[c.next]
	c.next++
	if step.Err != nil {
		return nil, step.Err
	}
	return step.Decision, nil
}

// Calls reports how many decisions have been consumed.
func (c *ScriptedClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}
